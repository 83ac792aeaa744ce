package versioning

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionDiscovery(t *testing.T) {
	repo := testRepository(t, "test", map[string]string{
		"001_create_accounts.go":      "package versions",
		"001_create_accounts_test.go": "package versions",
		"002_default_upgrade.sql":     "create table a (id int);",
		"002_default_downgrade.sql":   "drop table a;",
		"002_postgres_upgrade.sql":    "create table a (id serial);",
		"004_default_upgrade.sql":     "select 1;",
		"doc.go":                      "package versions",
		"README.md":                   "notes",
		"005_notes.txt":               "ignored",
	})

	assert.Equal(t, VersionNumber(4), repo.Latest(), "gaps are allowed, the highest prefix wins")
	assert.Equal(t, []VersionNumber{1, 2, 4}, repo.Versions.Numbers())

	v1, err := repo.Version(1)
	require.NoError(t, err)
	require.NotNil(t, v1.Native())
	assert.Equal(t, "001_create_accounts.go", v1.Native().Path())

	v2, err := repo.Version(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "postgres"}, v2.Dialects())

	s, err := v2.Script("postgres", OpUpgrade)
	require.NoError(t, err)
	assert.Equal(t, "002_postgres_upgrade.sql", s.Path())

	s, err = v2.Script("sqlite", OpUpgrade)
	require.NoError(t, err)
	assert.Equal(t, "002_default_upgrade.sql", s.Path())

	s, err = v2.Script("postgres", OpDowngrade)
	require.NoError(t, err)
	assert.Equal(t, "002_default_downgrade.sql", s.Path())

	text, err := s.Source()
	require.NoError(t, err)
	assert.Equal(t, "drop table a;", text)

	s, err = v1.Script("mysql", OpDowngrade)
	require.NoError(t, err)
	assert.IsType(t, &NativeScript{}, s)

	v4, err := repo.Version(4)
	require.NoError(t, err)
	_, err = v4.Script("sqlite", OpDowngrade)
	require.ErrorIs(t, err, ErrInvalidScript)

	_, err = repo.Version(3)
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = repo.Changeset("sqlite", 0, 4)
	require.ErrorIs(t, err, ErrInvalidVersion, "version 3 is missing")
}

func TestCollectionStructuralErrors(t *testing.T) {
	_, err := LoadRepositoryFS(repositoryFS("test", map[string]string{
		"001_upgrade.sql":           "",
		"002_a.go":                  "package versions",
		"002_b.go":                  "package versions",
		"003_default_migrate.sql":   "",
		"004_default_downgrade.sql": "",
	}))
	require.ErrorIs(t, err, ErrInvalidScript)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)

	_, err = LoadRepositoryFS(repositoryFS("test", map[string]string{"000_init.go": "package versions"}))
	require.ErrorIs(t, err, ErrInvalidVersion)

	_, err = LoadRepositoryFS(repositoryFS("test", map[string]string{"1/__init__.py": ""}))
	require.ErrorIs(t, err, ErrOldLayout)
}

func TestLoadRepositoryInvalid(t *testing.T) {
	_, err := LoadRepository(t.TempDir())
	require.ErrorIs(t, err, ErrInvalidRepository)

	fsys := repositoryFS("test", nil)
	delete(fsys, VersionsDir)
	_, err = LoadRepositoryFS(fsys)
	require.ErrorIs(t, err, ErrInvalidRepository)

	_, err = LoadRepositoryFS(repositoryFS("", nil))
	require.ErrorIs(t, err, ErrInvalidRepository, "repository_id is required")
}

func TestCreateRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo")
	repo, err := CreateRepository(dir, "accounts", WithVersionTable("schema_version"), WithRequiredDBs("sqlite"))
	require.NoError(t, err)
	assert.Equal(t, "accounts", repo.ID())
	assert.Equal(t, "schema_version", repo.VersionTable())
	assert.Equal(t, []string{"sqlite"}, repo.Config.RequiredDBs)
	assert.Equal(t, VersionNumber(0), repo.Latest())
	assert.False(t, repo.Versions.ReadOnly())

	_, err = CreateRepository(dir, "accounts")
	require.ErrorIs(t, err, ErrPathExists)

	v, err := repo.CreateScript("Add accounts table")
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(1), v.Number)
	assert.Equal(t, "001_add_accounts_table.go", v.Native().Path())
	src, err := v.Native().Source()
	require.NoError(t, err)
	assert.Contains(t, src, "versioning.Register(upgrade001, downgrade001)")

	v, err = repo.CreateScriptSQL("postgres")
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(2), v.Number)
	require.NotNil(t, v.SQL("postgres", OpUpgrade))
	require.NotNil(t, v.SQL("postgres", OpDowngrade))

	_, err = repo.CreateScriptSQL("my_db")
	require.ErrorIs(t, err, ErrInvalidScript)

	reloaded, err := LoadRepository(dir)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(2), reloaded.Latest())
	s, err := reloaded.Versions.versions[2].Script("postgres", OpUpgrade)
	require.NoError(t, err)
	assert.Equal(t, "002_postgres_upgrade.sql", s.Path())

	// файл, записанный в обход коллекции
	require.NoError(t, os.WriteFile(filepath.Join(dir, VersionsDir, "003_add_email.go"), []byte("package versions\n"), 0o644))
	_, err = reloaded.CreateScript("add email")
	require.ErrorIs(t, err, ErrScriptExists)
	assert.Equal(t, VersionNumber(2), reloaded.Latest())
}

func TestEmbeddedRepositoryIsReadOnly(t *testing.T) {
	repo := testRepository(t, "test", nil)
	_, err := repo.CreateScript("anything")
	require.ErrorIs(t, err, ErrReadOnly)
	_, err = repo.CreateScriptSQL("sqlite")
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestChangeset(t *testing.T) {
	files := make(map[string]string)
	for i := 1; i <= 10; i++ {
		files[fmt.Sprintf("%03d_default_upgrade.sql", i)] = "select 1;"
		files[fmt.Sprintf("%03d_default_downgrade.sql", i)] = "select 1;"
	}
	repo := testRepository(t, "test", files)
	require.Equal(t, VersionNumber(10), repo.Latest())

	cs, err := repo.Changeset("sqlite", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, cs.Len())
	assert.Equal(t, Upgrade, cs.Step)
	assert.Equal(t, []VersionNumber{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, cs.Versions())
	assert.Equal(t, "001_default_upgrade.sql", cs.Changes[0].Script.Path())
	assert.Equal(t, VersionNumber(10), cs.End)

	cs, err = repo.Changeset("sqlite", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, cs.Len())
	assert.Equal(t, Downgrade, cs.Step)
	assert.Equal(t, []VersionNumber{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, cs.Versions())
	assert.Equal(t, "010_default_downgrade.sql", cs.Changes[0].Script.Path())
	assert.Equal(t, VersionNumber(0), cs.End)

	cs, err = repo.Changeset("sqlite", 5, 5)
	require.NoError(t, err)
	assert.True(t, cs.Empty())

	_, err = repo.Changeset("sqlite", 0, 11)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = repo.Changeset("sqlite", 0, -1)
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = repo.Changeset("sqlite", 11, 0)
	require.True(t, errors.Is(err, ErrInvalidVersion))
}
