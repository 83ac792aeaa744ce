package migrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/example/repository"
	"github.com/Maksumys/migrate/versioning"
)

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func columnNames(t *testing.T, db *gorm.DB, table string) []string {
	t.Helper()
	types, err := db.Migrator().ColumnTypes(table)
	require.NoError(t, err)
	names := make([]string, 0, len(types))
	for _, ct := range types {
		names = append(names, ct.Name())
	}
	return names
}

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	m, err := NewManager(append([]ManagerOption{WithLogWriter(logrus.StandardLogger().Writer())}, opts...)...)
	require.NoError(t, err)
	return m
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	registry := versioning.NewRegistry()
	m := newTestManager(t, WithRegistry(registry))

	dir := filepath.Join(t.TempDir(), "repo")
	repo, err := m.CreateRepository(dir, "accounts")
	require.NoError(t, err)
	assert.Equal(t, versioning.VersionNumber(0), m.LatestVersion(repo))

	_, err = m.CreateRepository(dir, "accounts")
	var known *KnownError
	require.ErrorAs(t, err, &known)
	require.ErrorIs(t, err, versioning.ErrPathExists)

	v1, err := m.Script(repo, "create accounts")
	require.NoError(t, err)
	registry.Register(v1.Native().Path(),
		func(ctx context.Context, e *changeset.Engine) error {
			return e.CreateTable(ctx, changeset.NewTable("accounts",
				changeset.NewColumn("id", changeset.Integer(), changeset.PrimaryKey()),
				changeset.NewColumn("name", changeset.String(40)),
			))
		},
		func(ctx context.Context, e *changeset.Engine) error {
			return e.DropTable(ctx, "accounts")
		},
	)

	v2, err := m.Script(repo, "add email")
	require.NoError(t, err)
	assert.Equal(t, "002_add_email.go", v2.Native().Path())
	registry.Register(v2.Native().Path(),
		func(ctx context.Context, e *changeset.Engine) error {
			return e.AddColumn(ctx, changeset.NewTable("accounts"), changeset.NewColumn("email", changeset.String(128)))
		},
		func(ctx context.Context, e *changeset.Engine) error {
			return e.DropColumn(ctx, changeset.NewTable("accounts"), "email")
		},
	)
	assert.Equal(t, versioning.VersionNumber(2), m.LatestVersion(repo))

	db := openDB(t, "accounts.db")

	_, err = m.DBVersion(ctx, db, repo)
	require.ErrorIs(t, err, versioning.ErrDatabaseNotControlled)

	_, err = m.VersionControl(ctx, db, repo, 0)
	require.NoError(t, err)

	_, err = m.VersionControl(ctx, db, repo, 0)
	require.ErrorAs(t, err, &known)
	require.ErrorIs(t, err, versioning.ErrDatabaseAlreadyControlled)

	require.NoError(t, m.Upgrade(ctx, db, repo))
	version, err := m.DBVersion(ctx, db, repo)
	require.NoError(t, err)
	assert.Equal(t, versioning.VersionNumber(2), version)
	assert.ElementsMatch(t, []string{"id", "name", "email"}, columnNames(t, db, "accounts"))

	err = m.UpgradeTo(ctx, db, repo, 1)
	require.ErrorAs(t, err, &known)
	assert.Equal(t, "Cannot upgrade a database of version 2 to version 1. Try 'downgrade' instead.", known.Message)

	require.NoError(t, m.Downgrade(ctx, db, repo, 1))
	assert.ElementsMatch(t, []string{"id", "name"}, columnNames(t, db, "accounts"))

	err = m.Downgrade(ctx, db, repo, 2)
	require.ErrorAs(t, err, &known)
	assert.Equal(t, "Cannot downgrade a database of version 1 to version 2. Try 'upgrade' instead.", known.Message)

	require.NoError(t, m.Downgrade(ctx, db, repo, 0))
	version, err = m.DBVersion(ctx, db, repo)
	require.NoError(t, err)
	assert.Equal(t, versioning.VersionNumber(0), version)
	assert.False(t, db.Migrator().HasTable("accounts"))

	err = m.UpgradeTo(ctx, db, repo, 3)
	require.ErrorIs(t, err, versioning.ErrInvalidVersion)

	require.NoError(t, m.DropVersionControl(ctx, db, repo))
	assert.False(t, db.Migrator().HasTable(versioning.DefaultVersionTable))
	err = m.DropVersionControl(ctx, db, repo)
	require.ErrorIs(t, err, versioning.ErrDatabaseNotControlled)
}

func TestExampleRepository(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	repo, err := repository.Load()
	require.NoError(t, err)
	assert.Equal(t, "example", repo.ID())
	assert.Equal(t, versioning.VersionNumber(3), m.LatestVersion(repo))

	src, err := m.Source(repo, 1)
	require.NoError(t, err)
	assert.Contains(t, src, "func upgrade001(")

	src, err = m.Source(repo, 3)
	require.NoError(t, err)
	assert.Contains(t, src, "CREATE INDEX ix_accounts_email")

	_, err = m.Script(repo, "embedded")
	require.ErrorIs(t, err, versioning.ErrReadOnly)

	db := openDB(t, "example.db")
	_, err = m.VersionControl(ctx, db, repo, 0)
	require.NoError(t, err)

	plan, err := m.Preview(ctx, db, repo, 3, true)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, versioning.VersionNumber(0), plan[0].From)
	assert.Equal(t, versioning.VersionNumber(1), plan[0].To)
	assert.Equal(t, "001_create_accounts.go", plan[0].Script)
	assert.Contains(t, plan[0].Statements[0], "CREATE TABLE accounts")
	assert.Equal(t, []string{"ALTER TABLE accounts ADD email VARCHAR(128)"}, plan[1].Statements)
	assert.Equal(t, "003_default_upgrade.sql", plan[2].Script)
	assert.False(t, db.Migrator().HasTable("accounts"), "preview changes nothing")

	_, err = m.Preview(ctx, db, repo, 0, false)
	require.NoError(t, err)
	_, err = m.Preview(ctx, db, repo, 2, false)
	var known *KnownError
	require.ErrorAs(t, err, &known)

	require.NoError(t, m.UpgradeTo(ctx, db, repo, 2))
	require.NoError(t, m.Test(ctx, db, repo))
	assert.False(t, db.Migrator().HasIndex("accounts", "ix_accounts_email"))

	require.NoError(t, m.Upgrade(ctx, db, repo))
	assert.True(t, db.Migrator().HasIndex("accounts", "ix_accounts_email"))

	plan, err = m.Preview(ctx, db, repo, 2, false)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "003_default_downgrade.sql", plan[0].Script)
	assert.Equal(t, []string{"DROP INDEX ix_accounts_email;\n"}, plan[0].Statements)
}

func TestServices(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	repo, err := repository.Load()
	require.NoError(t, err)

	dbs := map[string]*gorm.DB{
		"billing": openDB(t, "billing.db"),
		"users":   openDB(t, "users.db"),
	}
	for name, db := range dbs {
		db := db
		require.NoError(t, m.RegisterService(name, repo, func() *gorm.DB { return db }, nil, ""))
	}

	err = m.RegisterService("broken", repo, nil, nil, "4")
	require.ErrorIs(t, err, versioning.ErrInvalidVersion)

	_, _, err = m.CheckFulfillment(ctx, "missing")
	require.ErrorIs(t, err, ErrServiceNotFound)

	reason, ok, err := m.CheckFulfillment(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)
	require.ErrorIs(t, reason, ErrHasForthcomingMigrations)

	require.NoError(t, m.MigrateService(ctx, "users"))
	reason, ok, err = m.CheckFulfillment(ctx, "users")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, reason)

	err = m.CheckAll(ctx)
	require.ErrorIs(t, err, ErrHasForthcomingMigrations)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 1)
	assert.Contains(t, merr.Errors[0].Error(), "billing")

	// целевая версия ниже последней: сервис отстает от репозитория
	require.NoError(t, m.RegisterService("billing", repo, func() *gorm.DB { return dbs["billing"] }, nil, "1"))
	require.NoError(t, m.MigrateService(ctx, "billing"))
	reason, ok, err = m.CheckFulfillment(ctx, "billing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.True(t, errors.Is(reason, ErrTargetVersionNotLatest))

	version, err := m.DBVersion(ctx, dbs["billing"], repo)
	require.NoError(t, err)
	assert.Equal(t, versioning.VersionNumber(1), version)

	// версия 0 - допустимая цель, а не последняя версия
	require.NoError(t, m.RegisterService("billing", repo, func() *gorm.DB { return dbs["billing"] }, nil, "0"))
	info, ok := m.GetServiceInfoUnsafe("billing")
	require.True(t, ok)
	require.NotNil(t, info.TargetVersion)
	assert.Equal(t, versioning.VersionNumber(0), *info.TargetVersion)

	reason, ok, err = m.CheckFulfillment(ctx, "billing")
	require.NoError(t, err)
	assert.False(t, ok)
	require.ErrorIs(t, reason, ErrAheadOfTarget)
}
