package versioning

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maksumys/migrate/changeset"
)

var errBoom = errors.New("boom")

func accountsRegistry(ran *[]string) *Registry {
	r := NewRegistry()
	r.Register("001_create_accounts.go",
		func(ctx context.Context, e *changeset.Engine) error {
			*ran = append(*ran, "up1")
			return e.CreateTable(ctx, changeset.NewTable("accounts",
				changeset.NewColumn("id", changeset.Integer(), changeset.PrimaryKey()),
				changeset.NewColumn("name", changeset.String(40)),
			))
		},
		func(ctx context.Context, e *changeset.Engine) error {
			*ran = append(*ran, "down1")
			return e.DropTable(ctx, "accounts")
		},
	)
	r.Register("002_add_email.go",
		func(ctx context.Context, e *changeset.Engine) error {
			*ran = append(*ran, "up2")
			return e.AddColumn(ctx, changeset.NewTable("accounts"), changeset.NewColumn("email", changeset.String(128)))
		},
		func(ctx context.Context, e *changeset.Engine) error {
			*ran = append(*ran, "down2")
			return e.DropColumn(ctx, changeset.NewTable("accounts"), "email")
		},
	)
	return r
}

var accountsFiles = map[string]string{
	"001_create_accounts.go": "package versions",
	"002_add_email.go":       "package versions",
}

func TestControlledSchemaLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	var ran []string
	repo := testRepository(t, "accounts", accountsFiles, WithRegistry(accountsRegistry(&ran)))

	_, err := LoadControlledSchema(ctx, db, repo)
	require.ErrorIs(t, err, ErrDatabaseNotControlled)

	_, err = CreateControlledSchema(ctx, db, repo, 3)
	require.ErrorIs(t, err, ErrInvalidVersion)

	schema, err := CreateControlledSchema(ctx, db, repo, 0)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(0), schema.Version())
	assert.Equal(t, "sqlite", schema.Dialect().Name())

	_, err = CreateControlledSchema(ctx, db, repo, 0)
	require.ErrorIs(t, err, ErrDatabaseAlreadyControlled)

	require.NoError(t, schema.Upgrade(ctx, 2))
	assert.Equal(t, VersionNumber(2), schema.Version())
	assert.Equal(t, []string{"up1", "up2"}, ran)
	assert.True(t, db.Migrator().HasColumn("accounts", "email"))

	// уже под контролем
	require.NoError(t, schema.Upgrade(ctx, 2))
	assert.Equal(t, []string{"up1", "up2"}, ran)

	reloaded, err := LoadControlledSchema(ctx, db, repo)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(2), reloaded.Version())

	require.NoError(t, db.Exec("INSERT INTO accounts (id, name, email) VALUES (1, 'ann', 'ann@example.com')").Error)

	require.NoError(t, schema.Upgrade(ctx, 1))
	assert.Equal(t, VersionNumber(1), schema.Version())
	assert.False(t, db.Migrator().HasColumn("accounts", "email"))
	var name string
	require.NoError(t, db.Raw("SELECT name FROM accounts WHERE id = 1").Scan(&name).Error)
	assert.Equal(t, "ann", name)

	require.NoError(t, schema.Upgrade(ctx, 0))
	assert.False(t, db.Migrator().HasTable("accounts"))
	assert.Equal(t, []string{"up1", "up2", "down2", "down1"}, ran)

	require.NoError(t, schema.Drop(ctx))
	assert.False(t, db.Migrator().HasTable(DefaultVersionTable))
	require.ErrorIs(t, schema.Drop(ctx), ErrDatabaseNotControlled)
}

func TestControlledSchemaStopsAtFailedStep(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	thirdRan := false
	r := NewRegistry()
	r.Register("001_one.go", func(ctx context.Context, e *changeset.Engine) error {
		return e.CreateTable(ctx, changeset.NewTable("one", changeset.NewColumn("id", changeset.Integer(), changeset.PrimaryKey())))
	}, nil)
	r.Register("002_two.go", func(context.Context, *changeset.Engine) error {
		return errBoom
	}, nil)
	r.Register("003_three.go", func(context.Context, *changeset.Engine) error {
		thirdRan = true
		return nil
	}, nil)
	repo := testRepository(t, "steps", map[string]string{
		"001_one.go":   "package versions",
		"002_two.go":   "package versions",
		"003_three.go": "package versions",
	}, WithRegistry(r))

	schema, err := CreateControlledSchema(ctx, db, repo, 0)
	require.NoError(t, err)

	err = schema.Upgrade(ctx, 3)
	require.ErrorIs(t, err, errBoom)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, VersionNumber(1), stepErr.Version)
	assert.Equal(t, Upgrade, stepErr.Step)
	assert.Equal(t, "upgrade 1 -> 2: boom", stepErr.Error())

	assert.False(t, thirdRan)
	assert.Equal(t, VersionNumber(1), schema.Version())
	reloaded, err := LoadControlledSchema(ctx, db, repo)
	require.NoError(t, err)
	assert.Equal(t, VersionNumber(1), reloaded.Version())

	// отсутствие функции downgrade - ошибка, версия не меняется
	err = schema.Upgrade(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidScript)
	assert.Equal(t, VersionNumber(1), schema.Version())
}

func TestRunChangeChecks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	var ran []string
	repo := testRepository(t, "accounts", accountsFiles, WithRegistry(accountsRegistry(&ran)))

	schema, err := CreateControlledSchema(ctx, db, repo, 0)
	require.NoError(t, err)
	v1, err := repo.Version(1)
	require.NoError(t, err)
	script, err := v1.Script("sqlite", OpUpgrade)
	require.NoError(t, err)

	require.ErrorIs(t, schema.RunChange(ctx, 0, script, Direction(2)), ErrInvalidStep)
	require.ErrorIs(t, schema.RunChange(ctx, 1, script, Upgrade), ErrInvalidVersion)
	assert.Empty(t, ran)

	require.NoError(t, schema.RunChange(ctx, 0, script, Upgrade))
	assert.Equal(t, VersionNumber(1), schema.Version())
}

func TestWrongRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	var ran []string
	repo := testRepository(t, "accounts", accountsFiles, WithRegistry(accountsRegistry(&ran)))
	other := testRepository(t, "billing", nil)

	schema, err := CreateControlledSchema(ctx, db, repo, 1)
	require.NoError(t, err)
	assert.Empty(t, ran, "putting a database under control runs no scripts")

	_, err = LoadControlledSchema(ctx, db, other)
	require.ErrorIs(t, err, ErrWrongRepository)
	require.ErrorIs(t, err, ErrDatabaseNotControlled)

	otherSchema, err := CreateControlledSchema(ctx, db, other, 0)
	require.NoError(t, err)

	require.NoError(t, schema.Drop(ctx))
	assert.True(t, db.Migrator().HasTable(DefaultVersionTable), "the table still tracks billing")
	require.ErrorIs(t, schema.Drop(ctx), ErrWrongRepository)

	require.NoError(t, otherSchema.Drop(ctx))
	assert.False(t, db.Migrator().HasTable(DefaultVersionTable))
}

func TestSQLScriptRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := testRepository(t, "sql", map[string]string{
		"001_default_upgrade.sql": `
-- a statement that fails after a table was created
CREATE TABLE a (id INTEGER);
INSERT INTO a VALUES (1);
INSERT INTO missing VALUES (1);
`,
		"001_default_downgrade.sql": "DROP TABLE a;",
		"002_sqlite_upgrade.sql":    "CREATE TABLE b (id INTEGER); CREATE TABLE c (id INTEGER);",
		"002_default_upgrade.sql":   "this is not used on sqlite",
		"002_default_downgrade.sql": "DROP TABLE c; DROP TABLE b;",
	}, WithRegistry(NewRegistry()))

	schema, err := CreateControlledSchema(ctx, db, repo, 0)
	require.NoError(t, err)

	err = schema.Upgrade(ctx, 2)
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "INSERT INTO missing VALUES (1)", stmtErr.Statement)
	assert.False(t, db.Migrator().HasTable("a"))
	assert.Equal(t, VersionNumber(0), schema.Version())

	fixed := testRepository(t, "sql", map[string]string{
		"001_default_upgrade.sql":   "CREATE TABLE a (id INTEGER);",
		"001_default_downgrade.sql": "DROP TABLE a;",
		"002_sqlite_upgrade.sql":    "CREATE TABLE b (id INTEGER); CREATE TABLE c (id INTEGER);",
		"002_default_downgrade.sql": "DROP TABLE c; DROP TABLE b;",
	}, WithRegistry(NewRegistry()))
	schema, err = LoadControlledSchema(ctx, db, fixed)
	require.NoError(t, err)
	require.NoError(t, schema.Upgrade(ctx, 2))
	assert.True(t, db.Migrator().HasTable("c"))

	require.NoError(t, schema.Upgrade(ctx, 1))
	assert.False(t, db.Migrator().HasTable("b"))
	assert.True(t, db.Migrator().HasTable("a"))
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	var ran []string
	repo := testRepository(t, "accounts", accountsFiles, WithRegistry(accountsRegistry(&ran)))
	schema, err := CreateControlledSchema(ctx, db, repo, 0)
	require.NoError(t, err)

	cs, err := schema.Changeset(1)
	require.NoError(t, err)
	require.Equal(t, 1, cs.Len())

	statements, err := cs.Changes[0].Script.Preview(ctx, schema.Engine(), cs.Step)
	require.NoError(t, err)
	require.NotEmpty(t, statements)
	assert.Contains(t, statements[0], "CREATE TABLE accounts")
	assert.False(t, db.Migrator().HasTable("accounts"))
	assert.Equal(t, VersionNumber(0), schema.Version())
}
