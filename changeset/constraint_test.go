package changeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintAutoname(t *testing.T) {
	foo := NewTable("foo", NewColumn("id", Integer(), PrimaryKey()), NewColumn("a", Integer()), NewColumn("b", Integer()))

	pk, err := NewPrimaryKeyConstraint([]ColumnRef{foo.Column("id")})
	require.NoError(t, err)
	assert.Equal(t, "foo_pkey", pk.Autoname())
	assert.Equal(t, "foo", pk.TableName())

	customers := NewTable("customers", NewColumn("id", Integer(), PrimaryKey()))
	fk, err := NewForeignKeyConstraint(Cols("customer_id"), []ColumnRef{customers.Column("id")}, OnTable("orders"))
	require.NoError(t, err)
	assert.Equal(t, "orders_customers_fkey", fk.Autoname())
	assert.Equal(t, []string{"customers.id"}, fk.Referenced())

	check, err := NewCheckConstraint("a > b", []ColumnRef{foo.Column("a"), foo.Column("b")})
	require.NoError(t, err)
	assert.Equal(t, "foo_a_b_check", check.Autoname())

	unique, err := NewUniqueConstraint(Cols("foo.a", "foo.b"))
	require.NoError(t, err)
	assert.Equal(t, "foo_a_b_key", unique.Autoname())
	assert.Equal(t, unique.Autoname(), ConstraintName(unique))

	named, err := NewUniqueConstraint(Cols("a"), OnTable("foo"), Named("uq_foo_a"))
	require.NoError(t, err)
	assert.Equal(t, "uq_foo_a", ConstraintName(named))
}

func TestConstraintInvalid(t *testing.T) {
	_, err := NewPrimaryKeyConstraint(Cols("id"))
	require.ErrorIs(t, err, ErrInvalidConstraint, "table cannot be determined")

	_, err = NewUniqueConstraint(Cols("a.x", "b.y"))
	require.ErrorIs(t, err, ErrInvalidConstraint)

	_, err = NewUniqueConstraint(Cols("x"), OnTable("a"), Named("not a name"))
	require.ErrorIs(t, err, ErrInvalidConstraint)

	_, err = NewForeignKeyConstraint(Cols("a", "b"), Cols("c.id"), OnTable("t"))
	require.ErrorIs(t, err, ErrInvalidConstraint)

	_, err = NewCheckConstraint(" ", nil, OnTable("t"))
	require.ErrorIs(t, err, ErrInvalidConstraint)
}

func TestColumnDelta(t *testing.T) {
	t.Run("equal strings", func(t *testing.T) {
		d := DiffColumns(NewColumn("a", String(0)), NewColumn("a", String(0)))
		assert.True(t, d.Empty())
	})

	t.Run("string length", func(t *testing.T) {
		d := DiffColumns(NewColumn("a", String(10)), NewColumn("a", String(20)))
		assert.Equal(t, []string{KeyType}, d.Keys())
		assert.Equal(t, 20, d.Result.Type.Length)
	})

	t.Run("subtype is equal", func(t *testing.T) {
		d := DiffColumns(NewColumn("a", Integer()), NewColumn("a", BigInteger()))
		assert.True(t, d.Empty())
		d = DiffColumns(NewColumn("a", Integer()), NewColumn("a", String(10)))
		assert.Equal(t, []string{KeyType}, d.Keys())
	})

	t.Run("primary key implies not null", func(t *testing.T) {
		d := DiffColumns(NewColumn("a", Integer()), NewColumn("a", Integer(), PrimaryKey()))
		assert.Equal(t, []string{KeyNullable, KeyPrimaryKey}, d.Keys())

		d = AlterColumnDelta(NewColumn("a", Integer()), WithPrimaryKey(true))
		assert.Equal(t, []string{KeyNullable, KeyPrimaryKey}, d.Keys())
		assert.False(t, d.Result.Nullable)
	})

	t.Run("client default is not a change", func(t *testing.T) {
		d := DiffColumns(NewColumn("a", Integer(), ClientDefault(1)), NewColumn("a", Integer(), ClientDefault(2)))
		assert.True(t, d.Empty())
	})

	t.Run("explicit overrides always change", func(t *testing.T) {
		d := AlterColumnDelta(NewColumn("a", String(10)), WithType(String(10)), WithNullable(true))
		assert.Equal(t, []string{KeyType, KeyNullable}, d.Keys())
	})

	t.Run("renamed column", func(t *testing.T) {
		d := AlterColumnDelta(NewColumn("b", Integer()), FromName("a"))
		assert.Equal(t, "a", d.CurrentName)
		assert.Equal(t, "b", d.NewName())
		assert.Equal(t, []string{KeyName}, d.Keys())
	})

	t.Run("by name", func(t *testing.T) {
		tbl := NewTable("t", NewColumn("a", Integer()))
		d := AlterColumnByName(tbl, "a", WithNullable(false))
		require.NotNil(t, d.Result)
		assert.False(t, d.Result.Nullable)

		d = AlterColumnByName(NewTable("t"), "a", WithNullable(false))
		assert.Nil(t, d.Result)
		assert.Equal(t, []string{KeyNullable}, d.Keys())
	})
}

func TestTypeEqualAndParse(t *testing.T) {
	assert.True(t, Text().Equal(String(0)))
	assert.False(t, Text().Equal(String(10)))
	assert.True(t, Custom("citext").Equal(Custom("CITEXT")))

	assert.Equal(t, String(20), ParseType("varchar(20)"))
	assert.Equal(t, Numeric(10, 2), ParseType("DECIMAL(10, 2)"))
	assert.Equal(t, DateTime(), ParseType("timestamp without time zone"))
	assert.Equal(t, Custom("geometry"), ParseType("geometry"))
}
