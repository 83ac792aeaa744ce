package changeset

import (
	"context"
)

type oracleDialect struct {
	*ansi
}

// NewOracle возвращает диалект Oracle.
func NewOracle() Dialect {
	d := newANSI(DialectOracle)
	d.types = oracleTypes
	return &oracleDialect{ansi: d}
}

const oracleNameHint = "Oracle constraint names must be explicitly stated"

func (d *oracleDialect) Apply(ctx context.Context, r Runner, op Operation) error {
	switch op := op.(type) {
	case AddConstraint:
		if op.Constraint.Name() == "" {
			return notSupported(d.name, "unnamed constraints", oracleNameHint)
		}
	case DropConstraint:
		if op.Constraint.Name() == "" {
			return notSupported(d.name, "unnamed constraints", oracleNameHint)
		}
	case AlterColumn:
		return d.alterColumn(ctx, r, op.Delta)
	case AlterColumnType:
		return r.Exec(ctx, d.alterTable(op.Table)+"MODIFY "+d.Quote(op.Column)+" "+d.TypeSQL(op.Type))
	case AlterColumnNullable:
		null := "NOT NULL"
		if op.Nullable {
			null = "NULL"
		}
		return r.Exec(ctx, d.alterTable(op.Table)+"MODIFY "+d.Quote(op.Column)+" "+null)
	case AlterColumnDefault:
		def := "NULL"
		if op.Default != nil {
			def = *op.Default
		}
		return r.Exec(ctx, d.alterTable(op.Table)+"MODIFY "+d.Quote(op.Column)+" DEFAULT "+def)
	}
	return d.ansi.Apply(ctx, r, op)
}

// alterColumn выполняет один MODIFY с полным определением колонки, затем
// переименование.
//
// Oracle не умеет удалять значение по умолчанию: удаление становится DEFAULT NULL.
// NOT NULL на колонке, уже NOT NULL, Oracle отвергает, поэтому NOT NULL
// выводится только при изменении nullable, а для nullable нужен явный NULL.
func (d *oracleDialect) alterColumn(ctx context.Context, r Runner, delta *ColumnDelta) error {
	table := delta.tableName()
	if delta.Has(KeyType) || delta.Has(KeyNullable) || delta.Has(KeyServerDefault) {
		if err := delta.requireResult(d.name); err != nil {
			return err
		}
		col := delta.Result.Copy()
		col.Name = delta.CurrentName
		if col.ServerDefault == nil && delta.Has(KeyServerDefault) {
			null := "NULL"
			col.ServerDefault = &null
		}
		becomesNullable := col.Nullable && delta.Has(KeyNullable)
		if !col.Nullable && !delta.Has(KeyNullable) {
			col.Nullable = true
		}
		spec, _ := d.columnSpec(col, false)
		if becomesNullable {
			spec += " NULL"
		}
		if err := r.Exec(ctx, d.alterTable(table)+"MODIFY "+spec); err != nil {
			return err
		}
	}
	if delta.Has(KeyName) {
		if err := r.Apply(ctx, AlterColumnName{Table: table, Column: delta.CurrentName, NewName: delta.NewName()}); err != nil {
			return err
		}
	}
	return alterPrimaryKey(ctx, r, delta)
}
