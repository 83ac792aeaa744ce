package changeset

import (
	"context"
)

type mysqlDialect struct {
	*ansi
}

// NewMySQL возвращает диалект MySQL. Изменение колонки - один CHANGE COLUMN
// с полным итоговым определением.
func NewMySQL() Dialect {
	d := newANSI(DialectMySQL)
	d.quoteOpen, d.quoteClose = "`", "`"
	d.types = mysqlTypes
	d.dropIndexOn = true
	d.serial = func(c *Column, typ string, _ bool) (string, string, bool) {
		if c.Autoincrement && c.Type.Kind.Is(KindInteger) {
			return typ, " AUTO_INCREMENT", false
		}
		return typ, "", false
	}
	return &mysqlDialect{ansi: d}
}

func (d *mysqlDialect) Apply(ctx context.Context, r Runner, op Operation) error {
	switch op := op.(type) {
	case RenameIndex:
		return notSupported(d.name, op.OperationName(), "MySQL cannot rename indexes")
	case AlterColumn:
		return d.alterColumn(ctx, r, op.Delta)
	case AlterColumnType, AlterColumnNullable:
		return notSupported(d.name, op.OperationName(), "MySQL needs the whole column definition, use AlterColumn with a column")
	case AddConstraint:
		if _, ok := op.Constraint.(*CheckConstraint); ok {
			return notSupported(d.name, "CHECK constraints", "MySQL does not enforce them, use triggers")
		}
	case DropConstraint:
		table := d.alterTable(op.Constraint.TableName())
		switch c := op.Constraint.(type) {
		case *PrimaryKeyConstraint:
			return r.Exec(ctx, table+"DROP PRIMARY KEY")
		case *ForeignKeyConstraint:
			return r.Exec(ctx, table+"DROP FOREIGN KEY "+d.Quote(ConstraintName(c)))
		case *UniqueConstraint:
			return r.Exec(ctx, table+"DROP INDEX "+d.Quote(ConstraintName(c)))
		case *CheckConstraint:
			return notSupported(d.name, "CHECK constraints", "MySQL does not enforce them, use triggers")
		}
	}
	return d.ansi.Apply(ctx, r, op)
}

func (d *mysqlDialect) alterColumn(ctx context.Context, r Runner, delta *ColumnDelta) error {
	table := delta.tableName()
	if delta.Has(KeyType) || delta.Has(KeyNullable) || delta.Has(KeyName) || delta.Has(KeyAutoincrement) {
		if err := delta.requireResult(d.name); err != nil {
			return err
		}
		spec, _ := d.columnSpec(delta.Result, false)
		if err := r.Exec(ctx, d.alterTable(table)+"CHANGE COLUMN "+d.Quote(delta.CurrentName)+" "+spec); err != nil {
			return err
		}
	}
	if delta.Has(KeyServerDefault) {
		def, _ := delta.changes[KeyServerDefault].(*string)
		// колонка могла быть переименована выше
		if err := r.Apply(ctx, AlterColumnDefault{Table: table, Column: delta.NewName(), Default: def}); err != nil {
			return err
		}
	}
	return alterPrimaryKey(ctx, r, delta)
}
