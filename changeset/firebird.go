package changeset

import (
	"context"
)

type firebirdDialect struct {
	*ansi
}

// NewFirebird возвращает диалект Firebird.
func NewFirebird() Dialect {
	d := newANSI(DialectFirebird)
	d.types = firebirdTypes
	return &firebirdDialect{ansi: d}
}

func (d *firebirdDialect) Apply(ctx context.Context, r Runner, op Operation) error {
	switch op := op.(type) {
	case RenameTable:
		return notSupported(d.name, "renaming tables", "")
	case AlterColumnNullable:
		return notSupported(d.name, "altering NULL behavior", "")
	case AlterColumnName:
		return r.Exec(ctx, d.alterTable(op.Table)+"ALTER COLUMN "+d.Quote(op.Column)+" TO "+d.Quote(op.NewName))
	case DropConstraint:
		if op.Cascade {
			return notSupported(d.name, "cascading constraints", "")
		}
	case DropColumn:
		return d.dropColumn(ctx, r, op)
	}
	return d.ansi.Apply(ctx, r, op)
}

// dropColumn сначала удаляет первичный ключ и ограничения unique на колонке.
func (d *firebirdDialect) dropColumn(ctx context.Context, r Runner, op DropColumn) error {
	t := op.Table
	if col := t.Column(op.Column); col != nil {
		var drops []Constraint
		if col.PrimaryKey {
			pk, err := NewPrimaryKeyConstraint(Cols(t.PrimaryKeyColumns()...), OnTable(t.Name))
			if err != nil {
				return err
			}
			drops = append(drops, pk)
		}
		for _, c := range columnConstraints(&Table{Name: t.Name, Columns: []*Column{col}}) {
			if _, ok := c.(*UniqueConstraint); ok {
				drops = append(drops, c)
			}
		}
		for _, c := range t.Constraints {
			if u, ok := c.(*UniqueConstraint); ok && containsColumn(u, op.Column) {
				drops = append(drops, u)
			}
		}
		seen := map[string]bool{}
		for _, c := range drops {
			name := ConstraintName(c)
			if seen[name] {
				continue
			}
			seen[name] = true
			if err := r.Apply(ctx, DropConstraint{Constraint: c}); err != nil {
				return err
			}
		}
	}
	return r.Exec(ctx, d.alterTable(t.Name)+"DROP "+d.Quote(op.Column))
}

func containsColumn(c Constraint, column string) bool {
	for _, name := range c.ColumnNames() {
		if name == column {
			return true
		}
	}
	return false
}
