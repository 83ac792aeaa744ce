package changeset

import (
	"context"
	"fmt"
	"strings"
)

const sqliteHint = "see http://www.sqlite.org/lang_altertable.html"

// sqliteTemp - имя, под которое живая таблица переносится на время пересборки.
const sqliteTemp = "migration_tmp"

type sqliteDialect struct {
	*ansi
}

// NewSQLite возвращает диалект SQLite. Изменение колонок пересобирает таблицу:
// переименование во временную, создание новой, копирование строк, удаление
// временной.
func NewSQLite() Dialect {
	d := newANSI(DialectSQLite)
	d.types = sqliteTypes
	d.serial = func(c *Column, typ string, soloPK bool) (string, string, bool) {
		if soloPK && c.Autoincrement && c.Type.Kind.Is(KindInteger) {
			return "INTEGER", " PRIMARY KEY AUTOINCREMENT", true
		}
		return typ, "", false
	}
	return &sqliteDialect{ansi: d}
}

func (d *sqliteDialect) unsupported(operation string) error {
	return notSupported(d.name, operation, sqliteHint)
}

func (d *sqliteDialect) Apply(ctx context.Context, r Runner, op Operation) error {
	switch op := op.(type) {
	case RenameIndex:
		return d.unsupported("ALTER INDEX")
	case AddColumn:
		if op.Column.ForeignKey != nil || op.Column.Unique {
			return d.unsupported("ALTER TABLE ADD CONSTRAINT")
		}
	case DropColumn:
		return d.dropColumn(ctx, r, op)
	case AlterColumn:
		return d.alterColumn(ctx, r, op.Delta)
	case AlterColumnType:
		return d.alterNamed(ctx, r, op.Table, op.Column, WithType(op.Type))
	case AlterColumnNullable:
		return d.alterNamed(ctx, r, op.Table, op.Column, WithNullable(op.Nullable))
	case AlterColumnDefault:
		return d.alterNamed(ctx, r, op.Table, op.Column, WithServerDefault(op.Default))
	case AlterColumnName:
		return d.alterNamed(ctx, r, op.Table, op.Column, WithName(op.NewName))
	case AddConstraint:
		pk, ok := op.Constraint.(*PrimaryKeyConstraint)
		if !ok {
			return d.unsupported("ALTER TABLE ADD CONSTRAINT")
		}
		// первичный ключ эмулируется уникальным индексом
		return r.Exec(ctx, fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
			d.Quote(ConstraintName(pk)), d.Quote(pk.TableName()), d.quoteAll(pk.ColumnNames())))
	case DropConstraint:
		pk, ok := op.Constraint.(*PrimaryKeyConstraint)
		if !ok {
			return d.unsupported("ALTER TABLE DROP CONSTRAINT")
		}
		return r.Exec(ctx, "DROP INDEX "+d.Quote(ConstraintName(pk)))
	}
	return d.ansi.Apply(ctx, r, op)
}

// liveTable возвращает t, если в нем есть колонки, иначе читает таблицу из базы.
func (d *sqliteDialect) liveTable(ctx context.Context, r Runner, t *Table) (*Table, error) {
	if t != nil && len(t.Columns) > 0 {
		return t, nil
	}
	if t == nil {
		return nil, fmt.Errorf("%w: table is unknown", ErrReflectUnavailable)
	}
	return r.Reflect(ctx, t.Name)
}

func (d *sqliteDialect) alterNamed(ctx context.Context, r Runner, table, column string, change Change) error {
	live, err := r.Reflect(ctx, table)
	if err != nil {
		return err
	}
	return d.alterColumn(ctx, r, AlterColumnByName(live, column, change))
}

func (d *sqliteDialect) dropColumn(ctx context.Context, r Runner, op DropColumn) error {
	current, err := d.liveTable(ctx, r, op.Table)
	if err != nil {
		return err
	}
	if current.Column(op.Column) == nil {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, current.Name, op.Column)
	}
	result := current.Copy()
	result.removeColumn(op.Column)
	sources := make(map[string]string, len(result.Columns))
	for _, c := range result.Columns {
		sources[c.Name] = c.Name
	}
	return d.rebuild(ctx, r, current, result, sources)
}

func (d *sqliteDialect) alterColumn(ctx context.Context, r Runner, delta *ColumnDelta) error {
	if delta.Empty() {
		return nil
	}
	current, err := d.liveTable(ctx, r, delta.Table)
	if err != nil {
		return err
	}
	col := current.Column(delta.CurrentName)
	if col == nil {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, current.Name, delta.CurrentName)
	}
	if delta.Result == nil {
		delta.resolve(col)
	}
	result := current.Copy()
	result.replaceColumn(delta.CurrentName, delta.Result.Copy())
	sources := make(map[string]string, len(result.Columns))
	for _, c := range result.Columns {
		sources[c.Name] = c.Name
	}
	sources[delta.NewName()] = delta.CurrentName
	return d.rebuild(ctx, r, current, result, sources)
}

// rebuild заменяет current на result. sources сопоставляет каждой колонке result
// колонку current, из которой копируются данные.
//
// На время пересоздания индексы и ограничения снимаются. Индексы уходят вместе
// с переименованной таблицей и удаляются с ней, поэтому те, чьи колонки
// остались, создаются заново в конце. Внешние ключи других таблиц продолжают
// ссылаться на имя таблицы, см. renameToTemp.
func (d *sqliteDialect) rebuild(ctx context.Context, r Runner, current, result *Table, sources map[string]string) error {
	if current.IndexesUnknown() {
		return fmt.Errorf("%w: indexes of %s are unknown, rebuilding would drop them", ErrReflectUnavailable, current.Name)
	}
	renamed := make(map[string]string, len(sources))
	for to, from := range sources {
		renamed[from] = to
	}
	indexes := make([]*Index, 0, len(current.Indexes))
	for _, idx := range tableIndexes(current) {
		cols := make([]string, 0, len(idx.Columns))
		for _, c := range idx.Columns {
			if to, ok := renamed[c]; ok {
				cols = append(cols, to)
			}
		}
		if len(cols) != len(idx.Columns) {
			continue
		}
		indexes = append(indexes, NewIndex(idx.Name, result.Name, idx.Unique, cols...))
	}

	detached := result.Copy()
	detached.Indexes = nil
	detached.Constraints = nil
	for _, c := range detached.Columns {
		c.Index = false
	}

	if err := d.renameToTemp(ctx, r, current.Name); err != nil {
		return err
	}
	if err := r.Exec(ctx, d.createTableSQL(detached, false)); err != nil {
		return err
	}
	to := make([]string, 0, len(result.Columns))
	from := make([]string, 0, len(result.Columns))
	for _, c := range result.Columns {
		to = append(to, d.Quote(c.Name))
		from = append(from, d.Quote(sources[c.Name]))
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		d.Quote(result.Name), strings.Join(to, ", "), strings.Join(from, ", "), sqliteTemp)
	if err := r.Exec(ctx, insert); err != nil {
		return err
	}
	if err := r.Exec(ctx, "DROP TABLE "+sqliteTemp); err != nil {
		return err
	}
	for _, idx := range indexes {
		if err := r.Apply(ctx, CreateIndex{Index: idx}); err != nil {
			return err
		}
	}
	return nil
}

// renameToTemp переносит живую таблицу во временную. SQLite 3.26+ при
// переименовании переписывает внешние ключи других таблиц на новое имя, и они
// ссылались бы на временную таблицу; legacy_alter_table оставляет исходное имя.
// При foreign_keys = ON SQLite переписывает их в любом случае, поэтому пересборка
// рассчитана на foreign_keys = OFF, значение по умолчанию.
func (d *sqliteDialect) renameToTemp(ctx context.Context, r Runner, table string) (err error) {
	if err := r.Exec(ctx, "PRAGMA legacy_alter_table = ON"); err != nil {
		return err
	}
	defer func() {
		if restoreErr := r.Exec(ctx, "PRAGMA legacy_alter_table = OFF"); err == nil {
			err = restoreErr
		}
	}()
	return r.Exec(ctx, d.alterTable(table)+"RENAME TO "+sqliteTemp)
}
