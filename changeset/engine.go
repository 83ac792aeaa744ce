package changeset

import (
	"context"
	"fmt"
	"slices"
)

// Executor выполняет SQL и отдает описание живых таблиц.
type Executor interface {
	Exec(ctx context.Context, stmt string, args ...any) error
	Reflect(ctx context.Context, table string) (*Table, error)
	HasTable(ctx context.Context, table string) (bool, error)
}

// Engine связывает диалект с соединением. Это то, что получают нативные скрипты:
// все операции над схемой идут через него.
type Engine struct {
	dialect Dialect
	exec    Executor
}

func NewEngine(dialect Dialect, exec Executor) *Engine {
	return &Engine{dialect: dialect, exec: exec}
}

func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// Executor возвращает исполнителя, например *GormExecutor для изменения данных.
func (e *Engine) Executor() Executor {
	return e.exec
}

// Exec выполняет выражение как есть.
func (e *Engine) Exec(ctx context.Context, stmt string, args ...any) error {
	return e.exec.Exec(ctx, stmt, args...)
}

// Apply передает op диалекту. Вложенные операции возвращаются сюда же.
func (e *Engine) Apply(ctx context.Context, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.dialect.Apply(ctx, e, op)
}

func (e *Engine) Reflect(ctx context.Context, table string) (*Table, error) {
	return e.exec.Reflect(ctx, table)
}

func (e *Engine) HasTable(ctx context.Context, table string) (bool, error) {
	return e.exec.HasTable(ctx, table)
}

func (e *Engine) CreateTable(ctx context.Context, t *Table) error {
	return e.Apply(ctx, CreateTable{Table: t})
}

func (e *Engine) DropTable(ctx context.Context, name string) error {
	return e.Apply(ctx, DropTable{Table: name})
}

func (e *Engine) CreateIndex(ctx context.Context, idx *Index) error {
	return e.Apply(ctx, CreateIndex{Index: idx})
}

func (e *Engine) DropIndex(ctx context.Context, idx *Index) error {
	return e.Apply(ctx, DropIndex{Index: idx})
}

// AddColumn добавляет c в t и привязывает колонку к модели.
func (e *Engine) AddColumn(ctx context.Context, t *Table, c *Column) error {
	if err := e.Apply(ctx, AddColumn{Table: t, Column: c}); err != nil {
		return err
	}
	t.AppendColumn(c)
	return nil
}

// DropColumn удаляет колонку из базы, а из модели - колонку и индексы по ней.
func (e *Engine) DropColumn(ctx context.Context, t *Table, column string) error {
	if err := e.Apply(ctx, DropColumn{Table: t, Column: column}); err != nil {
		return err
	}
	t.removeColumn(column)
	t.Indexes = slices.DeleteFunc(t.Indexes, func(idx *Index) bool { return slices.Contains(idx.Columns, column) })
	return nil
}

func (e *Engine) RenameTable(ctx context.Context, t *Table, newName string) error {
	if err := e.Apply(ctx, RenameTable{Table: t.Name, NewName: newName}); err != nil {
		return err
	}
	t.Name = newName
	for _, idx := range t.Indexes {
		idx.Table = newName
	}
	return nil
}

func (e *Engine) RenameIndex(ctx context.Context, idx *Index, newName string) error {
	if err := e.Apply(ctx, RenameIndex{Index: idx, NewName: newName}); err != nil {
		return err
	}
	idx.Name = newName
	return nil
}

// AlterColumn применяет delta. Пустая дельта ничего не делает.
func (e *Engine) AlterColumn(ctx context.Context, delta *ColumnDelta) error {
	if delta.Empty() {
		return nil
	}
	if err := e.Apply(ctx, AlterColumn{Delta: delta}); err != nil {
		return err
	}
	if t := delta.Table; t != nil && delta.Result != nil {
		newName := delta.NewName()
		t.replaceColumn(delta.CurrentName, delta.Result)
		for _, idx := range t.Indexes {
			for i, c := range idx.Columns {
				if c == delta.CurrentName {
					idx.Columns[i] = newName
				}
			}
		}
	}
	return nil
}

// AlterColumnNamed изменяет колонку, известную только по имени. Если модель
// ее не описывает, сначала читается структура живой таблицы.
func (e *Engine) AlterColumnNamed(ctx context.Context, t *Table, name string, changes ...Change) error {
	delta := AlterColumnByName(t, name, changes...)
	if delta.Result == nil {
		live, err := e.Reflect(ctx, t.Name)
		if err != nil {
			return err
		}
		col := live.Column(name)
		if col == nil {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, t.Name, name)
		}
		if len(t.Columns) == 0 {
			for _, c := range live.Columns {
				t.AppendColumn(c.Copy())
			}
			t.Indexes = append(t.Indexes, live.Indexes...)
			t.indexesUnknown = live.indexesUnknown
		}
		delta.resolve(col)
	}
	return e.AlterColumn(ctx, delta)
}

func (e *Engine) AddConstraint(ctx context.Context, c Constraint) error {
	return e.Apply(ctx, AddConstraint{Constraint: c})
}

// DropConstraint удаляет c и очищает список его колонок.
func (e *Engine) DropConstraint(ctx context.Context, c Constraint, cascade bool) error {
	if err := e.Apply(ctx, DropConstraint{Constraint: c, Cascade: cascade}); err != nil {
		return err
	}
	c.clearColumns()
	return nil
}
