package changeset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

var ErrTableNotFound = errors.New("table not found")

// GormExecutor выполняет выражения через *gorm.DB (соединение или транзакцию).
type GormExecutor struct {
	db     *gorm.DB
	logger *slog.Logger
}

type GormOption func(*GormExecutor)

// WithExecutorLogger задает журнал для предупреждений при чтении структуры таблиц.
func WithExecutorLogger(logger *slog.Logger) GormOption {
	return func(g *GormExecutor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGormExecutor(db *gorm.DB, opts ...GormOption) *GormExecutor {
	g := &GormExecutor{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGormEngine создает Engine поверх db. При nil диалект определяется по
// имени диалектора gorm.
func NewGormEngine(db *gorm.DB, dialect Dialect, opts ...GormOption) *Engine {
	if dialect == nil {
		dialect = DialectFor(db.Dialector.Name())
	}
	return NewEngine(dialect, NewGormExecutor(db, opts...))
}

func (g *GormExecutor) DB() *gorm.DB {
	return g.db
}

// WithDB возвращает исполнителя поверх db (например, транзакции) с тем же журналом.
func (g *GormExecutor) WithDB(db *gorm.DB) *GormExecutor {
	return &GormExecutor{db: db, logger: g.logger}
}

func (g *GormExecutor) Exec(ctx context.Context, stmt string, args ...any) error {
	if err := g.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
		return &StatementError{Statement: stmt, Err: err}
	}
	return nil
}

func (g *GormExecutor) HasTable(ctx context.Context, table string) (bool, error) {
	return g.db.WithContext(ctx).Migrator().HasTable(table), nil
}

// Reflect читает колонки и индексы живой таблицы через Migrator gorm.
func (g *GormExecutor) Reflect(ctx context.Context, table string) (*Table, error) {
	m := g.db.WithContext(ctx).Migrator()
	if !m.HasTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	columnTypes, err := m.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("reflect %s: %w", table, err)
	}

	t := &Table{Name: table}
	for _, ct := range columnTypes {
		t.AppendColumn(reflectColumn(ct))
	}

	// не каждый диалектор умеет перечислять индексы
	indexes, err := m.GetIndexes(table)
	if err != nil {
		g.logger.Warn("cannot list indexes, reflected table has none", "table", table, "error", err)
		t.indexesUnknown = true
		return t, nil
	}
	for _, idx := range indexes {
		if pk, ok := idx.PrimaryKey(); ok && pk {
			continue
		}
		if strings.HasPrefix(idx.Name(), "sqlite_autoindex") {
			continue
		}
		unique, _ := idx.Unique()
		t.Indexes = append(t.Indexes, NewIndex(idx.Name(), table, unique, idx.Columns()...))
	}
	return t, nil
}

func reflectColumn(ct gorm.ColumnType) *Column {
	decl, ok := ct.ColumnType()
	if !ok || decl == "" {
		decl = ct.DatabaseTypeName()
	}
	typ := ParseType(decl)
	if typ.IsStringLike() && typ.Length == 0 {
		if length, ok := ct.Length(); ok && length > 0 && length < 1<<20 {
			typ.Length = int(length)
		}
	}

	c := &Column{Name: ct.Name(), Type: typ, Nullable: true}
	if nullable, ok := ct.Nullable(); ok {
		c.Nullable = nullable
	}
	if pk, ok := ct.PrimaryKey(); ok && pk {
		c.PrimaryKey = true
	}
	if ai, ok := ct.AutoIncrement(); ok && ai {
		c.Autoincrement = true
	}
	if def, ok := ct.DefaultValue(); ok && def != "" {
		c.ServerDefault = &def
	}
	return c
}
