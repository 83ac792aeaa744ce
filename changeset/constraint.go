package changeset

import (
	"fmt"
	"strings"
)

// ColumnRef ссылается на колонку: либо *Column, либо ColumnName.
type ColumnRef interface {
	columnRef() (table, column string)
}

// ColumnName - имя колонки, допускается форма "table.column".
type ColumnName string

func (n ColumnName) columnRef() (string, string) {
	s := string(n)
	if i := strings.LastIndex(s, "."); i > 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// Constraint - ограничение, которое создается и удаляется независимо от таблицы.
type Constraint interface {
	// Name возвращает явное имя или "", если имя не задано.
	Name() string
	TableName() string
	ColumnNames() []string
	// Autoname повторяет имя, которое сгенерировала бы сама база.
	Autoname() string

	clearColumns()
}

// ConstraintName возвращает явное имя или автоимя.
func ConstraintName(c Constraint) string {
	if name := c.Name(); name != "" {
		return name
	}
	return c.Autoname()
}

type ConstraintOption func(*constraintOptions)

type constraintOptions struct {
	name     *string
	table    string
	refTable string
	onDelete string
	onUpdate string
}

func getConstraintOpts(opts ...ConstraintOption) constraintOptions {
	var o constraintOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Named задает явное имя ограничения.
func Named(name string) ConstraintOption {
	return func(o *constraintOptions) { o.name = &name }
}

// OnTable задает таблицу, если колонки переданы по имени.
func OnTable(table string) ConstraintOption {
	return func(o *constraintOptions) { o.table = table }
}

func RefTable(table string) ConstraintOption {
	return func(o *constraintOptions) { o.refTable = table }
}

func OnDelete(action string) ConstraintOption {
	return func(o *constraintOptions) { o.onDelete = action }
}

func OnUpdate(action string) ConstraintOption {
	return func(o *constraintOptions) { o.onUpdate = action }
}

type constraintBase struct {
	name    string
	table   string
	columns []string
}

func (b *constraintBase) Name() string          { return b.name }
func (b *constraintBase) TableName() string     { return b.table }
func (b *constraintBase) ColumnNames() []string { return b.columns }
func (b *constraintBase) clearColumns()         { b.columns = nil }

func (b *constraintBase) init(o constraintOptions, refs []ColumnRef, requireColumns bool) error {
	if o.name != nil {
		name := *o.name
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, " \t\n(),;") {
			return fmt.Errorf("%w: %q is not a constraint name", ErrInvalidConstraint, name)
		}
		b.name = name
	}
	table, columns, err := resolveColumns(o.table, refs)
	if err != nil {
		return err
	}
	if requireColumns && len(columns) == 0 {
		return fmt.Errorf("%w: no columns given", ErrInvalidConstraint)
	}
	b.table = table
	b.columns = columns
	return nil
}

// resolveColumns приводит ссылки к именам колонок и находит таблицу-владельца.
func resolveColumns(table string, refs []ColumnRef) (string, []string, error) {
	columns := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == nil {
			return "", nil, fmt.Errorf("%w: nil column reference", ErrInvalidConstraint)
		}
		refTable, name := ref.columnRef()
		switch {
		case refTable == "":
		case table == "":
			table = refTable
		case table != refTable:
			return "", nil, fmt.Errorf("%w: columns belong to different tables %s and %s", ErrInvalidConstraint, table, refTable)
		}
		columns = append(columns, name)
	}
	if table == "" {
		return "", nil, fmt.Errorf("%w: cannot determine table", ErrInvalidConstraint)
	}
	return table, columns, nil
}

type PrimaryKeyConstraint struct {
	constraintBase
}

func NewPrimaryKeyConstraint(columns []ColumnRef, opts ...ConstraintOption) (*PrimaryKeyConstraint, error) {
	c := &PrimaryKeyConstraint{}
	if err := c.init(getConstraintOpts(opts...), columns, true); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PrimaryKeyConstraint) Autoname() string {
	return c.table + "_pkey"
}

type ForeignKeyConstraint struct {
	constraintBase
	refTable   string
	refColumns []string
	OnDelete   string
	OnUpdate   string
}

// NewForeignKeyConstraint: referenced принимает *Column целевой таблицы или
// ColumnName вида "table.column"; RefTable задает таблицу явно.
func NewForeignKeyConstraint(columns, referenced []ColumnRef, opts ...ConstraintOption) (*ForeignKeyConstraint, error) {
	o := getConstraintOpts(opts...)
	c := &ForeignKeyConstraint{OnDelete: o.onDelete, OnUpdate: o.onUpdate}
	if err := c.init(o, columns, true); err != nil {
		return nil, err
	}
	refTable, refColumns, err := resolveColumns(o.refTable, referenced)
	if err != nil {
		return nil, fmt.Errorf("referenced columns: %w", err)
	}
	if len(refColumns) != len(c.columns) {
		return nil, fmt.Errorf("%w: %d columns reference %d columns", ErrInvalidConstraint, len(c.columns), len(refColumns))
	}
	c.refTable = refTable
	c.refColumns = refColumns
	return c, nil
}

func (c *ForeignKeyConstraint) RefTable() string { return c.refTable }

func (c *ForeignKeyConstraint) RefColumnNames() []string { return c.refColumns }

// Referenced возвращает целевые колонки в виде table.column.
func (c *ForeignKeyConstraint) Referenced() []string {
	out := make([]string, len(c.refColumns))
	for i, col := range c.refColumns {
		out[i] = c.refTable + "." + col
	}
	return out
}

func (c *ForeignKeyConstraint) Autoname() string {
	return fmt.Sprintf("%s_%s_fkey", c.table, c.refTable)
}

type CheckConstraint struct {
	constraintBase
	SQLText string
}

// NewCheckConstraint: колонки используются только для имени, условие берется из sqlText.
func NewCheckConstraint(sqlText string, columns []ColumnRef, opts ...ConstraintOption) (*CheckConstraint, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, fmt.Errorf("%w: empty check expression", ErrInvalidConstraint)
	}
	c := &CheckConstraint{SQLText: sqlText}
	if err := c.init(getConstraintOpts(opts...), columns, false); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CheckConstraint) Autoname() string {
	return fmt.Sprintf("%s_%s_check", c.table, strings.Join(c.columns, "_"))
}

type UniqueConstraint struct {
	constraintBase
}

func NewUniqueConstraint(columns []ColumnRef, opts ...ConstraintOption) (*UniqueConstraint, error) {
	c := &UniqueConstraint{}
	if err := c.init(getConstraintOpts(opts...), columns, true); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *UniqueConstraint) Autoname() string {
	return fmt.Sprintf("%s_%s_key", c.table, strings.Join(c.columns, "_"))
}

// Cols строит список ColumnRef из имен.
func Cols(names ...string) []ColumnRef {
	refs := make([]ColumnRef, len(names))
	for i, n := range names {
		refs[i] = ColumnName(n)
	}
	return refs
}
