package changeset

import (
	"slices"
)

// ForeignKeyRef - объявленная на колонке ссылка на другую таблицу.
type ForeignKeyRef struct {
	Name     string
	Table    string
	Column   string
	OnDelete string
	OnUpdate string
}

// Column - описание колонки таблицы.
//
// ServerDefault уходит в базу как SQL выражение, Default остается на стороне
// приложения и в DDL не попадает.
type Column struct {
	Name          string
	Type          Type
	Nullable      bool
	PrimaryKey    bool
	Autoincrement bool
	ServerDefault *string
	Default       any

	Unique     bool
	UniqueName string
	Index      bool
	IndexName  string
	ForeignKey *ForeignKeyRef

	table *Table
}

type ColumnOption func(*Column)

// NewColumn создает nullable колонку; опции уточняют остальные атрибуты.
func NewColumn(name string, typ Type, opts ...ColumnOption) *Column {
	c := &Column{Name: name, Type: typ, Nullable: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NotNull() ColumnOption {
	return func(c *Column) { c.Nullable = false }
}

// PrimaryKey подразумевает NOT NULL.
func PrimaryKey() ColumnOption {
	return func(c *Column) {
		c.PrimaryKey = true
		c.Nullable = false
	}
}

func AutoIncrement() ColumnOption {
	return func(c *Column) { c.Autoincrement = true }
}

func ServerDefault(expr string) ColumnOption {
	return func(c *Column) { c.ServerDefault = &expr }
}

func ClientDefault(v any) ColumnOption {
	return func(c *Column) { c.Default = v }
}

// Unique запрашивает ограничение unique, name может быть пустым.
func Unique(name string) ColumnOption {
	return func(c *Column) {
		c.Unique = true
		c.UniqueName = name
	}
}

// Indexed запрашивает обычный индекс, name может быть пустым.
func Indexed(name string) ColumnOption {
	return func(c *Column) {
		c.Index = true
		c.IndexName = name
	}
}

// References объявляет внешний ключ на table.column.
// Named, OnDelete и OnUpdate применимы в opts.
func References(table, column string, opts ...ConstraintOption) ColumnOption {
	return func(c *Column) {
		o := getConstraintOpts(opts...)
		fk := &ForeignKeyRef{Table: table, Column: column, OnDelete: o.onDelete, OnUpdate: o.onUpdate}
		if o.name != nil {
			fk.Name = *o.name
		}
		c.ForeignKey = fk
	}
}

// Table возвращает таблицу колонки или nil.
func (c *Column) Table() *Table {
	return c.table
}

func (c *Column) columnRef() (string, string) {
	if c.table != nil {
		return c.table.Name, c.Name
	}
	return "", c.Name
}

// Copy возвращает копию колонки без таблицы.
func (c *Column) Copy() *Column {
	cp := *c
	cp.table = nil
	if c.ServerDefault != nil {
		def := *c.ServerDefault
		cp.ServerDefault = &def
	}
	if c.ForeignKey != nil {
		fk := *c.ForeignKey
		cp.ForeignKey = &fk
	}
	return &cp
}

// Index - индекс таблицы.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

func NewIndex(name, table string, unique bool, columns ...string) *Index {
	return &Index{Name: name, Table: table, Columns: columns, Unique: unique}
}

// Table - модель таблицы, с которой работают операции над схемой.
// Модель обновляется по мере успешного выполнения операций Engine.
type Table struct {
	Name        string
	Columns     []*Column
	Indexes     []*Index
	Constraints []Constraint

	// indexesUnknown: таблица прочитана из базы, но список индексов получить не удалось.
	indexesUnknown bool
}

// IndexesUnknown сообщает, что индексы прочитанной таблицы неизвестны.
func (t *Table) IndexesUnknown() bool {
	return t.indexesUnknown
}

func NewTable(name string, columns ...*Column) *Table {
	t := &Table{Name: name}
	for _, c := range columns {
		t.AppendColumn(c)
	}
	return t
}

// AppendColumn привязывает c к таблице, заменяя колонку с тем же именем.
func (t *Table) AppendColumn(c *Column) {
	c.table = t
	for i, existing := range t.Columns {
		if existing.Name == c.Name {
			t.Columns[i] = c
			return
		}
	}
	t.Columns = append(t.Columns, c)
}

func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

func (t *Table) removeColumn(name string) {
	t.Columns = slices.DeleteFunc(t.Columns, func(c *Column) bool { return c.Name == name })
}

func (t *Table) replaceColumn(currentName string, c *Column) {
	c.table = t
	for i, existing := range t.Columns {
		if existing.Name == currentName {
			t.Columns[i] = c
			return
		}
	}
	t.Columns = append(t.Columns, c)
}

func (t *Table) PrimaryKeyColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

func (t *Table) AddIndex(idx *Index) {
	idx.Table = t.Name
	t.Indexes = append(t.Indexes, idx)
}

func (t *Table) AddConstraint(c Constraint) {
	t.Constraints = append(t.Constraints, c)
}

// Copy возвращает глубокую копию, колонки привязаны к новой таблице.
func (t *Table) Copy() *Table {
	cp := &Table{Name: t.Name}
	for _, c := range t.Columns {
		cp.AppendColumn(c.Copy())
	}
	for _, idx := range t.Indexes {
		i := *idx
		i.Columns = slices.Clone(idx.Columns)
		cp.Indexes = append(cp.Indexes, &i)
	}
	cp.Constraints = slices.Clone(t.Constraints)
	cp.indexesUnknown = t.indexesUnknown
	return cp
}
