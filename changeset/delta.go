package changeset

import (
	"fmt"
)

// Ключи атрибутов, которые умеет менять ALTER.
const (
	KeyName          = "name"
	KeyType          = "type"
	KeyNullable      = "nullable"
	KeyServerDefault = "server_default"
	KeyPrimaryKey    = "primary_key"
	KeyAutoincrement = "autoincrement"
)

var deltaKeys = []string{KeyName, KeyType, KeyNullable, KeyServerDefault, KeyPrimaryKey, KeyAutoincrement}

// ColumnDelta - набор отличий между текущим и желаемым определением колонки.
type ColumnDelta struct {
	// CurrentName - имя колонки до изменения.
	CurrentName string
	// Result - определение колонки после изменения. Nil, если дельта построена
	// по имени, а колонка еще не прочитана из базы.
	Result *Column
	Table  *Table

	changes map[string]any
}

// Change задает явное изменение атрибута.
type Change func(*changeRequest)

type changeRequest struct {
	values      map[string]any
	currentName string
}

func WithName(name string) Change {
	return func(r *changeRequest) { r.values[KeyName] = name }
}

func WithType(t Type) Change {
	return func(r *changeRequest) { r.values[KeyType] = t }
}

func WithNullable(nullable bool) Change {
	return func(r *changeRequest) { r.values[KeyNullable] = nullable }
}

// WithServerDefault задает значение по умолчанию в базе, nil удаляет его.
func WithServerDefault(expr *string) Change {
	return func(r *changeRequest) { r.values[KeyServerDefault] = expr }
}

func WithPrimaryKey(pk bool) Change {
	return func(r *changeRequest) { r.values[KeyPrimaryKey] = pk }
}

func WithAutoincrement(v bool) Change {
	return func(r *changeRequest) { r.values[KeyAutoincrement] = v }
}

// FromName говорит, что колонка col сейчас называется currentName и будет переименована в col.Name.
func FromName(currentName string) Change {
	return func(r *changeRequest) { r.currentName = currentName }
}

func newChangeRequest(changes []Change) changeRequest {
	r := changeRequest{values: make(map[string]any)}
	for _, ch := range changes {
		ch(&r)
	}
	return r
}

// DiffColumns сравнивает две колонки. Явные изменения всегда считаются изменившимися
// и перекрывают найденные отличия.
func DiffColumns(current, desired *Column, changes ...Change) *ColumnDelta {
	r := newChangeRequest(changes)
	d := &ColumnDelta{
		CurrentName: current.Name,
		Result:      current.Copy(),
		Table:       current.table,
		changes:     make(map[string]any),
	}
	if d.Table == nil {
		d.Table = desired.table
	}
	if current.Name != desired.Name {
		d.changes[KeyName] = desired.Name
	}
	if !current.Type.Equal(desired.Type) {
		d.changes[KeyType] = desired.Type
	}
	if current.Nullable != desired.Nullable {
		d.changes[KeyNullable] = desired.Nullable
	}
	if !sameDefault(current.ServerDefault, desired.ServerDefault) {
		d.changes[KeyServerDefault] = desired.ServerDefault
	}
	if current.PrimaryKey != desired.PrimaryKey {
		d.changes[KeyPrimaryKey] = desired.PrimaryKey
	}
	if current.Autoincrement != desired.Autoincrement {
		d.changes[KeyAutoincrement] = desired.Autoincrement
	}
	for k, v := range r.values {
		d.changes[k] = v
	}
	d.apply(current.Nullable)
	return d
}

// AlterColumnDelta описывает изменение одной колонки: каждое переданное изменение
// считается изменившимся, даже если совпадает с текущим значением.
func AlterColumnDelta(col *Column, changes ...Change) *ColumnDelta {
	r := newChangeRequest(changes)
	d := &ColumnDelta{
		CurrentName: col.Name,
		Result:      col.Copy(),
		Table:       col.table,
		changes:     r.values,
	}
	if r.currentName != "" {
		d.CurrentName = r.currentName
		if _, ok := d.changes[KeyName]; !ok {
			d.changes[KeyName] = col.Name
		}
	}
	d.apply(col.Nullable)
	return d
}

// AlterColumnByName строит delta по имени колонки. Если колонки нет в модели таблицы,
// Result остается nil до рефлексии (см. Engine.AlterColumnNamed).
func AlterColumnByName(table *Table, name string, changes ...Change) *ColumnDelta {
	r := newChangeRequest(changes)
	d := &ColumnDelta{CurrentName: name, Table: table, changes: r.values}
	if col := table.Column(name); col != nil {
		d.Result = col.Copy()
		d.apply(col.Nullable)
	}
	return d
}

// resolve связывает дельту по имени с прочитанной колонкой.
func (d *ColumnDelta) resolve(col *Column) {
	d.Result = col.Copy()
	d.apply(col.Nullable)
}

func (d *ColumnDelta) apply(currentNullable bool) {
	if pk, ok := d.changes[KeyPrimaryKey].(bool); ok && pk && currentNullable {
		d.changes[KeyNullable] = false
	}
	if d.Result == nil {
		return
	}
	for k, v := range d.changes {
		switch k {
		case KeyName:
			d.Result.Name = v.(string)
		case KeyType:
			d.Result.Type = v.(Type)
		case KeyNullable:
			d.Result.Nullable = v.(bool)
		case KeyServerDefault:
			d.Result.ServerDefault = v.(*string)
		case KeyPrimaryKey:
			d.Result.PrimaryKey = v.(bool)
		case KeyAutoincrement:
			d.Result.Autoincrement = v.(bool)
		}
	}
}

// Keys возвращает ключи измененных атрибутов в постоянном порядке.
func (d *ColumnDelta) Keys() []string {
	keys := make([]string, 0, len(d.changes))
	for _, k := range deltaKeys {
		if _, ok := d.changes[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

func (d *ColumnDelta) Has(key string) bool {
	_, ok := d.changes[key]
	return ok
}

func (d *ColumnDelta) Empty() bool {
	return len(d.changes) == 0
}

// NewName возвращает итоговое имя колонки.
func (d *ColumnDelta) NewName() string {
	if name, ok := d.changes[KeyName].(string); ok {
		return name
	}
	return d.CurrentName
}

func (d *ColumnDelta) String() string {
	return fmt.Sprintf("%s%v", d.CurrentName, d.Keys())
}

func (d *ColumnDelta) tableName() string {
	if d.Table == nil {
		return ""
	}
	return d.Table.Name
}

func (d *ColumnDelta) requireResult(dialect string) error {
	if d.Result == nil {
		return notSupported(dialect, "altering a column without its definition", "a column object is required to do this")
	}
	return nil
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
