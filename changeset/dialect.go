package changeset

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Имена диалектов, совпадающие с именами gorm dialector'ов.
const (
	DialectDefault  = "default"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
	DialectMySQL    = "mysql"
	DialectOracle   = "oracle"
	DialectFirebird = "firebird"
)

// Runner - то, через что диалект выполняет операцию: выражения, вложенные
// операции (повторно через внешний диалект) и рефлексию живой таблицы.
type Runner interface {
	Exec(ctx context.Context, stmt string, args ...any) error
	Apply(ctx context.Context, op Operation) error
	Reflect(ctx context.Context, table string) (*Table, error)
}

// Dialect - стратегия генерации DDL для конкретной СУБД.
type Dialect interface {
	Name() string
	Apply(ctx context.Context, r Runner, op Operation) error
	Quote(ident string) string
	TypeSQL(t Type) string
	ColumnSpec(c *Column) string
}

// DialectFor возвращает диалект по имени базы. Для неизвестных имен -
// базовый ANSI под этим именем.
func DialectFor(name string) Dialect {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return NewPostgres()
	case "sqlite", "sqlite3":
		return NewSQLite()
	case "mysql", "mariadb":
		return NewMySQL()
	case "oracle":
		return NewOracle()
	case "firebird":
		return NewFirebird()
	case "", DialectDefault:
		return NewANSI(DialectDefault)
	}
	return NewANSI(strings.ToLower(name))
}

// ansi - базовая реализация. Диалекты встраивают ее и перехватывают в Apply
// только те операции, которые делают иначе.
type ansi struct {
	name        string
	quoteOpen   string
	quoteClose  string
	types       typeSet
	serial      func(c *Column, typ string, soloPK bool) (string, string, bool)
	dropIndexOn bool
}

// NewANSI возвращает базовый диалект под именем name.
func NewANSI(name string) Dialect {
	return newANSI(name)
}

func newANSI(name string) *ansi {
	return &ansi{
		name:       name,
		quoteOpen:  `"`,
		quoteClose: `"`,
		types:      ansiTypes,
		serial:     noSerial,
	}
}

func noSerial(_ *Column, typ string, _ bool) (string, string, bool) {
	return typ, "", false
}

func (d *ansi) Name() string {
	return d.name
}

var plainIdent = regexp.MustCompile(`^[a-z_][a-z0-9_$]*$`)

var reserved = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`ADD ALL ALTER AND ANY AS ASC BETWEEN BY CASE CHECK COLUMN CONSTRAINT CREATE
		CROSS CURRENT_DATE CURRENT_TIME CURRENT_TIMESTAMP CURRENT_USER DEFAULT DELETE DESC DISTINCT DROP ELSE END
		EXISTS FALSE FOR FOREIGN FROM FULL GRANT GROUP HAVING IN INDEX INNER INSERT INTO IS JOIN KEY LEFT LIKE LIMIT
		NOT NULL OFFSET ON OR ORDER OUTER PRIMARY REFERENCES RIGHT ROW ROWS SELECT SESSION_USER SET TABLE THEN TO
		TRUE UNION UNIQUE UPDATE USER USING VALUES WHEN WHERE WITH`) {
		reserved[w] = true
	}
}

// Quote берет имя в кавычки, только если оно не простое в нижнем регистре или зарезервировано.
func (d *ansi) Quote(ident string) string {
	if plainIdent.MatchString(ident) && !reserved[strings.ToUpper(ident)] {
		return ident
	}
	return d.quoteOpen + strings.ReplaceAll(ident, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

func (d *ansi) quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, ident := range idents {
		quoted[i] = d.Quote(ident)
	}
	return strings.Join(quoted, ", ")
}

func (d *ansi) TypeSQL(t Type) string {
	return d.types.render(t)
}

func (d *ansi) ColumnSpec(c *Column) string {
	spec, _ := d.columnSpec(c, false)
	return spec
}

// columnSpec формирует "name TYPE [DEFAULT x] [NOT NULL]". inlinePK сообщает,
// что первичный ключ записан в самой колонке.
func (d *ansi) columnSpec(c *Column, soloPK bool) (string, bool) {
	typ, suffix, inlinePK := d.serial(c, d.TypeSQL(c.Type), soloPK)
	var b strings.Builder
	b.WriteString(d.Quote(c.Name))
	b.WriteString(" ")
	b.WriteString(typ)
	if c.ServerDefault != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.ServerDefault)
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	b.WriteString(suffix)
	return b.String(), inlinePK
}

func (d *ansi) alterTable(table string) string {
	return "ALTER TABLE " + d.Quote(table) + " "
}

func (d *ansi) Apply(ctx context.Context, r Runner, op Operation) error {
	switch op := op.(type) {
	case CreateTable:
		return d.createTable(ctx, r, op.Table)
	case DropTable:
		return r.Exec(ctx, "DROP TABLE "+d.Quote(op.Table))
	case CreateIndex:
		return r.Exec(ctx, d.createIndexSQL(op.Index))
	case DropIndex:
		stmt := "DROP INDEX " + d.Quote(op.Index.Name)
		if d.dropIndexOn {
			stmt += " ON " + d.Quote(op.Index.Table)
		}
		return r.Exec(ctx, stmt)
	case AddColumn:
		return d.addColumn(ctx, r, op)
	case DropColumn:
		return r.Exec(ctx, d.alterTable(op.Table.Name)+"DROP COLUMN "+d.Quote(op.Column))
	case RenameTable:
		return r.Exec(ctx, d.alterTable(op.Table)+"RENAME TO "+d.Quote(op.NewName))
	case RenameIndex:
		return r.Exec(ctx, "ALTER INDEX "+d.Quote(op.Index.Name)+" RENAME TO "+d.Quote(op.NewName))
	case AlterColumn:
		return d.alterColumn(ctx, r, op.Delta)
	case AlterColumnType:
		return r.Exec(ctx, d.alterTable(op.Table)+"ALTER COLUMN "+d.Quote(op.Column)+" TYPE "+d.TypeSQL(op.Type))
	case AlterColumnNullable:
		action := "SET NOT NULL"
		if op.Nullable {
			action = "DROP NOT NULL"
		}
		return r.Exec(ctx, d.alterTable(op.Table)+"ALTER COLUMN "+d.Quote(op.Column)+" "+action)
	case AlterColumnDefault:
		action := "DROP DEFAULT"
		if op.Default != nil {
			action = "SET DEFAULT " + *op.Default
		}
		return r.Exec(ctx, d.alterTable(op.Table)+"ALTER COLUMN "+d.Quote(op.Column)+" "+action)
	case AlterColumnName:
		return r.Exec(ctx, d.alterTable(op.Table)+"RENAME COLUMN "+d.Quote(op.Column)+" TO "+d.Quote(op.NewName))
	case AddConstraint:
		spec, err := d.constraintSpec(op.Constraint)
		if err != nil {
			return err
		}
		return r.Exec(ctx, d.alterTable(op.Constraint.TableName())+"ADD "+spec)
	case DropConstraint:
		stmt := d.alterTable(op.Constraint.TableName()) + "DROP CONSTRAINT " + d.Quote(ConstraintName(op.Constraint))
		if op.Cascade {
			stmt += " CASCADE"
		}
		return r.Exec(ctx, stmt)
	}
	return notSupported(d.name, op.OperationName(), "")
}

func (d *ansi) createTable(ctx context.Context, r Runner, t *Table) error {
	if err := r.Exec(ctx, d.createTableSQL(t, true)); err != nil {
		return err
	}
	for _, idx := range tableIndexes(t) {
		if err := r.Apply(ctx, CreateIndex{Index: idx}); err != nil {
			return err
		}
	}
	return nil
}

// createTableSQL формирует CREATE TABLE. Без ограничений выводятся только
// колонки и первичный ключ.
func (d *ansi) createTableSQL(t *Table, withConstraints bool) string {
	pk := t.PrimaryKeyColumns()
	lines := make([]string, 0, len(t.Columns)+1)
	inlined := false
	for _, c := range t.Columns {
		spec, inlinePK := d.columnSpec(c, len(pk) == 1 && c.PrimaryKey)
		inlined = inlined || inlinePK
		lines = append(lines, spec)
	}
	if len(pk) > 0 && !inlined {
		lines = append(lines, "PRIMARY KEY ("+d.quoteAll(pk)+")")
	}
	if withConstraints {
		for _, c := range columnConstraints(t) {
			if spec, err := d.constraintSpec(c); err == nil {
				lines = append(lines, spec)
			}
		}
		for _, c := range t.Constraints {
			if _, ok := c.(*PrimaryKeyConstraint); ok {
				continue
			}
			if spec, err := d.constraintSpec(c); err == nil {
				lines = append(lines, spec)
			}
		}
	}
	return "CREATE TABLE " + d.Quote(t.Name) + " (\n\t" + strings.Join(lines, ",\n\t") + "\n)"
}

func (d *ansi) createIndexSQL(idx *Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, d.Quote(idx.Name), d.Quote(idx.Table), d.quoteAll(idx.Columns))
}

// addColumn не встраивает ограничения: аннотации колонки становятся отдельными операциями.
func (d *ansi) addColumn(ctx context.Context, r Runner, op AddColumn) error {
	spec, _ := d.columnSpec(op.Column, false)
	if err := r.Exec(ctx, d.alterTable(op.Table.Name)+"ADD "+spec); err != nil {
		return err
	}
	return addColumnAnnotations(ctx, r, op.Table, op.Column)
}

func addColumnAnnotations(ctx context.Context, r Runner, t *Table, c *Column) error {
	if c.PrimaryKey {
		existing := slices.DeleteFunc(t.PrimaryKeyColumns(), func(name string) bool { return name == c.Name })
		if len(existing) > 0 {
			old, err := NewPrimaryKeyConstraint(Cols(existing...), OnTable(t.Name))
			if err != nil {
				return err
			}
			if err := r.Apply(ctx, DropConstraint{Constraint: old}); err != nil {
				return err
			}
		}
		pk, err := NewPrimaryKeyConstraint(Cols(append(existing, c.Name)...), OnTable(t.Name))
		if err != nil {
			return err
		}
		if err := r.Apply(ctx, AddConstraint{Constraint: pk}); err != nil {
			return err
		}
	}
	for _, cons := range columnConstraints(&Table{Name: t.Name, Columns: []*Column{c}}) {
		if err := r.Apply(ctx, AddConstraint{Constraint: cons}); err != nil {
			return err
		}
	}
	if c.Index {
		if err := r.Apply(ctx, CreateIndex{Index: columnIndex(t.Name, c)}); err != nil {
			return err
		}
	}
	return nil
}

// alterColumn выполняет изменения типа, nullable, значения по умолчанию и имени
// отдельными выражениями в этом порядке; все, кроме последнего, по текущему имени.
func (d *ansi) alterColumn(ctx context.Context, r Runner, delta *ColumnDelta) error {
	table := delta.tableName()
	if delta.Has(KeyType) {
		if err := delta.requireResult(d.name); err != nil {
			return err
		}
		if err := r.Apply(ctx, AlterColumnType{Table: table, Column: delta.CurrentName, Type: delta.Result.Type}); err != nil {
			return err
		}
	}
	if nullable, ok := delta.changes[KeyNullable].(bool); ok {
		if err := r.Apply(ctx, AlterColumnNullable{Table: table, Column: delta.CurrentName, Nullable: nullable}); err != nil {
			return err
		}
	}
	if delta.Has(KeyServerDefault) {
		def, _ := delta.changes[KeyServerDefault].(*string)
		if err := r.Apply(ctx, AlterColumnDefault{Table: table, Column: delta.CurrentName, Default: def}); err != nil {
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

// alterPrimaryKey пересоздает первичный ключ таблицы с добавленной или удаленной колонкой.
func alterPrimaryKey(ctx context.Context, r Runner, delta *ColumnDelta) error {
	pk, ok := delta.changes[KeyPrimaryKey].(bool)
	if !ok || delta.Table == nil {
		return nil
	}
	table := delta.Table.Name
	current := delta.Table.PrimaryKeyColumns()
	var next []string
	for _, name := range current {
		if name != delta.CurrentName {
			next = append(next, name)
		}
	}
	if pk {
		next = append(next, delta.NewName())
	}
	if len(current) > 0 {
		old, err := NewPrimaryKeyConstraint(Cols(current...), OnTable(table))
		if err != nil {
			return err
		}
		if err := r.Apply(ctx, DropConstraint{Constraint: old}); err != nil {
			return err
		}
	}
	if len(next) == 0 {
		return nil
	}
	cons, err := NewPrimaryKeyConstraint(Cols(next...), OnTable(table))
	if err != nil {
		return err
	}
	return r.Apply(ctx, AddConstraint{Constraint: cons})
}

// constraintSpec формирует тело ADD CONSTRAINT. Ограничение без имени получает
// автоимя, то же, что использует DropConstraint.
func (d *ansi) constraintSpec(c Constraint) (string, error) {
	named := func(body string) string {
		return "CONSTRAINT " + d.Quote(ConstraintName(c)) + " " + body
	}
	switch c := c.(type) {
	case *PrimaryKeyConstraint:
		return named("PRIMARY KEY (" + d.quoteAll(c.ColumnNames()) + ")"), nil
	case *UniqueConstraint:
		return named("UNIQUE (" + d.quoteAll(c.ColumnNames()) + ")"), nil
	case *CheckConstraint:
		return named("CHECK (" + c.SQLText + ")"), nil
	case *ForeignKeyConstraint:
		spec := named(fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.quoteAll(c.ColumnNames()), d.Quote(c.RefTable()), d.quoteAll(c.RefColumnNames())))
		if c.OnUpdate != "" {
			spec += " ON UPDATE " + c.OnUpdate
		}
		if c.OnDelete != "" {
			spec += " ON DELETE " + c.OnDelete
		}
		return spec, nil
	}
	return "", fmt.Errorf("%w: %T", ErrInvalidConstraint, c)
}

// columnConstraints превращает аннотации unique и внешних ключей колонок в ограничения.
func columnConstraints(t *Table) []Constraint {
	var out []Constraint
	for _, c := range t.Columns {
		if c.Unique {
			var opts []ConstraintOption
			if c.UniqueName != "" {
				opts = append(opts, Named(c.UniqueName))
			}
			if u, err := NewUniqueConstraint(Cols(c.Name), append(opts, OnTable(t.Name))...); err == nil {
				out = append(out, u)
			}
		}
		if fk := c.ForeignKey; fk != nil {
			opts := []ConstraintOption{OnTable(t.Name), RefTable(fk.Table), OnDelete(fk.OnDelete), OnUpdate(fk.OnUpdate)}
			if fk.Name != "" {
				opts = append(opts, Named(fk.Name))
			}
			if cons, err := NewForeignKeyConstraint(Cols(c.Name), Cols(fk.Column), opts...); err == nil {
				out = append(out, cons)
			}
		}
	}
	return out
}

func columnIndex(table string, c *Column) *Index {
	name := c.IndexName
	if name == "" {
		name = fmt.Sprintf("ix_%s_%s", table, c.Name)
	}
	return NewIndex(name, table, false, c.Name)
}

// tableIndexes возвращает объявленные индексы и индексы, запрошенные на колонках.
func tableIndexes(t *Table) []*Index {
	out := make([]*Index, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		if idx.Table == "" {
			idx.Table = t.Name
		}
		out = append(out, idx)
	}
	for _, c := range t.Columns {
		if c.Index {
			out = append(out, columnIndex(t.Name, c))
		}
	}
	return out
}
