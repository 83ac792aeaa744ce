package changeset

// Operation - одна операция над схемой. Набор операций закрыт: диалект разбирает
// их через type switch.
type Operation interface {
	OperationName() string
}

type CreateTable struct {
	Table *Table
}

type DropTable struct {
	Table string
}

type CreateIndex struct {
	Index *Index
}

type DropIndex struct {
	Index *Index
}

type AddColumn struct {
	Table  *Table
	Column *Column
}

// DropColumn: Table может содержать только имя, диалекты с пересборкой таблицы читают ее из базы.
type DropColumn struct {
	Table  *Table
	Column string
}

type RenameTable struct {
	Table   string
	NewName string
}

type RenameIndex struct {
	Index   *Index
	NewName string
}

// AlterColumn раскладывается диалектом на под-операции ниже.
type AlterColumn struct {
	Delta *ColumnDelta
}

type AlterColumnType struct {
	Table  string
	Column string
	Type   Type
}

type AlterColumnNullable struct {
	Table    string
	Column   string
	Nullable bool
}

// AlterColumnDefault: nil в Default удаляет значение по умолчанию.
type AlterColumnDefault struct {
	Table   string
	Column  string
	Default *string
}

type AlterColumnName struct {
	Table   string
	Column  string
	NewName string
}

type AddConstraint struct {
	Constraint Constraint
}

type DropConstraint struct {
	Constraint Constraint
	Cascade    bool
}

func (CreateTable) OperationName() string         { return "CREATE TABLE" }
func (DropTable) OperationName() string           { return "DROP TABLE" }
func (CreateIndex) OperationName() string         { return "CREATE INDEX" }
func (DropIndex) OperationName() string           { return "DROP INDEX" }
func (AddColumn) OperationName() string           { return "ALTER TABLE ADD COLUMN" }
func (DropColumn) OperationName() string          { return "ALTER TABLE DROP COLUMN" }
func (RenameTable) OperationName() string         { return "ALTER TABLE RENAME" }
func (RenameIndex) OperationName() string         { return "ALTER INDEX RENAME" }
func (AlterColumn) OperationName() string         { return "ALTER COLUMN" }
func (AlterColumnType) OperationName() string     { return "ALTER COLUMN TYPE" }
func (AlterColumnNullable) OperationName() string { return "ALTER COLUMN NULL" }
func (AlterColumnDefault) OperationName() string  { return "ALTER COLUMN DEFAULT" }
func (AlterColumnName) OperationName() string     { return "RENAME COLUMN" }
func (AddConstraint) OperationName() string       { return "ALTER TABLE ADD CONSTRAINT" }
func (DropConstraint) OperationName() string      { return "ALTER TABLE DROP CONSTRAINT" }
