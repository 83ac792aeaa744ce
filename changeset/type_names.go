package changeset

import (
	"fmt"
	"maps"
)

// typeSet сопоставляет видам типов SQL-имена диалекта. Длина или точность,
// если объявлена, пишется в скобках.
type typeSet struct {
	names   map[Kind]string
	varchar string
	nchar   string
	numeric string
	// defaultLength используется для VARCHAR без объявленной длины.
	defaultLength int
}

var ansiTypes = typeSet{
	names: map[Kind]string{
		KindInteger:      "INTEGER",
		KindSmallInteger: "SMALLINT",
		KindBigInteger:   "BIGINT",
		KindFloat:        "FLOAT",
		KindText:         "TEXT",
		KindUnicodeText:  "TEXT",
		KindBoolean:      "BOOLEAN",
		KindDate:         "DATE",
		KindDateTime:     "TIMESTAMP",
		KindTime:         "TIME",
		KindBinary:       "BLOB",
	},
	varchar: "VARCHAR",
	nchar:   "VARCHAR",
	numeric: "NUMERIC",
}

// with возвращает копию набора с замененными именами.
func (s typeSet) with(overrides map[Kind]string) typeSet {
	names := maps.Clone(s.names)
	maps.Copy(names, overrides)
	s.names = names
	return s
}

func (s typeSet) render(t Type) string {
	switch t.Kind {
	case KindCustom:
		return t.Raw
	case KindString:
		return sized(s.varchar, s.length(t))
	case KindUnicode:
		return sized(s.nchar, s.length(t))
	case KindNumeric:
		if t.Precision > 0 {
			return fmt.Sprintf("%s(%d, %d)", s.numeric, t.Precision, t.Scale)
		}
		return s.numeric
	}
	return s.names[t.Kind]
}

func (s typeSet) length(t Type) int {
	if t.Length > 0 {
		return t.Length
	}
	return s.defaultLength
}

func sized(name string, length int) string {
	if length > 0 {
		return fmt.Sprintf("%s(%d)", name, length)
	}
	return name
}

var (
	postgresTypes = ansiTypes.with(map[Kind]string{
		KindFloat:    "FLOAT",
		KindDateTime: "TIMESTAMP WITHOUT TIME ZONE",
		KindBinary:   "BYTEA",
	})

	sqliteTypes = ansiTypes.with(map[Kind]string{
		KindDateTime: "DATETIME",
	})

	mysqlTypes = func() typeSet {
		s := ansiTypes.with(map[Kind]string{
			KindBoolean:  "BOOL",
			KindDateTime: "DATETIME",
		})
		s.nchar = "NVARCHAR"
		s.defaultLength = 255
		return s
	}()

	oracleTypes = func() typeSet {
		s := ansiTypes.with(map[Kind]string{
			KindBigInteger:  "NUMBER(19)",
			KindText:        "CLOB",
			KindUnicodeText: "NCLOB",
			KindBoolean:     "SMALLINT",
			KindDateTime:    "DATE",
		})
		s.varchar = "VARCHAR2"
		s.nchar = "NVARCHAR2"
		s.numeric = "NUMBER"
		s.defaultLength = 255
		return s
	}()

	firebirdTypes = func() typeSet {
		s := ansiTypes.with(map[Kind]string{
			KindText:        "BLOB SUB_TYPE 1",
			KindUnicodeText: "BLOB SUB_TYPE 1",
			KindBoolean:     "SMALLINT",
			KindBinary:      "BLOB SUB_TYPE 0",
		})
		s.defaultLength = 255
		return s
	}()
)
