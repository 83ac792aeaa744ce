package changeset

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind идентифицирует семейство типа колонки.
type Kind int

const (
	KindCustom Kind = iota
	KindInteger
	KindSmallInteger
	KindBigInteger
	KindNumeric
	KindFloat
	KindString
	KindText
	KindUnicode
	KindUnicodeText
	KindBoolean
	KindDate
	KindDateTime
	KindTime
	KindBinary
)

// parents описывает иерархию типов: SmallInteger является Integer, Text является String и т.д.
var parents = map[Kind]Kind{
	KindSmallInteger: KindInteger,
	KindBigInteger:   KindInteger,
	KindFloat:        KindNumeric,
	KindText:         KindString,
	KindUnicode:      KindString,
	KindUnicodeText:  KindText,
}

var kindNames = map[Kind]string{
	KindCustom:       "custom",
	KindInteger:      "integer",
	KindSmallInteger: "smallinteger",
	KindBigInteger:   "biginteger",
	KindNumeric:      "numeric",
	KindFloat:        "float",
	KindString:       "string",
	KindText:         "text",
	KindUnicode:      "unicode",
	KindUnicodeText:  "unicodetext",
	KindBoolean:      "boolean",
	KindDate:         "date",
	KindDateTime:     "datetime",
	KindTime:         "time",
	KindBinary:       "binary",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Is сообщает, что k равен other или является его потомком.
func (k Kind) Is(other Kind) bool {
	for cur, ok := k, true; ok; cur, ok = parents[cur] {
		if cur == other {
			return true
		}
	}
	return false
}

// Type описывает тип колонки независимо от диалекта.
// Length используется строковыми типами, Precision/Scale - Numeric, Raw - Custom.
type Type struct {
	Kind      Kind
	Length    int
	Precision int
	Scale     int
	Raw       string
}

func Integer() Type      { return Type{Kind: KindInteger} }
func SmallInteger() Type { return Type{Kind: KindSmallInteger} }
func BigInteger() Type   { return Type{Kind: KindBigInteger} }
func Float() Type        { return Type{Kind: KindFloat} }
func Text() Type         { return Type{Kind: KindText} }
func UnicodeText() Type  { return Type{Kind: KindUnicodeText} }
func Boolean() Type      { return Type{Kind: KindBoolean} }
func Date() Type         { return Type{Kind: KindDate} }
func DateTime() Type     { return Type{Kind: KindDateTime} }
func Time() Type         { return Type{Kind: KindTime} }
func Binary() Type       { return Type{Kind: KindBinary} }

func Numeric(precision, scale int) Type {
	return Type{Kind: KindNumeric, Precision: precision, Scale: scale}
}

// String - VARCHAR, длина 0 означает, что длина не объявлена.
func String(length int) Type { return Type{Kind: KindString, Length: length} }

func Unicode(length int) Type { return Type{Kind: KindUnicode, Length: length} }

// Custom передает SQL тип как есть.
func Custom(sql string) Type { return Type{Kind: KindCustom, Raw: sql} }

// IsStringLike сообщает, что тип относится к семейству String.
func (t Type) IsStringLike() bool {
	return t.Kind.Is(KindString)
}

// Equal считает тип и его подтип равными; строковые типы должны также
// совпадать по длине.
func (t Type) Equal(other Type) bool {
	if t.Kind == KindCustom || other.Kind == KindCustom {
		return t.Kind == other.Kind && strings.EqualFold(strings.TrimSpace(t.Raw), strings.TrimSpace(other.Raw))
	}
	if !t.Kind.Is(other.Kind) && !other.Kind.Is(t.Kind) {
		return false
	}
	if t.IsStringLike() || other.IsStringLike() {
		return t.Length == other.Length
	}
	return true
}

var sqlTypePattern = regexp.MustCompile(`^\s*([a-zA-Z][a-zA-Z0-9 _]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*$`)

// ParseType переводит объявление типа, прочитанное из базы, обратно в Type.
// Неизвестные объявления становятся Custom.
func ParseType(decl string) Type {
	m := sqlTypePattern.FindStringSubmatch(decl)
	if m == nil {
		return Custom(decl)
	}
	name := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
	first, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])

	switch name {
	case "INT", "INTEGER", "INT4", "MEDIUMINT", "SERIAL":
		return Integer()
	case "SMALLINT", "INT2", "TINYINT":
		return SmallInteger()
	case "BIGINT", "INT8", "BIGSERIAL":
		return BigInteger()
	case "NUMERIC", "DECIMAL", "NUMBER":
		return Numeric(first, second)
	case "FLOAT", "REAL", "DOUBLE", "DOUBLE PRECISION", "FLOAT8", "FLOAT4":
		return Float()
	case "VARCHAR", "CHARACTER VARYING", "VARCHAR2", "CHAR", "CHARACTER":
		return String(first)
	case "NVARCHAR", "NVARCHAR2", "NCHAR":
		return Unicode(first)
	case "TEXT", "CLOB", "MEDIUMTEXT", "LONGTEXT":
		return Text()
	case "BOOLEAN", "BOOL":
		return Boolean()
	case "DATE":
		return Date()
	case "DATETIME", "TIMESTAMP", "TIMESTAMP WITHOUT TIME ZONE":
		return DateTime()
	case "TIME", "TIME WITHOUT TIME ZONE":
		return Time()
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return Binary()
	}
	return Custom(strings.TrimSpace(decl))
}
