package changeset

// NewPostgres возвращает диалект PostgreSQL. Все операции как в базовом ANSI,
// отличаются только имена типов и serial-колонки.
func NewPostgres() Dialect {
	d := newANSI(DialectPostgres)
	d.types = postgresTypes
	d.serial = postgresSerial
	return d
}

func postgresSerial(c *Column, typ string, _ bool) (string, string, bool) {
	if !c.Autoincrement || !c.Type.Kind.Is(KindInteger) {
		return typ, "", false
	}
	switch c.Type.Kind {
	case KindSmallInteger:
		return "SMALLSERIAL", "", false
	case KindBigInteger:
		return "BIGSERIAL", "", false
	}
	return "SERIAL", "", false
}
