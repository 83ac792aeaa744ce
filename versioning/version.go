package versioning

import (
	"fmt"
	"sort"

	"github.com/Maksumys/migrate/changeset"
)

// DefaultDialect - SQL-скрипты этого диалекта используются, когда нет скрипта под конкретную базу.
const DefaultDialect = changeset.DialectDefault

// Version - скрипты одного номера версии: не больше одного нативного
// и любое число SQL-файлов по (диалект, операция).
type Version struct {
	Number VersionNumber

	native *NativeScript
	sql    map[string]map[string]*SQLScript
}

func newVersion(number VersionNumber) *Version {
	return &Version{Number: number, sql: make(map[string]map[string]*SQLScript)}
}

func (v *Version) addNative(s *NativeScript) error {
	if v.native != nil {
		return fmt.Errorf("%w: only one native script per version, found %s and %s", ErrInvalidScript, v.native.Path(), s.Path())
	}
	v.native = s
	return nil
}

func (v *Version) addSQL(s *SQLScript) {
	ops, ok := v.sql[s.Dialect]
	if !ok {
		ops = make(map[string]*SQLScript)
		v.sql[s.Dialect] = ops
	}
	ops[s.Operation] = s
}

// Native возвращает нативный скрипт или nil.
func (v *Version) Native() *NativeScript {
	return v.native
}

// SQL возвращает SQL-скрипт ровно для этих диалекта и операции, иначе nil.
func (v *Version) SQL(dialect, operation string) *SQLScript {
	return v.sql[dialect][operation]
}

// Dialects возвращает отсортированные диалекты, для которых есть SQL-скрипты.
func (v *Version) Dialects() []string {
	out := make([]string, 0, len(v.sql))
	for d := range v.sql {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Script выбирает скрипт: SQL для диалекта, затем SQL для default, затем нативный.
func (v *Version) Script(dialect, operation string) (Script, error) {
	if s := v.SQL(dialect, operation); s != nil {
		return s, nil
	}
	if s := v.SQL(DefaultDialect, operation); s != nil {
		return s, nil
	}
	if v.native != nil {
		return v.native, nil
	}
	return nil, fmt.Errorf("%w: version %s has no %s script for %s", ErrInvalidScript, v.Number, operation, dialect)
}
