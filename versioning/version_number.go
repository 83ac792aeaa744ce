package versioning

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// VersionNumber - номер версии схемы. Ноль означает пустую схему, скрипта для него нет.
type VersionNumber int64

func NewVersionNumber(v int64) (VersionNumber, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidVersion, v)
	}
	return VersionNumber(v), nil
}

// ParseVersionNumber разбирает десятичный номер версии.
func ParseVersionNumber(s string) (VersionNumber, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidVersion, s)
	}
	return NewVersionNumber(v)
}

func (v VersionNumber) Add(n int64) (VersionNumber, error) {
	return NewVersionNumber(int64(v) + n)
}

func (v VersionNumber) Sub(n int64) (VersionNumber, error) {
	return NewVersionNumber(int64(v) - n)
}

func (v VersionNumber) String() string {
	return strconv.FormatInt(int64(v), 10)
}

func (v VersionNumber) Value() (driver.Value, error) {
	return int64(v), nil
}

func (v *VersionNumber) Scan(value any) error {
	var (
		parsed VersionNumber
		err    error
	)
	switch value := value.(type) {
	case int64:
		parsed, err = NewVersionNumber(value)
	case int32:
		parsed, err = NewVersionNumber(int64(value))
	case []byte:
		parsed, err = ParseVersionNumber(string(value))
	case string:
		parsed, err = ParseVersionNumber(value)
	default:
		err = fmt.Errorf("%w: cannot scan %T", ErrInvalidVersion, value)
	}
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Direction - направление шага миграции.
type Direction int

const (
	Upgrade   Direction = 1
	Downgrade Direction = -1
)

// Имена операций в именах SQL-файлов.
const (
	OpUpgrade   = "upgrade"
	OpDowngrade = "downgrade"
)

// DirectionOf возвращает направление шага размера step.
func DirectionOf(step int) (Direction, error) {
	d := Direction(step)
	if _, err := d.Operation(); err != nil {
		return 0, err
	}
	return d, nil
}

// Operation возвращает "upgrade" или "downgrade".
func (d Direction) Operation() (string, error) {
	switch d {
	case Upgrade:
		return OpUpgrade, nil
	case Downgrade:
		return OpDowngrade, nil
	}
	return "", fmt.Errorf("%w: %d", ErrInvalidStep, int(d))
}

func (d Direction) String() string {
	op, err := d.Operation()
	if err != nil {
		return fmt.Sprintf("step(%d)", int(d))
	}
	return op
}
