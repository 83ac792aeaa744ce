package versioning

import (
	"errors"
	"fmt"

	"github.com/Maksumys/migrate/changeset"
)

var (
	ErrInvalidVersion            = errors.New("invalid version")
	ErrInvalidScript             = errors.New("invalid script")
	ErrInvalidRepository         = errors.New("invalid repository")
	ErrInvalidStep               = errors.New("invalid step, must be 1 or -1")
	ErrDatabaseNotControlled     = errors.New("database is not under version control")
	ErrDatabaseAlreadyControlled = errors.New("database is already under version control")
	// ErrWrongRepository также совпадает с ErrDatabaseNotControlled: для этого репозитория база не под контролем.
	ErrWrongRepository = fmt.Errorf("%w: tracking table belongs to another repository", ErrDatabaseNotControlled)
	ErrOldLayout       = errors.New("repository uses the old layout with a directory per version, convert it first")
	ErrScriptExists    = errors.New("script already exists")
	ErrPathExists      = errors.New("path already exists")
	ErrReadOnly        = errors.New("repository is read-only")
)

// StatementError - ошибка выполнения одного выражения SQL-скрипта.
type StatementError = changeset.StatementError

// StepError оборачивает ошибку скрипта номером версии и направлением шага.
type StepError struct {
	Version VersionNumber
	Step    Direction
	Err     error
}

func (e *StepError) Error() string {
	to, _ := e.Version.Add(int64(e.Step))
	return fmt.Sprintf("%s %s -> %s: %v", e.Step, e.Version, to, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
