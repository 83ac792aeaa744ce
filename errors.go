package migrate

import (
	"errors"
	"fmt"

	"github.com/Maksumys/migrate/versioning"
)

var (
	ErrServiceNotFound          = errors.New("service not found")
	ErrHasForthcomingMigrations = errors.New("database is behind its target version, consider upgrading")
	ErrAheadOfTarget            = errors.New("database is ahead of its target version, consider downgrading")
	ErrTargetVersionNotLatest   = errors.New("target version falls behind the repository, consider raising target version")
)

// UsageError - неверные или недостающие аргументы команды. Показывается
// пользователю вместе со справкой.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// KnownError - ожидаемая ошибка с понятным пользователю сообщением.
type KnownError struct {
	Message string
	Err     error
}

func (e *KnownError) Error() string {
	return e.Message
}

func (e *KnownError) Unwrap() error {
	return e.Err
}

// knownErrors показываются пользователю как есть, без трассировки.
var knownErrors = []error{
	versioning.ErrPathExists,
	versioning.ErrScriptExists,
	versioning.ErrReadOnly,
	versioning.ErrDatabaseAlreadyControlled,
	versioning.ErrDatabaseNotControlled,
	versioning.ErrOldLayout,
}

func known(err error) error {
	if err == nil {
		return nil
	}
	var ke *KnownError
	if errors.As(err, &ke) {
		return err
	}
	for _, target := range knownErrors {
		if errors.Is(err, target) {
			return &KnownError{Message: err.Error(), Err: err}
		}
	}
	return err
}

func directionError(current, target versioning.VersionNumber, step versioning.Direction) error {
	tryInstead := versioning.Upgrade
	if step == versioning.Upgrade {
		tryInstead = versioning.Downgrade
	}
	return &KnownError{
		Message: fmt.Sprintf("Cannot %s a database of version %s to version %s. Try '%s' instead.", step, current, target, tryInstead),
		Err:     versioning.ErrInvalidVersion,
	}
}
