package changeset

import (
	"errors"
	"fmt"
)

var (
	ErrNotSupported       = errors.New("operation not supported by dialect")
	ErrInvalidConstraint  = errors.New("invalid constraint")
	ErrColumnNotFound     = errors.New("column not found")
	ErrReflectUnavailable = errors.New("table reflection unavailable")
)

// NotSupportedError сообщает, что диалект не умеет выполнять операцию.
// Сравнивается с ErrNotSupported через errors.Is.
type NotSupportedError struct {
	Dialect   string
	Operation string
	Hint      string
}

func notSupported(dialect, operation, hint string) *NotSupportedError {
	return &NotSupportedError{Dialect: dialect, Operation: operation, Hint: hint}
}

func (e *NotSupportedError) Error() string {
	msg := fmt.Sprintf("%s does not support %s", e.Dialect, e.Operation)
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

func (e *NotSupportedError) Is(target error) bool {
	return target == ErrNotSupported
}
