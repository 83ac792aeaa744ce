package changeset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// StatementError оборачивает ошибку выполнения SQL выражения вместе с его текстом.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	message := "statement failed"
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		if pgErr.Position != 0 {
			if line, col, ok := lineFromPos(e.Statement, int(pgErr.Position)); ok {
				message = fmt.Sprintf("%s on line %d (column %d)", message, line, col)
			}
		}
		if pgErr.Detail != "" {
			message = fmt.Sprintf("%s, %s", message, pgErr.Detail)
		}
	}
	return fmt.Sprintf("%s: %s: %v", message, strings.TrimSpace(e.Statement), e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// lineFromPos переводит позицию символа от postgres (с 1) в строку и колонку.
func lineFromPos(s string, pos int) (line, col int, ok bool) {
	runes := []rune(strings.ReplaceAll(s, "\r\n", "\n"))
	if pos <= 0 || pos > len(runes) {
		return 0, 0, false
	}
	sel := runes[:pos]
	last := -1
	line = 1
	for i, r := range sel {
		if r == '\n' {
			line++
			last = i
		}
	}
	return line, pos - 1 - last, true
}
