package versioning

import (
	"context"
	"fmt"
	"io/fs"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/internal/sqlsplit"
)

// Script - одна единица миграции: нативный скрипт или SQL-файл.
type Script interface {
	// Path возвращает путь файла скрипта относительно каталога версий.
	Path() string
	// Run выполняет скрипт в направлении step.
	Run(ctx context.Context, e *changeset.Engine, step Direction) error
	// Source возвращает исходный текст скрипта.
	Source() (string, error)
	// Preview возвращает SQL шага, не выполняя его.
	Preview(ctx context.Context, e *changeset.Engine, step Direction) ([]string, error)
}

var (
	_ Script = (*NativeScript)(nil)
	_ Script = (*SQLScript)(nil)
)

// SQLScript - SQL-файл вида NNN_{dialect}_{operation}.sql.
type SQLScript struct {
	fsys      fs.FS
	path      string
	Dialect   string
	Operation string
}

func newSQLScript(fsys fs.FS, path, dialect, operation string) *SQLScript {
	return &SQLScript{fsys: fsys, path: path, Dialect: dialect, Operation: operation}
}

func (s *SQLScript) Path() string {
	return s.path
}

func (s *SQLScript) Source() (string, error) {
	data, err := fs.ReadFile(s.fsys, s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Run разбивает файл на выражения и выполняет их в одной транзакции.
// step только проверяется: операция задана именем файла.
func (s *SQLScript) Run(ctx context.Context, e *changeset.Engine, step Direction) error {
	if _, err := step.Operation(); err != nil {
		return err
	}
	text, err := s.Source()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidScript, s.path, err)
	}
	statements := sqlsplit.Split(text)

	gx, ok := e.Executor().(*changeset.GormExecutor)
	if !ok {
		for _, stmt := range statements {
			if err := e.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
	return gx.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exec := gx.WithDB(tx)
		for _, stmt := range statements {
			if err := exec.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Preview возвращает текст файла как есть.
func (s *SQLScript) Preview(_ context.Context, _ *changeset.Engine, step Direction) ([]string, error) {
	if _, err := step.Operation(); err != nil {
		return nil, err
	}
	text, err := s.Source()
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}
