package versioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/internal/models"
	"github.com/Maksumys/migrate/internal/tracking"
)

// ControlledSchema связывает базу с репозиторием. Текущая версия всегда
// читается из таблицы версий и перечитывается после каждого шага.
type ControlledSchema struct {
	db         *gorm.DB
	repository *Repository
	dialect    changeset.Dialect
	logger     *slog.Logger

	version VersionNumber
}

func newControlledSchema(db *gorm.DB, repo *Repository, opt ...Option) *ControlledSchema {
	opts := getOpts(opt...)
	dialect := opts.withDialect
	if dialect == nil {
		dialect = changeset.DialectFor(db.Dialector.Name())
	}
	return &ControlledSchema{db: db, repository: repo, dialect: dialect, logger: opts.withLogger}
}

// CreateControlledSchema ставит базу под контроль репозитория на версии version.
func CreateControlledSchema(ctx context.Context, db *gorm.DB, repo *Repository, version VersionNumber, opt ...Option) (*ControlledSchema, error) {
	if version < 0 || version > repo.Latest() {
		return nil, fmt.Errorf("%w: %s is outside [0, %s]", ErrInvalidVersion, version, repo.Latest())
	}
	s := newControlledSchema(db, repo, opt...)
	table := repo.VersionTable()

	if !tracking.HasTable(ctx, db, table) {
		s.logger.Info("creating version table", "table", table)
		if err := tracking.CreateTable(ctx, s.Engine(), table); err != nil {
			return nil, err
		}
	}
	err := tracking.Insert(ctx, db, table, models.VersionRow{
		RepositoryID:   repo.ID(),
		RepositoryPath: repo.Path,
		Version:        int64(version),
	})
	if errors.Is(err, tracking.ErrDuplicate) {
		return nil, fmt.Errorf("%w: repository %s", ErrDatabaseAlreadyControlled, repo.ID())
	}
	if err != nil {
		return nil, err
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadControlledSchema читает текущую версию базы.
func LoadControlledSchema(ctx context.Context, db *gorm.DB, repo *Repository, opt ...Option) (*ControlledSchema, error) {
	s := newControlledSchema(db, repo, opt...)
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ControlledSchema) load(ctx context.Context) error {
	table := s.repository.VersionTable()
	if !tracking.HasTable(ctx, s.db, table) {
		return fmt.Errorf("%w: table %s not found", ErrDatabaseNotControlled, table)
	}
	row, err := tracking.Get(ctx, s.db, table, s.repository.ID())
	if errors.Is(err, tracking.ErrNotFound) {
		n, countErr := tracking.Count(ctx, s.db, table)
		if countErr == nil && n > 0 {
			return fmt.Errorf("%w: no row for %s", ErrWrongRepository, s.repository.ID())
		}
		return fmt.Errorf("%w: no row for %s", ErrDatabaseNotControlled, s.repository.ID())
	}
	if err != nil {
		return err
	}
	version, err := NewVersionNumber(row.Version)
	if err != nil {
		return fmt.Errorf("recorded version: %w", err)
	}
	s.version = version
	return nil
}

// Version возвращает записанную версию на момент последней загрузки.
func (s *ControlledSchema) Version() VersionNumber {
	return s.version
}

func (s *ControlledSchema) Repository() *Repository {
	return s.repository
}

func (s *ControlledSchema) Dialect() changeset.Dialect {
	return s.dialect
}

// Engine возвращает changeset.Engine поверх подключения схемы.
func (s *ControlledSchema) Engine() *changeset.Engine {
	return changeset.NewGormEngine(s.db, s.dialect, changeset.WithExecutorLogger(s.logger))
}

// Drop снимает базу с контроля: удаляет строку репозитория, а когда строк
// не осталось, и саму таблицу версий.
func (s *ControlledSchema) Drop(ctx context.Context) error {
	table := s.repository.VersionTable()
	if !tracking.HasTable(ctx, s.db, table) {
		return fmt.Errorf("%w: table %s not found", ErrDatabaseNotControlled, table)
	}
	n, err := tracking.Delete(ctx, s.db, table, s.repository.ID())
	if err != nil {
		return err
	}
	left, err := tracking.Count(ctx, s.db, table)
	if err != nil {
		return err
	}
	if n == 0 {
		if left > 0 {
			return fmt.Errorf("%w: no row for %s", ErrWrongRepository, s.repository.ID())
		}
		return fmt.Errorf("%w: no row for %s", ErrDatabaseNotControlled, s.repository.ID())
	}
	if left == 0 {
		s.logger.Info("dropping version table", "table", table)
		return tracking.DropTable(ctx, s.Engine(), table)
	}
	return nil
}

// Changeset возвращает шаги от записанной версии до end.
func (s *ControlledSchema) Changeset(end VersionNumber) (*Changeset, error) {
	return s.repository.Changeset(s.dialect.Name(), s.version, end)
}

// RunChange выполняет один шаг. Версия в базе должна быть ровно version;
// после успешного шага она обновляется и перечитывается.
func (s *ControlledSchema) RunChange(ctx context.Context, version VersionNumber, script Script, step Direction) error {
	if _, err := step.Operation(); err != nil {
		return err
	}
	if s.version != version {
		return fmt.Errorf("%w: database is at %s, not %s", ErrInvalidVersion, s.version, version)
	}
	end, err := version.Add(int64(step))
	if err != nil {
		return err
	}

	s.logger.Info("running script", "from", version, "to", end, "script", script.Path())
	if err := script.Run(ctx, s.Engine(), step); err != nil {
		s.logger.Error("script failed", "from", version, "to", end, "script", script.Path(), "error", err)
		return &StepError{Version: version, Step: step, Err: err}
	}

	n, err := tracking.UpdateVersion(ctx, s.db, s.repository.VersionTable(), s.repository.ID(), int64(version), int64(end))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: recorded version changed while running %s", ErrInvalidVersion, script.Path())
	}
	return s.load(ctx)
}

// Upgrade переводит базу на версию end (в любом направлении). Первый упавший
// шаг останавливает процесс; база остается на версии последнего успешного шага.
func (s *ControlledSchema) Upgrade(ctx context.Context, end VersionNumber) error {
	cs, err := s.Changeset(end)
	if err != nil {
		return err
	}
	for _, ch := range cs.Changes {
		if err := s.RunChange(ctx, ch.Version, ch.Script, cs.Step); err != nil {
			return err
		}
	}
	return nil
}
