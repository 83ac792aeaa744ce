package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/versioning"
)

// CreateRepository создает пустой репозиторий в каталоге path. Каталог не должен существовать.
func (m *Manager) CreateRepository(path, name string, opt ...versioning.Option) (*versioning.Repository, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	repo, err := versioning.CreateRepository(path, name, m.options(opt...)...)
	return repo, known(err)
}

func (m *Manager) LoadRepository(path string) (*versioning.Repository, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	repo, err := versioning.LoadRepository(path, m.options()...)
	return repo, known(err)
}

// Script создает нативный скрипт под следующим номером версии.
func (m *Manager) Script(repo *versioning.Repository, description string) (*versioning.Version, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	v, err := repo.CreateScript(description)
	return v, known(err)
}

// ScriptSQL создает пустые SQL-скрипты upgrade/downgrade для диалекта под следующим номером версии.
func (m *Manager) ScriptSQL(repo *versioning.Repository, dialect string) (*versioning.Version, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	v, err := repo.CreateScriptSQL(dialect)
	return v, known(err)
}

func (m *Manager) LatestVersion(repo *versioning.Repository) versioning.VersionNumber {
	return repo.Latest()
}

// Source возвращает текст скрипта версии: нативный скрипт, если он есть,
// иначе SQL-скрипт upgrade.
func (m *Manager) Source(repo *versioning.Repository, version versioning.VersionNumber) (string, error) {
	v, err := repo.Version(version)
	if err != nil {
		return "", err
	}
	if native := v.Native(); native != nil {
		return native.Source()
	}
	if s := v.SQL(versioning.DefaultDialect, versioning.OpUpgrade); s != nil {
		return s.Source()
	}
	for _, dialect := range v.Dialects() {
		if s := v.SQL(dialect, versioning.OpUpgrade); s != nil {
			return s.Source()
		}
	}
	return "", fmt.Errorf("%w: version %s has no upgrade script", versioning.ErrInvalidScript, version)
}

// VersionControl ставит базу под контроль репозитория на версии version.
// Скрипты не выполняются: схема базы должна уже соответствовать этой версии.
func (m *Manager) VersionControl(ctx context.Context, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber) (*versioning.ControlledSchema, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	schema, err := versioning.CreateControlledSchema(ctx, db, repo, version, m.options()...)
	if err != nil {
		return nil, known(err)
	}
	m.logger.Info("database is under version control", "repository", repo.ID(), "version", schema.Version())
	return schema, nil
}

// DBVersion возвращает версию базы, записанную для репозитория.
func (m *Manager) DBVersion(ctx context.Context, db *gorm.DB, repo *versioning.Repository) (versioning.VersionNumber, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	schema, err := versioning.LoadControlledSchema(ctx, db, repo, m.options()...)
	if err != nil {
		return 0, known(err)
	}
	return schema.Version(), nil
}

// DropVersionControl снимает базу с контроля репозитория. Схема не меняется.
func (m *Manager) DropVersionControl(ctx context.Context, db *gorm.DB, repo *versioning.Repository) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	schema, err := versioning.LoadControlledSchema(ctx, db, repo, m.options()...)
	if err != nil {
		return known(err)
	}
	if err := schema.Drop(ctx); err != nil {
		return known(err)
	}
	m.logger.Info("version control dropped", "repository", repo.ID())
	return nil
}
