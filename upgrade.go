package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/versioning"
)

// Upgrade обновляет базу до последней версии репозитория.
func (m *Manager) Upgrade(ctx context.Context, db *gorm.DB, repo *versioning.Repository) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.migrate(ctx, db, repo, repo.Latest(), versioning.Upgrade)
}

// UpgradeTo обновляет базу до версии version. Версия ниже текущей - ошибка KnownError.
func (m *Manager) UpgradeTo(ctx context.Context, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.migrate(ctx, db, repo, version, versioning.Upgrade)
}

// migrate выполняет шаги от текущей версии базы до version. Шаги выполняются по одному;
// после первого упавшего шага база остается на версии последнего успешного, и повторный
// вызов продолжит с нее.
func (m *Manager) migrate(ctx context.Context, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber, step versioning.Direction) error {
	m.logger.Info(fmt.Sprintf("Preparing %s execution", step))

	schema, err := versioning.LoadControlledSchema(ctx, db, repo, m.options()...)
	if err != nil {
		return known(err)
	}

	current := schema.Version()
	if (step == versioning.Upgrade && current > version) || (step == versioning.Downgrade && current < version) {
		return directionError(current, version, step)
	}

	if err := schema.Upgrade(ctx, version); err != nil {
		return err
	}

	m.logger.Info(fmt.Sprintf("%s completed", step), "repository", repo.ID(), "from", current, "version", schema.Version())
	return nil
}

// Test выполняет upgrade, а затем downgrade последнего скрипта репозитория. Таблица версий
// не используется и не меняется. Запускать стоит на копии базы: упавший скрипт может оставить
// схему в промежуточном состоянии.
func (m *Manager) Test(ctx context.Context, db *gorm.DB, repo *versioning.Repository) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	latest := repo.Latest()
	v, err := repo.Version(latest)
	if err != nil {
		return &KnownError{Message: "repository has no versions to test", Err: err}
	}

	e := changeset.NewGormEngine(db, m.dialect, changeset.WithExecutorLogger(m.logger))
	for _, step := range []versioning.Direction{versioning.Upgrade, versioning.Downgrade} {
		op, _ := step.Operation()
		script, err := v.Script(e.Dialect().Name(), op)
		if err != nil {
			return err
		}
		m.logger.Info(fmt.Sprintf("Testing %s of version %s", op, latest), "script", script.Path())
		if err := script.Run(ctx, e, step); err != nil {
			return &versioning.StepError{Version: stepStart(latest, step), Step: step, Err: err}
		}
	}
	m.logger.Info("Test completed", "version", latest)
	return nil
}

// stepStart возвращает версию, с которой начинается шаг скрипта версии scriptVersion.
func stepStart(scriptVersion versioning.VersionNumber, step versioning.Direction) versioning.VersionNumber {
	if step == versioning.Upgrade {
		return scriptVersion - 1
	}
	return scriptVersion
}
