package migrate

import (
	"context"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/versioning"
)

// PreviewStep - один шаг плана: версии, скрипт и SQL, который он выполнит.
type PreviewStep struct {
	From       versioning.VersionNumber
	To         versioning.VersionNumber
	Script     string
	Statements []string
}

// Preview строит план перехода базы на версию version без выполнения. Для нативных
// скриптов возвращается сгенерированный DDL, для SQL-скриптов - текст файла.
// upgrade задает ожидаемое направление, как у Upgrade и Downgrade.
func (m *Manager) Preview(ctx context.Context, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber, upgrade bool) ([]PreviewStep, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	schema, err := versioning.LoadControlledSchema(ctx, db, repo, m.options()...)
	if err != nil {
		return nil, known(err)
	}

	current := schema.Version()
	if upgrade && current > version {
		return nil, directionError(current, version, versioning.Upgrade)
	}
	if !upgrade && current < version {
		return nil, directionError(current, version, versioning.Downgrade)
	}

	cs, err := schema.Changeset(version)
	if err != nil {
		return nil, err
	}

	plan := make([]PreviewStep, 0, cs.Len())
	e := schema.Engine()
	for _, ch := range cs.Changes {
		statements, err := ch.Script.Preview(ctx, e, cs.Step)
		if err != nil {
			return nil, &versioning.StepError{Version: ch.Version, Step: cs.Step, Err: err}
		}
		to, err := ch.Version.Add(int64(cs.Step))
		if err != nil {
			return nil, err
		}
		plan = append(plan, PreviewStep{
			From:       ch.Version,
			To:         to,
			Script:     ch.Script.Path(),
			Statements: statements,
		})
	}
	return plan, nil
}
