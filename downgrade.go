package migrate

import (
	"context"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/versioning"
)

// Downgrade откатывает базу до версии version, выполняя downgrade скриптов в обратном порядке.
// Версия выше текущей - ошибка KnownError.
func (m *Manager) Downgrade(ctx context.Context, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.migrate(ctx, db, repo, version, versioning.Downgrade)
}
