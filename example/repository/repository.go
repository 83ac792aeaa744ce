// Package repository встраивает репозиторий миграций примера.
package repository

import (
	"embed"

	"github.com/Maksumys/migrate/versioning"

	// регистрирует нативные скрипты
	_ "github.com/Maksumys/migrate/example/repository/versions"
)

//go:embed migrate.yaml versions
var FS embed.FS

// Load загружает встроенный репозиторий.
func Load(opt ...versioning.Option) (*versioning.Repository, error) {
	return versioning.LoadRepositoryFS(FS, opt...)
}
