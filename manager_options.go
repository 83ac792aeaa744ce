package migrate

import (
	"io"
	"log/slog"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/versioning"
)

type ManagerOption func(*Manager)

func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithLogWriter пишет журнал в w текстом, начиная с уровня Info.
func WithLogWriter(w io.Writer) ManagerOption {
	return func(m *Manager) {
		m.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// WithRegistry задает реестр нативных скриптов. По умолчанию versioning.DefaultRegistry.
func WithRegistry(r *versioning.Registry) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithDialect задает диалект вместо определенного по подключению.
func WithDialect(d changeset.Dialect) ManagerOption {
	return func(m *Manager) {
		m.dialect = d
	}
}
