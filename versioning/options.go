package versioning

import (
	"log/slog"
	"os"

	"github.com/Maksumys/migrate/changeset"
)

// DefaultVersionTable - имя таблицы версий, если в конфигурации не указано другое.
const DefaultVersionTable = "migrate_version"

// getOpts - применяет переданные опции и возвращает структуру.
func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	for _, o := range opt {
		o(&opts)
	}
	return opts
}

// Option - опция, передаваемая аргументом.
type Option func(*options)

type options struct {
	withLogger       *slog.Logger
	withDialect      changeset.Dialect
	withRegistry     *Registry
	withVersionTable string
	withRequiredDBs  []string
}

func getDefaultOptions() options {
	return options{
		withLogger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		withRegistry:     DefaultRegistry,
		withVersionTable: DefaultVersionTable,
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.withLogger = logger
		}
	}
}

// WithDialect задает диалект вместо определенного по имени диалектора gorm.
func WithDialect(d changeset.Dialect) Option {
	return func(o *options) {
		o.withDialect = d
	}
}

// WithRegistry задает реестр, в котором ищутся нативные скрипты.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.withRegistry = r
		}
	}
}

// WithVersionTable задает таблицу версий нового репозитория.
func WithVersionTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.withVersionTable = name
		}
	}
}

// WithRequiredDBs записывает базы, для которых предназначен новый репозиторий.
func WithRequiredDBs(dbs ...string) Option {
	return func(o *options) {
		o.withRequiredDBs = dbs
	}
}
