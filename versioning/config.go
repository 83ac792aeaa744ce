package versioning

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config - содержимое migrate.yaml.
type Config struct {
	// RepositoryID - идентификатор репозитория в таблице версий.
	RepositoryID string `yaml:"repository_id"`
	// VersionTable - имя таблицы версий.
	VersionTable string `yaml:"version_table"`
	// RequiredDBs - базы, для которых предназначен репозиторий. Только для справки.
	RequiredDBs []string `yaml:"required_dbs"`
}

// ParseConfig разбирает migrate.yaml и заполняет значения по умолчанию.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidRepository, ConfigFile, err)
	}
	if cfg.RepositoryID == "" {
		return Config{}, fmt.Errorf("%w: %s has no repository_id", ErrInvalidRepository, ConfigFile)
	}
	if cfg.VersionTable == "" {
		cfg.VersionTable = DefaultVersionTable
	}
	return cfg, nil
}
