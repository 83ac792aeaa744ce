package versioning

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Maksumys/migrate/internal/templates"
)

// Файлы репозитория.
const (
	ConfigFile  = "migrate.yaml"
	VersionsDir = "versions"
)

// Repository - каталог с конфигурацией и версиями.
type Repository struct {
	// Path - каталог репозитория, пустой для встроенных репозиториев.
	Path     string
	Config   Config
	Versions *Collection

	logger *slog.Logger
}

// CreateRepository создает репозиторий по шаблону в несуществующем каталоге path.
func CreateRepository(path, name string, opt ...Option) (*Repository, error) {
	opts := getOpts(opt...)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrPathExists, path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	dbs := opts.withRequiredDBs
	if dbs == nil {
		dbs = []string{}
	}
	err := templates.WriteRepository(path, templates.RepositoryData{
		Name:         name,
		RepositoryID: name,
		VersionTable: opts.withVersionTable,
		RequiredDBs:  dbs,
	})
	if err != nil {
		return nil, err
	}
	opts.withLogger.Info("repository created", "path", path, "id", name)
	return LoadRepository(path, opt...)
}

// LoadRepository загружает репозиторий с диска.
func LoadRepository(path string, opt ...Option) (*Repository, error) {
	opts := getOpts(opt...)
	opts.withLogger.Debug("loading repository", "path", path)

	if err := verify(os.DirFS(path)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := readConfig(os.DirFS(path))
	if err != nil {
		return nil, err
	}
	versions, err := OpenCollection(filepath.Join(path, VersionsDir), opt...)
	if err != nil {
		return nil, err
	}

	opts.withLogger.Debug("repository loaded", "path", path, "id", cfg.RepositoryID, "latest", versions.Latest())
	return &Repository{Path: path, Config: cfg, Versions: versions, logger: opts.withLogger}, nil
}

// LoadRepositoryFS загружает репозиторий из fs.FS (например, embed.FS). Такой
// репозиторий только для чтения.
func LoadRepositoryFS(fsys fs.FS, opt ...Option) (*Repository, error) {
	opts := getOpts(opt...)
	if err := verify(fsys); err != nil {
		return nil, err
	}
	cfg, err := readConfig(fsys)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(fsys, VersionsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepository, err)
	}
	versions, err := NewCollection(sub, opt...)
	if err != nil {
		return nil, err
	}
	return &Repository{Config: cfg, Versions: versions, logger: opts.withLogger}, nil
}

// verify проверяет наличие файла конфигурации и каталога версий.
func verify(fsys fs.FS) error {
	if info, err := fs.Stat(fsys, ConfigFile); err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s not found", ErrInvalidRepository, ConfigFile)
	}
	if info, err := fs.Stat(fsys, VersionsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s directory not found", ErrInvalidRepository, VersionsDir)
	}
	return nil
}

func readConfig(fsys fs.FS) (Config, error) {
	data, err := fs.ReadFile(fsys, ConfigFile)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidRepository, err)
	}
	return ParseConfig(data)
}

func (r *Repository) ID() string {
	return r.Config.RepositoryID
}

func (r *Repository) VersionTable() string {
	return r.Config.VersionTable
}

func (r *Repository) Latest() VersionNumber {
	return r.Versions.Latest()
}

func (r *Repository) Version(number VersionNumber) (*Version, error) {
	return r.Versions.Version(number)
}

// CreateScript добавляет версию с нативным скриптом.
func (r *Repository) CreateScript(description string) (*Version, error) {
	v, err := r.Versions.CreateNativeVersion(description)
	if err != nil {
		return nil, err
	}
	r.logger.Info("script created", "version", v.Number, "path", v.Native().Path())
	return v, nil
}

// CreateScriptSQL добавляет версию с пустыми SQL-скриптами для диалекта.
func (r *Repository) CreateScriptSQL(dialect string) (*Version, error) {
	v, err := r.Versions.CreateSQLVersion(dialect)
	if err != nil {
		return nil, err
	}
	r.logger.Info("sql scripts created", "version", v.Number, "dialect", dialect)
	return v, nil
}

// Changeset строит путь от start до end для диалекта. Версии вне [0, latest] отвергаются.
func (r *Repository) Changeset(dialect string, start, end VersionNumber) (*Changeset, error) {
	latest := r.Latest()
	for _, v := range []VersionNumber{start, end} {
		if v < 0 || v > latest {
			return nil, fmt.Errorf("%w: %s is outside [0, %s]", ErrInvalidVersion, v, latest)
		}
	}

	step, first, stop := Upgrade, start+1, end+1
	if start > end {
		step, first, stop = Downgrade, start, end
	}
	op, _ := step.Operation()

	cs := NewChangeset(start, step)
	for number := first; number != stop; number += VersionNumber(step) {
		v, err := r.Version(number)
		if err != nil {
			return nil, err
		}
		s, err := v.Script(dialect, op)
		if err != nil {
			return nil, err
		}
		cs.Add(s)
	}
	return cs, nil
}
