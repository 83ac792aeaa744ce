package versioning

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"

	"github.com/Maksumys/migrate/internal/templates"
)

var (
	versionPrefix = regexp.MustCompile(`^(\d+)`)
	sqlFileName   = regexp.MustCompile(`^(\d+)_([^_]+)_([^_]+)\.sql$`)
	nonWord       = regexp.MustCompile(`[^a-z0-9]+`)
)

// oldLayoutEntry - в старом формате у каждой версии был свой каталог.
const oldLayoutEntry = "1"

// Collection - версии репозитория, найденные в каталоге versions. Номера
// версий могут идти с пропусками.
type Collection struct {
	fsys     fs.FS
	dir      string
	registry *Registry

	versions map[VersionNumber]*Version
	latest   VersionNumber
}

// OpenCollection сканирует каталог версий на диске. В нем можно создавать
// новые версии.
func OpenCollection(dir string, opt ...Option) (*Collection, error) {
	c, err := NewCollection(os.DirFS(dir), opt...)
	if err != nil {
		return nil, err
	}
	c.dir = dir
	return c, nil
}

// NewCollection сканирует корень fsys. Коллекция только для чтения.
func NewCollection(fsys fs.FS, opt ...Option) (*Collection, error) {
	opts := getOpts(opt...)
	c := &Collection{
		fsys:     fsys,
		registry: opts.withRegistry,
		versions: make(map[VersionNumber]*Version),
	}
	if err := c.discover(); err != nil {
		return nil, err
	}
	return c, nil
}

// discover собирает файлы с числовым префиксом, остальные пропускает.
// Все структурные ошибки возвращаются вместе.
func (c *Collection) discover() error {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return fmt.Errorf("%w: reading versions: %v", ErrInvalidRepository, err)
	}

	var result *multierror.Error
	for _, entry := range entries {
		name := entry.Name()
		if name == oldLayoutEntry {
			return ErrOldLayout
		}
		if entry.IsDir() {
			continue
		}
		match := versionPrefix.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		if err := c.addFile(name, match[1]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for number := range c.versions {
		if number > c.latest {
			c.latest = number
		}
	}
	return nil
}

func (c *Collection) addFile(name, prefix string) error {
	number, err := ParseVersionNumber(prefix)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if number == 0 {
		return fmt.Errorf("%w: %s, version 0 is the empty schema and has no scripts", ErrInvalidVersion, name)
	}

	switch path.Ext(name) {
	case ".go":
		if strings.HasSuffix(name, "_test.go") {
			return nil
		}
		return c.version(number).addNative(newNativeScript(c.fsys, name, c.registry))
	case ".sql":
		match := sqlFileName.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("%w: invalid sql script name %s, want NNN_dialect_operation.sql", ErrInvalidScript, name)
		}
		op := match[3]
		if op != OpUpgrade && op != OpDowngrade {
			return fmt.Errorf("%w: %s, operation must be %s or %s", ErrInvalidScript, name, OpUpgrade, OpDowngrade)
		}
		c.version(number).addSQL(newSQLScript(c.fsys, name, match[2], op))
	}
	return nil
}

func (c *Collection) version(number VersionNumber) *Version {
	v, ok := c.versions[number]
	if !ok {
		v = newVersion(number)
		c.versions[number] = v
	}
	return v
}

// Latest возвращает старшую версию, для пустой коллекции 0.
func (c *Collection) Latest() VersionNumber {
	return c.latest
}

// Numbers возвращает версии по возрастанию.
func (c *Collection) Numbers() []VersionNumber {
	out := make([]VersionNumber, 0, len(c.versions))
	for number := range c.versions {
		out = append(out, number)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Version возвращает скрипты версии.
func (c *Collection) Version(number VersionNumber) (*Version, error) {
	v, ok := c.versions[number]
	if !ok {
		return nil, fmt.Errorf("%w: version %s does not exist", ErrInvalidVersion, number)
	}
	return v, nil
}

// ReadOnly сообщает, что новые версии создавать нельзя.
func (c *Collection) ReadOnly() bool {
	return c.dir == ""
}

// NextVersion возвращает latest + 1.
func (c *Collection) NextVersion() (VersionNumber, error) {
	next, err := c.latest.Add(1)
	if err != nil {
		return 0, err
	}
	if next <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidVersion, next)
	}
	return next, nil
}

// CreateNativeVersion создает файл нативного скрипта из шаблона под следующим номером.
func (c *Collection) CreateNativeVersion(description string) (*Version, error) {
	if c.ReadOnly() {
		return nil, ErrReadOnly
	}
	next, err := c.NextVersion()
	if err != nil {
		return nil, err
	}

	name := scriptBaseName(next, description) + ".go"
	target := filepath.Join(c.dir, name)
	if err := requireNotExists(target); err != nil {
		return nil, err
	}
	src, err := templates.NativeScript(templates.ScriptData{
		Package:     templates.VersionsPackage,
		Version:     fmt.Sprintf("%03d", next),
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(target, src, 0o644); err != nil {
		return nil, err
	}

	v := newVersion(next)
	if err := v.addNative(newNativeScript(c.fsys, name, c.registry)); err != nil {
		return nil, err
	}
	c.versions[next] = v
	c.latest = next
	return v, nil
}

// CreateSQLVersion создает пустые upgrade/downgrade SQL-файлы для диалекта под следующим номером.
func (c *Collection) CreateSQLVersion(dialect string) (*Version, error) {
	if c.ReadOnly() {
		return nil, ErrReadOnly
	}
	if dialect == "" || strings.ContainsAny(dialect, `_/\. `) {
		return nil, fmt.Errorf("%w: %q cannot be used as a dialect in a file name", ErrInvalidScript, dialect)
	}
	next, err := c.NextVersion()
	if err != nil {
		return nil, err
	}

	v := newVersion(next)
	ops := []string{OpUpgrade, OpDowngrade}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = fmt.Sprintf("%03d_%s_%s.sql", next, dialect, op)
		if err := requireNotExists(filepath.Join(c.dir, names[i])); err != nil {
			return nil, err
		}
	}
	for i, op := range ops {
		if err := os.WriteFile(filepath.Join(c.dir, names[i]), nil, 0o644); err != nil {
			return nil, err
		}
		v.addSQL(newSQLScript(c.fsys, names[i], dialect, op))
	}
	c.versions[next] = v
	c.latest = next
	return v, nil
}

// scriptBaseName возвращает NNN_description, описание в snake_case.
func scriptBaseName(number VersionNumber, description string) string {
	base := fmt.Sprintf("%03d", number)
	extra := strings.Trim(nonWord.ReplaceAllString(strcase.ToSnake(description), "_"), "_")
	if extra != "" {
		base += "_" + extra
	}
	return base
}

func requireNotExists(target string) error {
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrScriptExists, target)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	}
	return err
}
