package versioning

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"runtime"
	"sync"

	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
)

// MigrationFunc - тело нативного скрипта. Все изменения схемы идут через e.
type MigrationFunc func(ctx context.Context, e *changeset.Engine) error

// ScriptOption настраивает регистрацию нативного скрипта.
type ScriptOption func(*registration)

type registration struct {
	upgrade       MigrationFunc
	downgrade     MigrationFunc
	transactional bool
}

// WithTransaction выполняет скрипт в одной транзакции. DDL, который база
// фиксирует неявно, не откатывается.
func WithTransaction() ScriptOption {
	return func(r *registration) {
		r.transactional = true
	}
}

// Registry хранит нативные скрипты по имени файла скрипта.
type Registry struct {
	mutex   sync.Mutex
	scripts map[string]*registration
}

func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]*registration)}
}

// DefaultRegistry заполняется функцией Register из init() пакетов со скриптами.
var DefaultRegistry = NewRegistry()

// Register регистрирует скрипт файла, из которого вызвана. Вызывается из init().
//
// Паникует при повторной регистрации того же файла.
func Register(upgrade, downgrade MigrationFunc, opts ...ScriptOption) {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		panic("versioning: cannot determine the script file of the caller")
	}
	DefaultRegistry.Register(filepath.Base(file), upgrade, downgrade, opts...)
}

// RegisterScript регистрирует скрипт в DefaultRegistry под явным именем файла.
func RegisterScript(file string, upgrade, downgrade MigrationFunc, opts ...ScriptOption) {
	DefaultRegistry.Register(file, upgrade, downgrade, opts...)
}

// Register регистрирует скрипт под именем файла (без каталога).
//
// Паникует при повторной регистрации того же файла.
func (r *Registry) Register(file string, upgrade, downgrade MigrationFunc, opts ...ScriptOption) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := path.Base(filepath.ToSlash(file))
	if _, ok := r.scripts[name]; ok {
		panic(fmt.Sprintf("versioning: script %s is already registered", name))
	}
	reg := &registration{upgrade: upgrade, downgrade: downgrade}
	for _, opt := range opts {
		opt(reg)
	}
	r.scripts[name] = reg
}

func (r *Registry) lookup(name string) (*registration, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	reg, ok := r.scripts[name]
	return reg, ok
}

// NativeScript - скрипт на Go. Файл в каталоге versions нужен для нумерации
// и Source(), код берется из реестра.
type NativeScript struct {
	fsys     fs.FS
	path     string
	registry *Registry
}

func newNativeScript(fsys fs.FS, path string, registry *Registry) *NativeScript {
	return &NativeScript{fsys: fsys, path: path, registry: registry}
}

func (s *NativeScript) Path() string {
	return s.path
}

func (s *NativeScript) Source() (string, error) {
	data, err := fs.ReadFile(s.fsys, s.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// load находит функцию для шага.
func (s *NativeScript) load(step Direction) (MigrationFunc, *registration, error) {
	op, err := step.Operation()
	if err != nil {
		return nil, nil, err
	}
	reg, ok := s.registry.lookup(path.Base(s.path))
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not registered, is its package imported?", ErrInvalidScript, s.path)
	}
	fn := reg.upgrade
	if step == Downgrade {
		fn = reg.downgrade
	}
	if fn == nil {
		return nil, nil, fmt.Errorf("%w: %s has no %s function", ErrInvalidScript, s.path, op)
	}
	return fn, reg, nil
}

func (s *NativeScript) Run(ctx context.Context, e *changeset.Engine, step Direction) error {
	fn, reg, err := s.load(step)
	if err != nil {
		return err
	}
	gx, ok := e.Executor().(*changeset.GormExecutor)
	if !reg.transactional || !ok {
		return fn(ctx, e)
	}
	return gx.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, changeset.NewEngine(e.Dialect(), gx.WithDB(tx)))
	})
}

// Preview выполняет скрипт на Recorder и возвращает выражения, которые он
// выполнил бы. Чтение структуры таблиц идет из живой базы.
func (s *NativeScript) Preview(ctx context.Context, e *changeset.Engine, step Direction) ([]string, error) {
	fn, _, err := s.load(step)
	if err != nil {
		return nil, err
	}
	rec := changeset.NewRecorder(e.Executor())
	if err := fn(ctx, changeset.NewEngine(e.Dialect(), rec)); err != nil {
		return nil, err
	}
	return rec.Statements(), nil
}
