package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/versioning"
)

// NewManager создает экземпляр управляющего миграциями (выступает в качестве фасада).
func NewManager(opts ...ManagerOption) (*Manager, error) {
	manager := Manager{
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		registry: versioning.DefaultRegistry,
		services: make(map[string]*ServiceInfo),
	}

	for _, opt := range opts {
		opt(&manager)
	}

	return &manager, nil
}

// ServiceInfo - база сервиса и репозиторий, под контролем которого она находится.
type ServiceInfo struct {
	Repository     *versioning.Repository
	ConnectFunc    func() *gorm.DB
	DisconnectFunc func(db *gorm.DB)
	// TargetVersion - версия, до которой сервис должен быть обновлен. nil означает последнюю версию репозитория.
	TargetVersion *versioning.VersionNumber
}

func (s *ServiceInfo) target() versioning.VersionNumber {
	if s.TargetVersion == nil {
		return s.Repository.Latest()
	}
	return *s.TargetVersion
}

type Manager struct {
	logger   *slog.Logger
	registry *versioning.Registry
	dialect  changeset.Dialect
	services map[string]*ServiceInfo

	mutex sync.Mutex
}

// options возвращает опции versioning, общие для всех вызовов менеджера.
func (m *Manager) options(opt ...versioning.Option) []versioning.Option {
	return append([]versioning.Option{
		versioning.WithLogger(m.logger),
		versioning.WithRegistry(m.registry),
		versioning.WithDialect(m.dialect),
	}, opt...)
}

// RegisterService сохраняет сервис. Пустая targetVersion означает последнюю версию репозитория.
// Повторная регистрация заменяет прежние параметры.
func (m *Manager) RegisterService(
	name string,
	repo *versioning.Repository,
	connectFunc func() *gorm.DB,
	disconnectFunc func(db *gorm.DB),
	targetVersion string,
) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var target *versioning.VersionNumber
	if strings.TrimSpace(targetVersion) != "" {
		parsed, err := versioning.ParseVersionNumber(targetVersion)
		if err != nil {
			return err
		}
		if parsed > repo.Latest() {
			return fmt.Errorf("%w: target %s is above latest %s", versioning.ErrInvalidVersion, parsed, repo.Latest())
		}
		target = &parsed
	}

	m.services[name] = &ServiceInfo{
		Repository:     repo,
		ConnectFunc:    connectFunc,
		DisconnectFunc: disconnectFunc,
		TargetVersion:  target,
	}
	return nil
}

func (m *Manager) GetServiceInfoUnsafe(name string) (*ServiceInfo, bool) {
	serviceInfo, ok := m.services[name]
	return serviceInfo, ok
}

// connect возвращает сервис и подключение к его базе. По завершении нужно вызвать release.
func (m *Manager) connect(name string) (*ServiceInfo, *gorm.DB, func(), error) {
	service, ok := m.services[name]
	if !ok {
		m.logger.Error(fmt.Sprintf("service %s not found", name))
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	db := service.ConnectFunc()
	release := func() {
		if service.DisconnectFunc != nil {
			service.DisconnectFunc(db)
		}
	}
	return service, db, release, nil
}

// CheckFulfillment проверяет, что база сервиса находится под контролем и ровно на целевой версии,
// а целевая версия совпадает с последней версией репозитория.
func (m *Manager) CheckFulfillment(ctx context.Context, serviceName string) (reasonErr error, ok bool, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.checkFulfillment(ctx, serviceName)
}

func (m *Manager) checkFulfillment(ctx context.Context, serviceName string) (reasonErr error, ok bool, err error) {
	service, db, release, err := m.connect(serviceName)
	if err != nil {
		return nil, false, err
	}
	defer release()

	schema, err := versioning.LoadControlledSchema(ctx, db, service.Repository, m.options()...)
	switch {
	case errors.Is(err, versioning.ErrDatabaseNotControlled):
		// не было выполнено ни одной
		return ErrHasForthcomingMigrations, false, nil
	case err != nil:
		return nil, false, err
	}

	target := service.target()
	switch {
	case schema.Version() < target:
		return ErrHasForthcomingMigrations, false, nil
	case schema.Version() > target:
		return ErrAheadOfTarget, false, nil
	case target < service.Repository.Latest():
		return ErrTargetVersionNotLatest, false, nil
	}
	return nil, true, nil
}

// CheckAll проверяет все зарегистрированные сервисы и возвращает все найденные причины разом.
func (m *Manager) CheckAll(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	names := make([]string, 0, len(m.services))
	for name := range m.services {
		names = append(names, name)
	}
	sort.Strings(names)

	var result *multierror.Error
	for _, name := range names {
		reason, ok, err := m.checkFulfillment(ctx, name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, reason))
		}
	}
	return result.ErrorOrNil()
}

// MigrateService ставит базу сервиса под контроль (если нужно) и обновляет ее до целевой версии.
func (m *Manager) MigrateService(ctx context.Context, serviceName string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	service, db, release, err := m.connect(serviceName)
	if err != nil {
		return err
	}
	defer release()

	_, err = versioning.LoadControlledSchema(ctx, db, service.Repository, m.options()...)
	// таблица версий может принадлежать и другим репозиториям, строка этого репозитория добавляется рядом
	if errors.Is(err, versioning.ErrDatabaseNotControlled) {
		m.logger.Info("putting database under version control", "service", serviceName, "repository", service.Repository.ID())
		_, err = versioning.CreateControlledSchema(ctx, db, service.Repository, 0, m.options()...)
	}
	if err != nil {
		return known(err)
	}
	return m.migrate(ctx, db, service.Repository, service.target(), versioning.Upgrade)
}
