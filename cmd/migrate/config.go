package main

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// config - параметры процесса из окружения (MIGRATE_URL, MIGRATE_REPOSITORY, ...).
// Флаги команд имеют приоритет.
type config struct {
	URL        string `envconfig:"URL"`
	Repository string `envconfig:"REPOSITORY"`
	// Dialect задает диалект вместо определенного по подключению.
	Dialect  string `envconfig:"DIALECT"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warning"`
}

func loadConfig() (*config, error) {
	var c config
	err := envconfig.Process("migrate", &c)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *config) logLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.LogLevel)
}

// gormLogger пишет журнал gorm через logrus.
func gormLogger(level logrus.Level) logger.Interface {
	gormLevel := logger.Error
	switch {
	case level >= logrus.DebugLevel:
		gormLevel = logger.Info
	case level >= logrus.WarnLevel:
		gormLevel = logger.Warn
	}
	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
	})
}
