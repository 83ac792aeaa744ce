package main

import (
	"context"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Maksumys/migrate"
	"github.com/Maksumys/migrate/example/repository"
)

const dsn = "example.db"

func main() {
	logrus.SetLevel(logrus.InfoLevel)
	ctx := context.Background()

	path := dsn
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	repo, err := repository.Load()
	if err != nil {
		logrus.Fatalln(err)
	}

	migrator, err := migrate.NewManager(migrate.WithLogWriter(logrus.StandardLogger().Writer()))
	if err != nil {
		logrus.Fatalln(err)
	}

	err = migrator.RegisterService("accounts", repo,
		func() *gorm.DB {
			db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
			if err != nil {
				logrus.Fatalln(err)
			}
			return db
		},
		func(db *gorm.DB) {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
		"",
	)
	if err != nil {
		logrus.Fatalln(err)
	}

	if err := migrator.MigrateService(ctx, "accounts"); err != nil {
		logrus.Fatalln(err)
	}

	reason, ok, err := migrator.CheckFulfillment(ctx, "accounts")
	if err != nil {
		logrus.Fatalln(err)
	}
	if !ok {
		logrus.Fatalln(reason)
	}
	logrus.Infof("database %s is at version %s", path, repo.Latest())
}
