// Command migrate управляет репозиториями миграций и базами под их контролем.
//
// Go-скрипты компилируются в программу, которая их выполняет, поэтому эта
// команда выполняет только SQL-скрипты. Программы с Go-скриптами встраивают
// свой репозиторий и используют пакет migrate напрямую.
package main

import (
	"fmt"
	"os"

	"github.com/mitchellh/cli"
	"github.com/sirupsen/logrus"

	"github.com/Maksumys/migrate"
	"github.com/Maksumys/migrate/changeset"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	cfg, err := loadConfig()
	if err != nil {
		ui.Error(fmt.Sprintf("Error reading environment: %s", err))
		return commandCliError
	}
	level, err := cfg.logLevel()
	if err != nil {
		ui.Error(fmt.Sprintf("Error reading MIGRATE_LOG_LEVEL: %s", err))
		return commandCliError
	}
	logrus.SetLevel(level)

	opts := []migrate.ManagerOption{migrate.WithLogWriter(logrus.StandardLogger().Writer())}
	if cfg.Dialect != "" {
		opts = append(opts, migrate.WithDialect(changeset.DialectFor(cfg.Dialect)))
	}
	manager, err := migrate.NewManager(opts...)
	if err != nil {
		ui.Error(err.Error())
		return commandCliError
	}

	c := &cli.CLI{
		Name:         "migrate",
		Args:         args,
		Commands:     commands(&environment{ui: ui, cfg: cfg, manager: manager, gormLog: gormLogger(level)}),
		HelpFunc:     cli.BasicHelpFunc("migrate"),
		HelpWriter:   os.Stdout,
		ErrorWriter:  os.Stderr,
		Autocomplete: false,
	}

	exitCode, err := c.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("Error executing CLI: %s", err))
		return commandCliError
	}
	return exitCode
}
