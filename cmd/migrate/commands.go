package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/cli"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Maksumys/migrate"
	"github.com/Maksumys/migrate/versioning"
)

const (
	commandSuccess   = 0
	commandUserError = 1
	commandCliError  = 2
)

type environment struct {
	ui      cli.Ui
	cfg     *config
	manager *migrate.Manager
	gormLog logger.Interface
}

// options - значения флагов команды.
type options struct {
	url        string
	repository string
	table      string
	preview    bool
}

type flagSet uint

const (
	flagURL flagSet = 1 << iota
	flagRepository
	flagTable
	flagPreview
)

// spec описывает команду: справку, флаги, допустимое число аргументов и действие.
type spec struct {
	synopsis string
	usage    string
	help     string
	flags    flagSet
	minArgs  int
	maxArgs  int
	run      func(ctx context.Context, env *environment, o *options, args []string) error
}

var _ cli.Command = (*Command)(nil)

type Command struct {
	env  *environment
	name string
	spec spec
}

func (c *Command) Synopsis() string {
	return c.spec.synopsis
}

func (c *Command) Help() string {
	helpText := fmt.Sprintf("Usage: migrate %s\n\n  %s\n", c.spec.usage, strings.TrimSpace(c.spec.help))
	if defaults := c.flagDefaults(); defaults != "" {
		helpText += "\nOptions:\n\n" + defaults
	}
	return strings.TrimSpace(helpText)
}

func (c *Command) flagSet(o *options) *flag.FlagSet {
	f := flag.NewFlagSet(c.name, flag.ContinueOnError)
	f.SetOutput(new(strings.Builder))
	if c.spec.flags&flagURL != 0 {
		f.StringVar(&o.url, "url", c.env.cfg.URL, "Database URL. Defaults to MIGRATE_URL.")
	}
	if c.spec.flags&flagRepository != 0 {
		f.StringVar(&o.repository, "repository", c.env.cfg.Repository, "Repository path. Defaults to MIGRATE_REPOSITORY.")
	}
	if c.spec.flags&flagTable != 0 {
		f.StringVar(&o.table, "table", versioning.DefaultVersionTable, "Version table created in controlled databases.")
	}
	if c.spec.flags&flagPreview != 0 {
		f.BoolVar(&o.preview, "preview", false, "Print the SQL of each step instead of running it.")
	}
	return f
}

func (c *Command) flagDefaults() string {
	var out strings.Builder
	f := c.flagSet(&options{})
	f.SetOutput(&out)
	f.PrintDefaults()
	return out.String()
}

func (c *Command) Run(args []string) int {
	var o options
	f := c.flagSet(&o)
	if err := f.Parse(args); err != nil {
		c.env.ui.Error(err.Error())
		c.env.ui.Error(c.Help())
		return commandUserError
	}

	rest := f.Args()
	if len(rest) < c.spec.minArgs || len(rest) > c.spec.maxArgs {
		c.env.ui.Error(fmt.Sprintf("Expected %s", c.expectedArgs()))
		c.env.ui.Error(c.Help())
		return commandUserError
	}

	err := c.spec.run(context.Background(), c.env, &o, rest)
	var usageErr *migrate.UsageError
	var knownErr *migrate.KnownError
	switch {
	case err == nil:
		return commandSuccess
	case errors.As(err, &usageErr):
		c.env.ui.Error(usageErr.Message)
		c.env.ui.Error(c.Help())
		return commandUserError
	case errors.As(err, &knownErr):
		c.env.ui.Error(knownErr.Message)
		return commandUserError
	}
	c.env.ui.Error(fmt.Sprintf("Error: %s", err))
	return commandCliError
}

func (c *Command) expectedArgs() string {
	if c.spec.minArgs == c.spec.maxArgs {
		return fmt.Sprintf("%d argument(s), see usage", c.spec.minArgs)
	}
	return fmt.Sprintf("%d to %d arguments, see usage", c.spec.minArgs, c.spec.maxArgs)
}

func commands(env *environment) map[string]cli.CommandFactory {
	out := make(map[string]cli.CommandFactory, len(specs))
	for name, s := range specs {
		name, s := name, s
		out[name] = func() (cli.Command, error) {
			return &Command{env: env, name: name, spec: s}, nil
		}
	}
	return out
}

var specs = map[string]spec{
	"create": {
		synopsis: "Create an empty repository",
		usage:    "create [options] REPOSITORY_PATH NAME",
		help: `
Create an empty repository at the specified path. NAME identifies the
  repository in the version table of controlled databases.`,
		flags:   flagTable,
		minArgs: 2,
		maxArgs: 2,
		run: func(_ context.Context, env *environment, o *options, args []string) error {
			repo, err := env.manager.CreateRepository(args[0], args[1], versioning.WithVersionTable(o.table))
			if err != nil {
				return err
			}
			env.ui.Output(fmt.Sprintf("Created repository %s at %s", repo.ID(), repo.Path))
			return nil
		},
	},
	"script": {
		synopsis: "Create an empty Go change script",
		usage:    "script [options] DESCRIPTION",
		help: `
Create an empty Go change script using the next unused version number
  appended with the given description.`,
		flags:   flagRepository,
		minArgs: 1,
		maxArgs: 1,
		run: func(_ context.Context, env *environment, o *options, args []string) error {
			repo, err := loadRepository(env, o)
			if err != nil {
				return err
			}
			v, err := env.manager.Script(repo, args[0])
			if err != nil {
				return err
			}
			env.ui.Output(fmt.Sprintf("Created %s", v.Native().Path()))
			return nil
		},
	},
	"script_sql": {
		synopsis: "Create empty SQL change scripts for a database",
		usage:    "script_sql [options] DATABASE",
		help: `
Create empty upgrade and downgrade SQL scripts for DATABASE, either a
  specific one (postgres, mysql, sqlite, oracle, firebird) or "default".`,
		flags:   flagRepository,
		minArgs: 1,
		maxArgs: 1,
		run: func(_ context.Context, env *environment, o *options, args []string) error {
			repo, err := loadRepository(env, o)
			if err != nil {
				return err
			}
			v, err := env.manager.ScriptSQL(repo, args[0])
			if err != nil {
				return err
			}
			for _, op := range []string{versioning.OpUpgrade, versioning.OpDowngrade} {
				env.ui.Output(fmt.Sprintf("Created %s", v.SQL(args[0], op).Path()))
			}
			return nil
		},
	},
	"version": {
		synopsis: "Print the latest version of a repository",
		usage:    "version [options]",
		help:     "Display the latest version available in a repository.",
		flags:    flagRepository,
		run: func(_ context.Context, env *environment, o *options, _ []string) error {
			repo, err := loadRepository(env, o)
			if err != nil {
				return err
			}
			env.ui.Output(env.manager.LatestVersion(repo).String())
			return nil
		},
	},
	"source": {
		synopsis: "Print the script of a version",
		usage:    "source [options] VERSION [DESTINATION]",
		help: `
Display the script of a version. Save it to DESTINATION or, if omitted,
  print it.`,
		flags:   flagRepository,
		minArgs: 1,
		maxArgs: 2,
		run: func(_ context.Context, env *environment, o *options, args []string) error {
			repo, err := loadRepository(env, o)
			if err != nil {
				return err
			}
			version, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			text, err := env.manager.Source(repo, version)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				return os.WriteFile(args[1], []byte(text), 0o644)
			}
			env.ui.Output(text)
			return nil
		},
	},
	"version_control": {
		synopsis: "Put a database under version control",
		usage:    "version_control [options] [VERSION]",
		help: `
Mark a database as under this repository's version control. The database
  starts at VERSION, 0 by default; no script runs, its schema must already
  match that version.`,
		flags:   flagURL | flagRepository,
		maxArgs: 1,
		run: func(ctx context.Context, env *environment, o *options, args []string) error {
			version, err := optionalVersion(args, 0)
			if err != nil {
				return err
			}
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				_, err := env.manager.VersionControl(ctx, db, repo, version)
				return err
			})
		},
	},
	"db_version": {
		synopsis: "Print the version of a database",
		usage:    "db_version [options]",
		help:     "Show the current version of a database under the repository's control.",
		flags:    flagURL | flagRepository,
		run: func(ctx context.Context, env *environment, o *options, _ []string) error {
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				version, err := env.manager.DBVersion(ctx, db, repo)
				if err != nil {
					return err
				}
				env.ui.Output(version.String())
				return nil
			})
		},
	},
	"upgrade": {
		synopsis: "Upgrade a database to a later version",
		usage:    "upgrade [options] [VERSION]",
		help: `
Upgrade a database to VERSION, the latest version by default. With
  -preview the SQL of each step is printed instead.`,
		flags:   flagURL | flagRepository | flagPreview,
		maxArgs: 1,
		run: func(ctx context.Context, env *environment, o *options, args []string) error {
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				version, err := optionalVersion(args, repo.Latest())
				if err != nil {
					return err
				}
				if o.preview {
					return preview(ctx, env, db, repo, version, true)
				}
				return env.manager.UpgradeTo(ctx, db, repo, version)
			})
		},
	},
	"downgrade": {
		synopsis: "Downgrade a database to an earlier version",
		usage:    "downgrade [options] VERSION",
		help: `
Downgrade a database to VERSION, running the downgrade scripts in reverse
  order. With -preview the SQL of each step is printed instead.`,
		flags:   flagURL | flagRepository | flagPreview,
		minArgs: 1,
		maxArgs: 1,
		run: func(ctx context.Context, env *environment, o *options, args []string) error {
			version, err := parseVersion(args[0])
			if err != nil {
				return err
			}
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				if o.preview {
					return preview(ctx, env, db, repo, version, false)
				}
				return env.manager.Downgrade(ctx, db, repo, version)
			})
		},
	},
	"drop_version_control": {
		synopsis: "Remove version control from a database",
		usage:    "drop_version_control [options]",
		help:     "Remove the repository's row from the version table. The schema is not changed.",
		flags:    flagURL | flagRepository,
		run: func(ctx context.Context, env *environment, o *options, _ []string) error {
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				return env.manager.DropVersionControl(ctx, db, repo)
			})
		},
	},
	"test": {
		synopsis: "Run the latest script up and down",
		usage:    "test [options]",
		help: `
Run the upgrade and then the downgrade of the latest script. The version
  table is not touched. A failing script may leave the schema half changed,
  so run it on a copy of the database.`,
		flags: flagURL | flagRepository,
		run: func(ctx context.Context, env *environment, o *options, _ []string) error {
			return withDatabase(env, o, func(db *gorm.DB, repo *versioning.Repository) error {
				if err := env.manager.Test(ctx, db, repo); err != nil {
					return err
				}
				env.ui.Output("Success")
				return nil
			})
		},
	},
}

func loadRepository(env *environment, o *options) (*versioning.Repository, error) {
	if o.repository == "" {
		return nil, &migrate.UsageError{Message: "A repository must be specified"}
	}
	return env.manager.LoadRepository(o.repository)
}

func withDatabase(env *environment, o *options, fn func(db *gorm.DB, repo *versioning.Repository) error) error {
	repo, err := loadRepository(env, o)
	if err != nil {
		return err
	}
	if o.url == "" {
		return &migrate.UsageError{Message: "A database URL must be specified"}
	}
	db, err := openDB(o.url, env.gormLog)
	if err != nil {
		return err
	}
	defer closeDB(db)
	return fn(db, repo)
}

func preview(ctx context.Context, env *environment, db *gorm.DB, repo *versioning.Repository, version versioning.VersionNumber, upgrade bool) error {
	plan, err := env.manager.Preview(ctx, db, repo, version, upgrade)
	if err != nil {
		return err
	}
	for _, step := range plan {
		env.ui.Output(fmt.Sprintf("%s -> %s (%s)", step.From, step.To, step.Script))
		for _, stmt := range step.Statements {
			env.ui.Output(strings.TrimSpace(stmt))
		}
	}
	return nil
}

func parseVersion(s string) (versioning.VersionNumber, error) {
	v, err := versioning.ParseVersionNumber(s)
	if err != nil {
		return 0, &migrate.UsageError{Message: err.Error()}
	}
	return v, nil
}

func optionalVersion(args []string, def versioning.VersionNumber) (versioning.VersionNumber, error) {
	if len(args) == 0 {
		return def, nil
	}
	return parseVersion(args[0])
}
