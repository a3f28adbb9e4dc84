package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/streaklit/internal/cli"
	"github.com/julianstephens/streaklit/internal/cli/backups"
	"github.com/julianstephens/streaklit/internal/cli/habits"
	"github.com/julianstephens/streaklit/internal/cli/system"
	"github.com/julianstephens/streaklit/internal/config"
	"github.com/julianstephens/streaklit/internal/constants"
	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/keyring"
	"github.com/julianstephens/streaklit/internal/logger"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/internal/storage/postgres"
	"github.com/julianstephens/streaklit/internal/storage/sqlite"
)

type CLI struct {
	Version kong.VersionFlag
	Config  string `help:"TOML config file path." type:"path" default:"${config_file}"`
	DB      string `name:"db" help:"SQLite path, PostgreSQL connection string, or 'keyring'. Overrides the config file and STREAKLIT_DB. PostgreSQL credentials must NOT be embedded; use .pgpass, PGPASSWORD, or the OS keyring."`
	Debug   bool   `help:"Enable debug logging to stderr."`

	Init     system.InitCmd    `cmd:"" help:"Initialize streaklit storage."`
	Migrate  system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor   system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Serve    system.ServeCmd   `cmd:"" help:"Serve the JSON API over HTTP."`
	Tui      system.TuiCmd     `cmd:"" help:"Launch the interactive dashboard."`
	DebugCmd system.DebugCmd   `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Keyring  system.KeyringCmd `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Backup   backups.BackupCmd `cmd:"" help:"Manage database backups."`
	Habit    habits.HabitCmd   `cmd:"" help:"Manage habits and habit tracking." default:"withargs"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		return 1
	}

	var flags CLI
	parser, err := kong.New(&flags,
		kong.Name(constants.AppName),
		kong.Description("Daily habit tracker with streaks and heatmaps"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     "v0.1.0",
			"config_file": constants.DefaultConfigFile,
		},
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%v", err)
		return 1
	}
	command := kctx.Command()

	cfg, err := config.Load(flags.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		return 1
	}
	if flags.DB != "" {
		cfg.Database.Path = flags.DB
	}
	if flags.Debug {
		cfg.Log.Debug = true
	}

	logDir := cfg.Log.Dir
	if logDir != "" {
		if logDir, err = config.ExpandHome(logDir); err != nil {
			fmt.Fprintln(os.Stderr, errors.Format(err))
			return 1
		}
	}
	if err := logger.Init(logger.Config{
		Debug:     cfg.Log.Debug,
		ConfigDir: filepath.Dir(flags.Config),
		LogDir:    logDir,
		Stderr:    strings.HasPrefix(command, "serve"),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{Config: cfg}

	// Keyring management works without a database.
	if !strings.HasPrefix(command, "keyring") {
		store, err := openStore(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, errors.Format(err))
			return 1
		}
		defer store.Close()
		appCtx.Store = store

		// init creates the database and doctor reports load failures itself.
		if !strings.HasPrefix(command, "init") && !strings.HasPrefix(command, "doctor") {
			if err := store.Load(); err != nil {
				fmt.Fprintln(os.Stderr, errors.Format(err))
				return 1
			}
		}
	}

	if err := kctx.Run(appCtx); err != nil {
		logger.Debug("command failed", "command", command, "error", err)
		fmt.Fprintln(os.Stderr, errors.Format(err))
		return 1
	}
	return 0
}

// openStore selects the backend from the configured database path.
func openStore(cfg *config.Config) (storage.Provider, error) {
	path, err := keyring.Resolve(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	fromKeyring := cfg.Database.Path == keyring.Source

	if postgres.IsConnString(path) {
		if _, err := postgres.ValidateConnString(path); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) && !fromKeyring {
				return nil, fmt.Errorf("PostgreSQL connection strings with embedded credentials are NOT allowed; "+
					"store it with '%s keyring set' and use --db keyring, or rely on .pgpass or PGPASSWORD", constants.AppName)
			}
			if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, err
			}
		}
		return postgres.New(path, postgres.Options{OpTimeout: cfg.Database.OpTimeout}), nil
	}

	dbPath, err := config.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(dbPath, sqlite.Options{
		BusyTimeout: cfg.Database.BusyTimeout,
		OpTimeout:   cfg.Database.OpTimeout,
	}), nil
}
