package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/stride/internal/cli"
	"github.com/julianstephens/stride/internal/cli/goals"
	"github.com/julianstephens/stride/internal/cli/system"
	"github.com/julianstephens/stride/internal/cli/tracking"
	"github.com/julianstephens/stride/internal/config"
	"github.com/julianstephens/stride/internal/constants"
	errs "github.com/julianstephens/stride/internal/errors"
	"github.com/julianstephens/stride/internal/keyring"
	"github.com/julianstephens/stride/internal/logger"
	"github.com/julianstephens/stride/internal/storage"
	"github.com/julianstephens/stride/internal/storage/postgres"
	"github.com/julianstephens/stride/internal/storage/sqlite"
)

var CLI struct {
	Version    kong.VersionFlag
	DB         string `help:"SQLite database path, PostgreSQL connection string, or 'keyring' to use the connection string stored in the OS keyring. PostgreSQL credentials must NOT be embedded in the connection string." name:"db" env:"STRIDE_DB" default:"${default_db}"`
	PolicyFile string `help:"Scoring policy file." name:"policy" env:"STRIDE_POLICY" default:"${default_policy}"`
	Debug      bool   `help:"Enable debug logging to stderr." env:"STRIDE_DEBUG"`

	Init      system.InitCmd     `cmd:"" help:"Initialize stride storage."`
	Migrate   system.MigrateCmd  `cmd:"" help:"Run database migrations."`
	Doctor    system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui       system.TuiCmd      `cmd:"" help:"Launch the goal dashboard." default:"1"`
	Serve     system.ServeCmd    `cmd:"" help:"Periodically score goals and serve prometheus metrics."`
	Goal      goals.GoalCmd      `cmd:"" help:"Manage goals."`
	Criterion goals.CriterionCmd `cmd:"" help:"Manage a goal's success criteria."`
	Task      tracking.TaskCmd   `cmd:"" help:"Manage tasks."`
	Metric    tracking.MetricCmd `cmd:"" help:"Manage metrics and log values."`
	Habit     tracking.HabitCmd  `cmd:"" help:"Manage habits and log completions."`
	Backup    system.BackupCmd   `cmd:"" help:"Create, list and restore SQLite backups."`
	Keyring   system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Policy    system.PolicyCmd   `cmd:"" help:"Show or initialize the scoring policy."`
}

// Commands that manage their own storage lifecycle or need none.
var skipLoad = map[string]bool{
	"init":    true,
	"doctor":  true,
	"backup":  true,
	"keyring": true,
	"policy":  true,
}

func main() {
	vars := kong.Vars{
		"version":        constants.Version,
		"default_db":     constants.DefaultDBPath,
		"default_policy": constants.DefaultPolicyPath,
	}
	for k, v := range system.Vars() {
		vars[k] = v
	}

	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Goal progress and health tracker"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		vars,
	)

	configDir, err := config.ExpandPath(filepath.Dir(constants.DefaultDBPath))
	if err != nil {
		errs.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: CLI.Debug, ConfigDir: configDir}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	policy, err := config.LoadPolicy(CLI.PolicyFile)
	if err != nil {
		errs.Fatal(errs.Wrap(err, "failed to load policy"))
	}

	store, err := openStore(CLI.DB)
	if err != nil {
		errs.Fatal(err)
	}
	defer store.Close()

	command := strings.Fields(ctx.Command())
	if len(command) > 0 && !skipLoad[command[0]] {
		if err := store.Load(); err != nil {
			store.Close()
			errs.Fatal(err)
		}
	}

	appCtx := &cli.Context{
		Store:      store,
		Policy:     policy,
		PolicyPath: CLI.PolicyFile,
		Debug:      CLI.Debug,
	}

	logger.Debug("Running command", "command", ctx.Command(), "store", store.GetConfigPath())
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errs.Fatal(err)
	}
}

// openStore selects the storage backend for the --db value.
func openStore(db string) (storage.Provider, error) {
	if db == constants.KeyringDBSentinel {
		connStr, err := keyring.GetConnectionString()
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, errs.Usagef("no connection string found in keyring. Use 'stride keyring set' to store one")
			}
			return nil, err
		}
		// Passwords are allowed in the keyring since it is encrypted at rest.
		return postgres.New(connStr), nil
	}

	if postgres.IsConnString(db) {
		if err := postgres.ValidateConnString(db); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, errs.Usagef("PostgreSQL connection strings with embedded credentials are NOT allowed. " +
					"Store it with 'stride keyring set' and use --db keyring, or use PGPASSWORD or a .pgpass file")
			}
			return nil, &errs.UsageError{Err: err}
		}
		return postgres.New(db), nil
	}

	path, err := config.ExpandPath(db)
	if err != nil {
		return nil, err
	}
	return sqlite.NewStore(path), nil
}
