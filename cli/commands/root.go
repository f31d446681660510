// Package commands implements the sqlwrap command line.
package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/sqlwrap/cli/internal/config"
	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/internal/debug"
)

// rootOptions is the state shared by every command of one invocation.
type rootOptions struct {
	v           *viper.Viper
	cfg         *config.Config
	configFile  string
	output      string
	stats       bool
	askPassword bool
	debug       bool
	runID       string
}

// Execute is the main entry point for the CLI
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the sqlwrap command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlwrap",
		Short: "Run structured SQL statements against MySQL, PostgreSQL and SQLite",
		Long: `sqlwrap compiles structured filters, joins and value lists into
parameterized SQL and runs them with nested transaction support.

Filters use a small literal syntax:
    status IN ('draft', 'review') OR (author = 'ann' AND views >= 10)
Value lists and assignments:
    id = 1, title = 'hello', views += 1
Tables and joins:
    posts p LEFT JOIN users u ON p.author_id = u.id`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default .sqlwrap.yaml in ., $HOME or $HOME/.config/sqlwrap)")
	flags.String("driver", "", "database driver: mysql, pgsql or sqlite")
	flags.String("dsn", "", "driver connection string, overrides the other connection flags")
	flags.String("dbname", "", "database name, or file path for sqlite")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.String("user", "", "database user")
	flags.String("charset", "", "connection charset (mysql)")
	flags.Int("statement-cache", 0, "number of prepared INSERT statements to keep open")
	flags.Bool("log-queries", false, "log every statement")
	flags.String("log-format", "", "log format: text or json")
	flags.BoolVar(&opts.askPassword, "ask-password", false, "prompt for the database password")
	flags.StringVarP(&opts.output, "output", "o", ui.FormatTable, "result format: table, json or yaml")
	flags.BoolVar(&opts.stats, "stats", false, "print statement statistics after the command")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(
		newQueryCommand(opts),
		newSelectCommand(opts),
		newInsertCommand(opts),
		newUpdateCommand(opts),
		newDeleteCommand(opts),
		newCompileCommand(opts),
		newRunCommand(opts),
		newPingCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
	)

	return cmd
}

// init loads the configuration with flags taking precedence and sets up
// logging and output.
func (o *rootOptions) init(cmd *cobra.Command) error {
	ui.Out = cmd.OutOrStdout()
	ui.Err = cmd.ErrOrStderr()

	v, err := config.New()
	if err != nil {
		return err
	}
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
	}

	root := cmd.Root().PersistentFlags()
	for _, key := range config.Keys {
		if f := root.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	o.v = v
	o.cfg = cfg
	o.runID = uuid.NewString()

	debug.InitWriter(ui.Err, o.debug || cfg.LogQueries, cfg.LogFormat)
	debug.Debug("config loaded", "run_id", o.runID, "file", cfg.File, "driver", cfg.Driver)
	return nil
}
