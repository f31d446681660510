package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/script"
	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/cli/internal/watch"
	"github.com/satishbabariya/sqlwrap/internal/debug"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	var watchFile bool

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Run a SQL script inside a single transaction",
		Long: `Run executes every statement of a script file in one transaction.
The transaction is rolled back when any statement fails.

With --watch the script is executed again each time the file is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			return opts.withClient(cmd, func(c *client.Client) error {
				if !watchFile {
					return runScript(cmd, opts, c, file)
				}

				w, err := watch.NewWatcher(file, func(ctx context.Context) error {
					return runScript(cmd, opts, c, file)
				}, func(err error) {
					ui.PrintError("%v", err)
				})
				if err != nil {
					return err
				}
				ui.PrintInfo("Watching %s for changes, press Ctrl+C to stop", file)
				return w.Run(cmd.Context())
			})
		},
	}

	cmd.Flags().BoolVar(&watchFile, "watch", false, "re-run the script whenever the file changes")
	return cmd
}

// runScript executes the statements of file in one transaction.
func runScript(cmd *cobra.Command, opts *rootOptions, c *client.Client, file string) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	stmts := script.Split(string(src))
	if len(stmts) == 0 {
		ui.PrintWarning("%s contains no statements", file)
		return nil
	}

	debug.Debug("running script", "file", file, "statements", len(stmts))
	err = c.Transaction(cmd.Context(), func(tx *client.Client) error {
		for i, stmt := range stmts {
			if err := runRaw(cmd, opts, tx, stmt, nil, false); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	ui.PrintSuccess("%s: %d statements committed", file, len(stmts))
	return nil
}
