package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

func newQueryCommand(opts *rootOptions) *cobra.Command {
	var exec bool

	cmd := &cobra.Command{
		Use:   "query SQL [ARG...]",
		Short: "Run a raw statement with ? placeholders",
		Example: `  sqlwrap query "SELECT * FROM users WHERE id = ?" 42
  sqlwrap query --exec "UPDATE users SET active = 0"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make([]interface{}, len(args)-1)
			for i, a := range args[1:] {
				params[i] = a
			}
			return opts.withClient(cmd, func(c *client.Client) error {
				return runRaw(cmd, opts, c, args[0], params, exec)
			})
		},
	}

	cmd.Flags().BoolVar(&exec, "exec", false, "run as a statement without rows and print the affected count")
	return cmd
}

// runRaw runs one statement, printing rows or the affected-row count.
func runRaw(cmd *cobra.Command, opts *rootOptions, c *client.Client, query string, params []interface{}, exec bool) error {
	ctx := cmd.Context()
	if exec || !isRowStatement(query) {
		res, err := c.Exec(ctx, query, params...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		ui.PrintSuccess("%d rows affected", n)
		return nil
	}

	rows, err := c.Query(ctx, query, params...)
	if err != nil {
		return err
	}
	rs, err := ui.ReadRows(rows)
	if err != nil {
		return err
	}
	return ui.PrintRows(rs, opts.output)
}
