package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/query/filterlang"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

func newSelectCommand(opts *rootOptions) *cobra.Command {
	f := &statementFlags{}

	cmd := &cobra.Command{
		Use:   "select TABLES",
		Short: "Select rows from tables and joins",
		Example: `  sqlwrap select users --where "active = 1" --order-by "created DESC"
  sqlwrap select "posts p LEFT JOIN users u ON p.author_id = u.id" -c p.title,u.name`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := filterlang.ParseTables(args[0])
			if err != nil {
				return err
			}
			filter, err := f.filter()
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(c *client.Client) error {
				rows, err := c.Select(cmd.Context(), f.columns, tables, filter, f.orderBy)
				if err != nil {
					return err
				}
				rs, err := ui.ReadRows(rows)
				if err != nil {
					return err
				}
				return ui.PrintRows(rs, opts.output)
			})
		},
	}

	addSelectFlags(cmd, f)
	return cmd
}

func newInsertCommand(opts *rootOptions) *cobra.Command {
	f := &statementFlags{}

	cmd := &cobra.Command{
		Use:   "insert TABLE",
		Short: "Insert rows, optionally updating rows that collide on a key",
		Example: `  sqlwrap insert users -V "id = 1, name = 'ann'" -V "id = 2, name = 'bob'"
  sqlwrap insert users -V "email = 'ann@example.com', name = 'Ann'" --upsert email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := f.rows()
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(c *client.Client) error {
				n, err := c.Insert(cmd.Context(), args[0], rows, f.upsert...)
				if err != nil {
					return err
				}
				ui.PrintSuccess("%d rows affected", n)
				return nil
			})
		},
	}

	addInsertFlags(cmd, f)
	return cmd
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	f := &statementFlags{}

	cmd := &cobra.Command{
		Use:     "update TABLE",
		Short:   "Update the rows matching a filter",
		Example: `  sqlwrap update posts --set "views += 1, status = 'seen'" --where "id = 7"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := f.assignments()
			if err != nil {
				return err
			}
			filter, err := f.filter()
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(c *client.Client) error {
				n, err := c.Update(cmd.Context(), args[0], values, filter)
				if err != nil {
					return err
				}
				ui.PrintSuccess("%d rows affected", n)
				return nil
			})
		},
	}

	addUpdateFlags(cmd, f)
	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	f := &statementFlags{}
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete TABLE",
		Short:   "Delete the rows matching a filter",
		Example: `  sqlwrap delete sessions --where "expires < '2024-01-01'" --yes`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}

			return opts.withClient(cmd, func(c *client.Client) error {
				where, _, err := c.CompileFilter(filter)
				if err != nil {
					return err
				}
				if !yes && len(filter) > 0 {
					ok, err := confirm("Delete rows of " + args[0] + " where " + where + "?")
					if err != nil {
						return err
					}
					if !ok {
						ui.PrintWarning("aborted")
						return nil
					}
				}

				n, err := c.Delete(cmd.Context(), args[0], filter)
				if err != nil {
					return err
				}
				ui.PrintSuccess("%d rows deleted", n)
				return nil
			})
		},
	}

	addWhereFlag(cmd, f)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
