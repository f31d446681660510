package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the connection and report the server version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner, _ := ui.PrintSpinner("Connecting to " + describeTarget(opts.cfg.Params()))

			var raw string
			err := opts.withClient(cmd, func(c *client.Client) error {
				var err error
				if raw, err = c.ServerVersion(cmd.Context()); err != nil {
					return err
				}
				if spinner != nil {
					spinner.Success("Connected")
				}

				savepoints, err := c.Driver().SupportsSavepoints(raw)
				if err != nil {
					ui.PrintWarning("cannot parse server version %q: %v", raw, err)
				}

				ui.PrintKeyValue("Driver", c.Driver().Name)
				ui.PrintKeyValue("Server version", raw)
				ui.PrintKeyValue("Savepoints", savepoints)
				return nil
			})
			if err != nil && spinner != nil && spinner.IsActive {
				spinner.Fail(err.Error())
			}
			return err
		},
	}
}
