package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
	"github.com/satishbabariya/sqlwrap/cli/internal/version"
	"github.com/satishbabariya/sqlwrap/runtime/client"
)

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get(client.DefaultRegistry().Names())
			if opts.output != ui.FormatTable {
				return ui.PrintValue(info, opts.output)
			}
			fmt.Fprintln(ui.Out, info.String())
			return nil
		},
	}
}
