package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlwrap/cli/internal/config"
	"github.com/satishbabariya/sqlwrap/cli/internal/ui"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or persist connection settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if cfg.Password != "" {
				cfg.Password = "********"
			}
			format := opts.output
			if format == ui.FormatTable {
				format = ui.FormatYAML
			}
			return ui.PrintValue(cfg, format)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the user config file",
		Long: `Save writes the current settings, including any given as flags or
environment variables, to $HOME/.config/sqlwrap/.sqlwrap.yaml.
The password is never written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Save(opts.v, opts.cfg)
			if err != nil {
				return err
			}
			ui.PrintSuccess("Configuration saved to %s", path)
			return nil
		},
	})

	return cmd
}
