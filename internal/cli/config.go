package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pmerten/fedicircle/pkg/config"
)

// configCommand creates the config command printing the effective
// configuration, defaults overlaid with the given file.
func (c *CLI) configCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective weights and band sizes",
		Long: `Print the effective configuration as TOML.

Without --config this shows the built-in defaults; with it, the defaults
overlaid with the file. The output is itself a valid config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return toml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}

	cmd.Flags().StringVar(&path, "config", "", "weights and band sizes config file (TOML)")

	return cmd
}
