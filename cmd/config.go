package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-veraz/detector/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create configuration files",
	Long: `Inspect the effective configuration or write a starting config file.

Examples:
  veraz config show
  veraz config show --config tuned.yaml
  veraz config init veraz.yaml`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.WriteYAML(cmd.OutOrStdout(), appConfig)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if configInitForce {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}

		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("%w: %s already exists (use --force to overwrite)", errUsage, path)
			}
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()

		if err := config.WriteYAML(f, config.DefaultConfig()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false,
		"overwrite an existing file")
}
