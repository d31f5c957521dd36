package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/relsync/internal/config"
)

var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

func newInitConfigCommand(shared *sharedFlags) *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a settings file with default values",
		Long: `Write the built-in defaults, with any --manifest-url, --channel and --timeout
overrides applied, to the file named by --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(shared.configPath); err == nil && !force {
				return fmt.Errorf("%s: %w", shared.configPath, errConfigExists)
			}

			settings := config.Default()
			shared.applyOverrides(settings)

			if err := config.Save(shared.configPath, settings); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", shared.configPath)

			return nil
		},
	}

	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return initCmd
}
