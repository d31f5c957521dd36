package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oshokin/relsync/internal/integrity"
)

func newChecksumCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum FILE...",
		Short: "Print the SHA-1 of local files in sha1sum format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := integrity.NewChecker(afero.NewOsFs())

			for _, path := range args {
				sum, err := checker.Hash(path)
				if err != nil {
					return err
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
			}

			return nil
		},
	}
}
