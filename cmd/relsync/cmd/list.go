package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/relsync/internal/service/catalog"
)

func newListCommand(shared *sharedFlags) *cobra.Command {
	var (
		versionType string
		limit       int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List versions published in the release manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := shared.settings(cmd)
			if err != nil {
				return err
			}

			ctx := shared.loggerContext(cmd, settings)

			return catalog.Run(ctx, &catalog.Options{
				Settings: settings,
				Type:     versionType,
				Limit:    limit,
				Out:      cmd.OutOrStdout(),
			})
		},
	}

	listCmd.Flags().StringVar(&versionType, "type", "", "only list versions of this type (release, snapshot, ...)")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of versions to print, 0 for all")

	return listCmd
}
