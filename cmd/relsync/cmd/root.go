package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/relsync/internal/service/syncer"
	"github.com/oshokin/relsync/internal/version"
)

const (
	// ExitOK is returned when the file is up to date or was downloaded.
	ExitOK = 0
	// ExitOutdated is returned by --is-updated when the file is missing or stale.
	ExitOutdated = 1
	// ExitFailure is returned for every other error.
	ExitFailure = 2
)

// syncFlags are the flags of the root (sync) command.
type syncFlags struct {
	filename          string
	version           string
	versionedFilename bool
	isUpdated         bool
	noLock            bool
}

// NewRootCommand builds the relsync command tree.
func NewRootCommand() *cobra.Command {
	var (
		shared = newSharedFlags()
		flags  syncFlags
	)

	rootCmd := &cobra.Command{
		Use:   "relsync",
		Short: "Keep a local release artifact in sync with a release feed",
		Long: `Resolve the latest (or a named) release from a JSON manifest, download its
artifact and verify it by SHA-1.

The download is written to "<name>.tmp" first and only replaces the target
after its checksum matches. When the target already has the published
checksum nothing is downloaded.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := shared.settings(cmd)
			if err != nil {
				return err
			}

			ctx := shared.loggerContext(cmd, settings)

			options := &syncer.Options{
				Settings:          settings,
				Version:           flags.version,
				Filename:          flags.filename,
				VersionedFilename: flags.versionedFilename,
				CheckOnly:         flags.isUpdated,
				NoLock:            flags.noLock,
			}

			_, err = syncer.Run(ctx, options)

			return err
		},
	}

	shared.register(rootCmd)

	rootCmd.Flags().StringVar(&flags.filename, "filename", "", "set output filename")
	rootCmd.Flags().StringVar(&flags.version, "version", "", "specify version if latest is not wanted")
	rootCmd.Flags().BoolVar(&flags.versionedFilename, "versioned-filename", false, "put version in filename")
	rootCmd.Flags().BoolVar(&flags.isUpdated, "is-updated", false, "only check if file is updated")
	rootCmd.Flags().BoolVar(&flags.noLock, "no-lock", false, "do not guard the target with a lock file")
	rootCmd.Flags().StringVar(&shared.artifact, "artifact", "", "descriptor download to sync (server, client)")
	rootCmd.Flags().DurationVar(&shared.downloadTimeout, "download-timeout", 0, "bound for the artifact download")

	rootCmd.AddCommand(newListCommand(shared), newInitConfigCommand(shared), newChecksumCommand())
	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// Execute runs the relsync CLI and exits with a status derived from the error.
func Execute() {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := NewRootCommand().ExecuteContext(ctx)

	stop()

	code := ExitCode(err)
	if code == ExitFailure {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
	}

	os.Exit(code)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, syncer.ErrOutdated):
		return ExitOutdated
	default:
		return ExitFailure
	}
}
