package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/oshokin/relsync/internal/config"
	"github.com/oshokin/relsync/internal/domain/release"
	"github.com/oshokin/relsync/internal/logger"
	"github.com/oshokin/relsync/internal/repository/feed"
)

// Options controls the listing.
type Options struct {
	// Settings are the merged settings. Nil means defaults.
	Settings *config.Config
	// Type keeps only versions of this type ("release", "snapshot", ...). Empty keeps all.
	Type string
	// Limit caps the number of rows. Zero or less means no cap.
	Limit int
	// Out receives the table. Nil means stdout.
	Out io.Writer
	// Now is the reference time for ages. Zero means time.Now.
	Now time.Time
}

// Run fetches the manifest and prints one row per version, newest first as the feed orders them.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "relsync-list")

	cfg := opts.Settings
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	client := feed.NewClient(cfg.ManifestURL, feed.WithTimeout(cfg.Timeout))

	manifest, err := client.Manifest(ctx)
	if err != nil {
		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	table := Table(manifest, opts.Type, opts.Limit, now)

	logger.DebugKV(ctx, "Listing versions", "total", len(manifest.Versions), "shown", len(table.Rows)-1)

	if _, err = fmt.Fprintln(out, table); err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	return nil
}

// Table renders manifest versions; the first row is the header.
func Table(manifest *release.Manifest, versionType string, limit int, now time.Time) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("VERSION", "TYPE", "RELEASED", "AGE", "LATEST")

	shown := 0

	for _, v := range manifest.Versions {
		if versionType != "" && v.Type != versionType {
			continue
		}

		if limit > 0 && shown >= limit {
			break
		}

		released, age := "-", "-"
		if !v.ReleaseTime.IsZero() {
			released = v.ReleaseTime.UTC().Format(time.DateOnly)
			age = humanize.RelTime(v.ReleaseTime, now, "ago", "from now")
		}

		table.AddRow(v.ID, v.Type, released, age, latestMarker(manifest, v.ID))

		shown++
	}

	return table
}

func latestMarker(manifest *release.Manifest, id string) string {
	switch id {
	case manifest.Latest.Release:
		return string(release.ChannelRelease)
	case manifest.Latest.Snapshot:
		return string(release.ChannelSnapshot)
	default:
		return ""
	}
}
