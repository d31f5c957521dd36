package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/oshokin/relsync/internal/config"
	"github.com/oshokin/relsync/internal/domain/release"
	"github.com/oshokin/relsync/internal/download"
	"github.com/oshokin/relsync/internal/integrity"
	"github.com/oshokin/relsync/internal/lock"
	"github.com/oshokin/relsync/internal/logger"
	"github.com/oshokin/relsync/internal/repository/feed"
)

var (
	// ErrOutdated is returned in check-only mode when the local file is missing or stale.
	ErrOutdated = errors.New("local file is missing or outdated")

	errNoFilename = errors.New("unable to derive a filename from the download url")
)

// Options are inputs accepted by the sync entry point.
type Options struct {
	// Settings are the merged file, environment and flag settings. Nil means defaults.
	Settings *config.Config
	// Version selects a release; empty means the latest on the configured channel.
	Version string
	// Filename is an explicit output path; it wins over VersionedFilename.
	Filename string
	// VersionedFilename names the output "<artifact>-<version>.jar".
	VersionedFilename bool
	// CheckOnly reports whether an update is needed without downloading.
	CheckOnly bool
	// NoLock skips the lock file next to the target.
	NoLock bool
	// FS is the filesystem holding the target. Nil means the OS filesystem.
	FS afero.Fs
}

// Result describes the outcome of a run.
type Result struct {
	// Version is the resolved release identifier.
	Version string
	// Path is the local artifact location.
	Path string
	// UpToDate is set when the local file already matched.
	UpToDate bool
	// Downloaded is set when a new artifact was installed.
	Downloaded bool
	// Size is the number of bytes downloaded.
	Size int64
}

// runner holds the collaborators of a single sync execution.
type runner struct {
	opts       *Options
	cfg        *config.Config
	feed       feed.Repository
	checker    *integrity.Checker
	downloader *download.Downloader
	locker     *lock.Locker
}

// Run executes one sync and is the public entry point for the CLI.
// The logger is taken from ctx.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "relsync")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	r, err := newRunner(opts)
	if err != nil {
		return nil, err
	}

	return r.run(ctx)
}

func newRunner(opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg := opts.Settings
	if cfg == nil {
		cfg = config.Default()
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	fs := opts.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}

	return &runner{
		opts:       opts,
		cfg:        cfg,
		feed:       feed.NewClient(cfg.ManifestURL, feed.WithTimeout(cfg.Timeout)),
		checker:    integrity.NewChecker(fs),
		downloader: download.New(fs, download.WithTimeout(cfg.DownloadTimeout)),
		locker:     lock.NewLocker(fs),
	}, nil
}

// run follows the workflow:
// 1) Resolve the release and its artifact.
// 2) Pick the target filename.
// 3) Short-circuit when the local file already matches.
// 4) Stop in check-only mode.
// 5) Install through a staging file under a lock.
func (r *runner) run(ctx context.Context) (*Result, error) {
	logger.InfoKV(ctx, "Resolving release", "manifest", r.cfg.ManifestURL,
		"version", versionLabel(r.opts.Version, r.cfg.Channel))

	rel, err := r.feed.Resolve(ctx, r.opts.Version, release.Channel(r.cfg.Channel))
	if err != nil {
		return nil, fmt.Errorf("resolve release: %w", err)
	}

	artifact, err := rel.Descriptor.Artifact(r.cfg.Artifact)
	if err != nil {
		return nil, fmt.Errorf("release %s: %w", rel.Version.ID, errors.Join(feed.ErrParse, err))
	}

	target, err := r.targetFilename(rel.Version.ID, artifact.URL)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "file", target, "version", rel.Version.ID)
	result := &Result{
		Version: rel.Version.ID,
		Path:    target,
	}

	upToDate, err := r.checker.Matches(target, artifact.SHA1)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", target, errors.Join(download.ErrIO, err))
	}

	if upToDate {
		logger.Info(ctx, "File already exists and is up to date")

		result.UpToDate = true

		return result, nil
	}

	if r.opts.CheckOnly {
		logger.Info(ctx, "File either does not exist or is not the correct version")
		return result, ErrOutdated
	}

	if !r.opts.NoLock {
		var held *lock.Lock

		held, err = r.locker.Acquire(ctx, target)
		if err != nil {
			return nil, err
		}

		defer func() {
			if releaseErr := held.Release(); releaseErr != nil {
				logger.WarnKV(ctx, "Unable to release lock", "error", releaseErr)
			}
		}()
	}

	installed, err := r.downloader.Install(ctx, artifact.URL, target, artifact.SHA1)
	if err != nil {
		if errors.Is(err, download.ErrChecksumMismatch) {
			logger.ErrorKV(ctx, "Invalid checksum, download discarded", "error", err)
		}

		return nil, fmt.Errorf("install %s: %w", target, err)
	}

	result.Downloaded = true
	result.Size = installed.Size

	logger.InfoKV(ctx, "Downloaded release",
		"size", humanize.IBytes(uint64(installed.Size)), //nolint:gosec // Size is never negative.
		"sha1", installed.SHA1)

	return result, nil
}

// targetFilename applies the naming rules: explicit filename, then
// "<artifact>-<version>.jar", then the last segment of the download URL.
func (r *runner) targetFilename(versionID, downloadURL string) (string, error) {
	switch {
	case r.opts.Filename != "":
		return filepath.Clean(r.opts.Filename), nil
	case r.opts.VersionedFilename:
		return fmt.Sprintf("%s-%s.jar", r.cfg.Artifact, versionID), nil
	}

	return FilenameFromURL(downloadURL)
}

// FilenameFromURL returns the last path segment of rawURL.
func FilenameFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", rawURL, errors.Join(errNoFilename, err))
	}

	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("%s: %w", rawURL, errNoFilename)
	}

	return name, nil
}

func versionLabel(versionID, channel string) string {
	if versionID != "" {
		return versionID
	}

	return "latest " + channel
}
