package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/oshokin/relsync/internal/integrity"
	"github.com/oshokin/relsync/internal/logger"
	"github.com/oshokin/relsync/internal/version"
)

const (
	// TempSuffix is appended to the target name for the staging file.
	TempSuffix = ".tmp"

	// DefaultFileMode is the mode of installed artifacts.
	DefaultFileMode os.FileMode = 0o644
)

var (
	// ErrNetwork wraps transport failures and unexpected HTTP statuses.
	ErrNetwork = errors.New("network error")
	// ErrIO wraps local filesystem failures.
	ErrIO = errors.New("i/o error")
	// ErrChecksumMismatch is returned when downloaded content does not match the expected hash.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	errBadHTTPStatus = errors.New("unexpected http status")
)

// Result describes an installed artifact.
type Result struct {
	// Path is the final location of the artifact.
	Path string
	// Size is the number of bytes downloaded.
	Size int64
	// SHA1 is the verified digest.
	SHA1 string
}

// Downloader fetches artifacts over HTTP into a filesystem.
type Downloader struct {
	fs         afero.Fs
	httpClient *http.Client
	checker    *integrity.Checker
}

// Option configures the downloader.
type Option func(*Downloader)

// WithTimeout bounds each download request, body included.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Downloader) {
		if timeout > 0 {
			d.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(d *Downloader) {
		if httpClient != nil {
			d.httpClient = httpClient
		}
	}
}

// New creates a Downloader. The staging file is created next to the target,
// so both live on the same filesystem and the final rename cannot cross devices.
func New(fs afero.Fs, opts ...Option) *Downloader {
	d := &Downloader{
		fs:         fs,
		httpClient: http.DefaultClient,
		checker:    integrity.NewChecker(fs),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fetch writes the body served at rawURL to dst, creating or truncating it.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("%w: build request for %s: %w", ErrNetwork, rawURL, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s, %s: %w", ErrNetwork, rawURL, response.Status, errBadHTTPStatus)
	}

	file, err := d.fs.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return 0, fmt.Errorf("%w: create %s: %w", ErrIO, dst, err)
	}

	output := &trackingWriter{w: file}

	written, copyErr := io.Copy(output, response.Body)

	// Flushed before close so a later rename never exposes unwritten data.
	var syncErr error
	if copyErr == nil {
		syncErr = file.Sync()
	}

	closeErr := file.Close()

	switch {
	case copyErr != nil && output.err != nil:
		return written, fmt.Errorf("%w: write %s: %w", ErrIO, dst, copyErr)
	case copyErr != nil:
		return written, fmt.Errorf("%w: read body of %s: %w", ErrNetwork, rawURL, copyErr)
	case syncErr != nil:
		return written, fmt.Errorf("%w: sync %s: %w", ErrIO, dst, syncErr)
	case closeErr != nil:
		return written, fmt.Errorf("%w: close %s: %w", ErrIO, dst, closeErr)
	}

	return written, nil
}

// Install downloads rawURL into target+TempSuffix, verifies it against
// expectedSHA1 and replaces target with it. On a mismatch the target is left
// untouched and ErrChecksumMismatch is returned. The staging file is always
// removed before returning.
func (d *Downloader) Install(ctx context.Context, rawURL, target, expectedSHA1 string) (result *Result, err error) {
	target = filepath.Clean(target)
	tmp := target + TempSuffix
	expectedSHA1 = strings.ToLower(strings.TrimSpace(expectedSHA1))

	defer func() {
		err = multierr.Append(err, d.removeIfExists(tmp))
		if err != nil {
			result = nil
		}
	}()

	logger.DebugKV(ctx, "Downloading artifact", "url", rawURL, "staging", tmp)

	size, err := d.Fetch(ctx, rawURL, tmp)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Downloaded to staging file", "path", tmp, "size", humanize.IBytes(uint64(size))) //nolint:gosec // Size is never negative.

	actual, err := d.checker.Hash(tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	if actual != expectedSHA1 {
		return nil, fmt.Errorf("%s: expected %s, got %s: %w", rawURL, expectedSHA1, actual, ErrChecksumMismatch)
	}

	if err = d.promote(ctx, tmp, target); err != nil {
		return nil, err
	}

	return &Result{
		Path: target,
		Size: size,
		SHA1: actual,
	}, nil
}

// promote renames the verified staging file over target. The rename is atomic
// on POSIX filesystems, so target is either the previous file or the new one.
func (d *Downloader) promote(ctx context.Context, tmp, target string) error {
	logger.DebugKV(ctx, "Promoting staging file", "from", tmp, "to", target)

	if err := d.fs.Rename(tmp, target); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrIO, target, err)
	}

	return nil
}

// removeIfExists deletes path, ignoring a missing file.
func (d *Downloader) removeIfExists(path string) error {
	if err := d.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", ErrIO, path, err)
	}

	return nil
}

// trackingWriter remembers write failures so Fetch can tell them apart from read failures.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}

	return n, err
}
