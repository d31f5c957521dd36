package integrity

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is what the release feed publishes.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Checker hashes files on a filesystem.
type Checker struct {
	fs afero.Fs
}

// NewChecker returns a Checker reading from fs.
func NewChecker(fs afero.Fs) *Checker {
	return &Checker{fs: fs}
}

// Hash returns the lower-case hex SHA-1 of the file at path.
// The file is streamed, not loaded into memory.
func (c *Checker) Hash(path string) (string, error) {
	file, err := c.fs.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha1.New() //nolint:gosec // See import.
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify reports whether the file at path hashes to expected.
// The comparison is case-insensitive on expected.
func (c *Checker) Verify(path, expected string) (bool, error) {
	actual, err := c.Hash(path)
	if err != nil {
		return false, err
	}

	return actual == strings.ToLower(strings.TrimSpace(expected)), nil
}

// Matches is Verify for files that may not exist yet: a missing file does not match.
func (c *Checker) Matches(path, expected string) (bool, error) {
	info, err := c.fs.Stat(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	return c.Verify(path, expected)
}
