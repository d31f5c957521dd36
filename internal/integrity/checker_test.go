package integrity

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// sha1 of "hello world".
const helloSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"

func newFS(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/hello.txt", []byte("hello world"), 0o644))
	require.NoError(t, fs.MkdirAll("/data/dir", 0o755))

	return fs
}

// TestChecker_Hash computes the lower-case hex digest.
func TestChecker_Hash(t *testing.T) {
	t.Parallel()

	c := NewChecker(newFS(t))

	got, err := c.Hash("/data/hello.txt")
	require.NoError(t, err)
	require.Equal(t, helloSHA1, got)

	_, err = c.Hash("/data/missing.txt")
	require.Error(t, err)
}

// TestChecker_Verify compares case-insensitively and is idempotent.
func TestChecker_Verify(t *testing.T) {
	t.Parallel()

	c := NewChecker(newFS(t))

	for range 2 {
		ok, err := c.Verify("/data/hello.txt", helloSHA1)
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := c.Verify("/data/hello.txt", strings.ToUpper(helloSHA1))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Verify("/data/hello.txt", strings.Repeat("0", 40))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestChecker_Matches treats missing files and directories as non-matching.
func TestChecker_Matches(t *testing.T) {
	t.Parallel()

	c := NewChecker(newFS(t))

	ok, err := c.Matches("/data/missing.txt", helloSHA1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Matches("/data/dir", helloSHA1)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Matches("/data/hello.txt", helloSHA1)
	require.NoError(t, err)
	require.True(t, ok)
}
