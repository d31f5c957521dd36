package download

import (
	"context"
	"crypto/sha1" //nolint:gosec // Matches the production digest.
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var artifactBody = []byte("release artifact contents")

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // Matches the production digest.
	return hex.EncodeToString(sum[:])
}

// newArtifactServer serves artifactBody at /server.jar and counts requests.
func newArtifactServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	hits := new(atomic.Int32)
	mux := http.NewServeMux()
	mux.HandleFunc("/server.jar", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(artifactBody)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return ts, hits
}

func requireNotExist(t *testing.T, path string) {
	t.Helper()

	_, err := os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, path)
}

// requireDirEntries checks that dir holds exactly the named entries.
func requireDirEntries(t *testing.T, dir string, names ...string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	got := make([]string, 0, len(entries))
	for _, entry := range entries {
		got = append(got, entry.Name())
	}

	require.ElementsMatch(t, names, got)
}

// TestInstall_FreshTarget downloads, verifies and promotes into an empty directory.
func TestInstall_FreshTarget(t *testing.T) {
	t.Parallel()

	ts, hits := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")
	d := New(afero.NewOsFs(), WithTimeout(5*time.Second))

	result, err := d.Install(context.Background(), ts.URL+"/server.jar", target, strings.ToUpper(sha1Hex(artifactBody)))
	require.NoError(t, err)
	require.Equal(t, target, result.Path)
	require.Equal(t, int64(len(artifactBody)), result.Size)
	require.Equal(t, sha1Hex(artifactBody), result.SHA1)
	require.Equal(t, int32(1), hits.Load())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, artifactBody, got)
	requireDirEntries(t, dir, "server.jar")
}

// TestInstall_ReplacesExisting overwrites an outdated target.
func TestInstall_ReplacesExisting(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")
	require.NoError(t, os.WriteFile(target, []byte("old release"), 0o644))

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(artifactBody))
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, artifactBody, got)
	requireDirEntries(t, dir, "server.jar")
}

// TestInstall_ChecksumMismatch leaves no target and no staging file.
func TestInstall_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")

	result, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, strings.Repeat("0", 40))
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.Nil(t, result)
	requireDirEntries(t, dir)
}

// TestInstall_ChecksumMismatchKeepsPrevious leaves a previously valid target untouched.
func TestInstall_ChecksumMismatchKeepsPrevious(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")
	previous := []byte("previous good release")
	require.NoError(t, os.WriteFile(target, previous, 0o644))

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(previous))
	require.ErrorIs(t, err, ErrChecksumMismatch)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, previous, got)
	requireDirEntries(t, dir, "server.jar")
}

// TestInstall_DirectoryTarget refuses to replace a directory and leaves it untouched.
func TestInstall_DirectoryTarget(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep.txt"), []byte("keep"), 0o644))

	result, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(artifactBody))
	require.ErrorIs(t, err, ErrIO)
	require.Nil(t, result)
	requireDirEntries(t, dir, "server.jar")

	info, err := os.Stat(target)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	kept, err := os.ReadFile(filepath.Join(target, "keep.txt"))
	require.NoError(t, err)
	require.Equal(t, []byte("keep"), kept)
}

// TestInstall_IgnoresUnrelatedSiblings leaves foreign dot files alone and adds nothing besides the target.
func TestInstall_IgnoresUnrelatedSiblings(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".server.jar.old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".server.jar.old", "x"), []byte("x"), 0o644))

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(artifactBody))
	require.NoError(t, err)
	requireDirEntries(t, dir, "server.jar", ".server.jar.old")
}

// TestInstall_MemFS stages and promotes on an in-memory filesystem.
func TestInstall_MemFS(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/srv", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/srv/server.jar", []byte("old"), 0o644))

	result, err := New(fs).Install(context.Background(), ts.URL+"/server.jar", "/srv/server.jar", sha1Hex(artifactBody))
	require.NoError(t, err)
	require.Equal(t, int64(len(artifactBody)), result.Size)

	got, err := afero.ReadFile(fs, "/srv/server.jar")
	require.NoError(t, err)
	require.Equal(t, artifactBody, got)

	_, err = fs.Stat("/srv/server.jar" + TempSuffix)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestInstall_StaleStagingFile restarts cleanly over a leftover from an interrupted run.
func TestInstall_StaleStagingFile(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	target := filepath.Join(t.TempDir(), "server.jar")
	require.NoError(t, os.WriteFile(target+TempSuffix, []byte(strings.Repeat("junk", 100)), 0o644))

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(artifactBody))
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, artifactBody, got)
	requireNotExist(t, target+TempSuffix)
}

// TestInstall_NetworkError surfaces HTTP failures without touching the filesystem.
func TestInstall_NetworkError(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "server.jar")

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/missing.jar", target, sha1Hex(artifactBody))
	require.ErrorIs(t, err, ErrNetwork)
	requireDirEntries(t, dir)
}

// TestInstall_IOError reports an unwritable destination.
func TestInstall_IOError(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	target := filepath.Join(t.TempDir(), "no", "such", "dir", "server.jar")

	_, err := New(afero.NewOsFs()).Install(context.Background(), ts.URL+"/server.jar", target, sha1Hex(artifactBody))
	require.ErrorIs(t, err, ErrIO)
}

// TestFetch_MemFS writes the body into an in-memory filesystem.
func TestFetch_MemFS(t *testing.T) {
	t.Parallel()

	ts, _ := newArtifactServer(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out.bin", []byte(strings.Repeat("x", 1000)), 0o644))

	n, err := New(fs).Fetch(context.Background(), ts.URL+"/server.jar", "/out.bin")
	require.NoError(t, err)
	require.Equal(t, int64(len(artifactBody)), n)

	got, err := afero.ReadFile(fs, "/out.bin")
	require.NoError(t, err)
	require.Equal(t, artifactBody, got)
}

// TestFetch_ContextCanceled stops before any request is sent.
func TestFetch_ContextCanceled(t *testing.T) {
	t.Parallel()

	ts, hits := newArtifactServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(afero.NewMemMapFs()).Fetch(ctx, ts.URL+"/server.jar", "/out.bin")
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, int32(0), hits.Load())
}
