package release

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testManifest() *Manifest {
	return &Manifest{
		Latest: Latest{Release: "1.20.1", Snapshot: "23w31a"},
		Versions: []Version{
			{ID: "23w31a", Type: "snapshot", URL: "https://example/23w31a.json"},
			{ID: "1.20.1", Type: "release", URL: "https://example/1.20.1.json"},
			{ID: "1.20", Type: "release", URL: "https://example/1.20.json"},
			{ID: "1.20.1", Type: "release", URL: "https://example/duplicate.json"},
		},
	}
}

// TestManifest_Lookup returns the first matching entry and a typed error for misses.
func TestManifest_Lookup(t *testing.T) {
	t.Parallel()

	m := testManifest()

	for _, want := range []string{"23w31a", "1.20"} {
		got, err := m.Lookup(want)
		require.NoError(t, err)
		require.Equal(t, want, got.ID)
	}

	got, err := m.Lookup("1.20.1")
	require.NoError(t, err)
	require.Equal(t, "https://example/1.20.1.json", got.URL)

	got, err = m.Lookup("0.0.0")
	require.ErrorIs(t, err, ErrVersionNotFound)
	require.Nil(t, got)
}

// TestManifest_Pointer resolves channels and rejects empty or unknown pointers.
func TestManifest_Pointer(t *testing.T) {
	t.Parallel()

	m := testManifest()

	id, err := m.Pointer(ChannelRelease)
	require.NoError(t, err)
	require.Equal(t, "1.20.1", id)

	id, err = m.Pointer(ChannelSnapshot)
	require.NoError(t, err)
	require.Equal(t, "23w31a", id)

	_, err = m.Pointer("beta")
	require.ErrorIs(t, err, ErrUnknownChannel)

	empty := new(Manifest)
	_, err = empty.Pointer(ChannelRelease)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

// TestParseChannel checks defaults, case folding and rejection.
func TestParseChannel(t *testing.T) {
	t.Parallel()

	c, err := ParseChannel("")
	require.NoError(t, err)
	require.Equal(t, ChannelRelease, c)

	c, err = ParseChannel(" Snapshot ")
	require.NoError(t, err)
	require.Equal(t, ChannelSnapshot, c)

	_, err = ParseChannel("nightly")
	require.ErrorIs(t, err, ErrUnknownChannel)
}

// TestDescriptor_Artifact validates presence, url and checksum format.
func TestDescriptor_Artifact(t *testing.T) {
	t.Parallel()

	upper := strings.Repeat("AB", 20)
	d := &Descriptor{
		ID: "1.20.1",
		Downloads: map[string]Download{
			"server":  {URL: "https://example/server.jar", SHA1: upper, Size: 10},
			"client":  {URL: "", SHA1: strings.Repeat("a", 40)},
			"mapping": {URL: "https://example/map.txt", SHA1: "abc123"},
		},
	}

	a, err := d.Artifact("server")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(upper), a.SHA1)
	require.Equal(t, upper, d.Downloads["server"].SHA1, "descriptor must not be mutated")

	for _, kind := range []string{"client", "mapping", "windows_server"} {
		_, err = d.Artifact(kind)
		require.ErrorIs(t, err, ErrMalformedDescriptor, kind)
	}
}

// TestIsSHA1Hex covers length and alphabet checks.
func TestIsSHA1Hex(t *testing.T) {
	t.Parallel()

	require.True(t, IsSHA1Hex(strings.Repeat("0f", 20)))
	require.False(t, IsSHA1Hex(strings.Repeat("0f", 19)))
	require.False(t, IsSHA1Hex(strings.Repeat("zz", 20)))
}
