package release

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Channel names a "latest" pointer in the manifest.
type Channel string

const (
	// ChannelRelease points at the latest stable release.
	ChannelRelease Channel = "release"
	// ChannelSnapshot points at the latest snapshot.
	ChannelSnapshot Channel = "snapshot"

	// DefaultArtifact is the descriptor download used when none is configured.
	DefaultArtifact = "server"

	// sha1HexLength is the length of a hex-encoded SHA-1 digest.
	sha1HexLength = 40
)

var (
	// ErrVersionNotFound is returned when the requested version is absent from the manifest.
	ErrVersionNotFound = errors.New("requested version not found in manifest")
	// ErrUnknownChannel is returned for a channel the manifest has no pointer for.
	ErrUnknownChannel = errors.New("unknown release channel")
	// ErrMalformedDescriptor is returned when a descriptor lacks a usable artifact entry.
	ErrMalformedDescriptor = errors.New("malformed release descriptor")
)

// Manifest is the top-level index of all known releases.
type Manifest struct {
	// Latest holds the symbolic pointers to version identifiers.
	Latest Latest `json:"latest"`
	// Versions lists every published version, newest first.
	Versions []Version `json:"versions"`
}

// Latest maps channels to version identifiers.
type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// Version is one manifest entry.
type Version struct {
	// ID is the version identifier, e.g. "1.20.1".
	ID string `json:"id"`
	// Type is the release type reported by the feed ("release", "snapshot", ...).
	Type string `json:"type"`
	// URL locates the version's descriptor.
	URL string `json:"url"`
	// Time is when the entry was last updated.
	Time time.Time `json:"time"`
	// ReleaseTime is when the version was published.
	ReleaseTime time.Time `json:"releaseTime"`
}

// Descriptor is the per-version document with downloadable artifacts.
type Descriptor struct {
	// ID repeats the version identifier.
	ID string `json:"id"`
	// Downloads maps artifact kinds ("server", "client") to their location and checksum.
	Downloads map[string]Download `json:"downloads"`
}

// Download is one downloadable artifact.
type Download struct {
	// URL is where the artifact is served.
	URL string `json:"url"`
	// SHA1 is the hex-encoded SHA-1 of the artifact.
	SHA1 string `json:"sha1"`
	// Size is the artifact size in bytes, zero when unknown.
	Size int64 `json:"size"`
}

// Release is a resolved manifest entry together with its descriptor.
type Release struct {
	Version    Version
	Descriptor *Descriptor
}

// ParseChannel validates a channel name. An empty name selects ChannelRelease.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return ChannelRelease, nil
	case ChannelRelease, ChannelSnapshot:
		return c, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownChannel)
	}
}

// Pointer returns the version identifier the channel points at.
func (m *Manifest) Pointer(channel Channel) (string, error) {
	var id string

	switch channel {
	case ChannelRelease, "":
		id = m.Latest.Release
	case ChannelSnapshot:
		id = m.Latest.Snapshot
	default:
		return "", fmt.Errorf("%q: %w", channel, ErrUnknownChannel)
	}

	if id == "" {
		return "", fmt.Errorf("latest %s pointer is empty: %w", channel, ErrVersionNotFound)
	}

	return id, nil
}

// Lookup returns the first entry whose identifier equals id.
func (m *Manifest) Lookup(id string) (*Version, error) {
	for i := range m.Versions {
		if m.Versions[i].ID == id {
			return &m.Versions[i], nil
		}
	}

	return nil, fmt.Errorf("%q: %w", id, ErrVersionNotFound)
}

// Artifact returns the download of the given kind after checking that it is usable.
func (d *Descriptor) Artifact(kind string) (*Download, error) {
	download, ok := d.Downloads[kind]
	if !ok {
		return nil, fmt.Errorf("no %q download: %w", kind, ErrMalformedDescriptor)
	}

	if download.URL == "" {
		return nil, fmt.Errorf("%q download has no url: %w", kind, ErrMalformedDescriptor)
	}

	if !IsSHA1Hex(download.SHA1) {
		return nil, fmt.Errorf("%q download has invalid sha1 %q: %w", kind, download.SHA1, ErrMalformedDescriptor)
	}

	download.SHA1 = strings.ToLower(download.SHA1)

	return &download, nil
}

// IsSHA1Hex reports whether s is a 40-character hex string.
func IsSHA1Hex(s string) bool {
	if len(s) != sha1HexLength {
		return false
	}

	for _, ch := range s {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') && (ch < 'A' || ch > 'F') {
			return false
		}
	}

	return true
}
