// Package release contains the domain types of a release feed.
//
// A Manifest indexes every published Version and names the latest one per
// Channel; a Descriptor is the per-version document that lists downloadable
// artifacts with their SHA-1 checksums.
package release
