// Package syncer keeps a local artifact in sync with a release feed.
//
// Run resolves the requested (or latest) release, skips the download when
// the local file already has the published SHA-1, and otherwise installs
// the artifact through a verified staging file.
package syncer
