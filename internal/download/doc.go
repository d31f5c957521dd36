// Package download fetches release artifacts and installs them.
//
// Install stages the body in "<name>.tmp" next to the target, checks its
// SHA-1 and only then renames it over the target. The staging file is
// removed on every exit path, so an interrupted or failed run never leaves
// a partially written target behind.
package download
