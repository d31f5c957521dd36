// Package lock keeps two relsync processes from syncing the same target.
//
// A lock is a "<target>.lock" file holding the owner's PID. A lock whose
// owner no longer appears in the process table is stale and gets replaced.
package lock
