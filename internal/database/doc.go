// Package database provides the SQLite run archive for clickgrab.
//
// The archive keeps one row per run date with the run's headline numbers
// and full report JSON, plus the run's pattern fingerprints. The
// fingerprints of the run immediately before a new one determine which
// patterns the new run reports as never seen before.
//
// The driver is modernc.org/sqlite, which needs no cgo, so the archive is a
// single file in the XDG data directory.
package database
