package database

import "errors"

var (
	// ErrDatabaseNotFound is returned when opening without creation and no
	// archive file exists.
	ErrDatabaseNotFound = errors.New("archive database not found")

	// ErrRunNotFound is returned when no run is archived for a date.
	ErrRunNotFound = errors.New("run not found")
)
