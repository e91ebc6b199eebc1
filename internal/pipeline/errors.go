package pipeline

import "errors"

var (
	// ErrEmptyInput is returned when the page source yields no pages.
	ErrEmptyInput = errors.New("no pages to analyze")

	// ErrArchiveUnavailable is returned when the previous fingerprints cannot
	// be loaded or the run cannot be archived.
	ErrArchiveUnavailable = errors.New("run archive unavailable")
)
