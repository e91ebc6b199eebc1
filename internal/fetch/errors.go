package fetch

import "errors"

var (
	// ErrUnexpectedStatus is recorded when a page responds with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrNotRegularFile is recorded when a local sample path is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)
