package feed

import "errors"

var (
	// ErrUnexpectedStatus is returned when the feed responds with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected feed response status")

	// ErrMissingHeader is returned when the feed has no "# id" header line.
	ErrMissingHeader = errors.New("feed header line not found")

	// ErrMissingColumn is returned when the header lacks the url or tags column.
	ErrMissingColumn = errors.New("feed header lacks a required column")
)
