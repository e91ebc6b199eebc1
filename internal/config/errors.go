package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTargets is returned when there is neither a feed URL, nor explicit
	// URLs, nor local files to analyze.
	ErrNoTargets = errors.New("nothing to analyze: set a feed URL, --url or --file")

	// ErrInvalidTimeout is returned when a request or site timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: must be one of json, markdown, text, csv")

	// ErrInvalidRateLimit is returned when the rate limit is negative or the burst is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative with a positive burst")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrInvalidExampleLimit is returned when the command example limit is negative.
	ErrInvalidExampleLimit = errors.New("invalid example limit: must be non-negative")

	// ErrInvalidLimit is returned when the feed URL limit is negative.
	ErrInvalidLimit = errors.New("invalid limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
