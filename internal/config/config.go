package config

import (
	"net"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "clickgrab"

	// DefaultFeedURL is the URLhaus feed of URLs reported in the last 30 days.
	DefaultFeedURL = "https://urlhaus.abuse.ch/downloads/csv_recent/"

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultSiteTimeout bounds the analysis of a single page.
	DefaultSiteTimeout = 10 * time.Second

	// DefaultConcurrency is the number of pages fetched or analyzed at once.
	DefaultConcurrency = 8

	// DefaultRateLimit is the number of requests per minute across all workers.
	DefaultRateLimit = 60

	// DefaultRateBurst is the number of requests allowed back to back.
	DefaultRateBurst = 4

	// DefaultUserAgent is a desktop browser string. Lure pages commonly serve
	// a harmless page to anything that does not look like a browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultCommandVariable is the variable ClickFix kits build the pasted command in.
	DefaultCommandVariable = "commandToRun"

	// DefaultPathVariable is the variable holding the staging path and its flags.
	DefaultPathVariable = "htaPath"

	// DefaultExampleLimit is the number of command examples kept in a report.
	DefaultExampleLimit = 10

	// DefaultFormat is the report output format.
	DefaultFormat = FormatText
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatCSV      = "csv"
)

// DefaultTags are the URLhaus tags that mark fake-CAPTCHA pages.
func DefaultTags() []string {
	return []string{"FakeCaptcha", "ClickFix", "click"}
}

// DefaultURLSuffixes are the URL endings that point at HTML documents.
func DefaultURLSuffixes() []string {
	return []string{"/", "html", "htm"}
}

// Config holds all configuration options for a run.
type Config struct {
	// FeedURL is the URLhaus CSV feed. Ignored when URLs or Files are set.
	FeedURL string

	// Tags select feed entries; an entry matches when any tag matches.
	Tags []string

	// URLSuffixes select feed URLs by their ending.
	URLSuffixes []string

	// Limit caps the number of feed URLs; 0 means no limit.
	Limit int

	// URLs are analyzed instead of the feed when set.
	URLs []string

	// Files are local saved pages analyzed instead of fetching.
	Files []string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// SiteTimeout bounds the analysis of each page.
	SiteTimeout time.Duration

	// Concurrency is the number of pages fetched or analyzed at once.
	Concurrency int

	// RateLimit is the number of requests per minute; 0 disables limiting.
	RateLimit int

	// RateBurst is the number of requests allowed back to back.
	RateBurst int

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in host:port form. Hostile
	// pages can then be fetched from an isolated egress.
	ProxyAddress string

	// CommandVariable and PathVariable name the variables the command
	// extractor follows.
	CommandVariable string
	PathVariable    string

	// ExtraCDNHosts extends the hosts classified as script CDNs.
	ExtraCDNHosts []string

	// Readability enables readability-based visible text for lure matching.
	Readability bool

	// ExampleLimit is the number of command examples in a report.
	ExampleLimit int

	// Format is the report output format.
	Format string

	// OutputFile is where the report is written; stdout when empty.
	OutputFile string

	// DBDir is the directory of the run archive.
	DBDir string

	// SaveToDB enables the run archive. Without it every pattern is new.
	SaveToDB bool

	// MetricsFile is an optional node-exporter textfile path.
	MetricsFile string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path.
	// If empty, .clickgrab.yaml is searched in the current and home directory.
	ConfigFilePath string

	// FileConfig is the loaded configuration file, if any.
	FileConfig *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		FeedURL:         DefaultFeedURL,
		Tags:            DefaultTags(),
		URLSuffixes:     DefaultURLSuffixes(),
		Timeout:         DefaultTimeout,
		SiteTimeout:     DefaultSiteTimeout,
		Concurrency:     DefaultConcurrency,
		RateLimit:       DefaultRateLimit,
		RateBurst:       DefaultRateBurst,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		CommandVariable: DefaultCommandVariable,
		PathVariable:    DefaultPathVariable,
		Readability:     true,
		ExampleLimit:    DefaultExampleLimit,
		Format:          DefaultFormat,
		DBDir:           XDGDataDir(),
		SaveToDB:        true,
	}
}

// XDGDataDir returns the XDG data directory for clickgrab.
// On Linux: ~/.local/share/clickgrab
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for clickgrab.
// On Linux: ~/.config/clickgrab
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.FeedURL == "" && len(c.URLs) == 0 && len(c.Files) == 0 {
		return ErrNoTargets
	}
	if c.Timeout <= 0 || c.SiteTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateLimit < 0 || c.RateBurst <= 0 {
		return ErrInvalidRateLimit
	}
	if c.Limit < 0 {
		return ErrInvalidLimit
	}
	if c.ExampleLimit < 0 {
		return ErrInvalidExampleLimit
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if !ValidFormat(c.Format) {
		return ErrInvalidFormat
	}
	if c.ProxyAddress != "" {
		host, port, err := net.SplitHostPort(c.ProxyAddress)
		if err != nil || host == "" || port == "" {
			return ErrInvalidProxyAddress
		}
	}
	return nil
}

// ValidFormat reports whether format is a known output format.
func ValidFormat(format string) bool {
	switch format {
	case FormatJSON, FormatMarkdown, FormatText, FormatCSV:
		return true
	default:
		return false
	}
}
