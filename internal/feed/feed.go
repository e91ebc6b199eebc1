package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// headerPrefix marks the comment line that holds the column names.
const headerPrefix = "# id"

// Entry is one row of the feed.
type Entry struct {
	ID        string
	DateAdded string
	URL       string
	Status    string
	Threat    string
	Tags      string
	Reporter  string
}

// Client downloads and filters the feed.
type Client struct {
	httpClient *http.Client
	feedURL    string
	tags       []string
	suffixes   []string
	limit      int
	userAgent  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used to download the feed.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTags sets the tags an entry must carry at least one of.
// An empty list keeps every entry.
func WithTags(tags []string) Option {
	return func(c *Client) {
		c.tags = make([]string, 0, len(tags))
		for _, t := range tags {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				c.tags = append(c.tags, t)
			}
		}
	}
}

// WithURLSuffixes sets the URL endings that are kept.
// An empty list keeps every URL.
func WithURLSuffixes(suffixes []string) Option {
	return func(c *Client) {
		c.suffixes = append([]string{}, suffixes...)
	}
}

// WithLimit stops after n matching entries. Zero means no limit.
func WithLimit(n int) Option {
	return func(c *Client) {
		c.limit = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLimiter shares a rate limiter with other requests of the run.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a feed client for feedURL.
func NewClient(feedURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		feedURL:    feedURL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads the feed and returns the matching entries in feed order.
func (c *Client) Fetch(ctx context.Context) ([]Entry, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	entries, total, err := c.parse(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("feed downloaded",
		"url", c.feedURL,
		"entries", total,
		"matching", len(entries),
	)
	return entries, nil
}

// URLs returns the URLs of the matching entries.
func (c *Client) URLs(ctx context.Context) ([]string, error) {
	entries, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	return urls, nil
}

// parse reads the feed body. It returns the matching entries and the
// number of rows read.
func (c *Client) parse(r io.Reader) ([]Entry, int, error) {
	data, err := stripComments(r)
	if err != nil {
		return nil, 0, err
	}

	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read feed header: %w", err)
	}
	cols := columnIndex(header)
	if _, ok := cols["url"]; !ok {
		return nil, 0, fmt.Errorf("%w: url", ErrMissingColumn)
	}
	if _, ok := cols["tags"]; !ok {
		return nil, 0, fmt.Errorf("%w: tags", ErrMissingColumn)
	}

	entries := make([]Entry, 0)
	total := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, total, fmt.Errorf("failed to read feed row %d: %w", total+1, err)
		}
		total++

		e := Entry{
			ID:        field(record, cols, "id"),
			DateAdded: field(record, cols, "dateadded"),
			URL:       field(record, cols, "url"),
			Status:    field(record, cols, "url_status"),
			Threat:    field(record, cols, "threat"),
			Tags:      field(record, cols, "tags"),
			Reporter:  field(record, cols, "reporter"),
		}
		if !c.matches(e) {
			continue
		}
		entries = append(entries, e)
		if c.limit > 0 && len(entries) >= c.limit {
			break
		}
	}
	return entries, total, nil
}

// stripComments drops '#' lines and returns the CSV text with the column
// header, taken from the "# id" comment line, on the first line.
func stripComments(r io.Reader) (string, error) {
	var b strings.Builder
	headerFound := false
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, headerPrefix) {
				b.Reset()
				b.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "#")))
				b.WriteByte('\n')
				headerFound = true
			}
			continue
		}
		if !headerFound || strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read feed: %w", err)
	}
	if !headerFound {
		return "", ErrMissingHeader
	}
	return b.String(), nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c *Client) matches(e Entry) bool {
	if e.URL == "" {
		return false
	}
	if len(c.tags) > 0 {
		tags := strings.ToLower(e.Tags)
		found := false
		for _, t := range c.tags {
			if strings.Contains(tags, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(c.suffixes) == 0 {
		return true
	}
	for _, s := range c.suffixes {
		if strings.HasSuffix(e.URL, s) {
			return true
		}
	}
	return false
}
