package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/clickgrab/internal/model"
)

// Default fetcher settings.
const (
	DefaultConcurrency = 8
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Fetcher downloads pages concurrently through a shared rate limiter.
//
// Design decision: A failed download does not fail FetchAll. The page is
// returned with FetchError set so the analysis records a fetch error for that
// site and the run still covers the rest of the feed.
type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLimiter sets the rate limiter every request waits on.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithConcurrency sets the number of requests in flight.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the largest body read from a page.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithClock sets the clock stamped on fetched pages.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) {
		f.now = now
	}
}

// NewLimiter returns a limiter allowing perMinute requests per minute with
// the given burst. A non-positive perMinute disables limiting.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, max(burst, 1))
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), max(burst, 1))
}

// NewFetcher creates a Fetcher using client.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      client,
		concurrency: DefaultConcurrency,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	return f
}

// FetchAll fetches every URL and returns one page per URL in input order.
// Per-page failures are recorded in SourcePage.FetchError; the only error
// returned is the context's.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]model.SourcePage, error) {
	pages := make([]model.SourcePage, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			pages[i] = f.Fetch(gctx, u)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, p := range pages {
		if p.FetchError != "" {
			failed++
		}
	}
	f.logger.Info("pages fetched", "total", len(pages), "failed", failed)
	return pages, nil
}

// Fetch retrieves a single page.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) model.SourcePage {
	page := model.SourcePage{URL: pageURL, FetchedAt: f.now().UTC()}

	body, err := f.get(ctx, pageURL)
	if err != nil {
		page.FetchError = err.Error()
		f.logger.Debug("fetch failed", "url", pageURL, "error", err)
		return page
	}
	page.RawText = body
	f.logger.Debug("page fetched", "url", pageURL, "bytes", len(body))
	return page
}

func (f *Fetcher) get(ctx context.Context, pageURL string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	// Bodies over the limit are truncated, not rejected.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}
