package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/clickgrab/internal/model"
)

// Lister discovers page URLs, e.g. from a threat feed.
type Lister interface {
	URLs(ctx context.Context) ([]string, error)
}

// RemoteSource fetches pages named by a Lister and an explicit URL list.
type RemoteSource struct {
	lister  Lister
	urls    []string
	fetcher *Fetcher
	logger  *slog.Logger
}

// SourceOption configures a RemoteSource.
type SourceOption func(*RemoteSource)

// WithLister adds URL discovery.
func WithLister(l Lister) SourceOption {
	return func(s *RemoteSource) {
		s.lister = l
	}
}

// WithURLs adds explicit URLs, fetched before discovered ones.
func WithURLs(urls []string) SourceOption {
	return func(s *RemoteSource) {
		s.urls = append(s.urls, urls...)
	}
}

// WithSourceLogger sets the logger.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(s *RemoteSource) {
		s.logger = logger
	}
}

// NewRemoteSource creates a RemoteSource that downloads with fetcher.
func NewRemoteSource(fetcher *Fetcher, opts ...SourceOption) *RemoteSource {
	s := &RemoteSource{fetcher: fetcher, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pages lists and fetches the pages. Duplicate URLs are fetched once.
// A lister failure fails the whole call.
func (s *RemoteSource) Pages(ctx context.Context) ([]model.SourcePage, error) {
	urls := append([]string{}, s.urls...)
	if s.lister != nil {
		listed, err := s.lister.URLs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list URLs: %w", err)
		}
		urls = append(urls, listed...)
	}
	urls = dedupe(urls)
	if len(urls) == 0 {
		return []model.SourcePage{}, nil
	}
	s.logger.Info("fetching pages", "count", len(urls))
	return s.fetcher.FetchAll(ctx, urls)
}

func dedupe(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// FileSource reads saved pages from local files for offline analysis.
type FileSource struct {
	paths       []string
	maxBodySize int64
	now         func() time.Time
}

// NewFileSource creates a FileSource over paths. maxBodySize caps how much
// of each file is read; zero means DefaultMaxBodySize.
func NewFileSource(paths []string, maxBodySize int64) *FileSource {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &FileSource{
		paths:       append([]string{}, paths...),
		maxBodySize: maxBodySize,
		now:         time.Now,
	}
}

// Pages reads every file. The page URL is the file:// URL of the absolute
// path. Unreadable files become pages with a FetchError.
func (s *FileSource) Pages(ctx context.Context) ([]model.SourcePage, error) {
	pages := make([]model.SourcePage, 0, len(s.paths))
	for _, p := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, s.read(p))
	}
	return pages, nil
}

func (s *FileSource) read(path string) model.SourcePage {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	page := model.SourcePage{
		URL:       "file://" + filepath.ToSlash(abs),
		FetchedAt: s.now().UTC(),
	}

	info, err := os.Stat(path)
	if err != nil {
		page.FetchError = err.Error()
		return page
	}
	if !info.Mode().IsRegular() {
		page.FetchError = fmt.Sprintf("%s: %v", path, ErrNotRegularFile)
		return page
	}

	f, err := os.Open(path) //nolint:gosec // Sample paths come from the command line
	if err != nil {
		page.FetchError = err.Error()
		return page
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, s.maxBodySize))
	if err != nil {
		page.FetchError = err.Error()
		return page
	}
	page.RawText = string(body)
	return page
}
