package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/clickgrab/internal/model"
)

const (
	// DefaultConcurrency is the number of pages analyzed at once.
	DefaultConcurrency = 8

	// DefaultSiteTimeout bounds the analysis of a single page.
	DefaultSiteTimeout = 10 * time.Second
)

// SiteObserver is notified after each page has been analyzed.
// It is called from worker goroutines and must be safe for concurrent use.
type SiteObserver interface {
	ObserveSite(site *model.AnalyzedSite, elapsed time.Duration)
}

// BatchProcessor analyzes many pages concurrently.
// Each page runs through its own Pipeline under a per-site deadline, with at
// most concurrency pages in flight.
//
// Design decision: We create a fresh pipeline per page through a factory
// rather than sharing one because:
//   - Steps never need locking, even if they grow per-page state
//   - Callers that want shared stateless steps can still return the same
//     instances from the factory
//
// Design decision: A page that times out or fails to parse becomes a site
// with an error entry instead of failing the batch. Only cancellation of
// the batch context aborts the run, so one hostile page cannot hide the
// results of every other page.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each page.
	pipelineFactory func() *Pipeline

	concurrency int
	siteTimeout time.Duration
	observer    SiteObserver
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages analyzed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithSiteTimeout sets the analysis deadline of a single page.
func WithSiteTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if d > 0 {
			b.siteTimeout = d
		}
	}
}

// WithSiteObserver registers an observer for completed pages.
func WithSiteObserver(o SiteObserver) BatchOption {
	return func(b *BatchProcessor) {
		b.observer = o
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		siteTimeout:     DefaultSiteTimeout,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch analyzes pages and returns one site per page, in input order.
// Sites that exceed their deadline carry a timeout error and no findings.
// The error is non-nil only when ctx itself ended; no sites are returned then.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, pages []model.SourcePage) ([]model.AnalyzedSite, error) {
	startTime := time.Now()
	bp.logger.Info("starting batch analysis",
		"total_pages", len(pages),
		"concurrency", bp.concurrency,
	)

	// Each worker writes only its own index.
	results := make([]model.AnalyzedSite, len(pages))
	err := bp.ProcessBatchWithCallback(ctx, pages, func(site *model.AnalyzedSite, index int) {
		results[index] = *site
	})
	if err != nil {
		return nil, err
	}

	bp.logger.Info("batch analysis complete",
		"total_pages", len(pages),
		"elapsed", time.Since(startTime),
	)
	return results, nil
}

// ProcessBatchWithCallback analyzes pages and calls callback for each
// completed site with the page's index. The callback runs on the worker
// goroutine.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	pages []model.SourcePage,
	callback func(site *model.AnalyzedSite, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, page := range pages {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			site, err := bp.analyze(ctx, page)
			if err != nil {
				return err
			}
			callback(site, i)
			return nil
		})
	}
	return g.Wait()
}

// analyze runs a fresh pipeline over page under the per-site deadline.
func (bp *BatchProcessor) analyze(ctx context.Context, page model.SourcePage) (*model.AnalyzedSite, error) {
	start := time.Now()
	siteCtx, cancel := context.WithTimeout(ctx, bp.siteTimeout)
	defer cancel()

	site, err := bp.pipelineFactory().Analyze(siteCtx, page)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		bp.logger.Warn("site analysis timed out", "url", page.URL, "timeout", bp.siteTimeout)
		site.ResetFindings()
		site.AddError(model.ErrorKindTimeout, "analysis exceeded "+bp.siteTimeout.String())
	default:
		bp.logger.Warn("site analysis failed", "url", page.URL, "error", err)
		site.ResetFindings()
		site.AddError(model.ErrorKindParse, err.Error())
	}

	if site.HasError(model.ErrorKindFetch) {
		bp.logger.Debug("site skipped", "url", page.URL, "reason", page.FetchError)
	}
	if bp.observer != nil {
		bp.observer.ObserveSite(site, time.Since(start))
	}
	return site, nil
}
