package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/clickgrab/internal/aggregate"
	"github.com/nao1215/clickgrab/internal/model"
)

// Source supplies the pages of one run.
type Source interface {
	Pages(ctx context.Context) ([]model.SourcePage, error)
}

// Archive stores runs and answers the previous run's fingerprints.
type Archive interface {
	// PreviousFingerprints returns the fingerprints of the latest run
	// strictly before runDate, or nil when there is none.
	PreviousFingerprints(ctx context.Context, runDate time.Time) (*model.FingerprintSet, error)

	// SaveRun archives report, replacing a run with the same date.
	SaveRun(ctx context.Context, report *model.Report) error
}

// RunObserver is notified once a run has completed successfully.
type RunObserver interface {
	ObserveRun(report *model.Report, elapsed time.Duration)
}

// Runner executes one complete analysis run.
type Runner struct {
	source     Source
	batch      *BatchProcessor
	aggregator *aggregate.Aggregator
	archive    Archive
	observer   RunObserver
	logger     *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithArchive enables loading previous fingerprints and saving the run.
// Without an archive every fingerprint counts as new and nothing is stored.
func WithArchive(archive Archive) RunnerOption {
	return func(r *Runner) {
		r.archive = archive
	}
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *aggregate.Aggregator) RunnerOption {
	return func(r *Runner) {
		if a != nil {
			r.aggregator = a
		}
	}
}

// WithRunObserver registers an observer for completed runs.
func WithRunObserver(o RunObserver) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithRunnerLogger sets a custom logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner that analyzes the pages of source with batch.
func NewRunner(source Source, batch *BatchProcessor, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:     source,
		batch:      batch,
		aggregator: aggregate.New(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the run dated runDate. Either the complete report is
// returned, or an error and no report; a failed run is never archived.
func (r *Runner) Run(ctx context.Context, runDate time.Time) (*model.Report, error) {
	start := time.Now()

	pages, err := r.source.Pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, ErrEmptyInput
	}
	r.logger.Info("pages loaded", "count", len(pages))

	sites, err := r.batch.ProcessBatch(ctx, pages)
	if err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	var previous *model.FingerprintSet
	if r.archive != nil {
		previous, err = r.archive.PreviousFingerprints(ctx, runDate)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load previous fingerprints: %w", ErrArchiveUnavailable, err)
		}
		if previous == nil {
			r.logger.Info("no previous run archived, every pattern counts as new")
		}
	}

	report := r.aggregator.Aggregate(runDate, sites, previous)

	if r.archive != nil {
		if err := r.archive.SaveRun(ctx, report); err != nil {
			return nil, fmt.Errorf("%w: failed to save run: %w", ErrArchiveUnavailable, err)
		}
	}

	elapsed := time.Since(start)
	if r.observer != nil {
		r.observer.ObserveRun(report, elapsed)
	}
	r.logger.Info("run complete",
		"run_id", report.RunID(),
		"run_date", report.RunDateString(),
		"sites_scanned", report.SitesScanned(),
		"sites_with_attacks", report.SitesWithAttacks(),
		"total_attacks", report.TotalAttacks(),
		"new_patterns", report.NewPatterns(),
		"elapsed", elapsed,
	)
	return report, nil
}
