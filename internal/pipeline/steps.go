package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/clickgrab/internal/config"
	"github.com/nao1215/clickgrab/internal/extract"
	"github.com/nao1215/clickgrab/internal/model"
)

// StageStep runs an extract.Stage as a pipeline step.
type StageStep struct {
	stage  extract.Stage
	logger *slog.Logger
}

// StageStepOption configures a StageStep.
type StageStepOption func(*StageStep)

// WithStepLogger sets a custom logger for the step.
func WithStepLogger(logger *slog.Logger) StageStepOption {
	return func(s *StageStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStageStep wraps stage.
func NewStageStep(stage extract.Stage, opts ...StageStepOption) *StageStep {
	s := &StageStep{stage: stage, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *StageStep) Name() string {
	return s.stage.Name()
}

// Do executes the stage.
func (s *StageStep) Do(ctx context.Context, in *extract.Input, site *model.AnalyzedSite) error {
	if err := s.stage.Extract(ctx, in, site); err != nil {
		return err
	}
	s.logger.Debug("step completed",
		"step", s.Name(),
		"url", site.URL,
		"domains", len(site.Domains),
		"snippets", len(site.ClipboardSnippets),
		"commands", len(site.Commands),
	)
	return nil
}

// DefaultSteps builds the standard steps from cfg: resources, clipboard
// idioms, staged commands and loose indicators, in that order.
func DefaultSteps(cfg *config.Config, logger *slog.Logger) []Step {
	stages := []extract.Stage{
		extract.NewResourceExtractor(
			extract.WithRules(extract.DefaultRules(cfg.ExtraCDNHosts...)),
		),
		extract.NewClipboardPatternDetector(),
		extract.NewCommandExtractor(
			extract.WithCommandVariable(cfg.CommandVariable),
			extract.WithPathVariable(cfg.PathVariable),
		),
		extract.NewIndicatorScanner(
			extract.WithReadability(cfg.Readability),
		),
	}

	steps := make([]Step, 0, len(stages))
	for _, stage := range stages {
		steps = append(steps, NewStageStep(stage, WithStepLogger(logger)))
	}
	return steps
}

// NewFactory returns a pipeline factory for the BatchProcessor that builds
// a fresh Pipeline with DefaultSteps on every call.
func NewFactory(cfg *config.Config, logger *slog.Logger) func() *Pipeline {
	return func() *Pipeline {
		p := New(WithLogger(logger))
		p.AddSteps(DefaultSteps(cfg, logger)...)
		return p
	}
}
