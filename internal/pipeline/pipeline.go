package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/clickgrab/internal/extract"
	"github.com/nao1215/clickgrab/internal/markup"
	"github.com/nao1215/clickgrab/internal/model"
)

// Step is one extraction step over a single page.
type Step interface {
	// Do fills the step's part of site. Recoverable problems are recorded
	// on site; a returned error aborts the page.
	Do(ctx context.Context, in *extract.Input, site *model.AnalyzedSite) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs its steps in order over one page.
type Pipeline struct {
	steps  []Step
	parser *markup.Parser
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithParser sets the markup parser.
func WithParser(parser *markup.Parser) Option {
	return func(p *Pipeline) {
		if parser != nil {
			p.parser = parser
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:  make([]Step, 0),
		parser: markup.NewParser(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Analyze runs every step over page and returns the populated site.
//
// A page carrying a fetch error is not analyzed; the site records the
// error and nothing else. A markup parse failure is recorded and the steps
// run on the substring-scan fallback. The returned error is non-nil only
// when a step fails, which in practice means ctx ended; the partially
// filled site is returned alongside it.
func (p *Pipeline) Analyze(ctx context.Context, page model.SourcePage) (*model.AnalyzedSite, error) {
	site := model.NewAnalyzedSite(page)
	if page.FetchError != "" {
		site.AddError(model.ErrorKindFetch, page.FetchError)
		return site, nil
	}

	in, err := extract.NewInput(page, p.parser)
	if err != nil {
		p.logger.Warn("markup parse failed", "url", page.URL, "error", err)
		site.AddError(model.ErrorKindParse, err.Error())
	}

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			return site, ctx.Err()
		default:
		}

		if err := step.Do(ctx, in, site); err != nil {
			p.logger.Debug("step aborted", "step", step.Name(), "url", page.URL, "error", err)
			return site, err
		}
	}
	return site, nil
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
