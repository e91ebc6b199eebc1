package extract

import (
	"context"
	"fmt"

	"github.com/nao1215/clickgrab/internal/markup"
	"github.com/nao1215/clickgrab/internal/model"
)

// Stage is one extraction step over a single page.
type Stage interface {
	// Name returns the stage name for logging.
	Name() string

	// Extract fills the stage's fields of site. Recoverable problems are
	// recorded with site.AddError; a returned error means the context ended.
	Extract(ctx context.Context, in *Input, site *model.AnalyzedSite) error
}

// Input is what every stage sees for one page.
type Input struct {
	Page model.SourcePage
	Doc  *markup.Document
	// Degraded is true when Doc came from the substring fallback.
	Degraded bool
}

// NewInput parses page. A parse failure is returned together with a
// usable Input built by markup.Scan.
func NewInput(page model.SourcePage, parser *markup.Parser) (*Input, error) {
	doc, err := parser.Parse(page.RawText)
	if err != nil {
		return &Input{Page: page, Doc: markup.Scan(page.RawText), Degraded: true},
			fmt.Errorf("structural parse failed, using substring scan: %w", err)
	}
	return &Input{Page: page, Doc: doc}, nil
}

// ScriptText joins all scripts of the page in document order.
// Top-level declarations of separate scripts share one global scope in a
// browser, so command reconstruction works on the joined text.
func (in *Input) ScriptText() string {
	total := 0
	for _, s := range in.Doc.Scripts {
		total += len(s.Text) + 3
	}
	buf := make([]byte, 0, total)
	for i, s := range in.Doc.Scripts {
		if i > 0 {
			buf = append(buf, "\n;\n"...)
		}
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
