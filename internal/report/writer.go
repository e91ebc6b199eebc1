package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/clickgrab/internal/config"
	"github.com/nao1215/clickgrab/internal/model"
)

// ErrUnknownFormat is returned by New for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
type Writer interface {
	// WriteReport outputs a single run report.
	// Returns the number of bytes written and any error encountered.
	WriteReport(report *model.Report) (int, error)

	// WriteOverview outputs the cross-run overview.
	WriteOverview(overview *model.Overview) (int, error)
}

// New returns the writer for format.
func New(format string, output io.Writer) (Writer, error) {
	switch format {
	case config.FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case config.FormatText:
		return NewTextWriter(output), nil
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers in order.
// It stops at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteReport outputs the report to all configured Writers.
func (m *MultiWriter) WriteReport(report *model.Report) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteReport(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteOverview outputs the overview to all configured Writers.
func (m *MultiWriter) WriteOverview(overview *model.Overview) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteOverview(overview)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// topDomains bounds the ranking shown by human-readable writers.
const topDomains = 20

func headDomains(ranking []model.DomainRank) []model.DomainRank {
	if len(ranking) > topDomains {
		return ranking[:topDomains]
	}
	return ranking
}

// truncateString truncates s to maxLen bytes with an ellipsis, never
// splitting a UTF-8 sequence.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	cut := maxLen - 3
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
