package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/clickgrab/internal/model"
)

// JSONWriter outputs reports in JSON format.
// The output is the model's own JSON encoding, so the archive, the CLI and
// any downstream tooling read the same shape.
//
// Design decision: We marshal the whole report in one call rather than
// streaming sites because:
//   - Reports are bounded by the feed size and fit in memory
//   - A single Write keeps the output all-or-nothing on failure
//   - encoding/json already honors the struct tags the archive relies on
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteReport outputs the report in JSON format.
func (w *JSONWriter) WriteReport(report *model.Report) (int, error) {
	return w.writeJSON(report)
}

// WriteOverview outputs the overview in JSON format.
func (w *JSONWriter) WriteOverview(overview *model.Overview) (int, error) {
	return w.writeJSON(overview)
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
