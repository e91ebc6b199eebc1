package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/clickgrab/internal/model"
)

// CSVWriter outputs reports as CSV. A report is one row per ranked domain
// followed by summary rows; rows carry a section column so spreadsheets
// can filter them.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// WriteReport outputs the report as CSV.
func (w *CSVWriter) WriteReport(report *model.Report) (int, error) {
	rows := [][]string{{"section", "key", "value", "extra"}}

	for _, d := range report.DomainRanking() {
		rows = append(rows, []string{"domain", d.Domain, strconv.Itoa(d.Count), ""})
	}

	breakdown := report.CategoryBreakdown()
	for _, c := range model.AllCategories() {
		stat := breakdown[c]
		rows = append(rows, []string{"category", c.String(), strconv.Itoa(stat.Occurrences), strconv.Itoa(stat.DistinctURLs)})
	}

	prevalence := report.IdiomPrevalence()
	for _, k := range model.AllIdioms() {
		stat := prevalence[k]
		rows = append(rows, []string{"idiom", k.String(), strconv.Itoa(stat.Count), strconv.FormatFloat(stat.Percentage, 'f', 2, 64)})
	}

	for _, ex := range report.CommandExamples() {
		rows = append(rows, []string{"command", ex.SiteURL, ex.Command.RawText, ex.Command.StagingCall})
	}

	rows = append(rows,
		[]string{"summary", "run_date", report.RunDateString(), ""},
		[]string{"summary", "sites_scanned", strconv.Itoa(report.SitesScanned()), ""},
		[]string{"summary", "sites_with_attacks", strconv.Itoa(report.SitesWithAttacks()), ""},
		[]string{"summary", "sites_failed", strconv.Itoa(report.SitesFailed()), ""},
		[]string{"summary", "sites_timed_out", strconv.Itoa(report.SitesTimedOut()), ""},
		[]string{"summary", "total_attacks", strconv.Itoa(report.TotalAttacks()), ""},
		[]string{"summary", "clipboard_count", strconv.Itoa(report.ClipboardCount()), ""},
		[]string{"summary", "powershell_count", strconv.Itoa(report.PowerShellCount()), ""},
		[]string{"summary", "new_patterns", strconv.Itoa(report.NewPatterns()), ""},
	)
	return w.writeRows(rows)
}

// WriteOverview outputs the run history as CSV, newest first.
func (w *CSVWriter) WriteOverview(overview *model.Overview) (int, error) {
	rows := [][]string{{"date", "sites_with_attacks", "total_attacks", "new_patterns", "link"}}
	for _, h := range overview.History {
		rows = append(rows, []string{
			h.Date,
			strconv.Itoa(h.SitesWithAttacks),
			strconv.Itoa(h.TotalAttacks),
			strconv.Itoa(h.NewPatterns),
			h.Link,
		})
	}
	return w.writeRows(rows)
}

func (w *CSVWriter) writeRows(rows [][]string) (int, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("failed to encode CSV: %w", err)
	}
	return w.output.Write(buf.Bytes())
}
