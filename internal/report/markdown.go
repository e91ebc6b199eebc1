package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/clickgrab/internal/model"
)

// syntaxPowerShell highlights staged commands, which are PowerShell or cmd lines.
const syntaxPowerShell markdown.SyntaxHighlight = "powershell"

// MarkdownWriter outputs reports in Markdown format for sharing and
// publishing alongside the archive.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteReport outputs the run report in Markdown format.
func (w *MarkdownWriter) WriteReport(report *model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("ClickGrab Report " + report.RunDateString())
	md.PlainText("")

	w.writeSummary(md, report)
	w.writeCategories(md, report)
	w.writeIdioms(md, report)
	w.writeDomains(md, report)
	w.writeExamples(md, report)
	w.writeNewPatterns(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID() + "`"},
			{"Sites scanned", strconv.Itoa(report.SitesScanned())},
			{"Sites with attacks", strconv.Itoa(report.SitesWithAttacks())},
			{"Sites failed to fetch", strconv.Itoa(report.SitesFailed())},
			{"Sites timed out", strconv.Itoa(report.SitesTimedOut())},
			{"Total attacks", strconv.Itoa(report.TotalAttacks())},
			{"Clipboard manipulations", strconv.Itoa(report.ClipboardCount())},
			{"Staged commands", strconv.Itoa(report.CommandCount())},
			{"PowerShell indicators", strconv.Itoa(report.PowerShellCount())},
			{"New patterns", strconv.Itoa(report.NewPatterns())},
		},
	})
	md.PlainText("")

	switch {
	case report.NewPatterns() > 0:
		md.Warningf("%d pattern(s) not seen in the previous run.", report.NewPatterns())
	case report.TotalAttacks() > 0:
		md.Note("All observed patterns were already seen in the previous run.")
	default:
		md.Tip("No clipboard attacks observed.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeCategories(md *markdown.Markdown, report *model.Report) {
	md.H2("Resource Categories")
	md.PlainText("")

	breakdown := report.CategoryBreakdown()
	rows := make([][]string, 0, len(breakdown))
	total := 0
	for _, c := range model.AllCategories() {
		stat := breakdown[c]
		total += stat.Occurrences
		rows = append(rows, []string{
			c.Label(),
			strconv.Itoa(stat.DistinctURLs),
			strconv.Itoa(stat.Occurrences),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Distinct URLs", "Occurrences"},
		Rows:   rows,
	})
	md.PlainText("")

	if total == 0 {
		return
	}
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Resource references by category"),
		piechart.WithShowData(true),
	)
	for _, c := range model.AllCategories() {
		if n := breakdown[c].Occurrences; n > 0 {
			chart.LabelAndIntValue(c.Label(), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeIdioms(md *markdown.Markdown, report *model.Report) {
	md.H2("Clipboard Idioms")
	md.PlainText("")

	prevalence := report.IdiomPrevalence()
	rows := make([][]string, 0, len(prevalence))
	for _, k := range model.AllIdioms() {
		stat := prevalence[k]
		rows = append(rows, []string{
			k.Label(),
			strconv.Itoa(stat.Count),
			fmt.Sprintf("%.1f%%", stat.Percentage),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Idiom", "Hits", "Share of snippets"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, report *model.Report) {
	md.H2("Top Domains")
	md.PlainText("")

	ranking := headDomains(report.DomainRanking())
	if len(ranking) == 0 {
		md.PlainText("No external resources referenced.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(ranking))
	for i, d := range ranking {
		rows[i] = []string{strconv.Itoa(i + 1), "`" + d.Domain + "`", strconv.Itoa(d.Count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Domain", "References"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeExamples(md *markdown.Markdown, report *model.Report) {
	md.H2("Command Examples")
	md.PlainText("")

	examples := report.CommandExamples()
	if len(examples) == 0 {
		md.PlainText("No staged commands extracted.")
		md.PlainText("")
		return
	}

	for i, ex := range examples {
		md.H3(fmt.Sprintf("%d. %s", i+1, ex.SiteURL))
		md.PlainText("")
		md.CodeBlocks(syntaxPowerShell, ex.Command.RawText)
		md.PlainText("")

		rows := [][]string{
			{"Staging call", "`" + ex.Command.StagingCall + "`"},
			{"Fully resolved", strconv.FormatBool(ex.Command.FullyResolved)},
		}
		if ex.Command.PathValue != "" {
			rows = append(rows, []string{"Staging path", "`" + escapeCell(ex.Command.PathValue) + "`"})
		}
		md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
		md.PlainText("")

		if ex.Command.HasDecodedPayload() {
			md.Details("Decoded payload", ex.Command.DecodedPayload)
			md.PlainText("")
		}
	}
}

func (w *MarkdownWriter) writeNewPatterns(md *markdown.Markdown, report *model.Report) {
	fps := report.NewFingerprints()
	if len(fps) == 0 {
		return
	}
	md.H2("New Pattern Fingerprints")
	md.PlainText("")
	items := make([]string, len(fps))
	for i, fp := range fps {
		items[i] = "`" + fp + "`"
	}
	md.BulletList(items...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by ClickGrab*")
}

// WriteOverview outputs the cross-run overview in Markdown format.
func (w *MarkdownWriter) WriteOverview(overview *model.Overview) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("ClickGrab Overview")
	md.PlainText("")

	if !overview.HasRuns() {
		md.Note("No runs archived yet.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Total sites scanned", strconv.Itoa(overview.TotalSitesScanned)},
			{"Total sites with attacks", strconv.Itoa(overview.TotalSitesWithAttacks)},
			{"Total attacks", strconv.Itoa(overview.TotalAttacks)},
			{"Latest run", overview.LatestRunDate},
			{"Latest sites with attacks", fmt.Sprintf("%d / %d", overview.LatestSitesWithAttacks, overview.LatestSitesScanned)},
			{"Latest new patterns", strconv.Itoa(overview.LatestNewPatterns)},
			{"Latest PowerShell indicators", strconv.Itoa(overview.LatestPowerShellCount)},
			{"Latest clipboard manipulations", strconv.Itoa(overview.LatestClipboardCount)},
		},
	})
	md.PlainText("")

	md.H2("History")
	md.PlainText("")
	rows := make([][]string, len(overview.History))
	for i, h := range overview.History {
		rows[i] = []string{
			fmt.Sprintf("[%s](%s)", h.Date, h.Link),
			strconv.Itoa(h.SitesWithAttacks),
			strconv.Itoa(h.TotalAttacks),
			strconv.Itoa(h.NewPatterns),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "Sites with attacks", "Attacks", "New patterns"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// escapeCell keeps pipes inside table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
