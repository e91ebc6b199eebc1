package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/clickgrab/internal/model"
)

// TextWriter outputs human-readable text reports for terminal display.
type TextWriter struct {
	baseWriter

	// verbose adds per-site findings.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose enables per-site detail.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteReport outputs the run report in human-readable format.
func (w *TextWriter) WriteReport(report *model.Report) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "CLICKGRAB REPORT")
	fmt.Fprintf(&sb, "Run Date:       %s\n", report.RunDateString())
	fmt.Fprintf(&sb, "Run ID:         %s\n", report.RunID())
	fmt.Fprintf(&sb, "Generated:      %s\n\n", report.GeneratedAt().Format("2006-01-02 15:04:05 MST"))

	w.writeSummary(&sb, report)
	w.writeCategories(&sb, report)
	w.writeIdioms(&sb, report)
	w.writeDomains(&sb, report)
	w.writeExamples(&sb, report)
	if w.verbose {
		w.writeSites(&sb, report)
	}

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := max((70-len(title))/2, 0)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 40))
	sb.WriteString("\n")
}

func (w *TextWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "SUMMARY")
	fmt.Fprintf(sb, "  Sites scanned:           %d\n", report.SitesScanned())
	fmt.Fprintf(sb, "  Sites with attacks:      %d\n", report.SitesWithAttacks())
	fmt.Fprintf(sb, "  Sites failed to fetch:   %d\n", report.SitesFailed())
	fmt.Fprintf(sb, "  Sites timed out:         %d\n", report.SitesTimedOut())
	fmt.Fprintf(sb, "  Total attacks:           %d\n", report.TotalAttacks())
	fmt.Fprintf(sb, "    Clipboard:             %d\n", report.ClipboardCount())
	fmt.Fprintf(sb, "    Staged commands:       %d\n", report.CommandCount())
	fmt.Fprintf(sb, "  PowerShell indicators:   %d\n", report.PowerShellCount())
	fmt.Fprintf(sb, "  New patterns:            %d\n", report.NewPatterns())
	sb.WriteString("\n")
}

func (w *TextWriter) writeCategories(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "RESOURCE CATEGORIES")
	breakdown := report.CategoryBreakdown()
	for _, c := range model.AllCategories() {
		stat := breakdown[c]
		fmt.Fprintf(sb, "  %-22s %5d urls %7d refs\n", c.Label(), stat.DistinctURLs, stat.Occurrences)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeIdioms(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "CLIPBOARD IDIOMS")
	prevalence := report.IdiomPrevalence()
	for _, k := range model.AllIdioms() {
		stat := prevalence[k]
		fmt.Fprintf(sb, "  %-22s %5d hits %6.1f%%\n", k.Label(), stat.Count, stat.Percentage)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeDomains(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "TOP DOMAINS")
	ranking := headDomains(report.DomainRanking())
	if len(ranking) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for i, d := range ranking {
		fmt.Fprintf(sb, "  %3d. %-40s %d\n", i+1, d.Domain, d.Count)
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeExamples(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "COMMAND EXAMPLES")
	examples := report.CommandExamples()
	if len(examples) == 0 {
		sb.WriteString("  (none)\n\n")
		return
	}
	for i, ex := range examples {
		fmt.Fprintf(sb, "  [%d] %s\n", i+1, ex.SiteURL)
		fmt.Fprintf(sb, "      Command:  %s\n", truncateString(ex.Command.RawText, 200))
		fmt.Fprintf(sb, "      Staged:   %s (resolved: %t)\n", ex.Command.StagingCall, ex.Command.FullyResolved)
		if ex.Command.HasDecodedPayload() {
			fmt.Fprintf(sb, "      Decoded:  %s\n", truncateString(ex.Command.DecodedPayload, 200))
		}
	}
	sb.WriteString("\n")
}

func (w *TextWriter) writeSites(sb *strings.Builder, report *model.Report) {
	writeSection(sb, "SITES")
	for _, s := range report.Sites() {
		status := "clean"
		switch {
		case s.Excluded():
			status = "excluded"
		case s.HasAttack():
			status = fmt.Sprintf("%d attack(s)", s.AttackCount())
		}
		fmt.Fprintf(sb, "  %s  [%s]\n", s.URL, status)
		for _, e := range s.Errors {
			fmt.Fprintf(sb, "      %s: %s\n", e.Kind, truncateString(e.Message, 120))
		}
		for _, c := range s.Indicators.Commands {
			fmt.Fprintf(sb, "      command: %s\n", truncateString(c, 120))
		}
		for _, h := range s.Indicators.ClipboardHijack {
			fmt.Fprintf(sb, "      clipboard hijack: %s\n", h)
		}
		for _, lure := range s.Indicators.Lures {
			fmt.Fprintf(sb, "      lure: %s\n", truncateString(lure, 120))
		}
	}
	sb.WriteString("\n")
}

// WriteOverview outputs the cross-run overview in human-readable format.
func (w *TextWriter) WriteOverview(overview *model.Overview) (int, error) {
	var sb strings.Builder

	writeBanner(&sb, "CLICKGRAB OVERVIEW")
	if !overview.HasRuns() {
		sb.WriteString("No runs archived yet.\n")
		return io.WriteString(w.output, sb.String())
	}

	writeSection(&sb, "TOTALS")
	fmt.Fprintf(&sb, "  Sites scanned:           %d\n", overview.TotalSitesScanned)
	fmt.Fprintf(&sb, "  Sites with attacks:      %d\n", overview.TotalSitesWithAttacks)
	fmt.Fprintf(&sb, "  Attacks:                 %d\n\n", overview.TotalAttacks)

	writeSection(&sb, "LATEST RUN "+overview.LatestRunDate)
	fmt.Fprintf(&sb, "  Sites with attacks:      %d / %d\n", overview.LatestSitesWithAttacks, overview.LatestSitesScanned)
	fmt.Fprintf(&sb, "  New patterns:            %d\n", overview.LatestNewPatterns)
	fmt.Fprintf(&sb, "  PowerShell indicators:   %d\n", overview.LatestPowerShellCount)
	fmt.Fprintf(&sb, "  Clipboard:               %d\n\n", overview.LatestClipboardCount)

	writeSection(&sb, "HISTORY")
	fmt.Fprintf(&sb, "  %-12s %8s %8s %8s\n", "DATE", "SITES", "ATTACKS", "NEW")
	for _, h := range overview.History {
		fmt.Fprintf(&sb, "  %-12s %8d %8d %8d\n", h.Date, h.SitesWithAttacks, h.TotalAttacks, h.NewPatterns)
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}
