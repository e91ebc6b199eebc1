package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the run date format used in archives, links and reports.
const DateLayout = "2006-01-02"

// DomainRank is one row of the corpus domain ranking.
type DomainRank struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// CategoryStat summarizes one resource category across the corpus.
type CategoryStat struct {
	DistinctURLs int `json:"distinct_urls"`
	Occurrences  int `json:"occurrences"`
}

// IdiomStat is the prevalence of one clipboard idiom.
// Count is the number of hits; Percentage is the share of clipboard
// snippets carrying the idiom.
type IdiomStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CommandExample is a sampled command together with the site it came from.
type CommandExample struct {
	SiteURL string           `json:"site_url"`
	Command ExtractedCommand `json:"command"`
}

// ReportFields carries everything needed to construct a Report.
type ReportFields struct {
	RunID             string
	RunDate           time.Time
	GeneratedAt       time.Time
	SitesScanned      int
	SitesWithAttacks  int
	SitesFailed       int
	SitesTimedOut     int
	TotalAttacks      int
	ClipboardCount    int
	PowerShellCount   int
	ClipboardSnippets int
	DomainRanking     []DomainRank
	CategoryBreakdown map[Category]CategoryStat
	IdiomPrevalence   map[PatternKind]IdiomStat
	CommandExamples   []CommandExample
	Fingerprints      *FingerprintSet
	NewFingerprints   []string
	Sites             []AnalyzedSite
}

// Report is the corpus-level result of one run.
// It cannot be modified after construction: all accessors return copies.
type Report struct {
	f ReportFields
}

// NewReport builds a Report from a deep copy of fields.
func NewReport(fields ReportFields) *Report {
	return &Report{f: cloneFields(fields)}
}

func cloneFields(in ReportFields) ReportFields {
	out := in
	out.RunDate = in.RunDate.UTC().Truncate(24 * time.Hour)
	out.DomainRanking = append([]DomainRank{}, in.DomainRanking...)
	out.CategoryBreakdown = make(map[Category]CategoryStat, len(in.CategoryBreakdown))
	for k, v := range in.CategoryBreakdown {
		out.CategoryBreakdown[k] = v
	}
	out.IdiomPrevalence = make(map[PatternKind]IdiomStat, len(in.IdiomPrevalence))
	for k, v := range in.IdiomPrevalence {
		out.IdiomPrevalence[k] = v
	}
	out.CommandExamples = make([]CommandExample, len(in.CommandExamples))
	for i, ex := range in.CommandExamples {
		out.CommandExamples[i] = CommandExample{SiteURL: ex.SiteURL, Command: ex.Command.Clone()}
	}
	if in.Fingerprints == nil {
		out.Fingerprints = NewFingerprintSet(nil)
	} else {
		out.Fingerprints = NewFingerprintSet(in.Fingerprints.Values())
	}
	out.NewFingerprints = append([]string{}, in.NewFingerprints...)
	out.Sites = make([]AnalyzedSite, len(in.Sites))
	for i, s := range in.Sites {
		out.Sites[i] = s.Clone()
	}
	return out
}

// RunID is the unique identifier of the run.
func (r *Report) RunID() string { return r.f.RunID }

// RunDate is the UTC calendar day of the run.
func (r *Report) RunDate() time.Time { return r.f.RunDate }

// RunDateString is RunDate formatted with DateLayout.
func (r *Report) RunDateString() string { return r.f.RunDate.Format(DateLayout) }

// GeneratedAt is when the report was built.
func (r *Report) GeneratedAt() time.Time { return r.f.GeneratedAt }

// SitesScanned is the number of sites whose content was analyzed.
func (r *Report) SitesScanned() int { return r.f.SitesScanned }

// SitesWithAttacks is the number of analyzed sites with clipboard or staging evidence.
func (r *Report) SitesWithAttacks() int { return r.f.SitesWithAttacks }

// SitesFailed is the number of sites that could not be fetched.
func (r *Report) SitesFailed() int { return r.f.SitesFailed }

// SitesTimedOut is the number of sites whose analysis hit the per-site deadline.
func (r *Report) SitesTimedOut() int { return r.f.SitesTimedOut }

// TotalAttacks is clipboard idiom hits plus command stagings.
func (r *Report) TotalAttacks() int { return r.f.TotalAttacks }

// ClipboardCount is the number of clipboard idiom hits.
func (r *Report) ClipboardCount() int { return r.f.ClipboardCount }

// PowerShellCount is the number of PowerShell command and download indicators.
func (r *Report) PowerShellCount() int { return r.f.PowerShellCount }

// ClipboardSnippetCount is the number of clipboard snippets found in the run.
func (r *Report) ClipboardSnippetCount() int { return r.f.ClipboardSnippets }

// CommandCount is the number of staged commands in the run.
func (r *Report) CommandCount() int { return r.f.TotalAttacks - r.f.ClipboardCount }

// NewPatterns is the number of fingerprints not seen in the previous run.
func (r *Report) NewPatterns() int { return len(r.f.NewFingerprints) }

// NewFingerprints returns the fingerprints not seen in the previous run.
func (r *Report) NewFingerprints() []string {
	return append([]string{}, r.f.NewFingerprints...)
}

// Fingerprints returns the run's fingerprint set.
func (r *Report) Fingerprints() *FingerprintSet { return r.f.Fingerprints }

// DomainRanking returns the ranked domains.
func (r *Report) DomainRanking() []DomainRank {
	return append([]DomainRank{}, r.f.DomainRanking...)
}

// CategoryBreakdown returns per-category statistics.
func (r *Report) CategoryBreakdown() map[Category]CategoryStat {
	out := make(map[Category]CategoryStat, len(r.f.CategoryBreakdown))
	for k, v := range r.f.CategoryBreakdown {
		out[k] = v
	}
	return out
}

// IdiomPrevalence returns per-idiom statistics.
func (r *Report) IdiomPrevalence() map[PatternKind]IdiomStat {
	out := make(map[PatternKind]IdiomStat, len(r.f.IdiomPrevalence))
	for k, v := range r.f.IdiomPrevalence {
		out[k] = v
	}
	return out
}

// CommandExamples returns the sampled commands.
func (r *Report) CommandExamples() []CommandExample {
	out := make([]CommandExample, len(r.f.CommandExamples))
	for i, ex := range r.f.CommandExamples {
		out[i] = CommandExample{SiteURL: ex.SiteURL, Command: ex.Command.Clone()}
	}
	return out
}

// Sites returns copies of the per-site results in input order.
func (r *Report) Sites() []AnalyzedSite {
	out := make([]AnalyzedSite, len(r.f.Sites))
	for i, s := range r.f.Sites {
		out[i] = s.Clone()
	}
	return out
}

// Summary returns the archive row for this report.
func (r *Report) Summary() RunSummary {
	return RunSummary{
		RunID:            r.f.RunID,
		RunDate:          r.f.RunDate,
		CreatedAt:        r.f.GeneratedAt,
		SitesScanned:     r.f.SitesScanned,
		SitesWithAttacks: r.f.SitesWithAttacks,
		TotalAttacks:     r.f.TotalAttacks,
		NewPatterns:      len(r.f.NewFingerprints),
		PowerShellCount:  r.f.PowerShellCount,
		ClipboardCount:   r.f.ClipboardCount,
	}
}

type reportJSON struct {
	RunID             string                    `json:"run_id"`
	RunDate           string                    `json:"run_date"`
	GeneratedAt       time.Time                 `json:"generated_at"`
	SitesScanned      int                       `json:"sites_scanned"`
	SitesWithAttacks  int                       `json:"sites_with_attacks"`
	SitesFailed       int                       `json:"sites_failed"`
	SitesTimedOut     int                       `json:"sites_timed_out"`
	TotalAttacks      int                       `json:"total_attacks"`
	ClipboardCount    int                       `json:"clipboard_count"`
	PowerShellCount   int                       `json:"powershell_count"`
	ClipboardSnippets int                       `json:"clipboard_snippets"`
	NewPatterns       int                       `json:"new_patterns"`
	DomainRanking     []DomainRank              `json:"domain_ranking"`
	CategoryBreakdown map[Category]CategoryStat `json:"category_breakdown"`
	IdiomPrevalence   map[PatternKind]IdiomStat `json:"idiom_prevalence"`
	CommandExamples   []CommandExample          `json:"command_examples"`
	Fingerprints      []string                  `json:"fingerprints"`
	NewFingerprints   []string                  `json:"new_fingerprints"`
	Sites             []AnalyzedSite            `json:"sites"`
}

// MarshalJSON implements json.Marshaler.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON{
		RunID:             r.f.RunID,
		RunDate:           r.RunDateString(),
		GeneratedAt:       r.f.GeneratedAt,
		SitesScanned:      r.f.SitesScanned,
		SitesWithAttacks:  r.f.SitesWithAttacks,
		SitesFailed:       r.f.SitesFailed,
		SitesTimedOut:     r.f.SitesTimedOut,
		TotalAttacks:      r.f.TotalAttacks,
		ClipboardCount:    r.f.ClipboardCount,
		PowerShellCount:   r.f.PowerShellCount,
		ClipboardSnippets: r.f.ClipboardSnippets,
		NewPatterns:       len(r.f.NewFingerprints),
		DomainRanking:     r.f.DomainRanking,
		CategoryBreakdown: r.f.CategoryBreakdown,
		IdiomPrevalence:   r.f.IdiomPrevalence,
		CommandExamples:   r.f.CommandExamples,
		Fingerprints:      r.f.Fingerprints.Values(),
		NewFingerprints:   r.f.NewFingerprints,
		Sites:             r.f.Sites,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It is meant for reading
// archived reports back; it must not be called on a Report in use.
func (r *Report) UnmarshalJSON(data []byte) error {
	var in reportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	runDate, err := time.Parse(DateLayout, in.RunDate)
	if err != nil {
		return err
	}
	r.f = cloneFields(ReportFields{
		RunID:             in.RunID,
		RunDate:           runDate,
		GeneratedAt:       in.GeneratedAt,
		SitesScanned:      in.SitesScanned,
		SitesWithAttacks:  in.SitesWithAttacks,
		SitesFailed:       in.SitesFailed,
		SitesTimedOut:     in.SitesTimedOut,
		TotalAttacks:      in.TotalAttacks,
		ClipboardCount:    in.ClipboardCount,
		PowerShellCount:   in.PowerShellCount,
		ClipboardSnippets: in.ClipboardSnippets,
		DomainRanking:     in.DomainRanking,
		CategoryBreakdown: in.CategoryBreakdown,
		IdiomPrevalence:   in.IdiomPrevalence,
		CommandExamples:   in.CommandExamples,
		Fingerprints:      NewFingerprintSet(in.Fingerprints),
		NewFingerprints:   in.NewFingerprints,
		Sites:             in.Sites,
	})
	return nil
}
