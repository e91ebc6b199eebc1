package aggregate

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/clickgrab/internal/model"
)

// DefaultExampleLimit is the number of command examples kept in a report.
const DefaultExampleLimit = 10

// Aggregator folds analyzed sites into a Report. It holds no state between
// calls and may be reused.
type Aggregator struct {
	exampleLimit int
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithExampleLimit sets the maximum number of command examples. Zero keeps none.
func WithExampleLimit(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.exampleLimit = n
		}
	}
}

// WithClock sets the time source for the report generation timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator sets the run ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(a *Aggregator) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		exampleLimit: DefaultExampleLimit,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type exampleCandidate struct {
	siteURL string
	pos     int
	cmd     model.ExtractedCommand
}

// Aggregate reduces sites into a Report. previous is the fingerprint set of
// the preceding run; nil means there was none and every fingerprint is new.
// An empty sites slice yields a report with all counts zero.
func (a *Aggregator) Aggregate(runDate time.Time, sites []model.AnalyzedSite, previous *model.FingerprintSet) *model.Report {
	fields := model.ReportFields{
		RunID:             a.newID(),
		RunDate:           runDate,
		GeneratedAt:       a.now().UTC(),
		CategoryBreakdown: make(map[model.Category]model.CategoryStat),
		IdiomPrevalence:   make(map[model.PatternKind]model.IdiomStat),
		Sites:             sites,
	}

	domainTotals := make(map[string]int)
	categoryURLs := make(map[model.Category]map[string]struct{})
	categoryOccurrences := make(map[model.Category]int)
	idiomHits := make(map[model.PatternKind]int)
	idiomSnippets := make(map[model.PatternKind]int)
	fingerprints := make([]string, 0)
	candidates := make([]exampleCandidate, 0)

	for i := range sites {
		site := &sites[i]
		if site.HasError(model.ErrorKindFetch) {
			fields.SitesFailed++
			continue
		}
		fields.SitesScanned++
		if site.HasError(model.ErrorKindTimeout) {
			fields.SitesTimedOut++
			continue
		}

		for _, d := range site.Domains {
			domainTotals[d.Domain] += d.Count
		}
		for category, list := range site.Resources {
			if categoryURLs[category] == nil {
				categoryURLs[category] = make(map[string]struct{})
			}
			for _, r := range list {
				categoryURLs[category][r.URL] = struct{}{}
				categoryOccurrences[category] += r.Count
			}
		}
		for _, snip := range site.ClipboardSnippets {
			fields.ClipboardSnippets++
			for _, m := range snip.Matches {
				idiomHits[m.Kind]++
			}
			for _, tag := range snip.Tags {
				idiomSnippets[tag]++
			}
		}
		for pos, cmd := range site.Commands {
			candidates = append(candidates, exampleCandidate{siteURL: site.URL, pos: pos, cmd: cmd})
		}

		fields.ClipboardCount += site.ClipboardMatchCount()
		fields.TotalAttacks += site.AttackCount()
		fields.PowerShellCount += site.Indicators.PowerShellCount()
		if site.HasAttack() {
			fields.SitesWithAttacks++
		}
		fingerprints = append(fingerprints, SiteFingerprints(site)...)
	}

	fields.DomainRanking = RankDomains(domainTotals)
	for _, c := range model.AllCategories() {
		fields.CategoryBreakdown[c] = model.CategoryStat{
			DistinctURLs: len(categoryURLs[c]),
			Occurrences:  categoryOccurrences[c],
		}
	}
	for _, k := range model.AllIdioms() {
		stat := model.IdiomStat{Count: idiomHits[k]}
		if fields.ClipboardSnippets > 0 {
			stat.Percentage = float64(idiomSnippets[k]) * 100 / float64(fields.ClipboardSnippets)
		}
		fields.IdiomPrevalence[k] = stat
	}
	fields.CommandExamples = selectExamples(candidates, a.exampleLimit)

	current := model.NewFingerprintSet(fingerprints)
	fields.Fingerprints = current
	fields.NewFingerprints = current.Difference(previous)

	report := model.NewReport(fields)
	a.logger.Debug("aggregated run",
		"run_id", report.RunID(),
		"sites_scanned", report.SitesScanned(),
		"sites_with_attacks", report.SitesWithAttacks(),
		"total_attacks", report.TotalAttacks(),
		"new_patterns", report.NewPatterns(),
	)
	return report
}

// RankDomains sorts domain totals by count descending, then by name ascending.
func RankDomains(totals map[string]int) []model.DomainRank {
	ranking := make([]model.DomainRank, 0, len(totals))
	for domain, count := range totals {
		ranking = append(ranking, model.DomainRank{Domain: domain, Count: count})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Count != ranking[j].Count {
			return ranking[i].Count > ranking[j].Count
		}
		return ranking[i].Domain < ranking[j].Domain
	})
	return ranking
}

// selectExamples orders candidates by (site URL, position), drops repeated
// raw texts and keeps the first limit.
func selectExamples(candidates []exampleCandidate, limit int) []model.CommandExample {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].siteURL != candidates[j].siteURL {
			return candidates[i].siteURL < candidates[j].siteURL
		}
		return candidates[i].pos < candidates[j].pos
	})
	out := make([]model.CommandExample, 0, limit)
	seen := make(map[string]bool)
	for _, c := range candidates {
		if len(out) >= limit {
			break
		}
		if seen[c.cmd.RawText] {
			continue
		}
		seen[c.cmd.RawText] = true
		out = append(out, model.CommandExample{SiteURL: c.siteURL, Command: c.cmd})
	}
	return out
}
