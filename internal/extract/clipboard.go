package extract

import (
	"context"
	"regexp"
	"sort"

	"github.com/nao1215/clickgrab/internal/model"
)

const quoteClass = "['\"`]"

// IdiomPattern ties a regular expression to the idiom it detects.
type IdiomPattern struct {
	Kind  model.PatternKind
	Regex *regexp.Regexp
}

// DefaultIdiomPatterns returns the built-in idiom patterns. They accept any
// quoting style and arbitrary whitespace around punctuation.
func DefaultIdiomPatterns() []IdiomPattern {
	return []IdiomPattern{
		{model.PatternClipboardCopy, regexp.MustCompile(`(?i)navigator\s*\.\s*clipboard\s*\.\s*write(?:Text)?\s*\(`)},
		{model.PatternClipboardCopy, regexp.MustCompile(`(?i)document\s*\.\s*execCommand\s*\(\s*` + quoteClass + `copy` + quoteClass)},
		{model.PatternClipboardCopy, regexp.MustCompile(`(?i)clipboardData\s*\.\s*setData\s*\(`)},
		{model.PatternClipboardCopy, regexp.MustCompile(`(?i)new\s+ClipboardJS\b`)},

		{model.PatternTemporaryElement, regexp.MustCompile(`(?i)document\s*\.\s*createElement\s*\(\s*` + quoteClass + `(?:textarea|input)` + quoteClass + `\s*\)`)},

		{model.PatternSelectionCopy, regexp.MustCompile(`(?i)\.\s*select\s*\(\s*\)`)},
		{model.PatternSelectionCopy, regexp.MustCompile(`(?i)(?:window|document)\s*\.\s*getSelection\s*\(`)},
		{model.PatternSelectionCopy, regexp.MustCompile(`(?i)\.\s*createRange\s*\(`)},
		{model.PatternSelectionCopy, regexp.MustCompile(`(?i)\.\s*selectNodeContents\s*\(`)},
		{model.PatternSelectionCopy, regexp.MustCompile(`(?i)\.\s*setSelectionRange\s*\(`)},
	}
}

// ClipboardPatternDetector finds clipboard-hijack idioms in script text.
// It does not attempt to see through deliberate obfuscation.
type ClipboardPatternDetector struct {
	patterns []IdiomPattern
	radius   int
}

// ClipboardOption configures a ClipboardPatternDetector.
type ClipboardOption func(*ClipboardPatternDetector)

// WithIdiomPatterns replaces the idiom patterns. Patterns with a kind that is
// not a clipboard idiom are ignored.
func WithIdiomPatterns(patterns []IdiomPattern) ClipboardOption {
	return func(d *ClipboardPatternDetector) {
		filtered := make([]IdiomPattern, 0, len(patterns))
		for _, p := range patterns {
			if p.Kind.IsIdiom() && p.Regex != nil {
				filtered = append(filtered, p)
			}
		}
		d.patterns = filtered
	}
}

// WithContextRadius sets the context radius in bytes.
func WithContextRadius(radius int) ClipboardOption {
	return func(d *ClipboardPatternDetector) {
		if radius >= 0 {
			d.radius = radius
		}
	}
}

// NewClipboardPatternDetector creates a detector with the default patterns.
func NewClipboardPatternDetector(opts ...ClipboardOption) *ClipboardPatternDetector {
	d := &ClipboardPatternDetector{
		patterns: DefaultIdiomPatterns(),
		radius:   ContextRadius,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name implements Stage.
func (d *ClipboardPatternDetector) Name() string {
	return "clipboard"
}

// Extract implements Stage. Each script is scanned on its own.
func (d *ClipboardPatternDetector) Extract(ctx context.Context, in *Input, site *model.AnalyzedSite) error {
	for _, script := range in.Doc.Scripts {
		if err := checkContext(ctx); err != nil {
			return err
		}
		site.ClipboardSnippets = append(site.ClipboardSnippets, d.Detect(script.Text)...)
	}
	return nil
}

type idiomHit struct {
	kind       model.PatternKind
	start, end int
}

// Detect returns the clipboard snippets of one script. Hits whose context
// windows overlap are merged into a single snippet carrying every tag.
func (d *ClipboardPatternDetector) Detect(script string) []model.ClipboardSnippet {
	hits := make([]idiomHit, 0)
	for _, p := range d.patterns {
		for _, loc := range p.Regex.FindAllStringIndex(script, -1) {
			hits = append(hits, idiomHit{kind: p.Kind, start: loc[0], end: loc[1]})
		}
	}
	if len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return idiomRank(hits[i].kind) < idiomRank(hits[j].kind)
	})

	snippets := make([]model.ClipboardSnippet, 0)
	var cluster []idiomHit
	clusterLo, clusterHi := 0, 0

	flush := func() {
		if len(cluster) == 0 {
			return
		}
		snippets = append(snippets, buildSnippet(script, cluster, clusterLo, clusterHi))
		cluster = nil
	}

	for _, h := range hits {
		lo, hi := windowBounds(script, h.start, h.end, d.radius)
		if len(cluster) > 0 && lo <= clusterHi {
			cluster = append(cluster, h)
			if hi > clusterHi {
				clusterHi = hi
			}
			continue
		}
		flush()
		cluster = []idiomHit{h}
		clusterLo, clusterHi = lo, hi
	}
	flush()

	return snippets
}

func buildSnippet(script string, hits []idiomHit, lo, hi int) model.ClipboardSnippet {
	snip := model.ClipboardSnippet{
		Text:    collapseSpace(script[lo:hi]),
		Tags:    make([]model.PatternKind, 0),
		Matches: make([]model.IdiomMatch, 0, len(hits)),
	}
	seen := make(map[model.PatternKind]bool)
	for _, h := range hits {
		snip.Matches = append(snip.Matches, model.IdiomMatch{
			Kind:   h.kind,
			Offset: h.start,
			Text:   collapseSpace(script[h.start:h.end]),
		})
		seen[h.kind] = true
	}
	for _, k := range model.AllIdioms() {
		if seen[k] {
			snip.Tags = append(snip.Tags, k)
		}
	}
	return snip
}

func idiomRank(k model.PatternKind) int {
	for i, idiom := range model.AllIdioms() {
		if idiom == k {
			return i
		}
	}
	return len(model.AllIdioms())
}

// CountIdioms returns the number of hits per idiom across snippets.
func CountIdioms(snippets []model.ClipboardSnippet) map[model.PatternKind]int {
	counts := make(map[model.PatternKind]int)
	for _, s := range snippets {
		for _, m := range s.Matches {
			counts[m.Kind]++
		}
	}
	return counts
}
