package model

import "time"

// SourcePage is one page as supplied by a source collaborator.
// A non-empty FetchError means the page could not be retrieved and
// RawText must be ignored.
type SourcePage struct {
	URL        string    `json:"url"`
	FetchedAt  time.Time `json:"fetched_at"`
	RawText    string    `json:"-"`
	FetchError string    `json:"fetch_error,omitempty"`
}

// ErrorKind classifies a recoverable per-site issue.
type ErrorKind string

const (
	// ErrorKindFetch means the page was never retrieved; the site is excluded.
	ErrorKindFetch ErrorKind = "fetch_error"

	// ErrorKindParse means structural parsing failed and substring scanning was used instead.
	ErrorKindParse ErrorKind = "parse_error"

	// ErrorKindUnresolvedReference means a command or path value referenced
	// something that could not be resolved from the snippet.
	ErrorKindUnresolvedReference ErrorKind = "unresolved_reference"

	// ErrorKindTimeout means the per-site analysis deadline expired; the site is excluded.
	ErrorKindTimeout ErrorKind = "timeout"
)

// SiteError is one recoverable issue recorded against a site.
type SiteError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// DomainCount is a referenced domain and how many resource references point at it.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// ResourceCount is an exact resource URL and its number of occurrences.
type ResourceCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// IdiomMatch is a single idiom hit inside a snippet.
// Offset is the byte offset of the hit in the scanned script text.
type IdiomMatch struct {
	Kind   PatternKind `json:"kind"`
	Offset int         `json:"offset"`
	Text   string      `json:"text"`
}

// ClipboardSnippet is a context window holding one or more clipboard idiom hits.
// Tags is the sorted, de-duplicated set of kinds found in Matches.
type ClipboardSnippet struct {
	Text    string        `json:"text"`
	Tags    []PatternKind `json:"tags"`
	Matches []IdiomMatch  `json:"matches"`
}

// HasTag reports whether the snippet carries kind.
func (s ClipboardSnippet) HasTag(kind PatternKind) bool {
	for _, t := range s.Tags {
		if t == kind {
			return true
		}
	}
	return false
}

// Download is a payload download reference such as an iwr|iex cradle or a .hta link.
type Download struct {
	URL   string `json:"url,omitempty"`
	Match string `json:"match"`
}

// Indicators holds the loose IOCs collected from the raw page text.
// These feed reporting only; they are not part of the attack count.
// Commands holds living-off-the-land command lines (cmd /c, certutil,
// bitsadmin and the like); ClipboardHijack holds copy/cut/paste event
// handlers that rewrite what the victim copies.
type Indicators struct {
	URLs            []string   `json:"urls"`
	IPAddresses     []string   `json:"ip_addresses"`
	PowerShell      []string   `json:"powershell"`
	Downloads       []Download `json:"downloads"`
	Commands        []string   `json:"commands"`
	ClipboardHijack []string   `json:"clipboard_hijack"`
	Lures           []string   `json:"lures"`
}

// PowerShellCount is the number of PowerShell command and download indicators.
func (i Indicators) PowerShellCount() int {
	return len(i.PowerShell) + len(i.Downloads)
}

// AnalyzedSite is the extraction result for one page.
// It is populated in a single pass by the extract stages; afterwards only
// AddError may modify it.
type AnalyzedSite struct {
	URL               string                       `json:"url"`
	FetchedAt         time.Time                    `json:"fetched_at"`
	Domains           []DomainCount                `json:"domains"`
	Resources         map[Category][]ResourceCount `json:"resources"`
	ClipboardSnippets []ClipboardSnippet           `json:"clipboard_snippets"`
	Commands          []ExtractedCommand           `json:"commands"`
	Indicators        Indicators                   `json:"indicators"`
	Errors            []SiteError                  `json:"errors"`
}

// NewAnalyzedSite creates an empty result for page.
// All collections are non-nil so that two analyses of the same input
// serialize identically.
func NewAnalyzedSite(page SourcePage) *AnalyzedSite {
	return &AnalyzedSite{
		URL:               page.URL,
		FetchedAt:         page.FetchedAt,
		Domains:           []DomainCount{},
		Resources:         map[Category][]ResourceCount{},
		ClipboardSnippets: []ClipboardSnippet{},
		Commands:          []ExtractedCommand{},
		Indicators: Indicators{
			URLs:            []string{},
			IPAddresses:     []string{},
			PowerShell:      []string{},
			Downloads:       []Download{},
			Commands:        []string{},
			ClipboardHijack: []string{},
			Lures:           []string{},
		},
		Errors: []SiteError{},
	}
}

// AddError records a recoverable issue.
func (s *AnalyzedSite) AddError(kind ErrorKind, message string) {
	s.Errors = append(s.Errors, SiteError{Kind: kind, Message: message})
}

// HasError reports whether an error of the given kind was recorded.
func (s *AnalyzedSite) HasError(kind ErrorKind) bool {
	for _, e := range s.Errors {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// Excluded reports whether the site must not contribute to corpus statistics.
// Fetch failures and analysis timeouts are excluded.
func (s *AnalyzedSite) Excluded() bool {
	return s.HasError(ErrorKindFetch) || s.HasError(ErrorKindTimeout)
}

// ClipboardMatchCount is the total number of clipboard idiom hits across all snippets.
func (s *AnalyzedSite) ClipboardMatchCount() int {
	n := 0
	for _, snip := range s.ClipboardSnippets {
		n += len(snip.Matches)
	}
	return n
}

// AttackCount is clipboard idiom hits plus confirmed command stagings.
func (s *AnalyzedSite) AttackCount() int {
	if s.Excluded() {
		return 0
	}
	return s.ClipboardMatchCount() + len(s.Commands)
}

// HasAttack reports whether the site shows any clipboard or staging evidence.
func (s *AnalyzedSite) HasAttack() bool {
	return s.AttackCount() > 0
}

// ResetFindings drops all findings while keeping recorded errors.
// It is used when a site is excluded after partial analysis.
func (s *AnalyzedSite) ResetFindings() {
	errs := s.Errors
	fresh := NewAnalyzedSite(SourcePage{URL: s.URL, FetchedAt: s.FetchedAt})
	*s = *fresh
	s.Errors = append(s.Errors, errs...)
}

// Clone returns a deep copy of the site.
func (s AnalyzedSite) Clone() AnalyzedSite {
	out := s
	out.Domains = append([]DomainCount{}, s.Domains...)
	out.Resources = make(map[Category][]ResourceCount, len(s.Resources))
	for c, list := range s.Resources {
		out.Resources[c] = append([]ResourceCount{}, list...)
	}
	out.ClipboardSnippets = make([]ClipboardSnippet, len(s.ClipboardSnippets))
	for i, snip := range s.ClipboardSnippets {
		out.ClipboardSnippets[i] = ClipboardSnippet{
			Text:    snip.Text,
			Tags:    append([]PatternKind{}, snip.Tags...),
			Matches: append([]IdiomMatch{}, snip.Matches...),
		}
	}
	out.Commands = make([]ExtractedCommand, len(s.Commands))
	for i, cmd := range s.Commands {
		out.Commands[i] = cmd.Clone()
	}
	out.Indicators = Indicators{
		URLs:            append([]string{}, s.Indicators.URLs...),
		IPAddresses:     append([]string{}, s.Indicators.IPAddresses...),
		PowerShell:      append([]string{}, s.Indicators.PowerShell...),
		Downloads:       append([]Download{}, s.Indicators.Downloads...),
		Commands:        append([]string{}, s.Indicators.Commands...),
		ClipboardHijack: append([]string{}, s.Indicators.ClipboardHijack...),
		Lures:           append([]string{}, s.Indicators.Lures...),
	}
	out.Errors = append([]SiteError{}, s.Errors...)
	return out
}
