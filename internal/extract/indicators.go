package extract

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/nao1215/clickgrab/internal/model"
)

// maxIndicatorLen bounds one PowerShell or download match.
const maxIndicatorLen = 200

var (
	urlRegex = regexp.MustCompile(`https?://[^\s"'<>()\\]+`)
	ipRegex  = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)

	powerShellRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpowershell(?:\.exe)?\s+(?:-\w+\s+)*[^"'<>\n]{1,200}`),
		regexp.MustCompile(`(?i)\biex\s*\([^)\n]{1,200}\)`),
		regexp.MustCompile(`(?i)\binvoke-expression\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\binvoke-webrequest\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\bnew-object\s+net\.webclient\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\bmshta(?:\.exe)?\s+[^"'<>\n]{1,200}`),
	}

	// downloadRegexes capture the payload URL in group 1.
	downloadRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\biwr\s+['"]?(https?://[^'")\s]+)['"]?\s*\|\s*iex`),
		regexp.MustCompile(`(?i)invoke-webrequest\s+['"]?(https?://[^'")\s]+)['"]?\s*\|\s*invoke-expression`),
		regexp.MustCompile(`(?i)\b(?:curl|wget)\s+['"]?(https?://[^'")\s]+)['"]?\s*\|\s*iex`),
		regexp.MustCompile(`(?i)\(new-object\s+net\.webclient\)\.downloadstring\(\s*['"]?(https?://[^'")\s]+)['"]?\s*\)`),
		regexp.MustCompile(`(?i)(https?://[^'"()\s<>]+\.(?:ps1|hta))\b`),
	}

	// commandRegexes match living-off-the-land command lines.
	commandRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcmd(?:\.exe)?\s+/[ck]\s+[^"'<>\n]{1,200}`),
		regexp.MustCompile(`(?i)\bcertutil(?:\.exe)?\s+-urlcache\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\bbitsadmin(?:\.exe)?\s+/transfer\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\bwmic(?:\.exe)?\s+process\b[^"'<>\n]{0,200}`),
		regexp.MustCompile(`(?i)\bnet\s+(?:use|user|group|localgroup)\s+[^"'<>\n]{1,200}`),
		regexp.MustCompile(`\b(?i:curl)\s+[^"'<>|\n]{0,200}?\s-o\s+[^\s"'<>]+`),
		regexp.MustCompile(`\b(?i:wget)\s+[^"'<>|\n]{0,200}?\s-O\s+[^\s"'<>]+`),
		regexp.MustCompile(`(?i)\b(?:ba)?sh\s+-c\s+[^"'<>\n]{1,200}`),
	}

	// clipboardHijackRegexes match copy/cut/paste event handlers.
	clipboardHijackRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)addEventListener\s*\(\s*['"](?:copy|cut|paste)['"]`),
		regexp.MustCompile(`(?i)\bon(?:copy|cut|paste)\s*=`),
		regexp.MustCompile(`(?i)preventDefault\s*\(\s*\)[^\n]{0,100}?\b(?:copy|cut|paste)\b`),
	}

	// lureRegexes match the social-engineering text shown to victims.
	lureRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)I am not a robot`),
		regexp.MustCompile(`(?i)I am human`),
		regexp.MustCompile(`(?i)\bRay ID\b`),
		regexp.MustCompile(`(?i)Verification ID:?\s*\d*`),
		regexp.MustCompile(`(?i)Verification Hash`),
		regexp.MustCompile(`(?i)reCAPTCHA Verification`),
		regexp.MustCompile(`(?i)Human verification complete`),
		regexp.MustCompile(`(?i)Press\s+(?:Win(?:dows)?\s*\+\s*R|Ctrl\s*\+\s*[CV])`),
		regexp.MustCompile(`(?i)Copy and paste this code`),
		regexp.MustCompile(`(?i)Paste in (?:command prompt|PowerShell)`),
		regexp.MustCompile(`(?i)Copy this command to proceed`),
		regexp.MustCompile(`(?i)Type the following command`),
		regexp.MustCompile(`(?i)To (?:verify you(?:'|’)?re human|confirm you are not a bot)`),
		regexp.MustCompile(`(?i)Complete verification by typing`),
		regexp.MustCompile(`(?i)Security verification required`),
		regexp.MustCompile(`(?i)Cloud ID(?:entifier)?:?\s*\d+`),
		regexp.MustCompile(`(?i)Start\s*->?\s*Run`),
		regexp.MustCompile(`(?i)Keyboard\s+verification\s+step`),
		regexp.MustCompile(`(?i)\b(?:JS|JI|SW|EXEC|PROC):\d+`),
		regexp.MustCompile(`(?i)\bTOKEN:\s*[A-Za-z0-9]{6,}`),
		regexp.MustCompile(`(?i)Session\s+ID:\s*\d+`),
	}
)

// IndicatorScanner collects loose IOCs from the raw page text: URLs, IPv4
// addresses, PowerShell and other shell command lines, download cradles,
// clipboard event handlers and lure phrases.
type IndicatorScanner struct {
	readable bool
}

// IndicatorOption configures an IndicatorScanner.
type IndicatorOption func(*IndicatorScanner)

// WithReadability toggles readability-based visible text extraction for
// lure matching. When disabled, the parser's visible text is used.
func WithReadability(enabled bool) IndicatorOption {
	return func(s *IndicatorScanner) {
		s.readable = enabled
	}
}

// NewIndicatorScanner creates an IndicatorScanner.
func NewIndicatorScanner(opts ...IndicatorOption) *IndicatorScanner {
	s := &IndicatorScanner{readable: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Stage.
func (s *IndicatorScanner) Name() string {
	return "indicators"
}

// Extract implements Stage.
func (s *IndicatorScanner) Extract(ctx context.Context, in *Input, site *model.AnalyzedSite) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	raw := in.Page.RawText

	site.Indicators.URLs = uniqueMatches(urlRegex, raw)
	site.Indicators.IPAddresses = uniqueMatches(ipRegex, raw)
	site.Indicators.PowerShell = matchAll(powerShellRegexes, raw)
	site.Indicators.Downloads = downloads(raw)
	site.Indicators.Commands = matchAll(commandRegexes, raw)
	site.Indicators.ClipboardHijack = matchAll(clipboardHijackRegexes, raw)

	if err := checkContext(ctx); err != nil {
		return err
	}
	site.Indicators.Lures = matchAll(lureRegexes, s.visibleText(in))
	return nil
}

// visibleText returns the text a victim sees on the page.
func (s *IndicatorScanner) visibleText(in *Input) string {
	if s.readable && !in.Degraded {
		pageURL, err := url.Parse(in.Page.URL)
		if err != nil {
			pageURL = &url.URL{}
		}
		article, err := readability.FromReader(strings.NewReader(in.Page.RawText), pageURL)
		if err == nil && strings.TrimSpace(article.TextContent) != "" {
			return collapseSpace(article.TextContent) + " " + in.Doc.Text
		}
	}
	if in.Doc.Text != "" {
		return in.Doc.Text
	}
	return in.Page.RawText
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	return matchAll([]*regexp.Regexp{re}, text)
}

// matchAll returns every match of every regex, trimmed and de-duplicated in
// first-seen order.
func matchAll(regexes []*regexp.Regexp, text string) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, re := range regexes {
		for _, m := range re.FindAllString(text, -1) {
			m = truncate(strings.TrimSpace(m), maxIndicatorLen)
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

func downloads(text string) []model.Download {
	out := make([]model.Download, 0)
	seen := make(map[string]bool)
	for _, re := range downloadRegexes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			match := truncate(m[0], maxIndicatorLen)
			if seen[match] {
				continue
			}
			seen[match] = true
			out = append(out, model.Download{URL: m[1], Match: match})
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
