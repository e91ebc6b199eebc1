package aggregate

import (
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/cases"

	"github.com/nao1215/clickgrab/internal/model"
)

const (
	clipboardPrefix = "clip:"
	commandPrefix   = "cmd:"

	// fingerprintBytes is how much of the SHA3-256 digest is kept.
	fingerprintBytes = 16
)

var (
	shapePlaceholder = regexp.MustCompile(`<unresolved:[^>]*>`)
	shapeURL         = regexp.MustCompile(`(?i)\b(?:https?|ftp)://[^\s'"]+`)
	shapeIP          = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	shapeBase64      = regexp.MustCompile(`[A-Za-z0-9+/]{17,}={0,2}`)
	shapeNumber      = regexp.MustCompile(`\b\d+\b`)
)

// Fingerprint hashes a pattern shape into a stable hex identifier.
func Fingerprint(shape string) string {
	sum := sha3.Sum256([]byte(shape))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// ClipboardShape is the structural shape of a snippet: its sorted idiom tag set.
func ClipboardShape(snippet model.ClipboardSnippet) string {
	tags := make([]string, 0, len(snippet.Tags))
	for _, t := range snippet.Tags {
		tags = append(tags, t.String())
	}
	sort.Strings(tags)
	return clipboardPrefix + strings.Join(tags, "+")
}

// CommandShape is the structural shape of a command. Volatile parts such as
// URLs, addresses, encoded blobs and numbers are replaced by class tokens and
// the result is case folded, so a kit that only rotates its payload host
// keeps the same shape.
func CommandShape(cmd model.ExtractedCommand) string {
	s := cmd.RawText
	s = shapePlaceholder.ReplaceAllString(s, "<dyn>")
	s = shapeURL.ReplaceAllString(s, "<url>")
	s = shapeIP.ReplaceAllString(s, "<ip>")
	s = shapeBase64.ReplaceAllString(s, "<b64>")
	s = shapeNumber.ReplaceAllString(s, "<n>")
	s = cases.Fold().String(s)
	return commandPrefix + strings.Join(strings.Fields(s), " ")
}

// SiteFingerprints returns the fingerprints of every snippet and command of site.
func SiteFingerprints(site *model.AnalyzedSite) []string {
	out := make([]string, 0, len(site.ClipboardSnippets)+len(site.Commands))
	for _, snip := range site.ClipboardSnippets {
		out = append(out, Fingerprint(ClipboardShape(snip)))
	}
	for _, cmd := range site.Commands {
		out = append(out, Fingerprint(CommandShape(cmd)))
	}
	return out
}
