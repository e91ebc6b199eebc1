package markup

import (
	"net/url"
	"strings"
)

// Element kinds reported on references.
const (
	KindImage      = "image"
	KindScript     = "script"
	KindStylesheet = "stylesheet"
	KindLink       = "link"
	KindAnchor     = "anchor"
	KindFrame      = "frame"
	KindUnknown    = "unknown"
)

// Reference is one external resource reference found in the markup.
// URL is the attribute value exactly as written, minus surrounding whitespace.
type Reference struct {
	URL  string
	Host string
	Kind string
}

// Script is one piece of executable script text.
// Origin is "inline" for <script> bodies, the attribute name for event
// handlers, "href" for javascript: links and "raw" for fallback scans.
type Script struct {
	Text   string
	Origin string
}

// Document is the extraction-relevant content of one page.
type Document struct {
	References []Reference
	Scripts    []Script
	// Text is the visible text of the page (scripts and styles excluded).
	Text string
}

// ExternalHost reports whether raw is an absolute http(s) or protocol-relative
// URL and returns its host. The host is taken verbatim, without case folding.
func ExternalHost(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	candidate := raw
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
	case strings.HasPrefix(raw, "//"):
		candidate = "https:" + raw
	default:
		return "", false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" {
		return "", false
	}
	return host, true
}

func newReference(raw, kind string) (Reference, bool) {
	raw = strings.TrimSpace(raw)
	host, ok := ExternalHost(raw)
	if !ok {
		return Reference{}, false
	}
	return Reference{URL: raw, Host: host, Kind: kind}, true
}

// srcsetURLs returns the URL part of each srcset candidate.
func srcsetURLs(srcset string) []string {
	var out []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(candidate)
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}
