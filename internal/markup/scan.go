package markup

import (
	"regexp"
	"strings"
)

var (
	attrRegex   = regexp.MustCompile(`(?i)\b(src|href|data-src|srcset)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
	scriptRegex = regexp.MustCompile(`(?is)<script\b[^>]*>(.*?)</script\s*>`)
	tagRegex    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// Scan extracts references and scripts by substring matching.
// It never fails. References lose their element kind, and when no
// <script> block is found the whole input is returned as one script.
func Scan(raw string) *Document {
	doc := &Document{
		References: make([]Reference, 0),
		Scripts:    make([]Script, 0),
	}

	for _, m := range attrRegex.FindAllStringSubmatch(raw, -1) {
		value := m[2] + m[3] + m[4]
		values := []string{value}
		if strings.EqualFold(m[1], "srcset") {
			values = srcsetURLs(value)
		}
		for _, v := range values {
			if ref, ok := newReference(v, KindUnknown); ok {
				doc.References = append(doc.References, ref)
			}
		}
	}

	for _, m := range scriptRegex.FindAllStringSubmatch(raw, -1) {
		if strings.TrimSpace(m[1]) != "" {
			doc.Scripts = append(doc.Scripts, Script{Text: m[1], Origin: "inline"})
		}
	}
	if len(doc.Scripts) == 0 && strings.TrimSpace(raw) != "" {
		doc.Scripts = append(doc.Scripts, Script{Text: raw, Origin: "raw"})
	}

	stripped := scriptRegex.ReplaceAllString(raw, " ")
	doc.Text = strings.Join(strings.Fields(tagRegex.ReplaceAllString(stripped, " ")), " ")
	return doc
}
