package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxDepth bounds element nesting; deeper documents are treated as unparseable.
const DefaultMaxDepth = 512

// Parser extracts references and scripts from HTML.
// It walks the tree built by golang.org/x/net/html and collects every
// resource reference, every inline or event-handler script and the page's
// visible text in one pass.
//
// Design decision: We parse with a real HTML tokenizer and keep Scan as a
// substring fallback because:
//   - Lure pages are often malformed, and the tokenizer recovers the same way
//     browsers do
//   - Documents nested past maxDepth are usually built to exhaust parsers, so
//     they are rejected with ErrTooDeep and handed to Scan instead
type Parser struct {
	maxDepth int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the maximum element nesting depth.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses raw markup. It fails only when the document cannot be
// turned into a tree; callers are expected to fall back to Scan.
func (p *Parser) Parse(raw string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc := &Document{
		References: make([]Reference, 0),
		Scripts:    make([]Script, 0),
	}
	var text strings.Builder

	var walk func(n *html.Node, depth int) error
	walk = func(n *html.Node, depth int) error {
		if depth > p.maxDepth {
			return ErrTooDeep
		}
		switch n.Type {
		case html.ElementNode:
			p.processElement(n, doc)
		case html.TextNode:
			if visible(n) {
				text.WriteString(n.Data)
				text.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, err
	}
	doc.Text = strings.Join(strings.Fields(text.String()), " ")
	return doc, nil
}

// processElement collects references, inline scripts and event handlers of one element.
func (p *Parser) processElement(n *html.Node, doc *Document) {
	add := func(raw, kind string) {
		if ref, ok := newReference(raw, kind); ok {
			doc.References = append(doc.References, ref)
		}
	}

	switch n.Data {
	case "img", "source":
		add(getAttr(n, "src"), KindImage)
		add(getAttr(n, "data-src"), KindImage)
		for _, u := range srcsetURLs(getAttr(n, "srcset")) {
			add(u, KindImage)
		}

	case "script":
		if src := getAttr(n, "src"); src != "" {
			add(src, KindScript)
		} else if body := nodeText(n); strings.TrimSpace(body) != "" {
			doc.Scripts = append(doc.Scripts, Script{Text: body, Origin: "inline"})
		}

	case "link":
		kind := KindLink
		if strings.Contains(strings.ToLower(getAttr(n, "rel")), "stylesheet") {
			kind = KindStylesheet
		}
		add(getAttr(n, "href"), kind)

	case "a":
		href := strings.TrimSpace(getAttr(n, "href"))
		if strings.HasPrefix(strings.ToLower(href), "javascript:") {
			doc.Scripts = append(doc.Scripts, Script{Text: href[len("javascript:"):], Origin: "href"})
		} else {
			add(href, KindAnchor)
		}

	case "iframe", "frame", "embed":
		add(getAttr(n, "src"), KindFrame)
	}

	for _, attr := range n.Attr {
		if strings.HasPrefix(strings.ToLower(attr.Key), "on") && strings.TrimSpace(attr.Val) != "" {
			doc.Scripts = append(doc.Scripts, Script{Text: attr.Val, Origin: attr.Key})
		}
	}
}

// nodeText concatenates the text children of n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// visible reports whether a text node is rendered page text.
func visible(n *html.Node) bool {
	if n.Parent == nil || n.Parent.Type != html.ElementNode {
		return true
	}
	switch n.Parent.Data {
	case "script", "style", "noscript", "template":
		return false
	default:
		return true
	}
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
