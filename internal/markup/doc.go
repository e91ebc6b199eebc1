// Package markup turns a page's raw markup into the pieces the extractors need:
// external resource references and script snippets, both in document order.
//
// Parser walks the DOM built by golang.org/x/net/html, so references that only
// appear inside comments or plain text are not reported. When the markup cannot
// be parsed, Scan gives a best-effort result from attribute substring matching.
//
//	doc, err := markup.NewParser().Parse(raw)
//	if err != nil {
//		doc = markup.Scan(raw)
//	}
package markup
