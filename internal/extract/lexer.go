package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokTemplate
	tokNumber
	tokRegex
	tokPunct
)

// templatePart is either literal text or the source of a ${...} expression.
type templatePart struct {
	text   string
	isExpr bool
}

// token is a lexical token of script text. For strings, text holds the
// decoded value; for everything else it holds the source text.
type token struct {
	kind       tokenKind
	text       string
	parts      []templatePart
	start, end int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// multiPunct lists operators lexed as one token, longest first.
var multiPunct = []string{"===", "!==", "**=", "...", "==", "!=", "=>", "+=", "-=", "*=", "/=", "++", "--", "&&", "||", "??", "?.", "<=", ">="}

// lex splits JavaScript-like source into tokens. It is forgiving: malformed
// input never fails, it just produces less useful tokens.
func lex(src string) []token {
	toks := make([]token, 0, len(src)/4)
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++

		case strings.HasPrefix(src[i:], "//") || strings.HasPrefix(src[i:], "<!--"):
			for i < len(src) && src[i] != '\n' {
				i++
			}

		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 4
			}

		case c == '\'' || c == '"':
			val, next := lexString(src, i)
			toks = append(toks, token{kind: tokString, text: val, start: i, end: next})
			i = next

		case c == '`':
			parts, next := lexTemplate(src, i)
			toks = append(toks, token{kind: tokTemplate, parts: parts, start: i, end: next})
			i = next

		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], start: i, end: j})
			i = j

		case c >= '0' && c <= '9':
			j := i + 1
			for j < len(src) && (isIdentPart(src[j]) || src[j] == '.') {
				j++
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], start: i, end: j})
			i = j

		case c == '/' && regexAllowed(toks):
			next := lexRegex(src, i)
			toks = append(toks, token{kind: tokRegex, text: src[i:next], start: i, end: next})
			i = next

		default:
			n := 1
			for _, p := range multiPunct {
				if strings.HasPrefix(src[i:], p) {
					n = len(p)
					break
				}
			}
			toks = append(toks, token{kind: tokPunct, text: src[i : i+n], start: i, end: i + n})
			i += n
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// regexAllowed reports whether a '/' at this point starts a regex literal
// rather than a division.
func regexAllowed(toks []token) bool {
	if len(toks) == 0 {
		return true
	}
	prev := toks[len(toks)-1]
	switch prev.kind {
	case tokPunct:
		return prev.text != ")" && prev.text != "]"
	case tokIdent:
		switch prev.text {
		case "return", "typeof", "case", "do", "else", "in", "of", "void", "yield":
			return true
		}
	}
	return false
}

func lexRegex(src string, i int) int {
	inClass := false
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				j++
				for j < len(src) && isIdentPart(src[j]) {
					j++
				}
				return j
			}
		case '\n':
			return j
		}
		j++
	}
	return len(src)
}

// lexString decodes a quoted string starting at src[i]. An unterminated
// string ends at the line break.
func lexString(src string, i int) (string, int) {
	quote := src[i]
	var b strings.Builder
	j := i + 1
	for j < len(src) {
		c := src[j]
		switch {
		case c == quote:
			return b.String(), j + 1
		case c == '\n':
			return b.String(), j
		case c == '\\':
			j = decodeEscape(src, j, &b)
		default:
			b.WriteByte(c)
			j++
		}
	}
	return b.String(), j
}

// lexTemplate splits a template literal into literal and expression parts.
func lexTemplate(src string, i int) ([]templatePart, int) {
	parts := make([]templatePart, 0)
	var b strings.Builder
	j := i + 1
	for j < len(src) {
		c := src[j]
		switch {
		case c == '`':
			if b.Len() > 0 {
				parts = append(parts, templatePart{text: b.String()})
			}
			return parts, j + 1
		case c == '\\':
			j = decodeEscape(src, j, &b)
		case c == '$' && j+1 < len(src) && src[j+1] == '{':
			if b.Len() > 0 {
				parts = append(parts, templatePart{text: b.String()})
				b.Reset()
			}
			end := closeBrace(src, j+2)
			parts = append(parts, templatePart{text: strings.TrimSpace(src[j+2 : end]), isExpr: true})
			j = end + 1
		default:
			b.WriteByte(c)
			j++
		}
	}
	if b.Len() > 0 {
		parts = append(parts, templatePart{text: b.String()})
	}
	return parts, j
}

// closeBrace returns the index of the '}' closing an expression that starts
// at src[i], skipping nested braces and quoted strings.
func closeBrace(src string, i int) int {
	depth := 0
	for j := i; j < len(src); j++ {
		switch c := src[j]; c {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return j
			}
			depth--
		case '\'', '"':
			_, next := lexString(src, j)
			j = next - 1
		case '`':
			_, next := lexTemplate(src, j)
			j = next - 1
		}
	}
	return len(src)
}

// decodeEscape decodes the escape sequence at src[j] (a backslash) into b
// and returns the index after it.
func decodeEscape(src string, j int, b *strings.Builder) int {
	if j+1 >= len(src) {
		return len(src)
	}
	e := src[j+1]
	switch e {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\r':
		if j+2 < len(src) && src[j+2] == '\n' {
			return j + 3
		}
	case '\n':
	case 'x':
		if r, ok := parseHex(src, j+2, 2); ok {
			b.WriteRune(r)
			return j + 4
		}
		b.WriteByte('x')
	case 'u':
		if j+2 < len(src) && src[j+2] == '{' {
			end := strings.IndexByte(src[j+3:], '}')
			if end >= 0 {
				if r, ok := parseHex(src, j+3, end); ok {
					b.WriteRune(r)
					return j + 3 + end + 1
				}
			}
			b.WriteByte('u')
			break
		}
		r, ok := parseHex(src, j+2, 4)
		if !ok {
			b.WriteByte('u')
			break
		}
		next := j + 6
		if utf16.IsSurrogate(r) && strings.HasPrefix(src[next:], `\u`) {
			if r2, ok := parseHex(src, next+2, 4); ok {
				if combined := utf16.DecodeRune(r, r2); combined != utf8.RuneError {
					b.WriteRune(combined)
					return next + 6
				}
			}
		}
		b.WriteRune(r)
		return next
	default:
		b.WriteByte(e)
	}
	return j + 2
}

func parseHex(src string, start, n int) (rune, bool) {
	if n <= 0 || start+n > len(src) {
		return 0, false
	}
	v, err := strconv.ParseUint(src[start:start+n], 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, false
	}
	return rune(v), true
}
