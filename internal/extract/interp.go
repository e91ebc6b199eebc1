package extract

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// maxPlaceholder bounds the source text quoted inside a placeholder.
const maxPlaceholder = 60

var identRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// value is the result of evaluating an expression. When resolved is false,
// text carries placeholder tokens for the parts that could not be evaluated.
// decoded holds the atob results that flowed into text.
type value struct {
	text     string
	resolved bool
	missing  []string
	decoded  []string
}

func literal(s string) value {
	return value{text: s, resolved: true}
}

func (v value) concat(o value) value {
	return value{
		text:     v.text + o.text,
		resolved: v.resolved && o.resolved,
		missing:  append(append([]string{}, v.missing...), o.missing...),
		decoded:  append(append([]string{}, v.decoded...), o.decoded...),
	}
}

// Placeholder formats the token that stands in for an unresolved expression.
func Placeholder(expr string) string {
	expr = truncate(collapseSpace(expr), maxPlaceholder)
	return "<unresolved:" + expr + ">"
}

func unresolved(expr string) value {
	return value{text: Placeholder(expr), missing: []string{collapseSpace(expr)}}
}

// assignment is one evaluated `name = expr` or `name += expr` statement.
type assignment struct {
	name       string
	val        value
	start, end int
}

// interpreter evaluates string concatenation over a token stream. It knows
// literals, template literals, previously assigned variables, parentheses,
// atob, String.fromCharCode and decodeURIComponent/unescape; anything else
// becomes a placeholder. Statements are visited in textual order and scoping
// is ignored.
type interpreter struct {
	src  string
	toks []token
	env  map[string]value
}

func newInterpreter(src string, toks []token) *interpreter {
	return &interpreter{src: src, toks: toks, env: make(map[string]value)}
}

var keywords = map[string]bool{
	"var": true, "let": true, "const": true, "function": true, "return": true,
	"if": true, "else": true, "for": true, "while": true, "do": true, "switch": true,
	"case": true, "break": true, "continue": true, "new": true, "typeof": true,
	"instanceof": true, "in": true, "of": true, "this": true, "null": true,
	"undefined": true, "true": true, "false": true, "class": true, "catch": true,
	"try": true, "finally": true, "throw": true, "await": true, "async": true,
	"yield": true, "void": true, "delete": true, "default": true,
}

// run evaluates every assignment and returns them in textual order.
// Scanning resumes right after the operator, so assignments nested in the
// right-hand side (callback bodies, IIFEs) are visited too.
func (in *interpreter) run() []assignment {
	out := make([]assignment, 0)
	for i := 0; i+1 < len(in.toks); i++ {
		t := in.toks[i]
		if t.kind != tokIdent || keywords[t.text] {
			continue
		}
		op := in.toks[i+1]
		if !op.is(tokPunct, "=") && !op.is(tokPunct, "+=") {
			continue
		}
		if i > 0 && (in.toks[i-1].is(tokPunct, ".") || in.toks[i-1].is(tokPunct, "?.")) {
			continue
		}

		val, next := in.expr(i + 2)
		if next == i+2 {
			continue
		}
		if op.text == "+=" {
			prev, ok := in.env[t.text]
			if !ok {
				prev = unresolved(t.text)
			}
			val = prev.concat(val)
		}
		in.env[t.text] = val
		out = append(out, assignment{name: t.text, val: val, start: t.start, end: in.toks[next-1].end})
		i++
	}
	return out
}

// expr evaluates term ('+' term)* starting at token i.
func (in *interpreter) expr(i int) (value, int) {
	v, next := in.term(i)
	if next == i {
		return v, i
	}
	for next < len(in.toks) && in.toks[next].is(tokPunct, "+") {
		t, after := in.term(next + 1)
		if after == next+1 {
			break
		}
		v = v.concat(t)
		next = after
	}
	return v, next
}

// term evaluates one operand and any member/call/index suffix.
func (in *interpreter) term(i int) (value, int) {
	if i >= len(in.toks) {
		return value{}, i
	}
	t := in.toks[i]

	var v value
	next := i + 1
	switch t.kind {
	case tokString:
		v = literal(t.text)
	case tokNumber:
		v = literal(t.text)
	case tokTemplate:
		v = in.template(t)
	case tokPunct:
		if t.text != "(" {
			return value{}, i
		}
		inner, after := in.expr(i + 1)
		closeIdx := in.matching(i)
		if after != closeIdx || after == i+1 {
			v = unresolved(in.src[t.start:in.toks[closeIdx].end])
		} else {
			v = inner
		}
		next = closeIdx + 1
	case tokIdent:
		return in.identTerm(i)
	default:
		return unresolved(t.text), next
	}

	if next < len(in.toks) && isSuffix(in.toks[next]) {
		end := in.suffixEnd(next)
		return unresolved(in.src[t.start:in.toks[end-1].end]), end
	}
	return v, next
}

// identTerm evaluates a variable, a dotted name or a call.
func (in *interpreter) identTerm(i int) (value, int) {
	t := in.toks[i]
	if keywords[t.text] {
		return unresolved(t.text), i + 1
	}

	// Dotted name: a.b.c
	j := i + 1
	for j+1 < len(in.toks) && (in.toks[j].is(tokPunct, ".") || in.toks[j].is(tokPunct, "?.")) && in.toks[j+1].kind == tokIdent {
		j += 2
	}
	name := in.src[t.start:in.toks[j-1].end]

	if j < len(in.toks) && in.toks[j].is(tokPunct, "(") {
		closeIdx := in.matching(j)
		end := closeIdx + 1
		if v, ok := in.builtin(name, j); ok && (end >= len(in.toks) || !isSuffix(in.toks[end])) {
			return v, end
		}
		if end < len(in.toks) && isSuffix(in.toks[end]) {
			end = in.suffixEnd(end)
		}
		return unresolved(in.src[t.start:in.toks[end-1].end]), end
	}

	if j < len(in.toks) && in.toks[j].is(tokPunct, "[") {
		end := in.suffixEnd(j)
		return unresolved(in.src[t.start:in.toks[end-1].end]), end
	}

	if j == i+1 {
		if v, ok := in.env[t.text]; ok {
			return v, j
		}
	}
	return unresolved(name), j
}

// builtin evaluates the few pure functions attackers use to hide literals.
func (in *interpreter) builtin(name string, open int) (value, bool) {
	args := in.args(open)
	switch name {
	case "atob", "window.atob":
		if len(args) != 1 || !args[0].resolved {
			return value{}, false
		}
		raw, err := base64.StdEncoding.DecodeString(args[0].text)
		if err != nil {
			if raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(args[0].text, "=")); err != nil {
				return value{}, false
			}
		}
		v := literal(string(raw))
		v.decoded = append(append([]string{}, args[0].decoded...), string(raw))
		return v, true

	case "String.fromCharCode":
		var b strings.Builder
		for _, a := range args {
			n, err := strconv.ParseInt(a.text, 0, 32)
			if !a.resolved || err != nil {
				return value{}, false
			}
			b.WriteRune(rune(n))
		}
		return literal(b.String()), true

	case "decodeURIComponent", "unescape":
		if len(args) != 1 || !args[0].resolved {
			return value{}, false
		}
		s, err := url.PathUnescape(args[0].text)
		if err != nil {
			return value{}, false
		}
		return literal(s), true
	}
	return value{}, false
}

// args evaluates the comma-separated arguments of the call opened at toks[open].
func (in *interpreter) args(open int) []value {
	closeIdx := in.matching(open)
	out := make([]value, 0)
	i := open + 1
	for i < closeIdx {
		v, next := in.expr(i)
		if next == i || next > closeIdx || (next < closeIdx && !in.toks[next].is(tokPunct, ",")) {
			return []value{unresolved("")}
		}
		out = append(out, v)
		i = next + 1
	}
	return out
}

func (in *interpreter) template(t token) value {
	v := literal("")
	for _, p := range t.parts {
		switch {
		case !p.isExpr:
			v = v.concat(literal(p.text))
		case identRegex.MatchString(p.text):
			if known, ok := in.env[p.text]; ok {
				v = v.concat(known)
			} else {
				v = v.concat(unresolved(p.text))
			}
		default:
			v = v.concat(unresolved(p.text))
		}
	}
	return v
}

func isSuffix(t token) bool {
	return t.is(tokPunct, ".") || t.is(tokPunct, "?.") || t.is(tokPunct, "[") || t.is(tokPunct, "(")
}

// suffixEnd skips a chain of .name, [..] and (..) suffixes starting at i.
func (in *interpreter) suffixEnd(i int) int {
	for i < len(in.toks) {
		t := in.toks[i]
		switch {
		case t.is(tokPunct, ".") || t.is(tokPunct, "?."):
			i++
			if i < len(in.toks) && in.toks[i].kind == tokIdent {
				i++
			}
		case t.is(tokPunct, "[") || t.is(tokPunct, "("):
			i = in.matching(i) + 1
		default:
			return i
		}
	}
	return i
}

// matching returns the index of the bracket closing toks[open], or the last
// token when it is never closed.
func (in *interpreter) matching(open int) int {
	return matchingToken(in.toks, open)
}

func matchingToken(toks []token, open int) int {
	pairs := map[string]string{"(": ")", "[": "]", "{": "}"}
	opener := toks[open].text
	closer := pairs[opener]
	depth := 0
	for i := open; i < len(toks); i++ {
		if toks[i].kind != tokPunct {
			continue
		}
		switch toks[i].text {
		case opener:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(toks) - 1
}
