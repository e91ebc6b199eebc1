package extract

import (
	"context"
	"sort"
	"strings"

	"github.com/nao1215/clickgrab/internal/model"
)

const (
	// DefaultCommandVariable is the variable ClickFix kits assemble the pasted command in.
	DefaultCommandVariable = "commandToRun"

	// DefaultPathVariable is the variable holding the staging path and its flags.
	DefaultPathVariable = "htaPath"
)

// stagingCall is a call expression that receives the command variable.
type stagingCall struct {
	callee     string
	start, end int
}

// CommandExtractor reconstructs the command a page stages onto the clipboard.
// It evaluates string concatenation over the page's scripts, takes the last
// declaration of the command variable, and confirms it by finding the call
// that receives the variable.
//
// Design decision: We interpret assignments over a token stream rather than
// matching regular expressions on the source because:
//   - Commands are usually split across literals, variables and template
//     literals that only line up after evaluation
//   - Parts that cannot be evaluated become placeholders, so a partial
//     command is still reported instead of being dropped
//
// Scoping is ignored. Every textual declaration is visited, including ones
// nested in callbacks.
type CommandExtractor struct {
	commandVar string
	pathVar    string
	radius     int
}

// CommandOption configures a CommandExtractor.
type CommandOption func(*CommandExtractor)

// WithCommandVariable sets the name of the assembled-command variable.
func WithCommandVariable(name string) CommandOption {
	return func(e *CommandExtractor) {
		if identRegex.MatchString(name) {
			e.commandVar = name
		}
	}
}

// WithPathVariable sets the name of the staging-path variable.
func WithPathVariable(name string) CommandOption {
	return func(e *CommandExtractor) {
		if identRegex.MatchString(name) {
			e.pathVar = name
		}
	}
}

// WithCommandContextRadius sets the context radius around the staging call.
func WithCommandContextRadius(radius int) CommandOption {
	return func(e *CommandExtractor) {
		if radius >= 0 {
			e.radius = radius
		}
	}
}

// NewCommandExtractor creates a CommandExtractor using the default variable names.
func NewCommandExtractor(opts ...CommandOption) *CommandExtractor {
	e := &CommandExtractor{
		commandVar: DefaultCommandVariable,
		pathVar:    DefaultPathVariable,
		radius:     ContextRadius,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Stage.
func (e *CommandExtractor) Name() string {
	return "commands"
}

// Extract implements Stage. All scripts of the page are treated as one
// snippet, matching the shared global scope of inline scripts.
func (e *CommandExtractor) Extract(ctx context.Context, in *Input, site *model.AnalyzedSite) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	cmd, missing := e.ExtractFrom(in.ScriptText())
	if cmd == nil {
		return nil
	}
	site.Commands = append(site.Commands, *cmd)
	if !cmd.FullyResolved {
		site.AddError(model.ErrorKindUnresolvedReference,
			"staged command depends on unresolved values: "+strings.Join(missing, ", "))
	}
	return nil
}

// ExtractFrom reconstructs the staged command of one snippet. It returns nil
// when the command variable is never declared or never passed to a call.
// The second result names the expressions that could not be resolved.
func (e *CommandExtractor) ExtractFrom(snippet string) (*model.ExtractedCommand, []string) {
	toks := lex(snippet)
	interp := newInterpreter(snippet, toks)
	assignments := interp.run()

	var commands, paths []assignment
	for _, a := range assignments {
		switch a.name {
		case e.commandVar:
			commands = append(commands, a)
		case e.pathVar:
			paths = append(paths, a)
		}
	}
	if len(commands) == 0 {
		return nil, nil
	}

	calls := findStagingCalls(snippet, toks, e.commandVar)
	if len(calls) == 0 {
		return nil, nil
	}

	// The last textual declaration wins; earlier ones are kept for audit.
	canonical := commands[len(commands)-1]
	call := calls[0]
	for _, c := range calls {
		if c.start > canonical.end {
			call = c
			break
		}
	}

	cmd := &model.ExtractedCommand{
		RawText:       canonical.val.text,
		Parameters:    []string{},
		ContextWindow: contextWindow(snippet, call.start, call.end, e.radius),
		FullyResolved: canonical.val.resolved,
		StagingCall:   call.callee,
		Patterns:      []model.PatternKind{model.PatternCommandDeclaration},
	}
	for _, a := range commands[:len(commands)-1] {
		cmd.Alternatives = append(cmd.Alternatives, a.val.text)
	}

	missing := append([]string{}, canonical.val.missing...)
	decoded := append([]string{}, canonical.val.decoded...)
	if len(paths) > 0 {
		path := paths[len(paths)-1]
		decoded = append(decoded, path.val.decoded...)
		cmd.PathValue = path.val.text
		cmd.Parameters = SplitParameters(path.val.text)
		cmd.FullyResolved = cmd.FullyResolved && path.val.resolved
		cmd.Patterns = append(cmd.Patterns, model.PatternPathDeclaration)
		missing = append(missing, path.val.missing...)
	}
	cmd.Patterns = append(cmd.Patterns, model.PatternStagingCall)

	cmd.DecodedPayload = firstPayload(decoded, cmd.RawText, cmd.PathValue)
	return cmd, uniqueSorted(missing)
}

// firstPayload returns the first plausible decoded payload. decoded holds the
// atob results that flowed into the command or path value; after them come
// base64 runs in the command, then in the path value.
func firstPayload(decoded []string, texts ...string) string {
	for _, d := range decoded {
		if s, ok := plausibleText([]byte(d)); ok {
			return s
		}
	}
	for _, t := range texts {
		if runs := DecodeBase64Runs(t); len(runs) > 0 {
			return runs[0].Text
		}
	}
	return ""
}

// callKeywords precede a parenthesis without being a call.
var callKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "with": true,
}

// findStagingCalls returns the calls, in textual order, whose arguments
// mention name, either bare or inside a template literal substitution.
// Function declarations and method definitions that merely take name as a
// parameter are skipped. When calls nest, only the innermost one that
// mentions name is kept.
func findStagingCalls(src string, toks []token, name string) []stagingCall {
	var calls []stagingCall
	for i := 0; i < len(toks); i++ {
		if toks[i].kind != tokIdent || callKeywords[toks[i].text] {
			continue
		}
		if i > 0 && (toks[i-1].is(tokPunct, ".") || toks[i-1].is(tokPunct, "?.")) {
			continue
		}

		j := i + 1
		for j+1 < len(toks) && (toks[j].is(tokPunct, ".") || toks[j].is(tokPunct, "?.")) && toks[j+1].kind == tokIdent {
			j += 2
		}
		if j >= len(toks) || !toks[j].is(tokPunct, "(") {
			continue
		}
		if i > 0 && toks[i-1].is(tokIdent, "function") {
			continue
		}
		closeIdx := matchingToken(toks, j)
		if closeIdx+1 < len(toks) && toks[closeIdx+1].is(tokPunct, "{") {
			continue
		}

		for k := j + 1; k < closeIdx; k++ {
			if !mentions(toks, k, name) {
				continue
			}
			calls = append(calls, stagingCall{
				callee: src[toks[i].start:toks[j-1].end],
				start:  toks[i].start,
				end:    toks[closeIdx].end,
			})
			break
		}
	}
	return innermost(calls)
}

// mentions reports whether toks[k] reads the variable name.
func mentions(toks []token, k int, name string) bool {
	t := toks[k]
	switch t.kind {
	case tokIdent:
		if t.text != name {
			return false
		}
		if toks[k-1].is(tokPunct, ".") || toks[k-1].is(tokPunct, "?.") {
			return false
		}
		// A declaration of name is not a read.
		return k+1 >= len(toks) || !toks[k+1].is(tokPunct, "=")
	case tokTemplate:
		for _, p := range t.parts {
			if p.isExpr && p.text == name {
				return true
			}
		}
	}
	return false
}

// innermost drops every call whose span encloses another call.
func innermost(calls []stagingCall) []stagingCall {
	out := make([]stagingCall, 0, len(calls))
	for i, c := range calls {
		enclosing := false
		for j, d := range calls {
			if i != j && d.start >= c.start && d.end <= c.end && (d.start > c.start || d.end < c.end) {
				enclosing = true
				break
			}
		}
		if !enclosing {
			out = append(out, c)
		}
	}
	return out
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
