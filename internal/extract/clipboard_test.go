package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/nao1215/clickgrab/internal/model"
)

// TestClipboardIdiomCounting tests per-idiom hit counts.
func TestClipboardIdiomCounting(t *testing.T) {
	t.Parallel()

	script := `
function copyIt(text) {
  const ta = document.createElement('textarea');
  ta.value = text;
  document.body.appendChild(ta);
  document.execCommand("copy");
  document.body.removeChild(ta);
}
` + strings.Repeat("// padding\n", 20) + `
navigator.clipboard.writeText(payload);
`
	snippets := NewClipboardPatternDetector().Detect(script)
	counts := CountIdioms(snippets)

	if counts[model.PatternClipboardCopy] != 2 {
		t.Errorf("expected 2 copy hits, got %d", counts[model.PatternClipboardCopy])
	}
	if counts[model.PatternTemporaryElement] != 1 {
		t.Errorf("expected 1 temporary element hit, got %d", counts[model.PatternTemporaryElement])
	}
	if _, ok := counts[model.PatternSelectionCopy]; ok {
		t.Errorf("unexpected selection hits: %v", counts)
	}
	if len(snippets) != 2 {
		t.Errorf("expected 2 snippets, got %d: %+v", len(snippets), snippets)
	}
}

// TestClipboardCoOccurrence tests that nearby idioms share one snippet.
func TestClipboardCoOccurrence(t *testing.T) {
	t.Parallel()

	script := `var t=document.createElement("input");t.value=c;t.select();document.execCommand('copy');`
	snippets := NewClipboardPatternDetector().Detect(script)

	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	expected := []model.PatternKind{model.PatternClipboardCopy, model.PatternTemporaryElement, model.PatternSelectionCopy}
	if len(snippets[0].Tags) != len(expected) {
		t.Fatalf("expected tags %v, got %v", expected, snippets[0].Tags)
	}
	for i := range expected {
		if snippets[0].Tags[i] != expected[i] {
			t.Errorf("tag %d: got %q, expected %q", i, snippets[0].Tags[i], expected[i])
		}
	}
	if len(snippets[0].Matches) != 3 {
		t.Errorf("expected 3 matches, got %d", len(snippets[0].Matches))
	}
	if snippets[0].Text != script {
		t.Errorf("expected whole short script as context, got %q", snippets[0].Text)
	}
}

// TestClipboardSyntacticVariation tests quoting and whitespace tolerance.
func TestClipboardSyntacticVariation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		script string
		kind   model.PatternKind
	}{
		{"double quotes", `document.execCommand("copy")`, model.PatternClipboardCopy},
		{"single quotes", `document.execCommand('copy')`, model.PatternClipboardCopy},
		{"backticks", "document.execCommand(`copy`)", model.PatternClipboardCopy},
		{"spaces around dots", `navigator . clipboard . writeText ( x )`, model.PatternClipboardCopy},
		{"clipboard event data", `e.clipboardData.setData('text/plain', cmd)`, model.PatternClipboardCopy},
		{"textarea with spaces", `document.createElement( "textarea" )`, model.PatternTemporaryElement},
		{"selection api", `window.getSelection().removeAllRanges()`, model.PatternSelectionCopy},
		{"range", `const r = document.createRange(); r.selectNodeContents(el)`, model.PatternSelectionCopy},
	}

	detector := NewClipboardPatternDetector()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			snippets := detector.Detect(tc.script)
			if len(snippets) == 0 || !snippets[0].HasTag(tc.kind) {
				t.Errorf("expected %q in %q, got %+v", tc.kind, tc.script, snippets)
			}
		})
	}
}

// TestClipboardZeroMatches tests that clean scripts produce nothing and no error.
func TestClipboardZeroMatches(t *testing.T) {
	t.Parallel()

	in := inputFromHTML(t, `<script>console.log("hello");</script>`)
	site := model.NewAnalyzedSite(in.Page)

	if err := NewClipboardPatternDetector().Extract(context.Background(), in, site); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(site.ClipboardSnippets) != 0 || len(site.Errors) != 0 {
		t.Errorf("expected nothing, got snippets=%v errors=%v", site.ClipboardSnippets, site.Errors)
	}
}

// TestClipboardContextWindow tests the fixed radius around a match.
func TestClipboardContextWindow(t *testing.T) {
	t.Parallel()

	script := strings.Repeat("a", 100) + "document.execCommand('copy')" + strings.Repeat("b", 100)
	snippets := NewClipboardPatternDetector(WithContextRadius(10)).Detect(script)

	if len(snippets) != 1 {
		t.Fatalf("expected 1 snippet, got %d", len(snippets))
	}
	expected := strings.Repeat("a", 10) + "document.execCommand('copy')" + strings.Repeat("b", 10)
	if snippets[0].Text != expected {
		t.Errorf("got %q, expected %q", snippets[0].Text, expected)
	}
	if snippets[0].Matches[0].Offset != 100 {
		t.Errorf("expected offset 100, got %d", snippets[0].Matches[0].Offset)
	}
}

// TestClipboardCancelled tests context cancellation between scripts.
func TestClipboardCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := inputFromHTML(t, `<script>document.execCommand('copy')</script>`)
	err := NewClipboardPatternDetector().Extract(ctx, in, model.NewAnalyzedSite(in.Page))
	if err == nil {
		t.Error("expected cancellation error")
	}
}
