package markup

import (
	"errors"
	"strings"
	"testing"
)

// TestParserParse tests structural extraction.
func TestParserParse(t *testing.T) {
	t.Parallel()

	t.Run("collects references in document order", func(t *testing.T) {
		t.Parallel()

		page := `<html><head>
			<link rel="stylesheet" href="https://fonts.googleapis.com/css?family=Roboto">
			<script src="https://cdnjs.cloudflare.com/ajax/libs/jquery/3.6.0/jquery.min.js"></script>
		</head><body>
			<img src="https://www.gstatic.com/recaptcha/api2/logo_48.png">
			<a href="/relative/path">relative</a>
			<a href="https://evil.example/verify.hta">verify</a>
			<iframe src="//frames.example/f.html"></iframe>
		</body></html>`

		doc, err := NewParser().Parse(page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := []Reference{
			{URL: "https://fonts.googleapis.com/css?family=Roboto", Host: "fonts.googleapis.com", Kind: KindStylesheet},
			{URL: "https://cdnjs.cloudflare.com/ajax/libs/jquery/3.6.0/jquery.min.js", Host: "cdnjs.cloudflare.com", Kind: KindScript},
			{URL: "https://www.gstatic.com/recaptcha/api2/logo_48.png", Host: "www.gstatic.com", Kind: KindImage},
			{URL: "https://evil.example/verify.hta", Host: "evil.example", Kind: KindAnchor},
			{URL: "//frames.example/f.html", Host: "frames.example", Kind: KindFrame},
		}
		if len(doc.References) != len(expected) {
			t.Fatalf("expected %d references, got %d: %+v", len(expected), len(doc.References), doc.References)
		}
		for i := range expected {
			if doc.References[i] != expected[i] {
				t.Errorf("reference %d: got %+v, expected %+v", i, doc.References[i], expected[i])
			}
		}
	})

	t.Run("ignores references inside comments and text", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<!-- <img src="https://hidden.example/a.png"> -->
			<p>see https://text.example/b.png for details</p>
		</body></html>`

		doc, err := NewParser().Parse(page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.References) != 0 {
			t.Errorf("expected no references, got %+v", doc.References)
		}
		if !strings.Contains(doc.Text, "see https://text.example/b.png") {
			t.Errorf("visible text missing: %q", doc.Text)
		}
	})

	t.Run("collects inline scripts and handlers", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<script>const commandToRun = "cmd";</script>
			<button onclick="navigator.clipboard.writeText('x')">Verify</button>
			<a href="javascript:stageClipboard()">go</a>
			<script src="https://a.example/x.js"></script>
		</body></html>`

		doc, err := NewParser().Parse(page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.Scripts) != 3 {
			t.Fatalf("expected 3 scripts, got %d: %+v", len(doc.Scripts), doc.Scripts)
		}
		if doc.Scripts[0].Origin != "inline" || !strings.Contains(doc.Scripts[0].Text, "commandToRun") {
			t.Errorf("unexpected inline script %+v", doc.Scripts[0])
		}
		if doc.Scripts[1].Origin != "onclick" {
			t.Errorf("expected onclick handler, got %+v", doc.Scripts[1])
		}
		if doc.Scripts[2].Text != "stageClipboard()" {
			t.Errorf("unexpected javascript: link script %q", doc.Scripts[2].Text)
		}
		if strings.Contains(doc.Text, "commandToRun") {
			t.Error("script body leaked into visible text")
		}
	})

	t.Run("keeps srcset candidates", func(t *testing.T) {
		t.Parallel()

		page := `<img srcset="https://img.example/a.png 1x, https://img.example/b.png 2x">`
		doc, err := NewParser().Parse(page)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.References) != 2 {
			t.Fatalf("expected 2 references, got %+v", doc.References)
		}
		if doc.References[1].URL != "https://img.example/b.png" {
			t.Errorf("unexpected second candidate %q", doc.References[1].URL)
		}
	})

	t.Run("rejects excessive nesting", func(t *testing.T) {
		t.Parallel()

		page := strings.Repeat("<div>", 20) + `<img src="https://a.example/x.png">`
		_, err := NewParser(WithMaxDepth(5)).Parse(page)
		if !errors.Is(err, ErrTooDeep) {
			t.Errorf("expected ErrTooDeep, got %v", err)
		}
	})
}

// TestScan tests the substring fallback.
func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("finds quoted and bare attributes", func(t *testing.T) {
		t.Parallel()

		raw := `<div><img src='https://a.example/1.png'><script src=https://b.example/2.js></script>` +
			`<a HREF = "https://c.example/">c</a><a href="/local">l</a>`

		doc := Scan(raw)
		if len(doc.References) != 3 {
			t.Fatalf("expected 3 references, got %+v", doc.References)
		}
		hosts := []string{"a.example", "b.example", "c.example"}
		for i, h := range hosts {
			if doc.References[i].Host != h {
				t.Errorf("reference %d host = %q, expected %q", i, doc.References[i].Host, h)
			}
			if doc.References[i].Kind != KindUnknown {
				t.Errorf("reference %d kind = %q", i, doc.References[i].Kind)
			}
		}
	})

	t.Run("returns script blocks", func(t *testing.T) {
		t.Parallel()

		doc := Scan(`<p>hi</p><script type="text/javascript">var a = 1;</script>`)
		if len(doc.Scripts) != 1 || doc.Scripts[0].Text != "var a = 1;" {
			t.Errorf("unexpected scripts %+v", doc.Scripts)
		}
		if doc.Text != "hi" {
			t.Errorf("unexpected text %q", doc.Text)
		}
	})

	t.Run("falls back to the whole input", func(t *testing.T) {
		t.Parallel()

		raw := `document.execCommand("copy")`
		doc := Scan(raw)
		if len(doc.Scripts) != 1 || doc.Scripts[0].Origin != "raw" || doc.Scripts[0].Text != raw {
			t.Errorf("unexpected scripts %+v", doc.Scripts)
		}
	})
}

// TestExternalHost tests absolute URL detection.
func TestExternalHost(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		raw      string
		host     string
		external bool
	}{
		{"https://Example.COM/a.png", "Example.COM", true},
		{"http://a.example:8080/x", "a.example", true},
		{"//cdn.example/lib.js", "cdn.example", true},
		{"/local/path", "", false},
		{"data:image/png;base64,AAAA", "", false},
		{"mailto:a@b.example", "", false},
		{"https://", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			host, ok := ExternalHost(tc.raw)
			if ok != tc.external || host != tc.host {
				t.Errorf("ExternalHost(%q) = (%q, %v), expected (%q, %v)", tc.raw, host, ok, tc.host, tc.external)
			}
		})
	}
}
