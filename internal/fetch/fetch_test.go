package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/clickgrab/internal/config"
)

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/lure", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>I am not a robot</body></html>")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 100))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ua=%s cookie=%s referer=%s", r.UserAgent(), r.Header.Get("Cookie"), r.Referer())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcherFetchAll(t *testing.T) {
	t.Parallel()

	srv := newPageServer(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFetcher(srv.Client(), WithClock(func() time.Time { return fixed }), WithConcurrency(2))

	urls := []string{srv.URL + "/lure", srv.URL + "/missing", "http://127.0.0.1:1/unreachable"}
	pages, err := f.FetchAll(context.Background(), urls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != len(urls) {
		t.Fatalf("expected %d pages, got %d", len(urls), len(pages))
	}

	t.Run("pages keep input order", func(t *testing.T) {
		t.Parallel()
		for i, u := range urls {
			if pages[i].URL != u {
				t.Errorf("page %d: expected %q, got %q", i, u, pages[i].URL)
			}
		}
	})

	t.Run("successful page has body", func(t *testing.T) {
		t.Parallel()
		if pages[0].FetchError != "" {
			t.Fatalf("unexpected fetch error %q", pages[0].FetchError)
		}
		if !strings.Contains(pages[0].RawText, "I am not a robot") {
			t.Errorf("unexpected body %q", pages[0].RawText)
		}
		if !pages[0].FetchedAt.Equal(fixed) {
			t.Errorf("expected FetchedAt %v, got %v", fixed, pages[0].FetchedAt)
		}
	})

	t.Run("non-2xx becomes fetch error", func(t *testing.T) {
		t.Parallel()
		if !strings.Contains(pages[1].FetchError, ErrUnexpectedStatus.Error()) {
			t.Errorf("expected status error, got %q", pages[1].FetchError)
		}
		if pages[1].RawText != "" {
			t.Error("failed page must have no body")
		}
	})

	t.Run("unreachable host becomes fetch error", func(t *testing.T) {
		t.Parallel()
		if pages[2].FetchError == "" {
			t.Error("expected fetch error for unreachable host")
		}
	})
}

func TestFetcherBodyLimit(t *testing.T) {
	t.Parallel()

	srv := newPageServer(t)
	f := NewFetcher(srv.Client(), WithMaxBodySize(10))

	page := f.Fetch(context.Background(), srv.URL+"/big")
	if page.FetchError != "" {
		t.Fatalf("unexpected fetch error %q", page.FetchError)
	}
	if len(page.RawText) != 10 {
		t.Errorf("expected body truncated to 10 bytes, got %d", len(page.RawText))
	}
}

func TestFetcherCancelledContext(t *testing.T) {
	t.Parallel()

	srv := newPageServer(t)
	f := NewFetcher(srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.FetchAll(ctx, []string{srv.URL + "/lure"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFetcherHostConfig(t *testing.T) {
	t.Parallel()

	srv := newPageServer(t)
	file := &config.File{
		Defaults: config.HostConfig{Headers: map[string]string{"Referer": "https://search.example/"}},
		Hosts: map[string]config.HostConfig{
			"127.0.0.1": {Cookie: "cf_clearance=abc"},
		},
	}
	client := WithHostConfig(srv.Client(), file.HostConfig)
	f := NewFetcher(client, WithUserAgent("test-agent"))

	page := f.Fetch(context.Background(), srv.URL+"/echo")
	if page.FetchError != "" {
		t.Fatalf("unexpected fetch error %q", page.FetchError)
	}
	want := "ua=test-agent cookie=cf_clearance=abc referer=https://search.example/"
	if page.RawText != want {
		t.Errorf("expected %q, got %q", want, page.RawText)
	}
}

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct", func(t *testing.T) {
		t.Parallel()
		c, err := NewHTTPClient(5*time.Second, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Timeout != 5*time.Second {
			t.Errorf("expected timeout 5s, got %v", c.Timeout)
		}
	})

	t.Run("socks5 proxy", func(t *testing.T) {
		t.Parallel()
		c, err := NewHTTPClient(5*time.Second, "127.0.0.1:1080")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, ok := c.Transport.(*http.Transport)
		if !ok || tr.DialContext == nil {
			t.Error("expected a transport with a proxy dialer")
		}
	})
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	if l := NewLimiter(0, 1); l.Limit() != rate.Inf {
		t.Errorf("expected an unlimited limiter, got %v", l.Limit())
	}
	l := NewLimiter(60, 2)
	if l.Burst() != 2 {
		t.Errorf("expected burst 2, got %d", l.Burst())
	}
	if l.Limit() != 1 {
		t.Errorf("expected 1 request per second, got %v", l.Limit())
	}
}

type staticLister struct {
	urls []string
	err  error
}

func (l *staticLister) URLs(context.Context) ([]string, error) {
	return l.urls, l.err
}

func TestRemoteSourcePages(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	lister := &staticLister{urls: []string{srv.URL + "/a", srv.URL + "/b"}}
	src := NewRemoteSource(NewFetcher(srv.Client()),
		WithURLs([]string{srv.URL + "/b", srv.URL + "/c"}),
		WithLister(lister),
	)

	pages, err := src.Pages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{srv.URL + "/b", srv.URL + "/c", srv.URL + "/a"}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(pages))
	}
	for i := range want {
		if pages[i].URL != want[i] {
			t.Errorf("page %d: expected %q, got %q", i, want[i], pages[i].URL)
		}
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestRemoteSourceListerError(t *testing.T) {
	t.Parallel()

	errFeed := errors.New("feed down")
	src := NewRemoteSource(NewFetcher(nil), WithLister(&staticLister{err: errFeed}))
	if _, err := src.Pages(context.Background()); !errors.Is(err, errFeed) {
		t.Errorf("expected lister error, got %v", err)
	}
}

func TestRemoteSourceEmpty(t *testing.T) {
	t.Parallel()

	pages, err := NewRemoteSource(NewFetcher(nil)).Pages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected no pages, got %d", len(pages))
	}
}

func TestFileSourcePages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sample := filepath.Join(dir, "lure.html")
	if err := os.WriteFile(sample, []byte("<script>navigator.clipboard.writeText(x)</script>"), 0o600); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.html")

	pages, err := NewFileSource([]string{sample, missing, dir}, 0).Pages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}

	if !strings.HasPrefix(pages[0].URL, "file://") || !strings.HasSuffix(pages[0].URL, "/lure.html") {
		t.Errorf("unexpected URL %q", pages[0].URL)
	}
	if pages[0].FetchError != "" || !strings.Contains(pages[0].RawText, "writeText") {
		t.Errorf("unexpected page %+v", pages[0])
	}
	if pages[1].FetchError == "" {
		t.Error("expected fetch error for missing file")
	}
	if !strings.Contains(pages[2].FetchError, ErrNotRegularFile.Error()) {
		t.Errorf("expected not-a-regular-file error, got %q", pages[2].FetchError)
	}
}

func TestFileSourceBodyLimit(t *testing.T) {
	t.Parallel()

	sample := filepath.Join(t.TempDir(), "big.html")
	if err := os.WriteFile(sample, []byte(strings.Repeat("x", 64)), 0o600); err != nil {
		t.Fatal(err)
	}
	pages, err := NewFileSource([]string{sample}, 16).Pages(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages[0].RawText) != 16 {
		t.Errorf("expected 16 bytes, got %d", len(pages[0].RawText))
	}
}
