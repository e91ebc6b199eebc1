package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `################################################################
# abuse.ch URLhaus Database Dump (CSV - recent URLs only)      #
# Last updated: 2025-03-01 10:00:00 (UTC)                      #
################################################################
#
# id,dateadded,url,url_status,last_online,threat,tags,urlhaus_link,reporter
"3001","2025-03-01 09:00:00","https://lure-one.example/","online","2025-03-01 09:00:00","malware_download","ClickFix,FakeCaptcha","https://urlhaus.abuse.ch/url/3001/","reporter1"
"3002","2025-03-01 08:00:00","https://payload.example/a.ps1","online","2025-03-01 08:00:00","malware_download","ClickFix,ps1","https://urlhaus.abuse.ch/url/3002/","reporter1"
"3003","2025-03-01 07:00:00","http://1.2.3.4/mozi.m","online","2025-03-01 07:00:00","malware_download","32-bit,elf,Mozi","https://urlhaus.abuse.ch/url/3003/","reporter2"
"3004","2025-03-01 06:00:00","https://lure-two.example/verify.html","offline","","malware_download","fakecaptcha","https://urlhaus.abuse.ch/url/3004/","reporter3"
"3005","2025-03-01 05:00:00","https://lure-three.example/index.htm","online","2025-03-01 05:00:00","malware_download","ClickFix","https://urlhaus.abuse.ch/url/3005/","reporter3"
`

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, http.StatusOK, sampleFeed)

	tests := []struct {
		name string
		opts []Option
		want []string
	}{
		{
			name: "default lure filter",
			opts: []Option{
				WithTags([]string{"FakeCaptcha", "ClickFix", "click"}),
				WithURLSuffixes([]string{"/", "html", "htm"}),
			},
			want: []string{
				"https://lure-one.example/",
				"https://lure-two.example/verify.html",
				"https://lure-three.example/index.htm",
			},
		},
		{
			name: "limit stops early",
			opts: []Option{
				WithTags([]string{"ClickFix", "FakeCaptcha"}),
				WithURLSuffixes([]string{"/", "html", "htm"}),
				WithLimit(2),
			},
			want: []string{
				"https://lure-one.example/",
				"https://lure-two.example/verify.html",
			},
		},
		{
			name: "tag match ignores case",
			opts: []Option{
				WithTags([]string{"MOZI"}),
			},
			want: []string{"http://1.2.3.4/mozi.m"},
		},
		{
			name: "no filters keeps everything",
			opts: nil,
			want: []string{
				"https://lure-one.example/",
				"https://payload.example/a.ps1",
				"http://1.2.3.4/mozi.m",
				"https://lure-two.example/verify.html",
				"https://lure-three.example/index.htm",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := append([]Option{WithUserAgent("test-agent")}, tt.opts...)
			c := NewClient(srv.URL, opts...)
			urls, err := c.URLs(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(urls) != len(tt.want) {
				t.Fatalf("expected %d URLs, got %d: %v", len(tt.want), len(urls), urls)
			}
			for i := range tt.want {
				if urls[i] != tt.want[i] {
					t.Errorf("URL %d: expected %q, got %q", i, tt.want[i], urls[i])
				}
			}
		})
	}
}

func TestClientFetchEntryFields(t *testing.T) {
	t.Parallel()

	srv := newFeedServer(t, http.StatusOK, sampleFeed)
	c := NewClient(srv.URL, WithLimit(1))

	entries, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID != "3001" || e.Status != "online" || e.Threat != "malware_download" || e.Reporter != "reporter1" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Tags != "ClickFix,FakeCaptcha" {
		t.Errorf("unexpected tags %q", e.Tags)
	}
}

func TestClientFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("non-2xx status", func(t *testing.T) {
		t.Parallel()
		srv := newFeedServer(t, http.StatusServiceUnavailable, "down")
		_, err := NewClient(srv.URL).Fetch(context.Background())
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("expected ErrUnexpectedStatus, got %v", err)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()
		srv := newFeedServer(t, http.StatusOK, "# nothing here\n\"1\",\"x\"\n")
		_, err := NewClient(srv.URL).Fetch(context.Background())
		if !errors.Is(err, ErrMissingHeader) {
			t.Errorf("expected ErrMissingHeader, got %v", err)
		}
	})

	t.Run("missing url column", func(t *testing.T) {
		t.Parallel()
		srv := newFeedServer(t, http.StatusOK, "# id,dateadded,tags\n\"1\",\"x\",\"ClickFix\"\n")
		_, err := NewClient(srv.URL).Fetch(context.Background())
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("expected ErrMissingColumn, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		srv := newFeedServer(t, http.StatusOK, sampleFeed)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewClient(srv.URL).Fetch(ctx); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestClientSendsUserAgent(t *testing.T) {
	t.Parallel()

	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, WithUserAgent("test-agent")).Fetch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ua := <-got; ua != "test-agent" {
		t.Errorf("expected test-agent, got %q", ua)
	}
}
