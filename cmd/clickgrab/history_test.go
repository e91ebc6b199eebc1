package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/clickgrab/internal/database"
)

// archiveRuns analyzes the sample page on each date into dbDir.
func archiveRuns(t *testing.T, dbDir string, dates ...string) []reportSummary {
	t.Helper()
	lure := writeLure(t)
	summaries := make([]reportSummary, 0, len(dates))
	for _, d := range dates {
		stdout, _, err := execute(t, "analyze", "--file", lure, "--db-dir", dbDir, "--date", d, "--format", "json")
		if err != nil {
			t.Fatalf("analyze %s: %v", d, err)
		}
		summaries = append(summaries, decodeSummary(t, stdout))
	}
	return summaries
}

// TestAnalyzeArchive tests that a second run only reports unseen patterns.
func TestAnalyzeArchive(t *testing.T) {
	t.Parallel()

	runs := archiveRuns(t, t.TempDir(), "2025-06-01", "2025-06-02")
	if runs[0].NewPatterns == 0 {
		t.Error("expected new patterns on the first run")
	}
	if runs[1].NewPatterns != 0 {
		t.Errorf("expected no new patterns on an identical second run, got %d", runs[1].NewPatterns)
	}
}

// TestHistoryCmd tests listing, showing and pruning archived runs.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	dbDir := t.TempDir()
	archiveRuns(t, dbDir, "2025-06-01", "2025-06-02")

	t.Run("overview", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "CLICKGRAB OVERVIEW") {
			t.Errorf("expected overview banner, got:\n%s", stdout)
		}
		first := strings.Index(stdout, "2025-06-02")
		second := strings.Index(stdout, "2025-06-01")
		if first < 0 || second < 0 || first > second {
			t.Errorf("expected runs listed newest first, got:\n%s", stdout)
		}
	})

	t.Run("overview as markdown", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "--db-dir", dbDir, "--format", "markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "runs/2025-06-01") {
			t.Errorf("expected run links, got:\n%s", stdout)
		}
	})

	t.Run("show", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "show", "2025-06-01", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "2025-06-01") || !strings.Contains(stdout, "CLICKGRAB REPORT") {
			t.Errorf("expected the archived report, got:\n%s", stdout)
		}
	})

	t.Run("show unknown date", func(t *testing.T) {
		_, _, err := execute(t, "history", "show", "2024-01-01", "--db-dir", dbDir)
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, _, err := execute(t, "history", "--db-dir", dbDir, "--format", "html")
		if err == nil || !strings.Contains(err.Error(), "invalid format") {
			t.Errorf("expected invalid format error, got %v", err)
		}
	})

	// Runs last: it removes the first run.
	t.Run("prune", func(t *testing.T) {
		stdout, _, err := execute(t, "history", "prune", "--before", "2025-06-02", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Deleted 1 run(s)") {
			t.Errorf("unexpected output %q", stdout)
		}

		_, _, err = execute(t, "history", "show", "2025-06-01", "--db-dir", dbDir)
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected the pruned run to be gone, got %v", err)
		}
	})
}

// TestHistoryWithoutArchive tests that history never creates an archive.
func TestHistoryWithoutArchive(t *testing.T) {
	t.Parallel()

	dbDir := filepath.Join(t.TempDir(), "none")
	_, _, err := execute(t, "history", "--db-dir", dbDir)
	if !errors.Is(err, database.ErrDatabaseNotFound) {
		t.Errorf("expected ErrDatabaseNotFound, got %v", err)
	}
}
