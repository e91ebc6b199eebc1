package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/clickgrab/internal/model"
)

// setupTestDB creates a temporary archive for testing.
func setupTestDB(t *testing.T) *ArchiveDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func testReport(date string, attacks int, fingerprints ...string) *model.Report {
	return model.NewReport(model.ReportFields{
		RunID:            "run-" + date,
		RunDate:          day(date),
		GeneratedAt:      day(date).Add(6 * time.Hour),
		SitesScanned:     10,
		SitesWithAttacks: 3,
		TotalAttacks:     attacks,
		ClipboardCount:   2,
		PowerShellCount:  4,
		DomainRanking:    []model.DomainRank{{Domain: "cdn.example", Count: 5}},
		Fingerprints:     model.NewFingerprintSet(fingerprints),
		NewFingerprints:  fingerprints,
	})
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()
		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()
		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestArchiveSaveAndGetReport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	report := testReport("2025-03-01", 7, "fp-a", "fp-b")
	if err := db.SaveRun(ctx, report); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := db.GetReport(ctx, day("2025-03-01"))
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.RunID() != "run-2025-03-01" {
		t.Errorf("unexpected run ID %q", got.RunID())
	}
	if got.TotalAttacks() != 7 {
		t.Errorf("expected 7 attacks, got %d", got.TotalAttacks())
	}
	if got.Fingerprints().Len() != 2 {
		t.Errorf("expected 2 fingerprints, got %d", got.Fingerprints().Len())
	}
	if ranking := got.DomainRanking(); len(ranking) != 1 || ranking[0].Domain != "cdn.example" {
		t.Errorf("unexpected ranking %v", ranking)
	}
}

func TestArchiveGetReportNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	_, err := db.GetReport(context.Background(), day("2025-01-01"))
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestArchivePreviousFingerprints(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("empty archive returns nil", func(t *testing.T) {
		prev, err := db.PreviousFingerprints(ctx, day("2025-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prev != nil {
			t.Errorf("expected nil, got %v", prev.Values())
		}
	})

	for _, r := range []*model.Report{
		testReport("2025-03-01", 1, "fp-1"),
		testReport("2025-03-02", 2, "fp-1", "fp-2"),
		testReport("2025-03-04", 3, "fp-3"),
	} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	tests := []struct {
		name string
		date string
		want []string
	}{
		{name: "immediately preceding run", date: "2025-03-03", want: []string{"fp-1", "fp-2"}},
		{name: "same date is excluded", date: "2025-03-04", want: []string{"fp-1", "fp-2"}},
		{name: "latest run", date: "2025-03-10", want: []string{"fp-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev, err := db.PreviousFingerprints(ctx, day(tt.date))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := prev.Values()
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("fingerprint %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}

	t.Run("before first run returns nil", func(t *testing.T) {
		prev, err := db.PreviousFingerprints(ctx, day("2025-03-01"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prev != nil {
			t.Errorf("expected nil, got %v", prev.Values())
		}
	})
}

func TestArchiveSaveRunReplacesSameDate(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.SaveRun(ctx, testReport("2025-03-01", 1, "fp-old")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := db.SaveRun(ctx, testReport("2025-03-01", 9, "fp-new")); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].TotalAttacks != 9 {
		t.Errorf("expected replaced run with 9 attacks, got %d", runs[0].TotalAttacks)
	}

	prev, err := db.PreviousFingerprints(ctx, day("2025-03-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev.Contains("fp-old") || !prev.Contains("fp-new") {
		t.Errorf("expected only fp-new, got %v", prev.Values())
	}
}

func TestArchiveListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, date := range []string{"2025-03-02", "2025-03-01", "2025-03-03"} {
		if err := db.SaveRun(ctx, testReport(date, 1, "fp-"+date)); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	want := []string{"2025-03-03", "2025-03-02", "2025-03-01"}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(runs))
	}
	for i, date := range want {
		if got := runs[i].RunDate.Format(model.DateLayout); got != date {
			t.Errorf("run %d: expected %s, got %s", i, date, got)
		}
	}

	r := runs[0]
	if r.RunID != "run-2025-03-03" || r.SitesScanned != 10 || r.SitesWithAttacks != 3 {
		t.Errorf("unexpected summary %+v", r)
	}
	if r.NewPatterns != 1 || r.PowerShellCount != 4 || r.ClipboardCount != 2 {
		t.Errorf("unexpected counts %+v", r)
	}
	if !r.CreatedAt.Equal(day("2025-03-03").Add(6 * time.Hour)) {
		t.Errorf("unexpected created_at %v", r.CreatedAt)
	}
}

func TestArchiveDeleteRunsBefore(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, date := range []string{"2025-01-01", "2025-02-01", "2025-03-01"} {
		if err := db.SaveRun(ctx, testReport(date, 1, "fp-"+date)); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	n, err := db.DeleteRunsBefore(ctx, day("2025-02-15"))
	if err != nil {
		t.Fatalf("DeleteRunsBefore failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted runs, got %d", n)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 remaining run, got %d", len(runs))
	}
	prev, err := db.PreviousFingerprints(ctx, day("2025-03-01"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prev != nil {
		t.Errorf("expected no previous run, got %v", prev.Values())
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		zero bool
	}{
		{in: "2025-03-01T06:00:00Z"},
		{in: "2025-03-01T06:00:00.123456789Z"},
		{in: "2025-03-01 06:00:00"},
		{in: "garbage", zero: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.in)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.in, got)
			}
		})
	}
}
