package model

import (
	"testing"
	"time"
)

// TestNewOverview tests the cross-run view.
func TestNewOverview(t *testing.T) {
	t.Parallel()

	t.Run("empty history", func(t *testing.T) {
		t.Parallel()

		o := NewOverview(nil)
		if o.HasRuns() {
			t.Error("expected no runs")
		}
		if o.LatestRunDate != "" || o.TotalAttacks != 0 {
			t.Errorf("unexpected overview %+v", o)
		}
	})

	t.Run("latest run and totals", func(t *testing.T) {
		t.Parallel()

		day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
		runs := []RunSummary{
			{RunDate: day(1), SitesScanned: 10, SitesWithAttacks: 3, TotalAttacks: 7, NewPatterns: 5},
			{RunDate: day(3), SitesScanned: 8, SitesWithAttacks: 4, TotalAttacks: 9, NewPatterns: 1, PowerShellCount: 6, ClipboardCount: 5},
			{RunDate: day(2), SitesScanned: 12, SitesWithAttacks: 2, TotalAttacks: 2},
		}

		o := NewOverview(runs)

		if o.TotalSitesScanned != 30 || o.TotalSitesWithAttacks != 9 || o.TotalAttacks != 18 {
			t.Errorf("unexpected totals %+v", o)
		}
		if o.LatestRunDate != "2025-01-03" {
			t.Errorf("latest run = %q", o.LatestRunDate)
		}
		if o.LatestSitesWithAttacks != 4 || o.LatestSitesScanned != 8 || o.LatestNewPatterns != 1 {
			t.Errorf("unexpected latest values %+v", o)
		}
		if o.LatestPowerShellCount != 6 || o.LatestClipboardCount != 5 {
			t.Errorf("unexpected latest idiom counts %+v", o)
		}
		if len(o.History) != 3 || o.History[0].Date != "2025-01-03" || o.History[2].Date != "2025-01-01" {
			t.Errorf("history not newest first: %+v", o.History)
		}
		if o.History[0].Link != "runs/2025-01-03" {
			t.Errorf("unexpected link %q", o.History[0].Link)
		}
	})
}
