package model

import (
	"sort"
	"time"
)

// RunSummary is the archived headline of one run.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	RunDate          time.Time `json:"run_date"`
	CreatedAt        time.Time `json:"created_at"`
	SitesScanned     int       `json:"sites_scanned"`
	SitesWithAttacks int       `json:"sites_with_attacks"`
	TotalAttacks     int       `json:"total_attacks"`
	NewPatterns      int       `json:"new_patterns"`
	PowerShellCount  int       `json:"powershell_count"`
	ClipboardCount   int       `json:"clipboard_count"`
}

// Link returns the identifier of the run's detail page.
func (r RunSummary) Link() string {
	return "runs/" + r.RunDate.Format(DateLayout)
}

// HistoryEntry is one row of the run history listing.
type HistoryEntry struct {
	Date             string `json:"date"`
	SitesWithAttacks int    `json:"sites_with_attacks"`
	TotalAttacks     int    `json:"total_attacks"`
	NewPatterns      int    `json:"new_patterns"`
	Link             string `json:"link"`
}

// Overview is the cross-run view consumed by presentation layers.
type Overview struct {
	TotalSitesScanned      int            `json:"total_sites_scanned"`
	TotalSitesWithAttacks  int            `json:"total_sites_with_attacks"`
	TotalAttacks           int            `json:"total_attacks"`
	LatestRunDate          string         `json:"latest_run_date,omitempty"`
	LatestSitesWithAttacks int            `json:"latest_sites_with_attacks"`
	LatestSitesScanned     int            `json:"latest_sites_scanned"`
	LatestNewPatterns      int            `json:"latest_new_patterns"`
	LatestPowerShellCount  int            `json:"latest_powershell_count"`
	LatestClipboardCount   int            `json:"latest_clipboard_count"`
	History                []HistoryEntry `json:"history"`
}

// NewOverview builds the overview from archived runs in any order.
// History is listed newest first.
func NewOverview(runs []RunSummary) *Overview {
	sorted := append([]RunSummary{}, runs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RunDate.After(sorted[j].RunDate)
	})

	o := &Overview{History: make([]HistoryEntry, 0, len(sorted))}
	for _, r := range sorted {
		o.TotalSitesScanned += r.SitesScanned
		o.TotalSitesWithAttacks += r.SitesWithAttacks
		o.TotalAttacks += r.TotalAttacks
		o.History = append(o.History, HistoryEntry{
			Date:             r.RunDate.Format(DateLayout),
			SitesWithAttacks: r.SitesWithAttacks,
			TotalAttacks:     r.TotalAttacks,
			NewPatterns:      r.NewPatterns,
			Link:             r.Link(),
		})
	}

	if len(sorted) > 0 {
		latest := sorted[0]
		o.LatestRunDate = latest.RunDate.Format(DateLayout)
		o.LatestSitesWithAttacks = latest.SitesWithAttacks
		o.LatestSitesScanned = latest.SitesScanned
		o.LatestNewPatterns = latest.NewPatterns
		o.LatestPowerShellCount = latest.PowerShellCount
		o.LatestClipboardCount = latest.ClipboardCount
	}
	return o
}

// HasRuns reports whether any run is archived.
func (o *Overview) HasRuns() bool {
	return len(o.History) > 0
}
