// Package extract implements the per-site extraction stages.
//
// Each stage reads an Input (the fetched page plus its parsed markup) and
// fills its part of a model.AnalyzedSite:
//   - ResourceExtractor: referenced domains and categorized resource URLs
//   - ClipboardPatternDetector: clipboard-hijack idioms with context snippets
//   - CommandExtractor: the command staged onto the victim's clipboard
//   - IndicatorScanner: loose IOCs (URLs, IPs, PowerShell, download cradles, lure text)
//
// Stages are pure functions of their input and hold no cross-site state, so
// one instance may serve many goroutines.
package extract
