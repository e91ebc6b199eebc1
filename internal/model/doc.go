// Package model defines the data structures shared by the ClickGrab packages.
//
// The main types are:
//   - SourcePage: one fetched page as handed over by a source collaborator
//   - AnalyzedSite: the per-page extraction result
//   - ExtractedCommand: a reconstructed clipboard-staged command
//   - Report: the immutable corpus-level result of one run
//   - RunSummary and Overview: archived run rows and the history view built from them
//
// Everything here is plain data. Extraction lives in package extract and the
// reduction into a Report lives in package aggregate.
package model
