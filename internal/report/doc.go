// Package report renders run reports and the cross-run overview.
//
// This package contains writers for different output formats:
//   - TextWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with tables and a mermaid pie chart
//   - CSVWriter: spreadsheet-friendly rows
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
