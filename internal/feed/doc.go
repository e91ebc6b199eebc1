// Package feed discovers candidate lure pages from the URLhaus CSV feed.
//
// The feed is a CSV document preceded by a block of '#' comment lines.
// The last comment line that starts with "# id" carries the column names.
// Entries are kept when one of the configured tags occurs in the entry's
// tag list (case-insensitive substring match) and the URL ends with one of
// the configured suffixes, which selects HTML pages over payload binaries.
package feed
