// Package pipeline turns fetched pages into a Report.
//
// A Pipeline runs the extraction steps over one page. The BatchProcessor
// runs one Pipeline per page on a bounded errgroup, giving every page its
// own analysis deadline. The Runner ties a page source, the batch, the
// aggregator and the run archive together and is the only place where a
// run as a whole can fail.
package pipeline
