// Package metrics records run metrics on a private prometheus registry.
//
// The Recorder observes every analyzed site and every completed run.
// Runs are batch jobs, so metrics are exported with WriteTextfile for the
// node-exporter textfile collector instead of being scraped over HTTP.
package metrics
