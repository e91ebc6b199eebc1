// Package fetch retrieves lure pages and turns them into model.SourcePage
// values for analysis.
//
// Fetching never fails a run because of a single site: an unreachable
// host, a non-2xx status or an unreadable body becomes the page's
// FetchError and the site is excluded from attack counting later on.
// Only cancellation of the run context is returned as an error.
//
// Requests share one rate limiter and may be routed through a SOCKS5
// proxy so that hostile hosts never see the analyst's address.
package fetch
