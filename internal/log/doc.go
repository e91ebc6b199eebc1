// Package log provides the slog handler used for all clickgrab output.
//
// Logs of a lure-page analyzer are full of attacker URLs. DefangHandler
// rewrites them into a non-clickable form (hxxps://evil[.]example/) so
// that log files pasted into tickets or chat never carry live links. It
// also masks values under credential-like keys, such as the proxy
// password or a per-host cookie, and truncates oversized values.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//
//	logger.Info("page fetched", "url", "https://evil.example/captcha")
//	// url=hxxps://evil[.]example/captcha
package log
