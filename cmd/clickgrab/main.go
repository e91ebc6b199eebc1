// Package main provides the entry point for the clickgrab CLI.
//
// clickgrab collects fake-CAPTCHA ("ClickFix") lure pages reported to
// URLhaus, extracts the commands they try to place on the victim's
// clipboard, and reports what changed since the previous run.
//
// Usage:
//
//	clickgrab analyze
//	clickgrab analyze --url https://lure.example/ --format markdown
//	clickgrab history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
