// Package main provides the entry point for the seoaudit CLI.
//
// seoaudit crawls a website in a headless browser, analyzes every page for
// on-page SEO and technical health, and scores the site.
//
// Usage:
//
//	seoaudit audit <url>
//	seoaudit history [host]
//	seoaudit serve
//
// See --help for all available options.
package main

// main is the entry point for seoaudit.
func main() {
	Execute()
}
