// Package analyzer extracts on-page SEO signals from rendered HTML.
//
// Analyze is a pure function: given the same HTML, URL and response headers
// it always returns the same model.PageAnalysis. It performs no I/O and holds
// no state, so it is safe to call from any number of goroutines.
//
// The checks cover:
//   - Title and meta description length
//   - H1 count and heading hierarchy
//   - Image alt attributes
//   - Internal, external and nofollow links
//   - JSON-LD structured data types
//   - Open Graph and Twitter Card tags
//   - Viewport, favicon, document language and gzip compression
//   - Visible word count
package analyzer
