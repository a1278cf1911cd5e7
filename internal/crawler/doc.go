// Package crawler discovers the pages of a single site.
//
// # Algorithm
//
// Crawler performs a breadth-first search over same-host links. The
// Frontier holds discovered URLs waiting to be visited and the URLs that
// were already taken for a visit; a URL lives in at most one of the two.
// The frontier is drained in batches of a fixed concurrency, and every URL
// of a batch is rendered independently. A batch completes only when all
// of its renders settle.
//
// # Scope
//
// Only links on the start URL's hostname are followed. Fragments are
// stripped, static assets (images, archives, stylesheets, scripts, feeds)
// are never queued, and the ignore/follow glob patterns of the site
// configuration are honoured.
//
// # Resource release
//
// A Crawler may be given an io.Closer, usually the shared browser engine.
// It is closed exactly once when Crawl returns, whether the crawl
// finished, failed or was cancelled.
//
// # Usage
//
//	c := crawler.New(renderer, crawler.WithMaxPages(20), crawler.WithReleaser(engine))
//	urls, err := c.Crawl(ctx, "https://example.com")
package crawler
