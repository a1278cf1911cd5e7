// Package render turns a URL into its rendered HTML document.
//
// Two Renderer implementations are provided:
//   - ChromeRenderer drives a headless Chrome through the DevTools protocol
//     (chromedp), so JavaScript-built pages are captured as users see them.
//   - HTTPRenderer fetches the raw response with colly. It is used when
//     Chrome is not installed or when the caller asks for a plain fetch.
//
// Both share the same contract: every attempt runs in an isolated context
// that is closed before the attempt returns, failures are classified as
// NetworkError, HTTPError or TimeoutError, and a failed render is retried
// up to DefaultRetries more times before Result.Success is false.
//
// The Chrome process itself is owned by an Engine. An Engine is started
// lazily on the first render and must be closed by whoever created it;
// it is never shared across concurrent audits of different sites.
//
// CachingRenderer and ThrottledRenderer decorate any Renderer with an LRU
// result cache and a request rate limit.
package render
