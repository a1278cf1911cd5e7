package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer renders pages in headless Chrome.
type ChromeRenderer struct {
	settings
	engine *Engine
}

// NewChromeRenderer creates a renderer that opens tabs on engine.
// The caller owns engine and is responsible for closing it.
func NewChromeRenderer(engine *Engine, opts ...Option) *ChromeRenderer {
	return &ChromeRenderer{
		settings: newSettings(opts),
		engine:   engine,
	}
}

// Render renders url, retrying failed attempts.
func (r *ChromeRenderer) Render(ctx context.Context, url string) Result {
	result := withRetries(ctx, r.retries, r.metrics, func(ctx context.Context) Result {
		return r.attempt(ctx, url)
	})
	if !result.Success {
		r.logger.Debug("render failed", "url", url, "attempts", result.Attempts, "error", result.Err)
	}
	return result
}

// ExtraHeaders builds the headers injected into every request of a tab.
func ExtraHeaders(acceptLanguage string, headers map[string]string, cookie string) network.Headers {
	h := network.Headers{"Accept-Language": acceptLanguage}
	for k, v := range headers {
		h[k] = v
	}
	if cookie != "" {
		h["Cookie"] = cookie
	}
	return h
}

// PrepareTab returns the actions that configure a fresh tab with the
// renderer's user agent and headers.
func PrepareTab(userAgent, acceptLanguage string, headers network.Headers) chromedp.Tasks {
	return chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetUserAgentOverride(userAgent).WithAcceptLanguage(acceptLanguage),
		page.SetLifecycleEventsEnabled(true),
	}
}

// attempt performs one render in its own tab. The tab is closed on return.
func (r *ChromeRenderer) attempt(ctx context.Context, url string) Result {
	tabCtx, closeTab, err := r.engine.NewTab(ctx)
	if err != nil {
		return failed(url, &NetworkError{URL: url, Err: err})
	}
	defer closeTab()

	navCtx, cancel := context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	watcher := NewDocumentWatcher(NetworkAlmostIdle)
	chromedp.ListenTarget(navCtx, watcher.Handle)

	var html string
	err = chromedp.Run(navCtx,
		PrepareTab(r.userAgent, r.acceptLanguage, ExtraHeaders(r.acceptLanguage, r.headers, r.cookie)),
		chromedp.Navigate(url),
		watcher.WaitIdle(),
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)

	status, headers := watcher.Response()
	if err != nil {
		return failed(url, r.classify(ctx, navCtx, url, status, err))
	}
	if status == 0 {
		return failed(url, &NetworkError{URL: url, Err: errors.New("no document response received")})
	}
	return newResult(url, html, status, headers)
}

// classify maps a failed navigation onto the render error taxonomy.
func (r *ChromeRenderer) classify(parent, navCtx context.Context, url string, status int, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case status >= 400:
		return &HTTPError{URL: url, Status: status}
	case errors.Is(navCtx.Err(), context.DeadlineExceeded) || IsTimeout(err):
		return &TimeoutError{URL: url, Timeout: r.timeout.String(), Err: err}
	default:
		return &NetworkError{URL: url, Err: fmt.Errorf("navigation failed: %w", err)}
	}
}
