package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// Engine owns one headless Chrome process.
//
// The browser is launched on the first NewTab call. Close shuts it down and
// may be called any number of times; a later NewTab launches a fresh browser.
// Every tab runs in its own incognito browser context, so cookies and cache
// never leak between renders.
type Engine struct {
	execPath    string
	proxyServer string
	noSandbox   bool
	headless    bool
	logger      *slog.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithExecPath sets the Chrome binary. Empty means auto-detect.
func WithExecPath(path string) EngineOption {
	return func(e *Engine) {
		e.execPath = path
	}
}

// WithProxyServer routes browser traffic through a proxy such as
// "socks5://127.0.0.1:1080".
func WithProxyServer(proxy string) EngineOption {
	return func(e *Engine) {
		e.proxyServer = proxy
	}
}

// WithNoSandbox disables the Chrome sandbox, needed when running as root
// inside containers.
func WithNoSandbox(noSandbox bool) EngineOption {
	return func(e *Engine) {
		e.noSandbox = noSandbox
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) EngineOption {
	return func(e *Engine) {
		e.headless = headless
	}
}

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an Engine. No browser is started until NewTab is called.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		noSandbox: true,
		headless:  true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if !e.headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if e.noSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}
	if e.proxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(e.proxyServer))
	}
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}
	return opts
}

// start launches the browser if it is not running. e.mu must be held.
func (e *Engine) start() error {
	if e.browserCtx != nil {
		return nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), e.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			e.logger.Debug(fmt.Sprintf(format, args...), "component", "chrome")
		}),
	)

	// An empty Run launches the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	e.browserCtx = browserCtx
	e.browserCancel = browserCancel
	e.allocCancel = allocCancel
	e.logger.Debug("browser started")
	return nil
}

// NewTab opens a new tab in a fresh browser context. The returned cancel
// function closes the tab and its browser context; it is also called when
// ctx is done. Callers must always call cancel.
func (e *Engine) NewTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.start(); err != nil {
		return nil, nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(e.browserCtx, chromedp.WithNewBrowserContext())
	stop := context.AfterFunc(ctx, tabCancel)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			tabCancel()
		})
	}
	return tabCtx, cancel, nil
}

// Running reports whether a browser process is currently up.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browserCtx != nil
}

// Close shuts down the browser if it is running. It is safe to call Close
// more than once and on an engine that never started.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browserCtx == nil {
		return nil
	}

	err := chromedp.Cancel(e.browserCtx)
	e.browserCancel()
	e.allocCancel()

	e.browserCtx = nil
	e.browserCancel = nil
	e.allocCancel = nil
	e.logger.Debug("browser stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}
