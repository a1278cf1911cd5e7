package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/css"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	cdprofiler "github.com/chromedp/cdproto/profiler"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/render"
)

const (
	// DefaultTimeout bounds one profiling session.
	DefaultTimeout = 30 * time.Second

	// ScreenshotQuality is the JPEG quality of captured screenshots.
	ScreenshotQuality = 75
)

// Profiler captures technical metrics for a URL.
// Implementations must be safe for concurrent use and must not fail:
// problems are reported through TechnicalMetrics.ProfileError.
type Profiler interface {
	Profile(ctx context.Context, url string) model.TechnicalMetrics
}

// Func adapts a function to the Profiler interface.
type Func func(ctx context.Context, url string) model.TechnicalMetrics

// Profile calls f.
func (f Func) Profile(ctx context.Context, url string) model.TechnicalMetrics {
	return f(ctx, url)
}

// NopProfiler returns empty metrics without loading anything.
type NopProfiler struct{}

// Profile implements Profiler.
func (NopProfiler) Profile(context.Context, string) model.TechnicalMetrics {
	return model.EmptyTechnicalMetrics()
}

// ChromeProfiler profiles pages in headless Chrome.
type ChromeProfiler struct {
	engine         *render.Engine
	timeout        time.Duration
	userAgent      string
	acceptLanguage string
	headers        map[string]string
	cookie         string
	screenshots    bool
	logger         *slog.Logger
}

// Option configures a ChromeProfiler.
type Option func(*ChromeProfiler)

// WithTimeout sets the session timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *ChromeProfiler) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHeaders sets extra request headers and a raw cookie string.
func WithHeaders(headers map[string]string, cookie string) Option {
	return func(p *ChromeProfiler) {
		p.headers = headers
		p.cookie = cookie
	}
}

// WithUserAgent overrides the User-Agent.
func WithUserAgent(ua string) Option {
	return func(p *ChromeProfiler) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithScreenshots toggles screenshot capture. Enabled by default.
func WithScreenshots(enabled bool) Option {
	return func(p *ChromeProfiler) {
		p.screenshots = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *ChromeProfiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewChromeProfiler creates a profiler that opens its own tabs on engine.
func NewChromeProfiler(engine *render.Engine, opts ...Option) *ChromeProfiler {
	p := &ChromeProfiler{
		engine:         engine,
		timeout:        DefaultTimeout,
		userAgent:      render.DefaultUserAgent,
		acceptLanguage: render.DefaultAcceptLanguage,
		screenshots:    true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profile loads url and returns its technical metrics.
func (p *ChromeProfiler) Profile(ctx context.Context, url string) model.TechnicalMetrics {
	metrics, err := p.profile(ctx, url)
	if err != nil {
		p.logger.Warn("profiling failed", "url", url, "error", err)
		empty := model.EmptyTechnicalMetrics()
		empty.ProfileError = err.Error()
		return empty
	}
	return metrics
}

func (p *ChromeProfiler) profile(ctx context.Context, url string) (model.TechnicalMetrics, error) {
	tabCtx, closeTab, err := p.engine.NewTab(ctx)
	if err != nil {
		return model.TechnicalMetrics{}, err
	}
	defer closeTab()

	runCtx, cancel := context.WithTimeout(tabCtx, p.timeout)
	defer cancel()

	rec := newRecorder()
	watcher := render.NewDocumentWatcher(render.NetworkIdle)
	chromedp.ListenTarget(runCtx, func(ev any) {
		watcher.Handle(ev)
		rec.handle(ev)
	})

	var (
		coverage    model.CodeCoverage
		performance *model.PerformanceMetrics
		widths      *model.PixelWidths
		screenshot  []byte
	)

	err = chromedp.Run(runCtx,
		render.PrepareTab(p.userAgent, p.acceptLanguage, render.ExtraHeaders(p.acceptLanguage, p.headers, p.cookie)),
		runtime.Enable(),
		dom.Enable(),
		css.Enable(),
		cdprofiler.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdprofiler.StartPreciseCoverage().WithDetailed(true).WithCallCount(false).Do(ctx)
			return err
		}),
		css.StartRuleUsageTracking(),
		chromedp.Navigate(url),
		watcher.WaitIdle(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			scripts, _, err := cdprofiler.TakePreciseCoverage().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to take JS coverage: %w", err)
			}
			rules, err := css.StopRuleUsageTracking().Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to take CSS coverage: %w", err)
			}
			coverage = model.CodeCoverage{
				JS:  JSCoverage(scriptRanges(scripts)),
				CSS: CSSCoverage(ruleRanges(rules), rec.styleSheetSizes()),
			}
			return nil
		}),
		chromedp.Evaluate(performanceScript, &performance),
		chromedp.Evaluate(pixelWidthScript, &widths),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !p.screenshots {
				return nil
			}
			buf, err := page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(ScreenshotQuality).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to capture screenshot: %w", err)
			}
			screenshot = buf
			return nil
		}),
	)
	if err != nil {
		return model.TechnicalMetrics{}, fmt.Errorf("failed to profile %s: %w", url, err)
	}

	messages, jsErrors := rec.snapshot()
	return model.TechnicalMetrics{
		Performance:     performance,
		Coverage:        &coverage,
		ConsoleMessages: messages,
		JSErrors:        jsErrors,
		Screenshot:      screenshot,
		PixelWidths:     widths,
	}, nil
}

func scriptRanges(scripts []*cdprofiler.ScriptCoverage) [][]Range {
	out := make([][]Range, 0, len(scripts))
	for _, s := range scripts {
		if s == nil || s.URL == "" {
			continue
		}
		var ranges []Range
		for _, fn := range s.Functions {
			for _, r := range fn.Ranges {
				ranges = append(ranges, Range{Start: r.StartOffset, End: r.EndOffset, Used: r.Count > 0})
			}
		}
		out = append(out, ranges)
	}
	return out
}

func ruleRanges(rules []*css.RuleUsage) map[string][]Range {
	out := make(map[string][]Range)
	for _, r := range rules {
		if r == nil {
			continue
		}
		id := string(r.StyleSheetID)
		out[id] = append(out[id], Range{Start: int64(r.StartOffset), End: int64(r.EndOffset), Used: r.Used})
	}
	return out
}
