package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/crawler"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/profiler"
	"github.com/nao1215/seoaudit/internal/render"
	"github.com/nao1215/seoaudit/internal/summary"
)

// AuditStore persists finished audits.
type AuditStore interface {
	SaveAudit(ctx context.Context, audit *model.Audit) error
}

// Auditor runs complete audits from a configuration.
// Each Run builds its own browser, renderers and pipeline, so one Auditor
// may run several audits concurrently.
type Auditor struct {
	cfg        *config.Config
	summarizer summary.Summarizer
	store      AuditStore
	metrics    *Metrics
	sink       Sink
	logger     *slog.Logger

	// newBackend is replaced in tests to avoid launching a browser.
	newBackend func(cfg *config.Config, site config.SiteConfig, m *Metrics, logger *slog.Logger) (*backend, error)
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithSummarizer sets the narrative summary provider. Nil disables summaries.
func WithSummarizer(s summary.Summarizer) AuditorOption {
	return func(a *Auditor) {
		a.summarizer = s
	}
}

// WithStore saves every finished audit, failed ones included.
func WithStore(s AuditStore) AuditorOption {
	return func(a *Auditor) {
		a.store = s
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) AuditorOption {
	return func(a *Auditor) {
		a.metrics = m
	}
}

// WithAuditSink sets the progress sink shared by every audit.
func WithAuditSink(s Sink) AuditorOption {
	return func(a *Auditor) {
		a.sink = s
	}
}

// WithAuditorLogger sets a custom logger.
func WithAuditorLogger(logger *slog.Logger) AuditorOption {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAuditor creates an Auditor. cfg must already be validated.
func NewAuditor(cfg *config.Config, opts ...AuditorOption) *Auditor {
	a := &Auditor{
		cfg:        cfg,
		logger:     slog.Default(),
		newBackend: newBackend,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithMaxPages returns an Auditor that crawls at most n pages per audit.
// Values below 1 return a unchanged. Per-site limits from the config file
// still take precedence.
func (a *Auditor) WithMaxPages(n int) *Auditor {
	if n < 1 || n == a.cfg.MaxPages {
		return a
	}
	cfg := *a.cfg
	cfg.MaxPages = n
	clone := *a
	clone.cfg = &cfg
	return &clone
}

// backend is the set of collaborators one audit runs on.
type backend struct {
	renderer render.Renderer
	profiler profiler.Profiler

	// releaser frees the browser once the crawl is over. It may be nil.
	releaser io.Closer

	// closer is called when the audit finishes.
	closer io.Closer
}

// Run audits startURL. The returned audit is never nil; on failure it
// carries the error that stopped the pipeline.
func (a *Auditor) Run(ctx context.Context, startURL string, sink Sink) (*model.Audit, error) {
	startURL = normalizeStartURL(startURL)
	audit := model.NewAudit(startURL, a.cfg.MaxPages)
	site := a.cfg.SiteConfig(audit.Host)
	if site.MaxPages > 0 {
		audit.MaxPages = site.MaxPages
	}

	a.metrics.AuditStarted()
	logger := a.logger.With("audit_id", audit.ID.String(), "url", startURL)

	err := a.run(ctx, audit, site, MultiSink{a.sink, sink}, logger)

	result := "success"
	switch {
	case audit.TimedOut:
		result = "timeout"
	case err != nil:
		result = "failure"
	}
	overall := -1
	if audit.Scores != nil {
		overall = audit.Scores.Overall
	}
	a.metrics.AuditFinished(result, audit.Duration(), overall)

	if a.store != nil && a.cfg.SaveToDB {
		// The audit context may already be done; saving a timed-out
		// audit still has to happen.
		if saveErr := a.store.SaveAudit(context.WithoutCancel(ctx), audit); saveErr != nil {
			logger.Error("failed to save audit", "error", saveErr)
		}
	}

	if err != nil {
		return audit, err
	}
	logger.Info("audit complete",
		"pages", len(audit.Pages),
		"failed", len(audit.FailedURLs),
		"overall_score", overall,
		"duration", audit.Duration(),
	)
	return audit, nil
}

// normalizeStartURL adds a missing scheme and an empty path's "/".
func normalizeStartURL(raw string) string {
	raw = config.NormalizeTarget(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func (a *Auditor) run(ctx context.Context, audit *model.Audit, site config.SiteConfig, sink Sink, logger *slog.Logger) error {
	if err := config.ValidateTarget(audit.StartURL); err != nil {
		audit.SetError(err)
		audit.FinishedAt = audit.StartedAt
		return err
	}

	b, err := a.newBackend(a.cfg, site, a.metrics, logger)
	if err != nil {
		audit.SetError(err)
		audit.FinishedAt = audit.StartedAt
		return err
	}
	defer func() {
		if b.closer == nil {
			return
		}
		if err := b.closer.Close(); err != nil {
			logger.Warn("failed to close renderer", "error", err)
		}
	}()

	crawlOpts := []crawler.Option{
		crawler.WithMaxPages(audit.MaxPages),
		crawler.WithConcurrency(a.cfg.CrawlConcurrency),
		crawler.WithIgnorePatterns(site.IgnorePatterns),
		crawler.WithFollowPatterns(site.FollowPatterns),
		crawler.WithCrawlerLogger(logger),
	}
	if b.releaser != nil {
		crawlOpts = append(crawlOpts, crawler.WithReleaser(b.releaser))
	}

	screenshotDir := ""
	if a.cfg.Screenshots {
		screenshotDir = a.cfg.ScreenshotDir
	}

	p := New(WithLogger(logger), WithSink(sink))
	p.AddSteps(
		NewCrawlStep(crawler.New(b.renderer, crawlOpts...), logger),
		NewAnalyzeStep(b.renderer, b.profiler,
			WithAnalysisConcurrency(a.cfg.AnalysisConcurrency),
			WithScreenshotDir(screenshotDir),
			WithAnalyzeMetrics(a.metrics),
			WithAnalyzeLogger(logger),
		),
		AggregateStep{},
		ScoreStep{},
	)
	if a.summarizer != nil {
		p.AddStep(NewSummaryStep(a.summarizer, logger))
	}
	p.AddStep(EmailStep{})

	return p.Execute(ctx, audit)
}

// newBackend builds the renderer stack for one audit:
// base renderer, rate limit, then a cache shared by crawl and analysis
// so crawled pages are not fetched twice.
func newBackend(cfg *config.Config, site config.SiteConfig, m *Metrics, logger *slog.Logger) (*backend, error) {
	renderOpts := []render.Option{
		render.WithTimeout(cfg.RenderTimeout),
		render.WithRetries(cfg.RenderRetries),
		render.WithUserAgent(cfg.UserAgent),
		render.WithAcceptLanguage(cfg.AcceptLanguage),
		render.WithHeaders(site.Headers),
		render.WithCookie(site.Cookie),
		render.WithProxy(cfg.Proxy),
		render.WithRenderMetrics(m),
		render.WithLogger(logger),
	}

	b := &backend{profiler: profiler.NopProfiler{}}
	var base render.Renderer
	switch cfg.Renderer {
	case config.RendererHTTP:
		r, err := render.NewHTTPRenderer(renderOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP renderer: %w", err)
		}
		base = r
	default:
		engine := render.NewEngine(
			render.WithExecPath(cfg.ChromePath),
			render.WithProxyServer(cfg.Proxy),
			render.WithHeadless(!cfg.Headful),
			render.WithEngineLogger(logger),
		)
		base = render.NewChromeRenderer(engine, renderOpts...)
		b.releaser = engine
		b.closer = engine
		if cfg.ProfilingEnabled() {
			b.profiler = profiler.NewChromeProfiler(engine,
				profiler.WithTimeout(cfg.ProfileTimeout),
				profiler.WithUserAgent(cfg.UserAgent),
				profiler.WithHeaders(site.Headers, site.Cookie),
				profiler.WithScreenshots(cfg.Screenshots),
				profiler.WithLogger(logger),
			)
		}
	}

	cached, err := render.NewCachingRenderer(render.NewThrottledRenderer(base, cfg.RateLimit, 1), cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	b.renderer = cached
	return b, nil
}
