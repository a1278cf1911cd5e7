package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoaudit/internal/aggregate"
	"github.com/nao1215/seoaudit/internal/analyzer"
	"github.com/nao1215/seoaudit/internal/crawler"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/profiler"
	"github.com/nao1215/seoaudit/internal/render"
	"github.com/nao1215/seoaudit/internal/score"
	"github.com/nao1215/seoaudit/internal/summary"
)

// ErrNoPagesAnalyzed is returned when every discovered page failed.
var ErrNoPagesAnalyzed = errors.New("could not successfully analyze any pages")

// URLCrawler discovers the pages of a site.
type URLCrawler interface {
	Crawl(ctx context.Context, startURL string) ([]string, error)
}

// CrawlStep discovers the URLs to audit.
type CrawlStep struct {
	crawler URLCrawler
	logger  *slog.Logger
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c URLCrawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Started implements Milestones.
func (s *CrawlStep) Started(*model.Audit) (Stage, string) {
	return StageDiscovering, "Discovering pages to analyze..."
}

// Finished implements Milestones.
func (s *CrawlStep) Finished(a *model.Audit) (Stage, string) {
	return StageCrawlComplete, fmt.Sprintf("Crawl complete. Found %d pages.", len(a.DiscoveredURLs))
}

// Do executes the crawl step. A crawl that discovered URLs but then failed
// to release its browser is only logged.
func (s *CrawlStep) Do(ctx context.Context, audit *model.Audit) error {
	urls, err := s.crawler.Crawl(ctx, audit.StartURL)
	if err != nil {
		if len(urls) == 0 || ctx.Err() != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}
		s.logger.Warn("crawl completed with error", "url", audit.StartURL, "error", err)
	}
	audit.DiscoveredURLs = urls

	s.logger.Info("crawl completed",
		"url", audit.StartURL,
		"pages_found", len(urls),
	)
	return nil
}

// AnalyzeStep renders, profiles and analyzes every discovered URL.
type AnalyzeStep struct {
	renderer      render.Renderer
	profiler      profiler.Profiler
	concurrency   int
	screenshotDir string
	metrics       *Metrics
	logger        *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalysisConcurrency bounds how many pages are processed at once.
func WithAnalysisConcurrency(n int) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScreenshotDir writes each page screenshot below dir/<audit id>/.
func WithScreenshotDir(dir string) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.screenshotDir = dir
	}
}

// WithAnalyzeMetrics sets the metrics recorder.
func WithAnalyzeMetrics(m *Metrics) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.metrics = m
	}
}

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAnalyzeStep creates an analyze step. A nil profiler disables profiling.
func NewAnalyzeStep(r render.Renderer, p profiler.Profiler, opts ...AnalyzeStepOption) *AnalyzeStep {
	if p == nil {
		p = profiler.NopProfiler{}
	}
	s := &AnalyzeStep{
		renderer:    r,
		profiler:    p,
		concurrency: 5,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string { return "analyze" }

// Started implements Milestones.
func (s *AnalyzeStep) Started(a *model.Audit) (Stage, string) {
	return StageAnalyzing, fmt.Sprintf("Performing deep analysis on %d pages...", len(a.DiscoveredURLs))
}

// Finished implements Milestones.
func (s *AnalyzeStep) Finished(a *model.Audit) (Stage, string) {
	return StageAnalysisComplete, fmt.Sprintf("Analysis complete for %d pages.", len(a.Pages))
}

// Do renders and profiles each URL concurrently, then analyzes the
// rendered HTML. Pages keep discovery order. A page that fails to render
// or parse is recorded in FailedURLs and skipped.
func (s *AnalyzeStep) Do(ctx context.Context, audit *model.Audit) error {
	urls := audit.DiscoveredURLs
	results := make([]*model.PageResult, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = s.analyzePage(ctx, u)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	if err := ctx.Err(); err != nil {
		return err
	}

	audit.Pages = make([]model.PageResult, 0, len(urls))
	audit.FailedURLs = nil
	for i, res := range results {
		if res == nil {
			audit.FailedURLs = append(audit.FailedURLs, urls[i])
			continue
		}
		if len(res.Technical.Screenshot) > 0 && s.screenshotDir != "" {
			s.saveScreenshot(audit, i, res)
		}
		audit.Pages = append(audit.Pages, *res)
	}

	if len(audit.Pages) == 0 {
		return ErrNoPagesAnalyzed
	}
	return nil
}

// analyzePage returns nil when the page could not be analyzed.
func (s *AnalyzeStep) analyzePage(ctx context.Context, pageURL string) *model.PageResult {
	var (
		rendered  render.Result
		technical model.TechnicalMetrics
		g         errgroup.Group
	)
	g.Go(func() error {
		rendered = s.renderer.Render(ctx, pageURL)
		return nil
	})
	g.Go(func() error {
		technical = s.profiler.Profile(ctx, pageURL)
		return nil
	})
	_ = g.Wait() //nolint:errcheck // both tasks report through their results

	if !rendered.Success {
		s.logger.Warn("page render failed", "url", pageURL, "error", rendered.ErrorMessage())
		s.metrics.ObservePage(false)
		return nil
	}

	analysis, err := analyzer.Analyze(rendered.HTML, pageURL, rendered.Headers)
	if err != nil {
		s.logger.Warn("page analysis failed", "url", pageURL, "error", err)
		s.metrics.ObservePage(false)
		return nil
	}

	s.metrics.ObservePage(true)
	return &model.PageResult{
		Analysis:  analysis,
		Technical: technical,
		HTML:      rendered.HTML,
	}
}

var nonSlugRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// screenshotName builds a file name such as "00-example-com-about.jpg".
func screenshotName(index int, pageURL string) string {
	slug := pageURL
	if i := strings.Index(slug, "://"); i >= 0 {
		slug = slug[i+3:]
	}
	slug = strings.Trim(nonSlugRe.ReplaceAllString(slug, "-"), "-")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		slug = "page"
	}
	return fmt.Sprintf("%02d-%s.jpg", index, strings.ToLower(slug))
}

func (s *AnalyzeStep) saveScreenshot(audit *model.Audit, index int, res *model.PageResult) {
	dir := filepath.Join(s.screenshotDir, audit.ID.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		s.logger.Warn("failed to create screenshot directory", "dir", dir, "error", err)
		return
	}
	path := filepath.Join(dir, screenshotName(index, res.Analysis.URL))
	if err := os.WriteFile(path, res.Technical.Screenshot, 0o600); err != nil {
		s.logger.Warn("failed to save screenshot", "path", path, "error", err)
		return
	}
	s.logger.Debug("screenshot saved", "url", res.Analysis.URL, "path", path)
}

// AggregateStep builds the site report from the analyzed pages.
type AggregateStep struct{}

// Name returns the step name.
func (AggregateStep) Name() string { return "aggregate" }

// Started implements Milestones.
func (AggregateStep) Started(*model.Audit) (Stage, string) {
	return StageAggregating, "Aggregating site-wide data..."
}

// Finished implements Milestones.
func (AggregateStep) Finished(*model.Audit) (Stage, string) {
	return StageAggregationComplete, "Aggregation complete."
}

// Do executes the aggregate step.
func (AggregateStep) Do(_ context.Context, audit *model.Audit) error {
	report, err := aggregate.Aggregate(audit.Pages, audit.StartURL)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}
	audit.Report = report
	return nil
}

// ScoreStep scores the site report and applies the audit rulebook.
type ScoreStep struct{}

// Name returns the step name.
func (ScoreStep) Name() string { return "score" }

// Started implements Milestones.
func (ScoreStep) Started(*model.Audit) (Stage, string) {
	return StageScoring, "Calculating SEO scores..."
}

// Finished implements Milestones.
func (ScoreStep) Finished(*model.Audit) (Stage, string) {
	return StageScoringComplete, "Scoring complete."
}

// Do executes the score step.
func (ScoreStep) Do(_ context.Context, audit *model.Audit) error {
	if audit.Report == nil {
		return errors.New("score step requires a site report")
	}
	scores := score.Score(audit.Report)
	audit.Scores = &scores
	audit.KeyFindings = score.KeyFindings(audit.Report)
	return nil
}

// SummaryStep asks a summary provider for a narrative.
// Provider failures never fail the audit.
type SummaryStep struct {
	summarizer summary.Summarizer
	logger     *slog.Logger
}

// NewSummaryStep creates a summary step.
func NewSummaryStep(s summary.Summarizer, logger *slog.Logger) *SummaryStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &SummaryStep{summarizer: s, logger: logger}
}

// Name returns the step name.
func (s *SummaryStep) Name() string { return "summary" }

// Started implements Milestones.
func (s *SummaryStep) Started(*model.Audit) (Stage, string) {
	return StageSummarizing, fmt.Sprintf("Generating AI summary with %s...", s.summarizer.Name())
}

// Finished implements Milestones.
func (s *SummaryStep) Finished(a *model.Audit) (Stage, string) {
	switch {
	case a.Summary != nil:
		return StageSummaryComplete, "AI summary generated."
	case a.SummaryRaw != "":
		return StageSummaryComplete, "AI summary could not be parsed; raw response kept."
	default:
		return StageSummaryComplete, "AI summary unavailable."
	}
}

// Do executes the summary step.
func (s *SummaryStep) Do(ctx context.Context, audit *model.Audit) error {
	if audit.Report == nil || audit.Scores == nil {
		return errors.New("summary step requires a scored site report")
	}

	in := summary.Input{Report: audit.Report, Scores: *audit.Scores}
	if home := audit.Homepage(); home != nil {
		in.HomepageHTML = home.HTML
	}

	res, err := s.summarizer.Summarize(ctx, in)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("summary generation failed", "provider", s.summarizer.Name(), "error", err)
		return nil
	}

	if f, ok := res.Findings(); ok {
		audit.Summary = &f
		return nil
	}
	s.logger.Warn("summary response could not be parsed", "provider", s.summarizer.Name())
	audit.SummaryRaw = res.Raw()
	return nil
}

// EmailStep looks for a contact address in the analyzed pages.
type EmailStep struct{}

// Name returns the step name.
func (EmailStep) Name() string { return "contact_email" }

// Do executes the email step.
func (EmailStep) Do(_ context.Context, audit *model.Audit) error {
	pages := make([]crawler.PageHTML, 0, len(audit.Pages))
	for _, p := range audit.Pages {
		pages = append(pages, crawler.PageHTML{URL: p.Analysis.URL, HTML: p.HTML})
	}
	audit.ContactEmail = crawler.FindContactEmail(pages)
	return nil
}
