package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/profiler"
	"github.com/nao1215/seoaudit/internal/render"
	"github.com/nao1215/seoaudit/internal/summary"
)

type crawlerFunc func(ctx context.Context, startURL string) ([]string, error)

func (f crawlerFunc) Crawl(ctx context.Context, startURL string) ([]string, error) {
	return f(ctx, startURL)
}

type fakeSummarizer struct {
	result summary.Result
	err    error
	got    summary.Input
}

func (f *fakeSummarizer) Name() string { return "Fake" }

func (f *fakeSummarizer) Summarize(_ context.Context, in summary.Input) (summary.Result, error) {
	f.got = in
	return f.result, f.err
}

const testPage = `<!doctype html>
<html lang="en"><head>
<title>Example Domain Home Page For Testing Purposes</title>
<meta name="description" content="An example page.">
</head><body>
<h1>Welcome</h1>
<p>Write to hello@example.com for details.</p>
<a href="/about">About</a>
<img src="/a.png">
</body></html>`

// siteRenderer serves testPage for every URL except those in failing.
func siteRenderer(failing ...string) render.Renderer {
	return render.RendererFunc(func(_ context.Context, url string) render.Result {
		for _, f := range failing {
			if f == url {
				return render.Result{URL: url, Err: errors.New("connection refused")}
			}
		}
		return render.Result{
			Success: true,
			URL:     url,
			HTML:    testPage,
			Status:  200,
			Headers: map[string]string{"content-encoding": "gzip"},
		}
	})
}

func TestCrawlStepDo(t *testing.T) {
	t.Parallel()

	t.Run("stores discovered URLs", func(t *testing.T) {
		t.Parallel()

		step := NewCrawlStep(crawlerFunc(func(_ context.Context, start string) ([]string, error) {
			return []string{start, start + "about"}, nil
		}), nil)

		audit := newTestAudit()
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(audit.DiscoveredURLs) != 2 {
			t.Errorf("expected 2 URLs, got %v", audit.DiscoveredURLs)
		}
		if _, msg := step.Finished(audit); msg != "Crawl complete. Found 2 pages." {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("release error with results is not fatal", func(t *testing.T) {
		t.Parallel()

		step := NewCrawlStep(crawlerFunc(func(_ context.Context, start string) ([]string, error) {
			return []string{start}, errors.New("browser did not exit")
		}), nil)

		audit := newTestAudit()
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(audit.DiscoveredURLs) != 1 {
			t.Errorf("expected 1 URL, got %v", audit.DiscoveredURLs)
		}
	})

	t.Run("error without results is fatal", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("invalid start URL")
		step := NewCrawlStep(crawlerFunc(func(context.Context, string) ([]string, error) {
			return nil, wantErr
		}), nil)

		if err := step.Do(context.Background(), newTestAudit()); !errors.Is(err, wantErr) {
			t.Errorf("expected %v, got %v", wantErr, err)
		}
	})
}

func TestAnalyzeStepDo(t *testing.T) {
	t.Parallel()

	t.Run("analyzes pages in discovery order", func(t *testing.T) {
		t.Parallel()

		var profiled atomic.Int32
		prof := profiler.Func(func(context.Context, string) model.TechnicalMetrics {
			profiled.Add(1)
			m := model.EmptyTechnicalMetrics()
			m.Performance = &model.PerformanceMetrics{FCP: 800}
			return m
		})

		audit := newTestAudit()
		audit.DiscoveredURLs = []string{
			"https://example.com/",
			"https://example.com/a",
			"https://example.com/broken",
			"https://example.com/b",
		}

		step := NewAnalyzeStep(siteRenderer("https://example.com/broken"), prof, WithAnalysisConcurrency(2))
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(audit.Pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(audit.Pages))
		}
		wantURLs := []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}
		for i, want := range wantURLs {
			if got := audit.Pages[i].Analysis.URL; got != want {
				t.Errorf("page %d: got %q, want %q", i, got, want)
			}
		}
		if len(audit.FailedURLs) != 1 || audit.FailedURLs[0] != "https://example.com/broken" {
			t.Errorf("unexpected failed URLs %v", audit.FailedURLs)
		}
		if profiled.Load() != 4 {
			t.Errorf("expected 4 profiles, got %d", profiled.Load())
		}
		home := audit.Pages[0]
		if home.HTML == "" || home.Technical.Performance == nil || !home.Analysis.Tech.GzipEnabled {
			t.Errorf("unexpected homepage result %+v", home.Analysis.Tech)
		}
		if _, msg := step.Finished(audit); msg != "Analysis complete for 3 pages." {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("bounds concurrent page work", func(t *testing.T) {
		t.Parallel()

		var active, peak atomic.Int32
		pages := siteRenderer()
		r := render.RendererFunc(func(ctx context.Context, url string) render.Result {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			active.Add(-1)
			return pages.Render(ctx, url)
		})

		audit := newTestAudit()
		for _, p := range []string{"", "a", "b", "c", "d", "e", "f", "g"} {
			audit.DiscoveredURLs = append(audit.DiscoveredURLs, "https://example.com/"+p)
		}

		step := NewAnalyzeStep(r, nil, WithAnalysisConcurrency(2))
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(audit.Pages) != 8 {
			t.Errorf("expected 8 pages, got %d", len(audit.Pages))
		}
		if got := peak.Load(); got < 1 || got > 2 {
			t.Errorf("peak concurrent renders = %d, expected at most 2", got)
		}
	})

	t.Run("no analyzable pages is fatal", func(t *testing.T) {
		t.Parallel()

		audit := newTestAudit()
		audit.DiscoveredURLs = []string{"https://example.com/"}

		step := NewAnalyzeStep(siteRenderer("https://example.com/"), nil)
		if err := step.Do(context.Background(), audit); !errors.Is(err, ErrNoPagesAnalyzed) {
			t.Errorf("expected ErrNoPagesAnalyzed, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		audit := newTestAudit()
		audit.DiscoveredURLs = []string{"https://example.com/"}

		step := NewAnalyzeStep(siteRenderer(), nil)
		if err := step.Do(ctx, audit); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("writes screenshots", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		prof := profiler.Func(func(context.Context, string) model.TechnicalMetrics {
			m := model.EmptyTechnicalMetrics()
			m.Screenshot = []byte{0xff, 0xd8, 0xff}
			return m
		})

		audit := newTestAudit()
		audit.DiscoveredURLs = []string{"https://example.com/"}

		step := NewAnalyzeStep(siteRenderer(), prof, WithScreenshotDir(dir))
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path := filepath.Join(dir, audit.ID.String(), "00-example-com.jpg")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("screenshot not written: %v", err)
		}
		if len(data) != 3 {
			t.Errorf("unexpected screenshot size %d", len(data))
		}
	})
}

func TestScreenshotName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		index int
		url   string
		want  string
	}{
		{0, "https://example.com/", "00-example-com.jpg"},
		{3, "https://Example.com/blog/post?id=1", "03-example-com-blog-post-id-1.jpg"},
		{12, "https://", "12-page.jpg"},
	}
	for _, tt := range tests {
		if got := screenshotName(tt.index, tt.url); got != tt.want {
			t.Errorf("screenshotName(%d, %q) = %q, want %q", tt.index, tt.url, got, tt.want)
		}
	}

	long := screenshotName(1, "https://example.com/"+strings.Repeat("x", 200))
	if len(long) > len("01-")+80+len(".jpg") {
		t.Errorf("name too long: %d", len(long))
	}
}

// analyzedAudit returns an audit that went through the analyze step.
func analyzedAudit(t *testing.T) *model.Audit {
	t.Helper()

	audit := newTestAudit()
	audit.DiscoveredURLs = []string{"https://example.com/", "https://example.com/contact"}
	if err := NewAnalyzeStep(siteRenderer(), nil).Do(context.Background(), audit); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	return audit
}

func TestAggregateAndScoreSteps(t *testing.T) {
	t.Parallel()

	audit := analyzedAudit(t)

	if err := (AggregateStep{}).Do(context.Background(), audit); err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if audit.Report == nil || audit.Report.TotalPagesCrawled != 2 {
		t.Fatalf("unexpected report %+v", audit.Report)
	}

	if err := (ScoreStep{}).Do(context.Background(), audit); err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if audit.Scores == nil {
		t.Fatal("expected scores")
	}
	if audit.Scores.Overall < 0 || audit.Scores.Overall > 100 {
		t.Errorf("overall score out of range: %d", audit.Scores.Overall)
	}
	if len(audit.KeyFindings) != 11 {
		t.Errorf("expected 11 key findings, got %d", len(audit.KeyFindings))
	}
}

func TestAggregateStepEmpty(t *testing.T) {
	t.Parallel()

	if err := (AggregateStep{}).Do(context.Background(), newTestAudit()); err == nil {
		t.Error("expected error for audit without pages")
	}
	if err := (ScoreStep{}).Do(context.Background(), newTestAudit()); err == nil {
		t.Error("expected error for audit without report")
	}
}

func scoredAudit(t *testing.T) *model.Audit {
	t.Helper()

	audit := analyzedAudit(t)
	for _, step := range []Step{AggregateStep{}, ScoreStep{}} {
		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("%s failed: %v", step.Name(), err)
		}
	}
	return audit
}

func TestSummaryStepDo(t *testing.T) {
	t.Parallel()

	t.Run("stores parsed findings", func(t *testing.T) {
		t.Parallel()

		fake := &fakeSummarizer{result: summary.Parsed(model.Findings{ExecutiveSummary: "Looks good."})}
		step := NewSummaryStep(fake, nil)
		audit := scoredAudit(t)

		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if audit.Summary == nil || audit.Summary.ExecutiveSummary != "Looks good." {
			t.Errorf("unexpected summary %+v", audit.Summary)
		}
		if fake.got.HomepageHTML != testPage {
			t.Error("expected homepage HTML in summary input")
		}
		if _, msg := step.Started(audit); msg != "Generating AI summary with Fake..." {
			t.Errorf("unexpected message %q", msg)
		}
		if _, msg := step.Finished(audit); msg != "AI summary generated." {
			t.Errorf("unexpected message %q", msg)
		}
	})

	t.Run("keeps malformed output", func(t *testing.T) {
		t.Parallel()

		step := NewSummaryStep(&fakeSummarizer{result: summary.Malformed("{oops}")}, nil)
		audit := scoredAudit(t)

		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if audit.Summary != nil || audit.SummaryRaw != "{oops}" {
			t.Errorf("unexpected summary state %+v %q", audit.Summary, audit.SummaryRaw)
		}
	})

	t.Run("provider failure is absorbed", func(t *testing.T) {
		t.Parallel()

		step := NewSummaryStep(&fakeSummarizer{err: errors.New("connection refused")}, nil)
		audit := scoredAudit(t)

		if err := step.Do(context.Background(), audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if audit.Summary != nil || audit.SummaryRaw != "" {
			t.Error("expected no summary")
		}
		if _, msg := step.Finished(audit); msg != "AI summary unavailable." {
			t.Errorf("unexpected message %q", msg)
		}
	})
}

func TestEmailStepDo(t *testing.T) {
	t.Parallel()

	audit := analyzedAudit(t)
	if err := (EmailStep{}).Do(context.Background(), audit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audit.ContactEmail != "hello@example.com" {
		t.Errorf("ContactEmail = %q", audit.ContactEmail)
	}
}
