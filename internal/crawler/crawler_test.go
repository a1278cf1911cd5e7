package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/render"
)

// fakeSite serves canned documents and records render calls.
type fakeSite struct {
	pages map[string]string
	delay time.Duration

	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
}

func (s *fakeSite) Render(ctx context.Context, url string) render.Result {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return render.Result{URL: url, Err: ctx.Err()}
		}
	}

	doc, ok := s.pages[url]
	if !ok {
		return render.Result{URL: url, Status: 404, Err: &render.HTTPError{URL: url, Status: 404}}
	}
	return render.Result{Success: true, URL: url, HTML: doc, Status: 200}
}

func (s *fakeSite) renderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type countingCloser struct {
	closed atomic.Int32
	err    error
}

func (c *countingCloser) Close() error {
	c.closed.Add(1)
	return c.err
}

func page(links ...string) string {
	doc := "<html><body>"
	for _, l := range links {
		doc += fmt.Sprintf(`<a href="%s">link</a>`, l)
	}
	return doc + "</body></html>"
}

func TestCrawl(t *testing.T) {
	t.Parallel()

	t.Run("breadth first over same host links", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]string{
			"https://example.com/": page(
				"/about",
				"/blog#top",
				"https://other.com/external",
				"/logo.PNG",
				"/feed.xml",
				"mailto:hi@example.com",
			),
			"https://example.com/about": page("/", "/team"),
			"https://example.com/blog":  page("/blog/post-1"),
			"https://example.com/team":  page(),
		}}

		got, err := New(site, WithMaxPages(10)).Crawl(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{
			"https://example.com/",
			"https://example.com/about",
			"https://example.com/blog",
			"https://example.com/team",
			"https://example.com/blog/post-1",
		}
		if !slices.Equal(got, want) {
			t.Errorf("Crawl() = %v, want %v", got, want)
		}
	})

	t.Run("page budget is never exceeded", func(t *testing.T) {
		t.Parallel()

		links := make([]string, 0, 20)
		for i := range 20 {
			links = append(links, fmt.Sprintf("/p%d", i))
		}
		site := &fakeSite{pages: map[string]string{"https://example.com/": page(links...)}}

		got, err := New(site, WithMaxPages(5)).Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 urls, got %d: %v", len(got), got)
		}
		// Enough URLs were known after the home page, the rest were not rendered.
		if n := site.renderCount(); n != 1 {
			t.Errorf("expected 1 render, got %d", n)
		}
	})

	t.Run("budget of one returns only the start URL", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]string{"https://example.com/": page("/a", "/b")}}
		got, err := New(site, WithMaxPages(1)).Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got, []string{"https://example.com/"}) {
			t.Errorf("Crawl() = %v", got)
		}
	})

	t.Run("failed pages stay visited and contribute no links", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]string{
			"https://example.com/":    page("/gone", "/ok"),
			"https://example.com/ok":  page("/ok2"),
			"https://example.com/ok2": page(),
		}}
		got, err := New(site).Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{
			"https://example.com/",
			"https://example.com/gone",
			"https://example.com/ok",
			"https://example.com/ok2",
		}
		if !slices.Equal(got, want) {
			t.Errorf("Crawl() = %v, want %v", got, want)
		}
	})

	t.Run("start page failure yields only the start URL", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]string{}}
		got, err := New(site).Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected only the start URL, got %v", got)
		}
	})

	t.Run("batches respect concurrency", func(t *testing.T) {
		t.Parallel()

		links := make([]string, 0, 12)
		pages := map[string]string{}
		for i := range 12 {
			links = append(links, fmt.Sprintf("/p%d", i))
			pages[fmt.Sprintf("https://example.com/p%d", i)] = page()
		}
		pages["https://example.com/"] = page(links...)
		site := &fakeSite{pages: pages, delay: 10 * time.Millisecond}

		got, err := New(site, WithMaxPages(13), WithConcurrency(3)).Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 13 {
			t.Errorf("expected 13 urls, got %d", len(got))
		}
		if site.maxInFlight > 3 {
			t.Errorf("expected at most 3 concurrent renders, got %d", site.maxInFlight)
		}
	})

	t.Run("ignore and follow patterns", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]string{
			"https://example.com/": page("/blog/a", "/blog/b", "/admin/panel", "/shop"),
		}}
		c := New(site,
			WithFollowPatterns([]string{"/blog/*", "/admin/*"}),
			WithIgnorePatterns([]string{"/admin/*"}),
		)
		got, err := c.Crawl(context.Background(), "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://example.com/", "https://example.com/blog/a", "https://example.com/blog/b"}
		if !slices.Equal(got, want) {
			t.Errorf("Crawl() = %v, want %v", got, want)
		}
	})

	t.Run("invalid start URL", func(t *testing.T) {
		t.Parallel()

		for _, u := range []string{"", "example.com", "ftp://example.com/", "https://"} {
			closer := &countingCloser{}
			_, err := New(&fakeSite{}, WithReleaser(closer)).Crawl(context.Background(), u)
			if !errors.Is(err, ErrInvalidStartURL) {
				t.Errorf("Crawl(%q) error = %v, want ErrInvalidStartURL", u, err)
			}
			if closer.closed.Load() != 1 {
				t.Errorf("Crawl(%q) closed releaser %d times", u, closer.closed.Load())
			}
		}
	})
}

func TestCrawlReleasesOnce(t *testing.T) {
	t.Parallel()

	t.Run("after success", func(t *testing.T) {
		t.Parallel()

		closer := &countingCloser{}
		site := &fakeSite{pages: map[string]string{"https://example.com/": page("/a"), "https://example.com/a": page()}}
		if _, err := New(site, WithReleaser(closer)).Crawl(context.Background(), "https://example.com/"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := closer.closed.Load(); got != 1 {
			t.Errorf("expected 1 close, got %d", got)
		}
	})

	t.Run("after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		closer := &countingCloser{}
		site := &fakeSite{pages: map[string]string{"https://example.com/": page("/a")}}
		_, err := New(site, WithReleaser(closer)).Crawl(ctx, "https://example.com/")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if got := closer.closed.Load(); got != 1 {
			t.Errorf("expected 1 close, got %d", got)
		}
		if site.renderCount() != 0 {
			t.Errorf("expected no renders after cancellation, got %d", site.renderCount())
		}
	})

	t.Run("close error is reported", func(t *testing.T) {
		t.Parallel()

		closeErr := errors.New("browser did not exit")
		closer := &countingCloser{err: closeErr}
		site := &fakeSite{pages: map[string]string{"https://example.com/": page()}}
		got, err := New(site, WithReleaser(closer)).Crawl(context.Background(), "https://example.com/")
		if !errors.Is(err, closeErr) {
			t.Errorf("expected close error, got %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected URLs to be returned alongside the close error, got %v", got)
		}
	})
}

func TestCrawlerOptions(t *testing.T) {
	t.Parallel()

	c := New(nil)
	if c.maxPages != DefaultMaxPages || c.concurrency != DefaultConcurrency {
		t.Errorf("unexpected defaults: maxPages=%d concurrency=%d", c.maxPages, c.concurrency)
	}

	c = New(nil, WithMaxPages(0), WithConcurrency(-1))
	if c.maxPages != DefaultMaxPages || c.concurrency != DefaultConcurrency {
		t.Error("non-positive values should be ignored")
	}

	c = New(nil, WithMaxPages(50), WithConcurrency(2))
	if c.maxPages != 50 || c.concurrency != 2 {
		t.Errorf("options not applied: maxPages=%d concurrency=%d", c.maxPages, c.concurrency)
	}
}
