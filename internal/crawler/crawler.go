package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoaudit/internal/render"
)

const (
	// DefaultMaxPages is the page budget when none is configured.
	DefaultMaxPages = 10

	// DefaultConcurrency is the number of renders per batch.
	DefaultConcurrency = 5
)

// ErrInvalidStartURL is returned when the start URL is not an absolute
// http(s) URL.
var ErrInvalidStartURL = errors.New("invalid start URL")

// Crawler discovers same-host URLs breadth-first.
// A Crawler holds no per-crawl state and may run several crawls, but
// crawls sharing a releaser must not overlap.
type Crawler struct {
	renderer render.Renderer

	// maxPages bounds the number of URLs returned by Crawl.
	maxPages int

	// concurrency is the batch size.
	concurrency int

	// ignorePatterns are path globs that are never crawled.
	ignorePatterns []string

	// followPatterns, when set, restrict crawling to matching paths.
	followPatterns []string

	// releaser is closed once at the end of every Crawl.
	releaser io.Closer

	logger *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages sets the page budget. Values below 1 are ignored.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithConcurrency sets the number of simultaneous renders per batch.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithIgnorePatterns sets path globs to skip (e.g. "/admin/*", "*.php").
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts the crawl to paths matching at least one glob.
// The start URL is always visited.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// WithReleaser registers a resource to close when Crawl returns.
func WithReleaser(r io.Closer) Option {
	return func(c *Crawler) {
		c.releaser = r
	}
}

// WithCrawlerLogger sets the logger.
func WithCrawlerLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Crawler that fetches pages with renderer.
func New(renderer render.Renderer, opts ...Option) *Crawler {
	c := &Crawler{
		renderer:    renderer,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl returns the URLs visited from startURL in visit order, the start
// URL first. It never returns more than the page budget nor a URL on
// another host. Failed renders are logged and contribute no links.
//
// On cancellation Crawl returns the URLs visited so far with ctx.Err().
func (c *Crawler) Crawl(ctx context.Context, startURL string) (urls []string, err error) {
	defer func() {
		if c.releaser == nil {
			return
		}
		if cerr := c.releaser.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release renderer: %w", cerr)
		}
	}()

	start, err := url.Parse(startURL)
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	host := start.Hostname()

	frontier := NewFrontier()
	frontier.Add(normalizeURL(start.String()))

	for frontier.Pending() > 0 && frontier.VisitedCount() < c.maxPages {
		if err := ctx.Err(); err != nil {
			return frontier.Visited(), err
		}

		// Once enough URLs are known the rest of the budget is filled
		// from the queue without rendering.
		saturated := frontier.Size() > c.maxPages

		batch := frontier.Take(min(c.concurrency, c.maxPages-frontier.VisitedCount()))
		if saturated {
			continue
		}

		found := c.renderBatch(ctx, batch)
		for _, links := range found {
			for _, link := range links {
				if !SameHost(host, link) || IsAssetURL(link) || !c.shouldCrawl(link) {
					continue
				}
				frontier.Add(normalizeURL(link))
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return frontier.Visited(), err
	}
	c.logger.Debug("crawl finished", "start", startURL, "visited", frontier.VisitedCount(), "queued", frontier.Pending())
	return frontier.Visited(), nil
}

// renderBatch renders every URL concurrently and returns the outlinks of
// each, indexed like batch.
func (c *Crawler) renderBatch(ctx context.Context, batch []string) [][]string {
	found := make([][]string, len(batch))

	var g errgroup.Group
	for i, u := range batch {
		g.Go(func() error {
			result := c.renderer.Render(ctx, u)
			if !result.Success {
				c.logger.Warn("failed to crawl page", "url", u, "error", result.ErrorMessage())
				return nil
			}
			pageURL := u
			if result.URL != "" {
				pageURL = result.URL
			}
			links, err := ExtractLinks(result.HTML, pageURL)
			if err != nil {
				c.logger.Warn("failed to parse page", "url", u, "error", err)
				return nil
			}
			found[i] = links
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	return found
}
