package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"
)

// HTTPRenderer fetches pages without executing JavaScript.
type HTTPRenderer struct {
	settings
	collector *colly.Collector
}

// NewHTTPRenderer creates a colly-backed renderer.
func NewHTTPRenderer(opts ...Option) (*HTTPRenderer, error) {
	s := newSettings(opts)

	transport := s.transport
	if transport == nil {
		t, err := newTransport(s.proxyURL)
		if err != nil {
			return nil, err
		}
		transport = t
	}
	if len(s.headers) > 0 || s.cookie != "" {
		transport = &headerInjectingTransport{base: transport, cookie: s.cookie, headers: s.headers}
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(s.timeout)
	c.WithTransport(transport)
	c.SetCookieJar(jar)

	return &HTTPRenderer{settings: s, collector: c}, nil
}

// Render fetches url, retrying failed attempts.
func (r *HTTPRenderer) Render(ctx context.Context, url string) Result {
	result := withRetries(ctx, r.retries, r.metrics, func(ctx context.Context) Result {
		return r.attempt(ctx, url)
	})
	if !result.Success {
		r.logger.Debug("fetch failed", "url", url, "attempts", result.Attempts, "error", result.Err)
	}
	return result
}

func (r *HTTPRenderer) attempt(ctx context.Context, url string) Result {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	c := r.collector.Clone()
	c.Context = ctx

	var (
		result   Result
		received bool
	)
	c.OnResponse(func(resp *colly.Response) {
		received = true
		var headers map[string]string
		if resp.Headers != nil {
			headers = lowerKeys(*resp.Headers, func(v []string) string { return strings.Join(v, ", ") })
		}
		result = newResult(url, string(resp.Body), resp.StatusCode, headers)
	})

	hdr := http.Header{}
	hdr.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	hdr.Set("Accept-Language", r.acceptLanguage)
	// Asking for gzip explicitly keeps the Content-Encoding header visible;
	// colly decompresses the body itself.
	hdr.Set("Accept-Encoding", "gzip")

	err := c.Request(http.MethodGet, url, nil, nil, hdr)
	if received {
		return result
	}
	if err == nil {
		err = errors.New("no response received")
	}

	switch {
	case ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded):
		return failed(url, ctx.Err())
	case IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return failed(url, &TimeoutError{URL: url, Timeout: r.timeout.String(), Err: err})
	default:
		return failed(url, &NetworkError{URL: url, Err: err})
	}
}
