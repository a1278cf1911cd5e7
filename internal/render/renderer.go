package render

import (
	"context"
	"strings"
	"time"
)

// Defaults shared by every renderer.
const (
	// DefaultUserAgent is a desktop Chrome user agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

	// DefaultAcceptLanguage is sent with every request.
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	// DefaultTimeout bounds one navigation attempt.
	DefaultTimeout = 20 * time.Second

	// DefaultRetries is the number of additional attempts after a failure.
	DefaultRetries = 2
)

// Renderer renders one URL.
// Implementations must be safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, url string) Result
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, url string) Result

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, url string) Result {
	return f(ctx, url)
}

// Result is the outcome of rendering a URL.
// Success is true exactly when HTML is non-empty and Status is below 400.
type Result struct {
	Success bool
	URL     string
	HTML    string
	Status  int

	// Headers holds the document response headers with lower-cased keys.
	Headers map[string]string

	// Err is the error of the last attempt when Success is false.
	Err error

	// Attempts is the number of attempts made.
	Attempts int
}

// ErrorMessage returns the failure message, or "" on success.
func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// newResult builds a Result from a received response, deriving Success and
// the error from status and HTML.
func newResult(url, html string, status int, headers map[string]string) Result {
	r := Result{URL: url, HTML: html, Status: status, Headers: headers}
	switch {
	case status >= 400:
		r.Err = &HTTPError{URL: url, Status: status}
	case html == "":
		r.Err = ErrEmptyDocument
	default:
		r.Success = true
	}
	return r
}

// failed builds a Result for an attempt that got no usable response.
func failed(url string, err error) Result {
	return Result{URL: url, Err: err}
}

// lowerKeys returns a copy of headers with lower-cased keys.
// Repeated headers are joined with ", ".
func lowerKeys[V any](headers map[string]V, join func(V) string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.ToLower(k)
		value := join(v)
		if prev, ok := out[key]; ok && prev != "" {
			value = prev + ", " + value
		}
		out[key] = value
	}
	return out
}

// Metrics receives render outcomes. pipeline.Metrics implements it.
type Metrics interface {
	ObserveRender(success bool)
	ObserveRetry()
	ObserveRenderError(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRender(bool)        {}
func (nopMetrics) ObserveRetry()             {}
func (nopMetrics) ObserveRenderError(string) {}

// withRetries runs attempt up to retries+1 times and returns the first
// successful Result, or the last failure. It stops early when ctx is done.
func withRetries(ctx context.Context, retries int, m Metrics, attempt func(ctx context.Context) Result) Result {
	if m == nil {
		m = nopMetrics{}
	}

	var last Result
	for i := 0; i <= retries; i++ {
		if i > 0 {
			m.ObserveRetry()
		}
		last = attempt(ctx)
		last.Attempts = i + 1
		if last.Success {
			m.ObserveRender(true)
			return last
		}
		m.ObserveRenderError(ErrorKind(last.Err))
		if ctx.Err() != nil {
			break
		}
	}
	m.ObserveRender(false)
	return last
}
