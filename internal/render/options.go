package render

import (
	"log/slog"
	"net/http"
	"time"
)

// settings holds the options shared by every renderer.
type settings struct {
	timeout        time.Duration
	retries        int
	userAgent      string
	acceptLanguage string
	headers        map[string]string
	cookie         string
	proxyURL       string
	transport      http.RoundTripper
	metrics        Metrics
	logger         *slog.Logger
}

func defaultSettings() settings {
	return settings{
		timeout:        DefaultTimeout,
		retries:        DefaultRetries,
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		metrics:        nopMetrics{},
		logger:         slog.Default(),
	}
}

func newSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option configures a renderer.
type Option func(*settings)

// WithTimeout sets the per-attempt navigation timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many times a failed render is retried.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(lang string) Option {
	return func(s *settings) {
		if lang != "" {
			s.acceptLanguage = lang
		}
	}
}

// WithHeaders adds extra request headers, for example an Authorization header
// for staging sites.
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		s.headers = headers
	}
}

// WithCookie sends a raw cookie string such as "session=abc" with every request.
func WithCookie(cookie string) Option {
	return func(s *settings) {
		s.cookie = cookie
	}
}

// WithProxy routes HTTPRenderer traffic through a SOCKS5 proxy given as
// "socks5://host:port".
func WithProxy(proxyURL string) Option {
	return func(s *settings) {
		s.proxyURL = proxyURL
	}
}

// WithTransport replaces the HTTPRenderer transport. Mainly used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = rt
	}
}

// WithRenderMetrics reports attempts, retries and error kinds to m.
func WithRenderMetrics(m Metrics) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
