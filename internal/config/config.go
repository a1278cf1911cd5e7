package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "seoaudit"

	// DefaultMaxPages is the crawl budget per site.
	DefaultMaxPages = 10

	// DefaultCrawlConcurrency is the number of pages rendered at once
	// while discovering URLs.
	DefaultCrawlConcurrency = 5

	// DefaultAnalysisConcurrency is the number of pages rendered and
	// profiled at once during analysis.
	DefaultAnalysisConcurrency = 5

	// DefaultBatchSize is the number of sites audited at once.
	// Each audit launches its own browser, so keep this small.
	DefaultBatchSize = 2

	// DefaultRenderTimeout bounds one navigation.
	DefaultRenderTimeout = 20 * time.Second

	// DefaultRenderRetries is the number of extra attempts after a failed render.
	DefaultRenderRetries = 2

	// DefaultProfileTimeout bounds one profiling session.
	DefaultProfileTimeout = 30 * time.Second

	// DefaultUserAgent is a desktop Chrome user agent. Some sites serve
	// different markup to unknown agents, which would skew the audit.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

	// DefaultAcceptLanguage is sent with every request.
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	// DefaultCacheSize is the number of rendered pages kept in memory.
	DefaultCacheSize = 256

	// DefaultSummaryTimeout bounds one summary provider call.
	DefaultSummaryTimeout = 60 * time.Second

	// DefaultOllamaBaseURL is the address of a local Ollama server.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultOllamaModel is the Ollama model used for summaries.
	DefaultOllamaModel = "llama3:8b"

	// DefaultOpenAIBaseURL is the OpenAI API endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com"

	// DefaultOpenAIModel is the OpenAI model used for summaries.
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultGoogleBaseURL is the Gemini API endpoint.
	DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultGoogleModel is the Gemini model used for summaries.
	DefaultGoogleModel = "gemini-1.5-flash"

	// DefaultServeAddress is the listen address of the HTTP API.
	DefaultServeAddress = ":8080"
)

// Renderer names.
const (
	RendererChrome = "chrome"
	RendererHTTP   = "http"
)

// Summary provider names.
const (
	ProviderNone   = "none"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// SummaryConfig configures the narrative summary provider.
type SummaryConfig struct {
	// Provider is one of ProviderNone, ProviderOllama, ProviderOpenAI or
	// ProviderGoogle.
	Provider string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Model is the model name passed to the provider.
	Model string

	// APIKey authenticates against OpenAI or Google. Never logged.
	APIKey string

	// Timeout bounds one provider call.
	Timeout time.Duration
}

// Config holds all configuration options for seoaudit.
// It is populated from CLI flags and the .seoaudit file, then passed
// explicitly into every component constructor.
type Config struct {
	// Targets is the list of start URLs to audit.
	Targets []string

	// MaxPages is the crawl budget per site.
	MaxPages int

	// CrawlConcurrency is the batch size of the crawler.
	CrawlConcurrency int

	// AnalysisConcurrency bounds the pages rendered and profiled at once.
	AnalysisConcurrency int

	// BatchSize is the number of sites audited concurrently.
	BatchSize int

	// Renderer selects the page renderer: RendererChrome or RendererHTTP.
	// The HTTP renderer does not execute JavaScript and disables profiling.
	Renderer string

	// RenderTimeout bounds one navigation.
	RenderTimeout time.Duration

	// RenderRetries is the number of extra attempts after a failed render.
	RenderRetries int

	// ProfileTimeout bounds one profiling session.
	ProfileTimeout time.Duration

	// NoProfile disables technical profiling.
	NoProfile bool

	// Screenshots saves the profiler screenshots under ScreenshotDir.
	Screenshots bool

	// ScreenshotDir is where screenshots are written.
	// Defaults to the XDG cache directory.
	ScreenshotDir string

	// RateLimit is the maximum number of renders per second per site.
	// Zero means unlimited.
	RateLimit float64

	// CacheSize is the number of rendered pages kept for reuse between
	// the crawl and the analysis.
	CacheSize int

	// UserAgent is sent with every request.
	UserAgent string

	// AcceptLanguage is sent with every request.
	AcceptLanguage string

	// Proxy routes traffic through a proxy. socks5:// URLs are used by
	// both renderers; http:// proxies only by Chrome.
	Proxy string

	// ChromePath overrides the browser executable.
	ChromePath string

	// Headful shows the browser window. Useful for debugging.
	Headful bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport enables JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .seoaudit is searched in the current directory, the XDG
	// config directory and the home directory.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores completed audits in the history database.
	SaveToDB bool

	// Summary configures the narrative summary provider.
	Summary SummaryConfig

	// ServeAddress is the listen address of `seoaudit serve`.
	ServeAddress string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxPages:            DefaultMaxPages,
		CrawlConcurrency:    DefaultCrawlConcurrency,
		AnalysisConcurrency: DefaultAnalysisConcurrency,
		BatchSize:           DefaultBatchSize,
		Renderer:            RendererChrome,
		RenderTimeout:       DefaultRenderTimeout,
		RenderRetries:       DefaultRenderRetries,
		ProfileTimeout:      DefaultProfileTimeout,
		CacheSize:           DefaultCacheSize,
		UserAgent:           DefaultUserAgent,
		AcceptLanguage:      DefaultAcceptLanguage,
		DBDir:               XDGDataDir(),
		SaveToDB:            true,
		ScreenshotDir:       filepath.Join(XDGCacheDir(), "screenshots"),
		Summary: SummaryConfig{
			Provider: ProviderNone,
			Timeout:  DefaultSummaryTimeout,
		},
		ServeAddress: DefaultServeAddress,
	}
}

// XDGDataDir returns the XDG data directory for seoaudit.
// On Linux: ~/.local/share/seoaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for seoaudit.
// On Linux: ~/.config/seoaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for seoaudit.
// On Linux: ~/.cache/seoaudit
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// NormalizeTarget turns user input into a start URL.
// A missing scheme defaults to https.
func NormalizeTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

// Validate checks the configuration for an audit run, including targets.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	for _, target := range c.Targets {
		if err := ValidateTarget(target); err != nil {
			return err
		}
	}
	return c.ValidateSettings()
}

// ValidateTarget checks that target is an absolute http(s) URL.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, target)
	}
	return nil
}

// ValidateSettings checks everything except the targets. The HTTP API
// uses it, since its targets arrive with each request.
func (c *Config) ValidateSettings() error {
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.CrawlConcurrency < 1 || c.AnalysisConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if c.RenderTimeout <= 0 || c.ProfileTimeout <= 0 || c.Summary.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RenderRetries < 0 {
		return ErrInvalidRetries
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	switch c.Renderer {
	case RendererChrome, RendererHTTP:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRenderer, c.Renderer)
	}
	switch c.Summary.Provider {
	case ProviderNone, ProviderOllama, ProviderOpenAI, ProviderGoogle:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Summary.Provider)
	}
	return nil
}

// ProfilingEnabled reports whether pages are profiled in the browser.
func (c *Config) ProfilingEnabled() bool {
	return !c.NoProfile && c.Renderer == RendererChrome
}

// ApplyFile stores f as the site configuration source and fills summary
// settings that still hold their defaults from f's summary block.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	s := f.Summary
	if c.Summary.Provider == ProviderNone && s.Provider != "" {
		c.Summary.Provider = s.Provider
	}
	if c.Summary.BaseURL == "" {
		c.Summary.BaseURL = s.BaseURL
	}
	if c.Summary.Model == "" {
		c.Summary.Model = s.Model
	}
	if c.Summary.APIKey == "" {
		c.Summary.APIKey = s.APIKey
	}
}

// SiteConfig returns the merged site configuration for host.
func (c *Config) SiteConfig(host string) SiteConfig {
	if c.SiteConfigs == nil {
		return SiteConfig{}
	}
	return c.SiteConfigs.GetSiteConfig(host)
}
