package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/model"
)

var (
	// ErrNoJSON is returned when a provider response contains no JSON object.
	ErrNoJSON = errors.New("no JSON object found in provider response")

	// ErrMissingAPIKey is returned when a provider that needs an API key has none.
	ErrMissingAPIKey = errors.New("summary provider API key is not configured")

	// ErrEmptyResponse is returned when a provider answers without content.
	ErrEmptyResponse = errors.New("summary provider returned an empty response")
)

// Input is everything a provider is given to write a summary.
type Input struct {
	Report       *model.SiteReport
	Scores       model.Scores
	HomepageHTML string
}

// Summarizer produces a narrative summary for an audited site.
type Summarizer interface {
	// Name identifies the provider in logs and progress messages.
	Name() string
	Summarize(ctx context.Context, in Input) (Result, error)
}

// ResultKind distinguishes a decoded summary from raw model output.
type ResultKind int

const (
	// KindParsed means the model output decoded into model.Findings.
	KindParsed ResultKind = iota
	// KindMalformed means the model answered but the output could not be decoded.
	KindMalformed
)

// String returns the kind name.
func (k ResultKind) String() string {
	if k == KindParsed {
		return "parsed"
	}
	return "malformed"
}

// Result is either parsed findings or the raw text the model produced.
type Result struct {
	kind     ResultKind
	findings model.Findings
	raw      string
}

// Parsed wraps decoded findings.
func Parsed(f model.Findings) Result {
	return Result{kind: KindParsed, findings: f}
}

// Malformed wraps model output that could not be decoded.
func Malformed(raw string) Result {
	return Result{kind: KindMalformed, raw: raw}
}

// Kind reports which variant r holds.
func (r Result) Kind() ResultKind { return r.kind }

// Findings returns the decoded findings and whether r is a Parsed result.
func (r Result) Findings() (model.Findings, bool) {
	return r.findings, r.kind == KindParsed
}

// Raw returns the undecodable model output of a Malformed result.
func (r Result) Raw() string { return r.raw }

// Option configures a provider client.
type Option func(*options)

type options struct {
	client *http.Client
	logger *slog.Logger
}

// WithHTTPClient sets the HTTP client used to call the provider.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(timeout time.Duration, opts []Option) options {
	if timeout <= 0 {
		timeout = config.DefaultSummaryTimeout
	}
	o := options{
		client: &http.Client{Timeout: timeout},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the Summarizer selected by cfg.Provider. It returns nil and no
// error when summaries are disabled.
func New(cfg config.SummaryConfig, opts ...Option) (Summarizer, error) {
	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderOllama:
		return NewOllama(cfg, opts...), nil
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAI(cfg, opts...), nil
	case config.ProviderGoogle:
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewGoogle(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}
