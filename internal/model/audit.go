package model

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Audit is the result of one complete audit run.
// It is filled in step by step by the pipeline and then handed to the
// report writers and the history database.
type Audit struct {
	// ID uniquely identifies the audit in the history database and the HTTP API.
	ID uuid.UUID `json:"id"`

	// StartURL is the URL the crawl started from.
	StartURL string `json:"start_url"`

	// Host is the hostname of StartURL. Only same-host pages are crawled.
	Host string `json:"host"`

	// MaxPages is the crawl budget.
	MaxPages int `json:"max_pages"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// DiscoveredURLs lists every URL the crawler discovered, homepage first.
	DiscoveredURLs []string `json:"discovered_urls"`

	// Pages holds one result per successfully analyzed page, in discovery order.
	Pages []PageResult `json:"pages"`

	// FailedURLs lists discovered URLs that could not be analyzed.
	FailedURLs []string `json:"failed_urls,omitempty"`

	Report *SiteReport `json:"report,omitempty"`
	Scores *Scores     `json:"scores,omitempty"`

	// KeyFindings is the deterministic rulebook output.
	KeyFindings []KeyFinding `json:"key_findings,omitempty"`

	// Summary is the narrative from a summary provider, if one was configured
	// and its response parsed.
	Summary *Findings `json:"summary,omitempty"`

	// SummaryRaw keeps a provider response that could not be parsed.
	SummaryRaw string `json:"summary_raw,omitempty"`

	// ContactEmail is the first email address found on the site.
	ContactEmail string `json:"contact_email,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut is true if the audit was cut short by its deadline.
	TimedOut bool `json:"timed_out"`

	// Error contains the fatal error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewAudit creates an audit for startURL with a fresh ID.
func NewAudit(startURL string, maxPages int) *Audit {
	host := ""
	if u, err := url.Parse(startURL); err == nil {
		host = u.Hostname()
	}
	return &Audit{
		ID:             uuid.New(),
		StartURL:       startURL,
		Host:           host,
		MaxPages:       maxPages,
		StartedAt:      time.Now(),
		DiscoveredURLs: []string{},
		Pages:          []PageResult{},
	}
}

// Homepage returns the result for StartURL, falling back to the first
// analyzed page. It returns nil when no page was analyzed.
func (a *Audit) Homepage() *PageResult {
	for i := range a.Pages {
		if a.Pages[i].Analysis.URL == a.StartURL {
			return &a.Pages[i]
		}
	}
	if len(a.Pages) > 0 {
		return &a.Pages[0]
	}
	return nil
}

// Analyses returns the PageAnalysis of every analyzed page.
func (a *Audit) Analyses() []PageAnalysis {
	out := make([]PageAnalysis, 0, len(a.Pages))
	for _, p := range a.Pages {
		out = append(out, p.Analysis)
	}
	return out
}

// Technicals returns the TechnicalMetrics of every analyzed page,
// parallel to Analyses.
func (a *Audit) Technicals() []TechnicalMetrics {
	out := make([]TechnicalMetrics, 0, len(a.Pages))
	for _, p := range a.Pages {
		out = append(out, p.Technical)
	}
	return out
}

// SetError records a fatal error.
func (a *Audit) SetError(err error) {
	a.Error = err
	if err != nil {
		a.ErrorMessage = err.Error()
	}
}

// Duration returns how long the audit took, or zero if it has not finished.
func (a *Audit) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// AuditBrief is the one-line view of an audit used by history listings.
type AuditBrief struct {
	ID          uuid.UUID      `json:"id"`
	StartURL    string         `json:"start_url"`
	Host        string         `json:"host"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	PagesCount  int            `json:"pages_count"`
	FailedCount int            `json:"failed_count"`
	Scored      bool           `json:"scored"`
	Overall     int            `json:"overall"`
	Categories  CategoryScores `json:"categories"`
	Error       string         `json:"error,omitempty"`
}

// Brief returns the one-line view of a.
func (a *Audit) Brief() AuditBrief {
	b := AuditBrief{
		ID:          a.ID,
		StartURL:    a.StartURL,
		Host:        a.Host,
		StartedAt:   a.StartedAt,
		FinishedAt:  a.FinishedAt,
		PagesCount:  len(a.Pages),
		FailedCount: len(a.FailedURLs),
		Error:       a.ErrorMessage,
	}
	if a.Scores != nil {
		b.Scored = true
		b.Overall = a.Scores.Overall
		b.Categories = a.Scores.Categories
	}
	return b
}
