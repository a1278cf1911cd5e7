package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for audits.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry       *prometheus.Registry
	RendersTotal   *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
	ErrorsTotal    *prometheus.CounterVec
	PagesTotal     *prometheus.CounterVec
	AuditsTotal    *prometheus.CounterVec
	AuditDuration  prometheus.Histogram
	AuditsInFlight prometheus.Gauge
	OverallScore   prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	renders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_renders_total",
			Help: "Total page renders by outcome.",
		},
		[]string{"outcome"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seoaudit_render_retries_total",
			Help: "Total number of render retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_render_errors_total",
			Help: "Total number of render errors by kind.",
		},
		[]string{"kind"},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_pages_total",
			Help: "Total pages handled by the analysis step by outcome.",
		},
		[]string{"outcome"},
	)
	audits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seoaudit_audits_total",
			Help: "Total audits by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seoaudit_audit_duration_seconds",
			Help:    "Wall time of complete audits.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "seoaudit_audits_in_flight",
			Help: "Number of audits currently running.",
		},
	)
	overall := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seoaudit_overall_score",
			Help:    "Distribution of overall SEO scores.",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		},
	)

	registry.MustRegister(renders, retries, errorsTotal, pages, audits, duration, inFlight, overall)

	return &Metrics{
		Registry:       registry,
		RendersTotal:   renders,
		RetriesTotal:   retries,
		ErrorsTotal:    errorsTotal,
		PagesTotal:     pages,
		AuditsTotal:    audits,
		AuditDuration:  duration,
		AuditsInFlight: inFlight,
		OverallScore:   overall,
	}
}

// ObserveRender counts one finished render. It implements render.Metrics.
func (m *Metrics) ObserveRender(success bool) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(outcome(success)).Inc()
}

// ObserveRetry counts one retry. It implements render.Metrics.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// ObserveRenderError counts one failed attempt. It implements render.Metrics.
func (m *Metrics) ObserveRenderError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// ObservePage counts one page of the analysis step.
func (m *Metrics) ObservePage(analyzed bool) {
	if m == nil {
		return
	}
	label := "analyzed"
	if !analyzed {
		label = "failed"
	}
	m.PagesTotal.WithLabelValues(label).Inc()
}

// AuditStarted increments the in-flight gauge.
func (m *Metrics) AuditStarted() {
	if m == nil {
		return
	}
	m.AuditsInFlight.Inc()
}

// AuditFinished records a completed audit and decrements the in-flight gauge.
// A negative score means the audit produced none.
func (m *Metrics) AuditFinished(result string, d time.Duration, score int) {
	if m == nil {
		return
	}
	m.AuditsInFlight.Dec()
	m.AuditsTotal.WithLabelValues(result).Inc()
	m.AuditDuration.Observe(d.Seconds())
	if score >= 0 {
		m.OverallScore.Observe(float64(score))
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
