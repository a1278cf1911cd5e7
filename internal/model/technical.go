package model

import "math"

// PerformanceMetrics holds navigation timings in milliseconds.
type PerformanceMetrics struct {
	// FCP is the first-contentful-paint start time, 0 when the entry is absent.
	FCP int64 `json:"fcp"`

	// DOMContentLoaded is domContentLoadedEventEnd - navigationStart.
	DOMContentLoaded int64 `json:"dom_content_loaded"`

	// FullLoad is loadEventEnd - navigationStart.
	FullLoad int64 `json:"full_load"`
}

// CoverageStats describes how much of the loaded JS or CSS was executed or applied.
type CoverageStats struct {
	TotalBytes    int64 `json:"total_bytes"`
	UnusedBytes   int64 `json:"unused_bytes"`
	UnusedPercent int   `json:"unused_percent"`
}

// NewCoverageStats builds CoverageStats and derives UnusedPercent.
// A zero total yields 0 percent.
func NewCoverageStats(totalBytes, unusedBytes int64) CoverageStats {
	percent := 0
	if totalBytes > 0 {
		percent = int(math.Round(float64(unusedBytes) / float64(totalBytes) * 100))
	}
	return CoverageStats{
		TotalBytes:    totalBytes,
		UnusedBytes:   unusedBytes,
		UnusedPercent: percent,
	}
}

// CodeCoverage holds JS and CSS coverage of one page load.
type CodeCoverage struct {
	JS  CoverageStats `json:"js"`
	CSS CoverageStats `json:"css"`
}

// ConsoleMessage is a warn or error entry from the page console.
type ConsoleMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PixelWidths holds canvas-measured text widths approximating search result rendering.
type PixelWidths struct {
	Title           int `json:"title"`
	MetaDescription int `json:"meta_description"`
}

// TechnicalMetrics is the result of profiling one page.
// Every field is independently optional; a failed profile yields the empty shape.
type TechnicalMetrics struct {
	Performance     *PerformanceMetrics `json:"performance"`
	Coverage        *CodeCoverage       `json:"coverage"`
	ConsoleMessages []ConsoleMessage    `json:"console_messages"`
	JSErrors        []string            `json:"js_errors"`
	Screenshot      []byte              `json:"-"`
	PixelWidths     *PixelWidths        `json:"pixel_widths"`

	// ProfileError records why profiling degraded to the empty shape.
	// It is not counted as a page JavaScript error.
	ProfileError string `json:"profile_error,omitempty"`
}

// EmptyTechnicalMetrics returns the degraded shape used when profiling fails
// or is disabled.
func EmptyTechnicalMetrics() TechnicalMetrics {
	return TechnicalMetrics{
		ConsoleMessages: []ConsoleMessage{},
		JSErrors:        []string{},
	}
}

// HasJSErrors reports whether the page raised uncaught exceptions.
func (t TechnicalMetrics) HasJSErrors() bool {
	return len(t.JSErrors) > 0
}
