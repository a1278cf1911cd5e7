// Package profiler measures how a page behaves in a real browser.
//
// ChromeProfiler loads a URL in a dedicated, instrumented tab and records
// paint and navigation timings, JavaScript and CSS coverage, console
// warnings and errors, uncaught exceptions, a JPEG screenshot and the
// rendered pixel widths of the title and meta description.
//
// Profiling is best effort. Any failure yields model.EmptyTechnicalMetrics
// with ProfileError set, and never aborts the audit.
package profiler
