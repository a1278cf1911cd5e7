package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no URL to audit is given.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidURL is returned when a target is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid target URL: must be an absolute http or https URL")

	// ErrInvalidMaxPages is returned when the page budget is below one.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidConcurrency is returned when a concurrency setting is below one.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrUnknownRenderer is returned for a renderer other than chrome or http.
	ErrUnknownRenderer = errors.New("unknown renderer: must be chrome or http")

	// ErrUnknownProvider is returned for an unsupported summary provider.
	ErrUnknownProvider = errors.New("unknown summary provider: must be none, ollama, openai or google")
)
