package model

// Overview lists the URLs of pages with metadata or heading problems.
type Overview struct {
	PagesWithShortTitles         []string `json:"pages_with_short_titles"`
	PagesWithLongTitles          []string `json:"pages_with_long_titles"`
	PagesWithMissingDescriptions []string `json:"pages_with_missing_descriptions"`
	PagesWithMissingH1           []string `json:"pages_with_missing_h1"`
	PagesWithMultipleH1          []string `json:"pages_with_multiple_h1"`
}

// ImageSummary aggregates image checks.
type ImageSummary struct {
	TotalImages          int      `json:"total_images"`
	PagesWithMissingAlts []string `json:"pages_with_missing_alts"`
}

// LinkSummary holds rounded per-page link averages.
type LinkSummary struct {
	AvgInternal int `json:"avg_internal"`
	AvgExternal int `json:"avg_external"`
}

// StructuredDataSummary aggregates JSON-LD usage.
type StructuredDataSummary struct {
	PagesWithSchema int `json:"pages_with_schema"`

	// SchemaTypes is the deduplicated union in first-seen order.
	SchemaTypes []string `json:"schema_types"`
}

// PageErrors lists the JavaScript errors raised by one page.
type PageErrors struct {
	URL    string   `json:"url"`
	Errors []string `json:"errors"`
}

// TechnicalSummary aggregates technical profiles.
// Averages only include pages that reported the metric.
type TechnicalSummary struct {
	AvgFCP              int          `json:"avg_fcp"`
	AvgFullLoad         int          `json:"avg_full_load"`
	PagesWithErrors     []PageErrors `json:"pages_with_errors"`
	AvgUnusedJSPercent  int          `json:"avg_unused_js_percent"`
	AvgUnusedCSSPercent int          `json:"avg_unused_css_percent"`
	PagesWithGzip       int          `json:"pages_with_gzip"`
}

// SiteReport is the site-wide aggregate of all analyzed pages.
type SiteReport struct {
	URL               string                `json:"url"`
	TotalPagesCrawled int                   `json:"total_pages_crawled"`
	AvgWordCount      int                   `json:"avg_word_count"`
	Overview          Overview              `json:"overview"`
	Images            ImageSummary          `json:"images"`
	Links             LinkSummary           `json:"links"`
	StructuredData    StructuredDataSummary `json:"structured_data"`
	Technical         TechnicalSummary      `json:"technical"`
}
