package model

// TextAnalysis describes a length-checked text element such as the <title>
// or the meta description. Text is trimmed before its length is measured.
type TextAnalysis struct {
	// Text is the trimmed text content.
	Text string `json:"text"`

	// Length is the number of characters in Text.
	Length int `json:"length"`

	// Status classifies Length against the recommended range.
	Status LengthStatus `json:"status"`
}

// H1Analysis describes the <h1> elements of a page.
type H1Analysis struct {
	// Count is the number of <h1> elements.
	Count int `json:"count"`

	// Texts holds the trimmed text of each <h1> in document order.
	Texts []string `json:"texts"`

	// Status classifies Count.
	Status H1Status `json:"status"`
}

// HeadingStructure describes the outline formed by <h1>..<h6>.
type HeadingStructure struct {
	// IsLogical is false when any heading skips more than one level.
	IsLogical bool `json:"is_logical"`

	// Details holds one human-readable note per skipped level.
	Details []string `json:"details"`
}

// HeadingAnalysis groups the heading checks of a page.
type HeadingAnalysis struct {
	H1        H1Analysis       `json:"h1"`
	Structure HeadingStructure `json:"structure"`
}

// ImageAnalysis counts <img> elements and their alt attributes.
type ImageAnalysis struct {
	// TotalCount is the number of <img> elements.
	TotalCount int `json:"total_count"`

	// MissingAlt counts images without an alt attribute.
	MissingAlt int `json:"missing_alt"`

	// Decorative counts images whose alt attribute is empty or whitespace.
	Decorative int `json:"decorative"`
}

// LinkAnalysis counts anchors by destination.
type LinkAnalysis struct {
	TotalCount    int `json:"total_count"`
	InternalCount int `json:"internal_count"`
	ExternalCount int `json:"external_count"`
	NofollowCount int `json:"nofollow_count"`
}

// StructuredDataAnalysis lists the JSON-LD types declared by a page.
type StructuredDataAnalysis struct {
	// Found is true when at least one valid JSON-LD block declared a type.
	Found bool `json:"found"`

	// Types holds one entry per valid block; array types are joined with ", ".
	Types []string `json:"types"`
}

// OpenGraph holds the Open Graph meta tags. Nil means the tag is absent.
type OpenGraph struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// TwitterCard holds the Twitter Card meta tags. Nil means the tag is absent.
type TwitterCard struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	Card        *string `json:"card"`
}

// SocialAnalysis groups the social sharing tags of a page.
type SocialAnalysis struct {
	OpenGraph OpenGraph   `json:"open_graph"`
	Twitter   TwitterCard `json:"twitter"`
}

// TechAnalysis holds document-level technical signals.
type TechAnalysis struct {
	Viewport *string `json:"viewport"`
	Favicon  *string `json:"favicon"`
	Lang     *string `json:"lang"`

	// GzipEnabled is true when the content-encoding response header mentions gzip.
	GzipEnabled bool `json:"gzip_enabled"`
}

// PageAnalysis is the structured SEO record for one successfully rendered page.
// It is created once by the analyzer and never modified afterwards.
type PageAnalysis struct {
	URL             string                 `json:"url"`
	Title           TextAnalysis           `json:"title"`
	MetaDescription TextAnalysis           `json:"meta_description"`
	Headings        HeadingAnalysis        `json:"headings"`
	WordCount       int                    `json:"word_count"`
	Images          ImageAnalysis          `json:"images"`
	Links           LinkAnalysis           `json:"links"`
	StructuredData  StructuredDataAnalysis `json:"structured_data"`
	CanonicalURL    *string                `json:"canonical_url"`
	Social          SocialAnalysis         `json:"social"`
	Tech            TechAnalysis           `json:"tech"`
}

// PageResult pairs the on-page analysis of a URL with its technical profile.
// HTML is kept for collaborators that need the raw document (the summary
// prompt and the contact email finder) and is never serialized.
type PageResult struct {
	Analysis  PageAnalysis     `json:"analysis"`
	Technical TechnicalMetrics `json:"technical"`
	HTML      string           `json:"-"`
}
