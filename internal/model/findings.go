package model

// KeyFinding is one entry of the audit rulebook applied to a SiteReport.
type KeyFinding struct {
	Title          string      `json:"title"`
	Severity       Severity    `json:"severity"`
	Type           FindingType `json:"type"`
	Description    string      `json:"description"`
	Recommendation string      `json:"recommendation"`
}

// ContentIdea is a suggested piece of content.
type ContentIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// QuickWin is a low-effort improvement.
type QuickWin struct {
	Title  string `json:"title"`
	Impact string `json:"impact"`
	Effort string `json:"effort"`
}

// StrategicSuggestions groups forward-looking recommendations.
type StrategicSuggestions struct {
	SuggestedContentTypes []ContentIdea `json:"suggested_content_types"`
	QuickWins             []QuickWin    `json:"quick_wins"`
	CompetitorKeywords    []string      `json:"competitor_keywords"`
}

// Findings is the narrative produced by a summary provider.
type Findings struct {
	ExecutiveSummary     string               `json:"executive_summary"`
	KeyFindings          []KeyFinding         `json:"key_findings"`
	StrategicSuggestions StrategicSuggestions `json:"strategic_suggestions"`
}

// CountBySeverity counts findings per severity level.
func CountBySeverity(findings []KeyFinding) map[Severity]int {
	counts := make(map[Severity]int, 5)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
