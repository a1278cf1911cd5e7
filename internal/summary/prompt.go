package summary

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxHomepageHTML is the number of bytes of homepage HTML included in a prompt.
const MaxHomepageHTML = 15000

const promptTemplate = `ROLE & GOAL
You are a meticulous SEO analyst and creative strategist. Analyze the website data below and respond with a single valid JSON object holding your findings and strategic recommendations.
Write for the site owner in plain language rather than technical terms.

OUTPUT CONSTRAINTS
Your entire response MUST be a single raw JSON object.
The response must start with { and end with }.
Do not include any text or markdown outside the JSON object.

INPUT DATA
Aggregated Site Data: %s
Pre-Calculated Scores: %s
Homepage HTML: %s

TASKS
Part 1: Rule-Based SEO Audit (keyFindings)
Evaluate the aggregated site data against the rulebook below and produce one keyFinding for EACH of the 11 rules.
The type must be "Strength" or "Weakness". The severity must be exactly one of "Critical", "High", "Medium", "Low" or "Good".
Counts below refer to the length of the named URL lists.

Audit Rulebook:
Title Tag Length:
Weakness: pages_with_short_titles > 0 OR pages_with_long_titles > 0 (Severity "Medium")
Strength: otherwise (Severity "Good")

Meta Descriptions:
Weakness: pages_with_missing_descriptions > 0 (Severity "High")
Strength: otherwise (Severity "Good")

H1 Headings:
Weakness: pages_with_missing_h1 > 0 OR pages_with_multiple_h1 > 0 (Severity "High")
Strength: otherwise (Severity "Good")

Image Alt Text:
Weakness: pages_with_missing_alts > 0 (Severity "Medium")
Strength: otherwise (Severity "Good")

Structured Data (Schema):
Weakness: pages_with_schema < total_pages_crawled (Severity "Medium")
Strength: pages_with_schema == total_pages_crawled (Severity "Good")

First Contentful Paint (FCP) in ms:
Strength: avg_fcp <= 1000 (Severity "Good")
Weakness: 1000 < avg_fcp <= 1800 (Severity "Low")
Weakness: 1800 < avg_fcp <= 2500 (Severity "High")
Weakness: avg_fcp > 2500 (Severity "Critical")

Full Page Load in ms:
Strength: avg_full_load < 3000 (Severity "Good")
Weakness: 3000 <= avg_full_load <= 5000 (Severity "Medium")
Weakness: avg_full_load > 5000 (Severity "High")

JavaScript Errors:
Weakness: pages_with_errors > 0 (Severity "Critical")
Strength: otherwise (Severity "Good")

Unused JavaScript %%:
Strength: avg_unused_js_percent < 20 (Severity "Good")
Weakness: 20 <= avg_unused_js_percent < 50 (Severity "Low")
Weakness: 50 <= avg_unused_js_percent <= 70 (Severity "High")
Weakness: avg_unused_js_percent > 70 (Severity "Critical")

Unused CSS %%:
Strength: avg_unused_css_percent < 15 (Severity "Good")
Weakness: 15 <= avg_unused_css_percent <= 40 (Severity "Medium")
Weakness: avg_unused_css_percent > 40 (Severity "High")

Internal Linking (average per page):
Weakness: avg_internal < 5 (Severity "Critical")
Weakness: 5 <= avg_internal <= 8 (Severity "Low")
Strength: avg_internal > 8 (Severity "Good")

Part 2: Strategic Brainstorming (strategicSuggestions)
suggestedContentTypes: exactly 3 unique content ideas. Titles must be witty, eye-catching and under 10 words.
quickWins: exactly 3 actionable improvements, each with an impact and an effort of "High", "Medium" or "Low".
competitorKeywords: 4 to 6 relevant keywords a competitor might target, based on the site's content.

OUTPUT STRUCTURE
{
  "executiveSummary": "A concise 7-10 sentence summary of the site's main strengths and most critical weaknesses.",
  "keyFindings": [
    {
      "title": "Title Tag Length",
      "severity": "Critical | High | Medium | Low | Good",
      "type": "Strength | Weakness",
      "description": "Data-driven description of the rule outcome.",
      "recommendation": "Actionable advice."
    }
  ],
  "strategicSuggestions": {
    "suggestedContentTypes": [{"title": "...", "description": "..."}],
    "quickWins": [{"title": "...", "impact": "High | Medium | Low", "effort": "High | Medium | Low"}],
    "competitorKeywords": ["..."]
  }
}
`

// BuildPrompt renders the provider prompt for in.
func BuildPrompt(in Input) (string, error) {
	report, err := json.MarshalIndent(in.Report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode site report: %w", err)
	}
	scores, err := json.MarshalIndent(in.Scores, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode scores: %w", err)
	}
	return fmt.Sprintf(promptTemplate, report, scores, TruncateHTML(in.HomepageHTML, MaxHomepageHTML)), nil
}

// TruncateHTML cuts html to at most limit bytes, on a rune boundary, and
// appends "..." when anything was dropped.
func TruncateHTML(html string, limit int) string {
	if len(html) <= limit {
		return html
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(html[cut]) {
		cut--
	}
	var b strings.Builder
	b.Grow(cut + 3)
	b.WriteString(html[:cut])
	b.WriteString("...")
	return b.String()
}
