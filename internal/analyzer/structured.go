package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

// analyzeStructuredData collects the @type of each JSON-LD block.
// Blocks that are not valid JSON objects or declare no @type are skipped.
func analyzeStructuredData(doc *goquery.Document) model.StructuredDataAnalysis {
	types := make([]string, 0)

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		content := s.Text()
		if strings.TrimSpace(content) == "" {
			return
		}

		var block map[string]any
		if err := json.Unmarshal([]byte(content), &block); err != nil {
			return
		}

		if t := schemaType(block["@type"]); t != "" {
			types = append(types, t)
		}
	})

	return model.StructuredDataAnalysis{Found: len(types) > 0, Types: types}
}

// schemaType renders an @type value. Arrays are joined with ", ".
func schemaType(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			switch s := item.(type) {
			case nil:
				parts = append(parts, "")
			case string:
				parts = append(parts, s)
			default:
				parts = append(parts, fmt.Sprint(s))
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}
