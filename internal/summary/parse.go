package summary

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nao1215/seoaudit/internal/model"
)

// jsonObjectRe matches from the first '{' to the last '}'.
var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// wireFindings is the camelCase shape the prompt asks the model for.
type wireFindings struct {
	ExecutiveSummary string `json:"executiveSummary"`
	KeyFindings      []struct {
		Title          string `json:"title"`
		Severity       string `json:"severity"`
		Type           string `json:"type"`
		Description    string `json:"description"`
		Recommendation string `json:"recommendation"`
	} `json:"keyFindings"`
	StrategicSuggestions struct {
		SuggestedContentTypes []model.ContentIdea `json:"suggestedContentTypes"`
		QuickWins             []model.QuickWin    `json:"quickWins"`
		CompetitorKeywords    []string            `json:"competitorKeywords"`
	} `json:"strategicSuggestions"`
}

// ExtractJSON returns the outermost JSON object in text.
func ExtractJSON(text string) (string, error) {
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return "", ErrNoJSON
	}
	return match, nil
}

// ParseResponse decodes model output into findings. Text with a JSON object
// that does not decode, or decodes to nothing useful, yields a Malformed
// result. Text with no JSON object at all is an error.
func ParseResponse(text string) (Result, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return Result{}, err
	}

	var w wireFindings
	if err := json.Unmarshal([]byte(obj), &w); err != nil {
		return Malformed(text), nil
	}
	if strings.TrimSpace(w.ExecutiveSummary) == "" && len(w.KeyFindings) == 0 {
		return Malformed(text), nil
	}
	return Parsed(w.toModel()), nil
}

func (w wireFindings) toModel() model.Findings {
	f := model.Findings{
		ExecutiveSummary: strings.TrimSpace(w.ExecutiveSummary),
		KeyFindings:      make([]model.KeyFinding, 0, len(w.KeyFindings)),
		StrategicSuggestions: model.StrategicSuggestions{
			SuggestedContentTypes: w.StrategicSuggestions.SuggestedContentTypes,
			QuickWins:             w.StrategicSuggestions.QuickWins,
			CompetitorKeywords:    w.StrategicSuggestions.CompetitorKeywords,
		},
	}
	for _, kf := range w.KeyFindings {
		typ := model.FindingWeakness
		if strings.EqualFold(kf.Type, string(model.FindingStrength)) {
			typ = model.FindingStrength
		}
		sev, err := model.ParseSeverity(normalizeLabel(kf.Severity))
		if err != nil {
			// An unrecognised label on a weakness still deserves attention.
			sev = model.SeverityMedium
			if typ == model.FindingStrength {
				sev = model.SeverityGood
			}
		}
		f.KeyFindings = append(f.KeyFindings, model.KeyFinding{
			Title:          kf.Title,
			Severity:       sev,
			Type:           typ,
			Description:    kf.Description,
			Recommendation: kf.Recommendation,
		})
	}
	return f
}

// normalizeLabel turns "high" or " HIGH " into "High".
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
