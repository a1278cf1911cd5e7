package score

import (
	"math"

	"github.com/nao1215/seoaudit/internal/aggregate"
	"github.com/nao1215/seoaudit/internal/model"
)

// Category weights used for the overall score.
const (
	MetadataWeight  = 0.35
	ContentWeight   = 0.35
	TechnicalWeight = 0.30
)

// MinWordCount is the average word count below which content is considered thin.
const MinWordCount = 350

// Score computes category and overall scores for report.
// A report with zero pages scores as if it had no problems.
func Score(report *model.SiteReport) model.Scores {
	categories := model.CategoryScores{
		Metadata:  clamp(metadataScore(report)),
		Content:   clamp(contentScore(report)),
		Technical: clamp(technicalScore(report)),
	}

	overall := aggregate.Round(
		float64(categories.Metadata)*MetadataWeight +
			float64(categories.Content)*ContentWeight +
			float64(categories.Technical)*TechnicalWeight,
	)

	return model.Scores{Overall: overall, Categories: categories}
}

// ratio returns count/total scaled by weight.
func ratio(count, total int, weight float64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * weight
}

func metadataScore(r *model.SiteReport) float64 {
	total := r.TotalPagesCrawled
	s := 100.0
	s -= ratio(len(r.Overview.PagesWithShortTitles), total, 20)
	s -= ratio(len(r.Overview.PagesWithLongTitles), total, 20)
	s -= ratio(len(r.Overview.PagesWithMissingDescriptions), total, 30)
	return s
}

func contentScore(r *model.SiteReport) float64 {
	total := r.TotalPagesCrawled
	s := 100.0
	s -= ratio(len(r.Overview.PagesWithMissingH1), total, 40)
	s -= ratio(len(r.Overview.PagesWithMultipleH1), total, 20)
	s -= ratio(len(r.Images.PagesWithMissingAlts), total, 30)
	if r.AvgWordCount < MinWordCount {
		s -= 10
	}
	return s
}

func technicalScore(r *model.SiteReport) float64 {
	t := r.Technical
	s := 100.0

	switch {
	case t.AvgFCP > 2500:
		s -= 15
	case t.AvgFCP > 1800:
		s -= 7
	}

	switch {
	case t.AvgFullLoad > 5000:
		s -= 15
	case t.AvgFullLoad > 3000:
		s -= 7
	}

	s -= math.Min(float64(len(t.PagesWithErrors))*5, 30)

	if t.AvgUnusedJSPercent > 50 {
		s -= float64(t.AvgUnusedJSPercent-50) / 5
	}
	if t.AvgUnusedCSSPercent > 40 {
		s -= float64(t.AvgUnusedCSSPercent-40) / 10
	}
	return s
}

// clamp rounds a raw category score and floors it at zero.
func clamp(v float64) int {
	return max(0, aggregate.Round(v))
}
