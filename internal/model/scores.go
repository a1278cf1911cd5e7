package model

// CategoryScores holds per-category scores in [0, 100].
type CategoryScores struct {
	Metadata  int `json:"metadata"`
	Content   int `json:"content"`
	Technical int `json:"technical"`
}

// Scores is the weighted overall score plus its category breakdown.
type Scores struct {
	Overall    int            `json:"overall"`
	Categories CategoryScores `json:"categories"`
}

// Grade maps a score to a letter grade used in human-readable reports.
func Grade(score int) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
