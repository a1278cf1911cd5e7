package analyzer

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

func analyzeHeadings(doc *goquery.Document) model.HeadingAnalysis {
	texts := make([]string, 0)
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})

	status := model.H1Good
	switch {
	case len(texts) == 0:
		status = model.H1Missing
	case len(texts) > 1:
		status = model.H1Multiple
	}

	return model.HeadingAnalysis{
		H1: model.H1Analysis{
			Count:  len(texts),
			Texts:  texts,
			Status: status,
		},
		Structure: analyzeHeadingStructure(doc),
	}
}

// analyzeHeadingStructure walks h1..h6 in document order and records every
// place where the outline descends more than one level at a time.
// Moving back up any number of levels is allowed.
func analyzeHeadingStructure(doc *goquery.Document) model.HeadingStructure {
	structure := model.HeadingStructure{IsLogical: true, Details: make([]string, 0)}

	lastLevel := 0
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		level := headingLevel(goquery.NodeName(s))
		if lastLevel != 0 && level > lastLevel+1 {
			structure.IsLogical = false
			structure.Details = append(structure.Details,
				fmt.Sprintf("Skipped heading level: <h%d> followed by <h%d>", lastLevel, level))
		}
		lastLevel = level
	})

	return structure
}

func headingLevel(tag string) int {
	if len(tag) != 2 || tag[0] != 'h' || tag[1] < '1' || tag[1] > '6' {
		return 0
	}
	return int(tag[1] - '0')
}
