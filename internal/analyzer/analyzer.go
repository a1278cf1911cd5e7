package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

// Recommended length ranges, in characters.
const (
	TitleMinLength = 30
	TitleMaxLength = 60
	MetaMinLength  = 70
	MetaMaxLength  = 160
)

// whitespaceRe matches runs of whitespace: ASCII blanks including vertical
// tab, Unicode space separators, line and paragraph separators and the
// byte-order mark.
var whitespaceRe = regexp.MustCompile(`[\t\n\v\f\r \p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)

// Analyze parses html as the document served at pageURL and extracts its SEO
// signals. headers are the response headers of the document; keys are matched
// case-insensitively and may be nil.
func Analyze(html, pageURL string, headers map[string]string) (model.PageAnalysis, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.PageAnalysis{}, fmt.Errorf("failed to parse HTML of %s: %w", pageURL, err)
	}

	return model.PageAnalysis{
		URL:             pageURL,
		Title:           analyzeTitle(doc),
		MetaDescription: analyzeMetaDescription(doc),
		Headings:        analyzeHeadings(doc),
		WordCount:       countWords(doc),
		Images:          analyzeImages(doc),
		Links:           analyzeLinks(doc, pageURL),
		StructuredData:  analyzeStructuredData(doc),
		CanonicalURL:    attrOrNil(doc.Find(`link[rel="canonical"]`), "href"),
		Social:          analyzeSocial(doc),
		Tech:            analyzeTech(doc, headers),
	}, nil
}

func analyzeTitle(doc *goquery.Document) model.TextAnalysis {
	sel := doc.Find("title")
	if sel.Length() == 0 {
		return model.TextAnalysis{Status: model.StatusMissing}
	}
	return classifyLength(strings.TrimSpace(sel.Text()), TitleMinLength, TitleMaxLength)
}

func analyzeMetaDescription(doc *goquery.Document) model.TextAnalysis {
	sel := doc.Find(`meta[name="description"]`)
	if sel.Length() == 0 {
		return model.TextAnalysis{Status: model.StatusMissing}
	}
	content, _ := sel.Attr("content")
	return classifyLength(strings.TrimSpace(content), MetaMinLength, MetaMaxLength)
}

// classifyLength measures text in UTF-16 code units, the unit browsers and
// search engines use when truncating snippets.
func classifyLength(text string, minLen, maxLen int) model.TextAnalysis {
	length := len(utf16.Encode([]rune(text)))
	status := model.StatusGood
	switch {
	case length < minLen:
		status = model.StatusTooShort
	case length > maxLen:
		status = model.StatusTooLong
	}
	return model.TextAnalysis{Text: text, Length: length, Status: status}
}

// countWords collapses whitespace in the body text and splits on single
// spaces. An empty body counts as one word.
func countWords(doc *goquery.Document) int {
	text := whitespaceRe.ReplaceAllString(doc.Find("body").Text(), " ")
	text = strings.Trim(text, " ")
	return len(strings.Split(text, " "))
}

func analyzeImages(doc *goquery.Document) model.ImageAnalysis {
	images := doc.Find("img")
	result := model.ImageAnalysis{TotalCount: images.Length()}
	images.Each(func(_ int, s *goquery.Selection) {
		alt, exists := s.Attr("alt")
		switch {
		case !exists:
			result.MissingAlt++
		case strings.TrimSpace(alt) == "":
			result.Decorative++
		}
	})
	return result
}

// attrOrNil returns the trimmed attribute of the first matched element, or
// nil when the element or attribute is absent or blank.
func attrOrNil(sel *goquery.Selection, name string) *string {
	value, exists := sel.First().Attr(name)
	if !exists {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
