package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

// analyzeLinks classifies every anchor with an href attribute.
// Links resolving to the page's hostname (compared case-insensitively) are
// internal; everything else that resolves (including mailto: and tel:) is
// external. An href that cannot be resolved is counted as external only when
// it looks like an http URL.
func analyzeLinks(doc *goquery.Document, pageURL string) model.LinkAnalysis {
	anchors := doc.Find("a[href]")
	result := model.LinkAnalysis{TotalCount: anchors.Length()}

	base, baseErr := url.Parse(pageURL)
	siteHost := ""
	if baseErr == nil {
		siteHost = base.Hostname()
	}

	anchors.Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)

		resolved, err := resolve(base, baseErr, href)
		switch {
		case err != nil:
			if strings.HasPrefix(href, "http") {
				result.ExternalCount++
			}
		case strings.EqualFold(resolved.Hostname(), siteHost):
			result.InternalCount++
		default:
			result.ExternalCount++
		}

		if rel, ok := s.Attr("rel"); ok && strings.Contains(rel, "nofollow") {
			result.NofollowCount++
		}
	})

	return result
}

func resolve(base *url.URL, baseErr error, href string) (*url.URL, error) {
	if baseErr != nil {
		return nil, baseErr
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}
