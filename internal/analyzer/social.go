package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/seoaudit/internal/model"
)

func analyzeSocial(doc *goquery.Document) model.SocialAnalysis {
	og := func(property string) *string {
		return attrOrNil(doc.Find(`meta[property="`+property+`"]`), "content")
	}
	tw := func(name string) *string {
		return attrOrNil(doc.Find(`meta[name="`+name+`"]`), "content")
	}

	return model.SocialAnalysis{
		OpenGraph: model.OpenGraph{
			Title:       og("og:title"),
			Description: og("og:description"),
			Image:       og("og:image"),
		},
		Twitter: model.TwitterCard{
			Title:       tw("twitter:title"),
			Description: tw("twitter:description"),
			Image:       tw("twitter:image"),
			Card:        tw("twitter:card"),
		},
	}
}

func analyzeTech(doc *goquery.Document, headers map[string]string) model.TechAnalysis {
	return model.TechAnalysis{
		Viewport:    attrOrNil(doc.Find(`meta[name="viewport"]`), "content"),
		Favicon:     attrOrNil(doc.Find(`link[rel="icon"]`), "href"),
		Lang:        attrOrNil(doc.Find("html"), "lang"),
		GzipEnabled: strings.Contains(headerValue(headers, "content-encoding"), "gzip"),
	}
}

// headerValue looks up a header name case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
