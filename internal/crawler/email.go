package crawler

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9_-]+`)

// PageHTML pairs a URL with its rendered document.
type PageHTML struct {
	URL  string
	HTML string
}

// FindContactEmail returns the first e-mail address found on the site.
// A page whose URL contains "contact" is searched first, then every page
// in order. Matches that look like asset file names (logo@2x.png) are
// skipped. It returns "" when nothing is found.
func FindContactEmail(pages []PageHTML) string {
	for _, p := range pages {
		if strings.Contains(strings.ToLower(p.URL), "contact") {
			if email := firstEmail(p.HTML); email != "" {
				return email
			}
			break
		}
	}
	for _, p := range pages {
		if email := firstEmail(p.HTML); email != "" {
			return email
		}
	}
	return ""
}

func firstEmail(document string) string {
	for _, m := range emailRe.FindAllString(document, -1) {
		if !assetRe.MatchString(m) {
			return m
		}
	}
	return ""
}
