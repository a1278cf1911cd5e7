package crawler

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractLinks returns the absolute, fragment-free targets of every anchor
// in document. Relative hrefs are resolved against the document's <base>
// element when present, otherwise against pageURL. Non-navigational
// schemes (javascript:, mailto:, tel:, data:) and unparseable hrefs are
// dropped. Duplicates are kept in document order; the frontier dedups.
func ExtractLinks(document, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Base:
				if href := strings.TrimSpace(getAttr(n, "href")); href != "" {
					if b, err := base.Parse(href); err == nil {
						base = b
					}
				}
			case atom.A:
				if href, ok := lookupAttr(n, "href"); ok {
					hrefs = append(hrefs, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	links := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if resolved := resolveURL(base, href); resolved != "" {
			links = append(links, resolved)
		}
	}
	return links, nil
}

// resolveURL resolves href against base and strips the fragment.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String()
}

func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
