package crawler

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// assetRe matches URLs of static assets that are never crawled.
var assetRe = regexp.MustCompile(`(?i)\.(pdf|jpg|jpeg|png|gif|svg|zip|css|js|xml|ico|webp)$`)

// IsAssetURL reports whether rawURL points at a static asset.
// Only the path is inspected, so query strings do not hide the extension.
func IsAssetURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return assetRe.MatchString(rawURL)
	}
	return assetRe.MatchString(u.Path)
}

// SameHost reports whether rawURL is on host. Ports are ignored.
func SameHost(host, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}

// normalizeURL canonicalises a URL for deduplication: lower-case scheme
// and host, no fragment, and "/" for an empty path.
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// shouldCrawl applies ignore and follow patterns to the URL path.
// Ignore wins over follow; with no follow patterns everything not ignored
// is crawled.
func (c *Crawler) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range c.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(c.followPatterns) == 0 {
		return true
	}
	for _, pattern := range c.followPatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern matches a path against a glob.
//
//   - "/blog/*" matches "/blog" and everything below it
//   - "*.html" matches any path ending in .html
//   - other patterns use filepath.Match, falling back to the last path
//     segment for patterns without a slash
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok {
		if strings.HasSuffix(path, "."+ext) {
			return true
		}
	}
	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}
