package config

import "maps"

// SiteConfig holds per-site crawl settings.
type SiteConfig struct {
	// Cookie is sent with every request to the site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers sent with every request to the site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxPages overrides the global crawl budget. Zero keeps the global value.
	MaxPages int `yaml:"maxPages,omitempty"`

	// IgnorePatterns are path globs that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict crawling to matching paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`
}

// FileSummary is the summary block of the configuration file.
type FileSummary struct {
	Provider string `yaml:"provider,omitempty"`
	BaseURL  string `yaml:"baseURL,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
}

// File represents the structure of the .seoaudit configuration file.
type File struct {
	// Sites maps hostnames (e.g. "www.example.com") to their configuration.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Summary configures the narrative summary provider.
	Summary FileSummary `yaml:"summary,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// The returned headers map is a copy and may be modified.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	return result
}
