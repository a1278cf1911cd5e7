package score

import (
	"fmt"

	"github.com/nao1215/seoaudit/internal/model"
)

// rule evaluates one audit check against a report.
type rule struct {
	title string
	eval  func(r *model.SiteReport) (model.Severity, string, string)
}

// rulebook is evaluated in order; every rule yields exactly one finding.
var rulebook = []rule{
	{"Title Tag Length", titleRule},
	{"Meta Descriptions", metaRule},
	{"H1 Headings", h1Rule},
	{"Image Alt Text", altRule},
	{"Structured Data (Schema)", schemaRule},
	{"First Contentful Paint", fcpRule},
	{"Full Page Load", fullLoadRule},
	{"JavaScript Errors", jsErrorRule},
	{"Unused JavaScript", unusedJSRule},
	{"Unused CSS", unusedCSSRule},
	{"Internal Linking", internalLinkRule},
}

// RuleCount is the number of findings KeyFindings returns.
var RuleCount = len(rulebook)

// KeyFindings applies the audit rulebook to report and returns one finding
// per rule. Findings with SeverityGood are strengths, the rest are weaknesses.
func KeyFindings(report *model.SiteReport) []model.KeyFinding {
	findings := make([]model.KeyFinding, 0, len(rulebook))
	for _, r := range rulebook {
		severity, description, recommendation := r.eval(report)
		typ := model.FindingWeakness
		if severity == model.SeverityGood {
			typ = model.FindingStrength
		}
		findings = append(findings, model.KeyFinding{
			Title:          r.title,
			Severity:       severity,
			Type:           typ,
			Description:    description,
			Recommendation: recommendation,
		})
	}
	return findings
}

func titleRule(r *model.SiteReport) (model.Severity, string, string) {
	short, long := len(r.Overview.PagesWithShortTitles), len(r.Overview.PagesWithLongTitles)
	if short == 0 && long == 0 {
		return model.SeverityGood,
			"Title tags are well-sized on every page, with no short or long titles found.",
			"Keep monitoring title lengths as new pages are added."
	}
	return model.SeverityMedium,
		fmt.Sprintf("%d page(s) have titles shorter than 30 characters and %d page(s) have titles longer than 60.", short, long),
		"Rewrite titles to 30-60 characters with the primary keyword near the start."
}

func metaRule(r *model.SiteReport) (model.Severity, string, string) {
	missing := len(r.Overview.PagesWithMissingDescriptions)
	if missing == 0 {
		return model.SeverityGood,
			"Every page has a meta description.",
			"Review descriptions periodically so they stay relevant to the page content."
	}
	return model.SeverityHigh,
		fmt.Sprintf("%d of %d page(s) have no meta description.", missing, r.TotalPagesCrawled),
		"Write a unique 70-160 character description for each page to control how it appears in search results."
}

func h1Rule(r *model.SiteReport) (model.Severity, string, string) {
	missing, multiple := len(r.Overview.PagesWithMissingH1), len(r.Overview.PagesWithMultipleH1)
	if missing == 0 && multiple == 0 {
		return model.SeverityGood,
			"Every page has exactly one H1 heading.",
			"Keep a single descriptive H1 on each new page."
	}
	return model.SeverityHigh,
		fmt.Sprintf("%d page(s) have no H1 and %d page(s) have more than one.", missing, multiple),
		"Give each page a single H1 that states its main topic."
}

func altRule(r *model.SiteReport) (model.Severity, string, string) {
	pages := len(r.Images.PagesWithMissingAlts)
	if pages == 0 {
		return model.SeverityGood,
			fmt.Sprintf("All %d image(s) carry an alt attribute.", r.Images.TotalImages),
			"Continue describing meaningful images and leave decorative ones with an empty alt."
	}
	return model.SeverityMedium,
		fmt.Sprintf("%d page(s) contain images without alt text.", pages),
		"Add descriptive alt text to images so search engines and screen readers understand them."
}

func schemaRule(r *model.SiteReport) (model.Severity, string, string) {
	with := r.StructuredData.PagesWithSchema
	if with >= r.TotalPagesCrawled {
		return model.SeverityGood,
			fmt.Sprintf("Structured data is present on every page (%d type(s) found).", len(r.StructuredData.SchemaTypes)),
			"Validate the markup regularly with a rich results testing tool."
	}
	return model.SeverityMedium,
		fmt.Sprintf("Only %d of %d page(s) include structured data.", with, r.TotalPagesCrawled),
		"Add JSON-LD markup (for example Organization, Article or Product) to the remaining pages."
}

func fcpRule(r *model.SiteReport) (model.Severity, string, string) {
	fcp := r.Technical.AvgFCP
	desc := fmt.Sprintf("The average First Contentful Paint is %d ms.", fcp)
	switch {
	case fcp <= 1000:
		return model.SeverityGood, desc, "Content appears quickly. Keep page weight under control."
	case fcp <= 1800:
		return model.SeverityLow, desc, "Trim render-blocking resources to bring first paint under one second."
	case fcp <= 2500:
		return model.SeverityHigh, desc, "Defer non-critical scripts and inline critical CSS to speed up first paint."
	default:
		return model.SeverityCritical, desc, "Visitors wait too long to see anything. Reduce server response time and render-blocking resources."
	}
}

func fullLoadRule(r *model.SiteReport) (model.Severity, string, string) {
	load := r.Technical.AvgFullLoad
	desc := fmt.Sprintf("Pages take %d ms on average to load fully.", load)
	switch {
	case load < 3000:
		return model.SeverityGood, desc, "Load times are healthy. Keep an eye on new third-party scripts."
	case load <= 5000:
		return model.SeverityMedium, desc, "Compress images and lazy-load below-the-fold content."
	default:
		return model.SeverityHigh, desc, "Audit heavy assets and third-party tags that delay the load event."
	}
}

func jsErrorRule(r *model.SiteReport) (model.Severity, string, string) {
	pages := len(r.Technical.PagesWithErrors)
	if pages == 0 {
		return model.SeverityGood,
			"No JavaScript errors were raised while loading the audited pages.",
			"Keep error monitoring in place for future releases."
	}
	return model.SeverityCritical,
		fmt.Sprintf("%d page(s) raised JavaScript errors during load.", pages),
		"Fix the reported errors; broken scripts can hide content from users and crawlers."
}

func unusedJSRule(r *model.SiteReport) (model.Severity, string, string) {
	pct := r.Technical.AvgUnusedJSPercent
	desc := fmt.Sprintf("On average %d%% of loaded JavaScript is never executed.", pct)
	switch {
	case pct < 20:
		return model.SeverityGood, desc, "JavaScript is lean. Keep bundles split by route."
	case pct < 50:
		return model.SeverityLow, desc, "Split bundles so each page only loads the code it needs."
	case pct <= 70:
		return model.SeverityHigh, desc, "Remove unused libraries and defer scripts that are not needed on load."
	default:
		return model.SeverityCritical, desc, "Most shipped JavaScript is dead weight. Audit dependencies and apply code splitting."
	}
}

func unusedCSSRule(r *model.SiteReport) (model.Severity, string, string) {
	pct := r.Technical.AvgUnusedCSSPercent
	desc := fmt.Sprintf("On average %d%% of loaded CSS is never applied.", pct)
	switch {
	case pct < 15:
		return model.SeverityGood, desc, "Stylesheets are lean."
	case pct <= 40:
		return model.SeverityMedium, desc, "Purge unused selectors during the build."
	default:
		return model.SeverityHigh, desc, "Split stylesheets per template and inline only the critical rules."
	}
}

func internalLinkRule(r *model.SiteReport) (model.Severity, string, string) {
	avg := r.Links.AvgInternal
	desc := fmt.Sprintf("Pages link to %d internal page(s) on average.", avg)
	switch {
	case avg < 5:
		return model.SeverityCritical, desc, "Add contextual links between related pages so crawlers and visitors can discover content."
	case avg <= 8:
		return model.SeverityLow, desc, "Strengthen internal linking from high-traffic pages to key content."
	default:
		return model.SeverityGood, desc, "Internal linking is healthy."
	}
}
