package aggregate

import (
	"errors"
	"math"

	"github.com/nao1215/seoaudit/internal/model"
)

// ErrEmptyInput is returned when there are no analyzed pages to aggregate.
var ErrEmptyInput = errors.New("cannot generate a report from zero pages")

// Aggregate builds a SiteReport from the analyzed pages of one audit.
//
// Word count and link averages divide by the number of pages. Technical
// averages (FCP, full load and unused code) only include pages whose profile
// produced the metric, so a failed profile does not drag the average towards
// zero. When no page produced a metric its average is 0.
func Aggregate(pages []model.PageResult, startURL string) (*model.SiteReport, error) {
	total := len(pages)
	if total == 0 {
		return nil, ErrEmptyInput
	}

	report := &model.SiteReport{
		URL:               startURL,
		TotalPagesCrawled: total,
		Overview: model.Overview{
			PagesWithShortTitles:         []string{},
			PagesWithLongTitles:          []string{},
			PagesWithMissingDescriptions: []string{},
			PagesWithMissingH1:           []string{},
			PagesWithMultipleH1:          []string{},
		},
		Images:         model.ImageSummary{PagesWithMissingAlts: []string{}},
		StructuredData: model.StructuredDataSummary{SchemaTypes: []string{}},
		Technical:      model.TechnicalSummary{PagesWithErrors: []model.PageErrors{}},
	}

	var (
		words, internal, external int
		fcp, fullLoad             mean
		unusedJS, unusedCSS       mean
	)
	seenTypes := make(map[string]struct{})

	for _, page := range pages {
		a, tech := page.Analysis, page.Technical

		switch a.Title.Status {
		case model.StatusTooShort:
			report.Overview.PagesWithShortTitles = append(report.Overview.PagesWithShortTitles, a.URL)
		case model.StatusTooLong:
			report.Overview.PagesWithLongTitles = append(report.Overview.PagesWithLongTitles, a.URL)
		}
		if a.MetaDescription.Status == model.StatusMissing {
			report.Overview.PagesWithMissingDescriptions = append(report.Overview.PagesWithMissingDescriptions, a.URL)
		}
		switch a.Headings.H1.Status {
		case model.H1Missing:
			report.Overview.PagesWithMissingH1 = append(report.Overview.PagesWithMissingH1, a.URL)
		case model.H1Multiple:
			report.Overview.PagesWithMultipleH1 = append(report.Overview.PagesWithMultipleH1, a.URL)
		}

		report.Images.TotalImages += a.Images.TotalCount
		if a.Images.MissingAlt > 0 {
			report.Images.PagesWithMissingAlts = append(report.Images.PagesWithMissingAlts, a.URL)
		}

		words += a.WordCount
		internal += a.Links.InternalCount
		external += a.Links.ExternalCount

		if a.StructuredData.Found {
			report.StructuredData.PagesWithSchema++
			for _, t := range a.StructuredData.Types {
				if _, ok := seenTypes[t]; ok {
					continue
				}
				seenTypes[t] = struct{}{}
				report.StructuredData.SchemaTypes = append(report.StructuredData.SchemaTypes, t)
			}
		}

		if a.Tech.GzipEnabled {
			report.Technical.PagesWithGzip++
		}
		if tech.Performance != nil {
			fcp.add(float64(tech.Performance.FCP))
			fullLoad.add(float64(tech.Performance.FullLoad))
		}
		if tech.HasJSErrors() {
			report.Technical.PagesWithErrors = append(report.Technical.PagesWithErrors, model.PageErrors{
				URL:    a.URL,
				Errors: append([]string(nil), tech.JSErrors...),
			})
		}
		if tech.Coverage != nil {
			unusedJS.add(float64(tech.Coverage.JS.UnusedPercent))
			unusedCSS.add(float64(tech.Coverage.CSS.UnusedPercent))
		}
	}

	report.AvgWordCount = Round(float64(words) / float64(total))
	report.Links.AvgInternal = Round(float64(internal) / float64(total))
	report.Links.AvgExternal = Round(float64(external) / float64(total))

	report.Technical.AvgFCP = fcp.value()
	report.Technical.AvgFullLoad = fullLoad.value()
	report.Technical.AvgUnusedJSPercent = unusedJS.value()
	report.Technical.AvgUnusedCSSPercent = unusedCSS.value()

	return report, nil
}

// mean accumulates a running average over the pages that reported a value.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

func (m *mean) value() int {
	if m.count == 0 {
		return 0
	}
	return Round(m.sum / float64(m.count))
}

// Round rounds half up, so 2.5 becomes 3 and -2.5 becomes -2.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
