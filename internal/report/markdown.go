package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/seoaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// It is the document handed to site owners, so it leads with scores and
// findings and leaves per-page details to the end.
type MarkdownWriter struct {
	baseWriter
	title   cases.Caser
	printer *message.Printer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		title:      cases.Title(language.English),
		printer:    message.NewPrinter(language.English),
	}
}

// Write outputs the audit in Markdown format.
func (w *MarkdownWriter) Write(audit *model.Audit) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, audit)
	if audit.Scores != nil {
		w.writeScores(md, audit)
	}
	if audit.Summary != nil {
		w.writeExecutiveSummary(md, audit.Summary)
	}
	if len(audit.KeyFindings) > 0 {
		w.writeKeyFindings(md, audit.KeyFindings)
	}
	if audit.Report != nil {
		w.writeSiteDetails(md, audit.Report)
	}
	if audit.Summary != nil {
		w.writeStrategy(md, audit.Summary.StrategicSuggestions)
	}
	if len(audit.Pages) > 0 {
		w.writePages(md, audit.Pages)
	}
	if len(audit.FailedURLs) > 0 {
		md.H2("Pages That Could Not Be Analyzed")
		md.PlainText("")
		md.BulletList(audit.FailedURLs...)
		md.PlainText("")
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, audit *model.Audit) {
	md.H1("SEO Audit Report")
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + audit.StartURL + "`"},
		{"Audit Date", audit.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Pages Analyzed", fmt.Sprintf("%d of %d discovered", len(audit.Pages), len(audit.DiscoveredURLs))},
		{"Duration", audit.Duration().Round(time.Second).String()},
		{"Status", statusText(audit)},
	}
	if audit.ContactEmail != "" {
		rows = append(rows, []string{"Contact", audit.ContactEmail})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeScores(md *markdown.Markdown, audit *model.Audit) {
	s := audit.Scores
	md.H2("Scores")
	md.PlainText("")

	categories := []struct {
		name  string
		score int
	}{
		{"metadata", s.Categories.Metadata},
		{"content", s.Categories.Content},
		{"technical", s.Categories.Technical},
	}
	rows := [][]string{{"**Overall**", "**" + strconv.Itoa(s.Overall) + "**", "**" + model.Grade(s.Overall) + "**"}}
	for _, c := range categories {
		rows = append(rows, []string{w.title.String(c.name), strconv.Itoa(c.score), model.Grade(c.score)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Score", "Grade"},
		Rows:   rows,
	})
	md.PlainText("")

	counts := model.CountBySeverity(audit.KeyFindings)
	if len(audit.KeyFindings) > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, s.Overall, counts)
}

// writePieChart writes a mermaid pie chart of finding severities.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Severity]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Findings by Severity"),
		piechart.WithShowData(true),
	)
	for sev := model.SeverityCritical; sev >= model.SeverityGood; sev-- {
		if counts[sev] > 0 {
			chart.LabelAndIntValue(sev.String(), uint64(counts[sev])) //nolint:gosec // counts are non-negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, overall int, counts map[model.Severity]int) {
	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf("%d critical issue(s) are holding this site back and need immediate attention.",
			counts[model.SeverityCritical])
	case counts[model.SeverityHigh] > 0:
		md.Warningf("%d high severity issue(s) should be addressed soon.", counts[model.SeverityHigh])
	case overall < 70:
		md.Importantf("The overall score is %d. Several smaller issues add up.", overall)
	case counts[model.SeverityMedium]+counts[model.SeverityLow] > 0:
		md.Note("Only medium and low severity issues were found.")
	default:
		md.Tip("No significant SEO issues were found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeExecutiveSummary(md *markdown.Markdown, f *model.Findings) {
	if f.ExecutiveSummary == "" {
		return
	}
	md.H2("Executive Summary")
	md.PlainText("")
	md.PlainText(f.ExecutiveSummary)
	md.PlainText("")
}

func (w *MarkdownWriter) writeKeyFindings(md *markdown.Markdown, findings []model.KeyFinding) {
	md.H2("Key Findings")
	md.PlainText("")

	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			severityIcon(f.Severity) + " " + f.Severity.String(),
			f.Title,
			string(f.Type),
			truncateString(f.Description, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Check", "Type", "Result"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Type == model.FindingWeakness && f.Recommendation != "" {
			md.Details(f.Title, f.Recommendation)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeSiteDetails(md *markdown.Markdown, r *model.SiteReport) {
	md.H2("Site Overview")
	md.PlainText("")

	t := r.Technical
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Pages crawled", strconv.Itoa(r.TotalPagesCrawled)},
			{"Average word count", w.printer.Sprintf("%d", r.AvgWordCount)},
			{"Images", w.printer.Sprintf("%d", r.Images.TotalImages)},
			{"Average internal links", strconv.Itoa(r.Links.AvgInternal)},
			{"Average external links", strconv.Itoa(r.Links.AvgExternal)},
			{"Pages with structured data", strconv.Itoa(r.StructuredData.PagesWithSchema)},
			{"Schema types", joinOrDash(r.StructuredData.SchemaTypes)},
			{"Average first contentful paint", w.printer.Sprintf("%d ms", t.AvgFCP)},
			{"Average full load", w.printer.Sprintf("%d ms", t.AvgFullLoad)},
			{"Average unused JavaScript", strconv.Itoa(t.AvgUnusedJSPercent) + "%"},
			{"Average unused CSS", strconv.Itoa(t.AvgUnusedCSSPercent) + "%"},
			{"Pages served with gzip", strconv.Itoa(t.PagesWithGzip)},
		},
	})
	md.PlainText("")

	issues := []struct {
		title string
		urls  []string
	}{
		{"Titles too short", r.Overview.PagesWithShortTitles},
		{"Titles too long", r.Overview.PagesWithLongTitles},
		{"Missing meta descriptions", r.Overview.PagesWithMissingDescriptions},
		{"Missing H1", r.Overview.PagesWithMissingH1},
		{"Multiple H1", r.Overview.PagesWithMultipleH1},
		{"Images without alt text", r.Images.PagesWithMissingAlts},
	}
	for _, issue := range issues {
		if len(issue.urls) > 0 {
			md.Details(fmt.Sprintf("%s (%d)", issue.title, len(issue.urls)), strings.Join(issue.urls, "\n"))
		}
	}
	for _, pe := range t.PagesWithErrors {
		md.Details("JavaScript errors on "+pe.URL, strings.Join(pe.Errors, "\n"))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeStrategy(md *markdown.Markdown, s model.StrategicSuggestions) {
	if len(s.QuickWins)+len(s.SuggestedContentTypes)+len(s.CompetitorKeywords) == 0 {
		return
	}
	md.H2("Strategic Suggestions")
	md.PlainText("")

	if len(s.QuickWins) > 0 {
		md.H3("Quick Wins")
		md.PlainText("")
		rows := make([][]string, len(s.QuickWins))
		for i, q := range s.QuickWins {
			rows[i] = []string{q.Title, q.Impact, q.Effort}
		}
		md.Table(markdown.TableSet{Header: []string{"Action", "Impact", "Effort"}, Rows: rows})
		md.PlainText("")
	}
	if len(s.SuggestedContentTypes) > 0 {
		md.H3("Content Ideas")
		md.PlainText("")
		items := make([]string, len(s.SuggestedContentTypes))
		for i, c := range s.SuggestedContentTypes {
			items[i] = "**" + c.Title + "**: " + c.Description
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	if len(s.CompetitorKeywords) > 0 {
		md.H3("Competitor Keywords")
		md.PlainText("")
		md.PlainText("`" + strings.Join(s.CompetitorKeywords, "`, `") + "`")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []model.PageResult) {
	md.H2("Pages")
	md.PlainText("")

	rows := make([][]string, len(pages))
	for i, p := range pages {
		a := p.Analysis
		fcp := "-"
		if p.Technical.Performance != nil {
			fcp = w.printer.Sprintf("%d ms", p.Technical.Performance.FCP)
		}
		rows[i] = []string{
			truncateString(a.URL, 60),
			fmt.Sprintf("%d (%s)", a.Title.Length, a.Title.Status),
			fmt.Sprintf("%d (%s)", a.MetaDescription.Length, a.MetaDescription.Status),
			a.Headings.H1.Status.String(),
			w.printer.Sprintf("%d", a.WordCount),
			fcp,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Title", "Description", "H1", "Words", "FCP"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteHistory outputs the history as a table.
func (w *MarkdownWriter) WriteHistory(briefs []model.AuditBrief) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Audit History")
	md.PlainText("")

	if len(briefs) == 0 {
		md.PlainText("No audits recorded yet.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(briefs))
	for i, b := range briefs {
		rows[i] = []string{
			b.StartedAt.Format("2006-01-02 15:04"),
			b.StartURL,
			briefScore(b),
			strconv.Itoa(b.PagesCount),
			"`" + b.ID.String()[:8] + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Date", "Site", "Overall", "Pages", "ID"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [seoaudit](https://github.com/nao1215/seoaudit)*")
}

func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityHigh:
		return "🟠"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "🟢"
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// briefScore formats the overall score of a history entry.
func briefScore(b model.AuditBrief) string {
	if !b.Scored {
		if b.Error != "" {
			return "failed"
		}
		return "-"
	}
	return fmt.Sprintf("%d (%s)", b.Overall, model.Grade(b.Overall))
}
