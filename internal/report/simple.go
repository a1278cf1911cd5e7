package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/seoaudit/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds recommendations and per-page details.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the audit in human-readable format.
func (w *SimpleWriter) Write(audit *model.Audit) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, audit)
	if audit.Scores != nil {
		w.writeScores(&sb, audit.Scores)
	}
	if audit.Summary != nil && audit.Summary.ExecutiveSummary != "" {
		section(&sb, "EXECUTIVE SUMMARY")
		fmt.Fprintf(&sb, "  %s\n\n", audit.Summary.ExecutiveSummary)
	}
	if len(audit.KeyFindings) > 0 {
		w.writeFindings(&sb, audit.KeyFindings)
	}
	if w.verbose && len(audit.Pages) > 0 {
		w.writePages(&sb, audit.Pages)
	}
	if len(audit.FailedURLs) > 0 {
		section(&sb, "FAILED PAGES")
		for _, u := range audit.FailedURLs {
			fmt.Fprintf(&sb, "  [x] %s\n", u)
		}
		sb.WriteString("\n")
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, audit *model.Audit) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                          SEO AUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Site:           %s\n", audit.StartURL)
	fmt.Fprintf(sb, "Audit Date:     %s\n", audit.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Pages Analyzed: %d of %d discovered\n", len(audit.Pages), len(audit.DiscoveredURLs))
	if audit.ContactEmail != "" {
		fmt.Fprintf(sb, "Contact:        %s\n", audit.ContactEmail)
	}
	fmt.Fprintf(sb, "Status:         %s\n\n", statusText(audit))
}

func (w *SimpleWriter) writeScores(sb *strings.Builder, s *model.Scores) {
	section(sb, "SCORES")
	fmt.Fprintf(sb, "  OVERALL:    %3d  [%s] %s\n", s.Overall, model.Grade(s.Overall), bar(s.Overall))
	fmt.Fprintf(sb, "  Metadata:   %3d  [%s] %s\n", s.Categories.Metadata, model.Grade(s.Categories.Metadata), bar(s.Categories.Metadata))
	fmt.Fprintf(sb, "  Content:    %3d  [%s] %s\n", s.Categories.Content, model.Grade(s.Categories.Content), bar(s.Categories.Content))
	fmt.Fprintf(sb, "  Technical:  %3d  [%s] %s\n\n", s.Categories.Technical, model.Grade(s.Categories.Technical), bar(s.Categories.Technical))
}

// writeFindings writes weaknesses worst first, then strengths.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, findings []model.KeyFinding) {
	section(sb, "KEY FINDINGS")

	for sev := model.SeverityCritical; sev >= model.SeverityGood; sev-- {
		for _, f := range findings {
			if f.Severity != sev {
				continue
			}
			fmt.Fprintf(sb, "  [%s] %-26s %s\n", indicator(f.Severity), f.Title, f.Description)
			if w.verbose && f.Type == model.FindingWeakness && f.Recommendation != "" {
				fmt.Fprintf(sb, "        -> %s\n", f.Recommendation)
			}
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, pages []model.PageResult) {
	section(sb, "PAGES")
	for _, p := range pages {
		a := p.Analysis
		fmt.Fprintf(sb, "  %s\n", a.URL)
		fmt.Fprintf(sb, "    title %d chars (%s), description %d chars (%s), h1 %s, %d words\n",
			a.Title.Length, a.Title.Status, a.MetaDescription.Length, a.MetaDescription.Status,
			a.Headings.H1.Status, a.WordCount)
		if perf := p.Technical.Performance; perf != nil {
			fmt.Fprintf(sb, "    fcp %d ms, full load %d ms\n", perf.FCP, perf.FullLoad)
		}
		if p.Technical.ProfileError != "" {
			fmt.Fprintf(sb, "    profile unavailable: %s\n", p.Technical.ProfileError)
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("Report generated by seoaudit\n")
	sb.WriteString("https://github.com/nao1215/seoaudit\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
}

// WriteHistory outputs the history one audit per line.
func (w *SimpleWriter) WriteHistory(briefs []model.AuditBrief) (int, error) {
	var sb strings.Builder
	if len(briefs) == 0 {
		sb.WriteString("No audits recorded yet.\n")
		return io.WriteString(w.output, sb.String())
	}
	fmt.Fprintf(&sb, "%-16s  %-8s  %-10s  %5s  %s\n", "DATE", "ID", "OVERALL", "PAGES", "SITE")
	for _, b := range briefs {
		fmt.Fprintf(&sb, "%-16s  %-8s  %-10s  %5d  %s\n",
			b.StartedAt.Format("2006-01-02 15:04"),
			b.ID.String()[:8],
			briefScore(b),
			b.PagesCount,
			b.StartURL,
		)
	}
	return io.WriteString(w.output, sb.String())
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

// bar draws a 20-cell gauge for a 0..100 score.
func bar(score int) string {
	filled := max(0, min(20, score/5))
	return strings.Repeat("#", filled) + strings.Repeat(".", 20-filled)
}

func indicator(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return " !!"
	case model.SeverityMedium:
		return "  !"
	case model.SeverityLow:
		return "  -"
	default:
		return " ok"
	}
}
