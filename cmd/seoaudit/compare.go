package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
)

// Score directions between two audits.
const (
	directionImproved  = "improved"
	directionDeclined  = "declined"
	directionUnchanged = "unchanged"
)

// NewCompareCmd creates the compare command.
// It compares the latest audit of a host with an earlier one from the
// history database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [host]",
		Short: "Compare the latest audit of a site with an earlier one",
		Long: `Compare shows how a site changed between two audits:
- Overall and category score changes
- Findings that appeared or were resolved
- Pages that were added or disappeared

By default the latest audit is compared with the one before it. Use
'seoaudit history <host>' to list stored audits and their IDs.

Examples:
  # Compare the latest two audits of a host
  seoaudit compare www.example.com

  # Compare with a specific audit (an ID prefix is enough)
  seoaudit compare --with-id 3f2a9c1e www.example.com

  # Compare with the first audit since a date
  seoaudit compare --since 2025-01-01 www.example.com

  # Output JSON
  seoaudit compare --json www.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-id", "i", "",
		"Compare with a specific audit by ID or unique ID prefix")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit on or after this date (format: YYYY-MM-DD)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	withID, err := cmd.Flags().GetString("with-id")
	if err != nil {
		return err
	}
	since, err := cmd.Flags().GetString("since")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}
	if withID != "" && since != "" {
		return errors.New("--with-id and --since cannot be used together")
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	host := hostArg(args[0])
	result, err := buildComparison(cmd.Context(), db, host, withID, since)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case markdownOutput:
		return writeComparisonMarkdown(out, result)
	default:
		writeComparisonText(out, result)
		return nil
	}
}

// buildComparison loads the two audits of host to compare.
func buildComparison(ctx context.Context, db *database.AuditDB, host, withID, since string) (*ComparisonResult, error) {
	briefs, err := db.History(ctx, host, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	if len(briefs) == 0 {
		return nil, fmt.Errorf("no audit history found for %s", host)
	}
	if len(briefs) < 2 && withID == "" {
		return nil, fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(briefs))
	}

	current, err := db.GetAudit(ctx, briefs[0].ID)
	if err != nil {
		return nil, err
	}

	var previous *model.Audit
	switch {
	case withID != "":
		previous, err = db.FindAudit(ctx, withID)
		if err != nil {
			return nil, fmt.Errorf("failed to get audit %s: %w", withID, err)
		}
		if previous.Host != host {
			return nil, fmt.Errorf("audit %s belongs to %s, not %s", withID, previous.Host, host)
		}
		if previous.ID == current.ID {
			return nil, fmt.Errorf("audit %s is the latest audit; choose an earlier one", withID)
		}
	case since != "":
		date, err := time.Parse("2006-01-02", since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Briefs are newest first; the oldest match is the last one.
		var match *model.AuditBrief
		for i := len(briefs) - 1; i >= 0; i-- {
			if !briefs[i].StartedAt.Before(date) {
				match = &briefs[i]
				break
			}
		}
		if match == nil {
			return nil, fmt.Errorf("no audits found since %s", since)
		}
		if match.ID == current.ID {
			return nil, fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", since)
		}
		if previous, err = db.GetAudit(ctx, match.ID); err != nil {
			return nil, err
		}
	default:
		if previous, err = db.GetAudit(ctx, briefs[1].ID); err != nil {
			return nil, err
		}
	}

	return compareAudits(previous, current), nil
}

// ComparisonResult holds the differences between two audits of a site.
type ComparisonResult struct {
	Host     string           `json:"host"`
	Previous model.AuditBrief `json:"previous"`
	Current  model.AuditBrief `json:"current"`

	// ScoreChange is zero when either audit was not scored.
	ScoreChange ScoreChange `json:"score_change"`

	NewFindings      []model.KeyFinding `json:"new_findings,omitempty"`
	ResolvedFindings []model.KeyFinding `json:"resolved_findings,omitempty"`
	UnchangedCount   int                `json:"unchanged_count"`

	AddedPages   []string `json:"added_pages,omitempty"`
	RemovedPages []string `json:"removed_pages,omitempty"`
}

// ScoreChange is the per-category score difference, current minus previous.
type ScoreChange struct {
	Direction string `json:"direction"`
	Overall   int    `json:"overall"`
	Metadata  int    `json:"metadata"`
	Content   int    `json:"content"`
	Technical int    `json:"technical"`
}

// compareAudits compares two audits of the same site.
func compareAudits(previous, current *model.Audit) *ComparisonResult {
	result := &ComparisonResult{
		Host:     current.Host,
		Previous: previous.Brief(),
		Current:  current.Brief(),
	}

	result.ScoreChange = scoreChange(result.Previous, result.Current)

	previousFindings := make(map[string]model.KeyFinding, len(previous.KeyFindings))
	for _, f := range previous.KeyFindings {
		previousFindings[findingKey(f)] = f
	}
	currentFindings := make(map[string]model.KeyFinding, len(current.KeyFindings))
	for _, f := range current.KeyFindings {
		currentFindings[findingKey(f)] = f
	}

	for key, f := range currentFindings {
		if _, ok := previousFindings[key]; !ok {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for key, f := range previousFindings {
		if _, ok := currentFindings[key]; ok {
			result.UnchangedCount++
			continue
		}
		result.ResolvedFindings = append(result.ResolvedFindings, f)
	}
	sortFindings(result.NewFindings)
	sortFindings(result.ResolvedFindings)

	result.AddedPages, result.RemovedPages = diffPages(previous, current)

	return result
}

// findingKey identifies a finding across audits.
func findingKey(f model.KeyFinding) string {
	return string(f.Type) + "|" + f.Title
}

// sortFindings orders findings by severity, most severe first, then title.
func sortFindings(findings []model.KeyFinding) {
	slices.SortFunc(findings, func(a, b model.KeyFinding) int {
		if c := cmp.Compare(b.Severity, a.Severity); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
}

func scoreChange(previous, current model.AuditBrief) ScoreChange {
	if !previous.Scored || !current.Scored {
		return ScoreChange{Direction: directionUnchanged}
	}
	change := ScoreChange{
		Overall:   current.Overall - previous.Overall,
		Metadata:  current.Categories.Metadata - previous.Categories.Metadata,
		Content:   current.Categories.Content - previous.Categories.Content,
		Technical: current.Categories.Technical - previous.Categories.Technical,
	}
	switch {
	case change.Overall > 0:
		change.Direction = directionImproved
	case change.Overall < 0:
		change.Direction = directionDeclined
	default:
		change.Direction = directionUnchanged
	}
	return change
}

// diffPages returns the analyzed pages only present in current and only
// present in previous, sorted.
func diffPages(previous, current *model.Audit) (added, removed []string) {
	before := make(map[string]bool, len(previous.Pages))
	for _, p := range previous.Pages {
		before[p.Analysis.URL] = true
	}
	after := make(map[string]bool, len(current.Pages))
	for _, p := range current.Pages {
		after[p.Analysis.URL] = true
		if !before[p.Analysis.URL] {
			added = append(added, p.Analysis.URL)
		}
	}
	for u := range before {
		if !after[u] {
			removed = append(removed, u)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	return added, removed
}

// writeComparisonMarkdown outputs the comparison result in Markdown format.
func writeComparisonMarkdown(w io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(w)

	md.H1("Audit Comparison: " + result.Host)
	md.PlainText("")
	md.PlainText("**Score Trend:** " + formatDirection(result.ScoreChange.Direction))
	md.PlainText("")

	p, c, d := result.Previous, result.Current, result.ScoreChange
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", p.StartedAt.Format("2006-01-02 15:04"), c.StartedAt.Format("2006-01-02 15:04"), "-"},
			{"**Overall**", scoreText(p, p.Overall), scoreText(c, c.Overall), formatDelta(d.Overall)},
			{"Metadata", scoreText(p, p.Categories.Metadata), scoreText(c, c.Categories.Metadata), formatDelta(d.Metadata)},
			{"Content", scoreText(p, p.Categories.Content), scoreText(c, c.Categories.Content), formatDelta(d.Content)},
			{"Technical", scoreText(p, p.Categories.Technical), scoreText(c, c.Categories.Technical), formatDelta(d.Technical)},
			{"Pages", strconv.Itoa(p.PagesCount), strconv.Itoa(c.PagesCount), formatDelta(c.PagesCount - p.PagesCount)},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		md.BulletList(findingLines(result.NewFindings, "")...)
		md.PlainText("")
	}
	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		md.BulletList(findingLines(result.ResolvedFindings, "~~")...)
		md.PlainText("")
	}
	if len(result.AddedPages) > 0 || len(result.RemovedPages) > 0 {
		md.H2("Page Changes")
		md.PlainText("")
		for _, u := range result.AddedPages {
			md.PlainText("- added `" + u + "`")
		}
		for _, u := range result.RemovedPages {
			md.PlainText("- removed `" + u + "`")
		}
		md.PlainText("")
	}
	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("_%d findings unchanged_", result.UnchangedCount)
	}

	return md.Build()
}

func findingLines(findings []model.KeyFinding, wrap string) []string {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		lines = append(lines, fmt.Sprintf("%s**[%s]** %s%s", wrap, f.Severity, f.Title, wrap))
	}
	return lines
}

// writeComparisonText outputs the comparison result in human-readable text format.
func writeComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Audit Comparison: %s\n", result.Host)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nScore Trend: %s\n", formatDirection(result.ScoreChange.Direction))
	fmt.Fprintf(w, "\nPrevious audit: %s (%s)\n",
		result.Previous.StartedAt.Format("2006-01-02 15:04:05"), result.Previous.ID.String()[:8])
	fmt.Fprintf(w, "Current audit:  %s (%s)\n",
		result.Current.StartedAt.Format("2006-01-02 15:04:05"), result.Current.ID.String()[:8])

	p, c, d := result.Previous, result.Current, result.ScoreChange
	fmt.Fprintln(w, "\nScores:")
	fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", "Category", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	rows := []struct {
		name   string
		before int
		after  int
		delta  int
	}{
		{"Overall", p.Overall, c.Overall, d.Overall},
		{"Metadata", p.Categories.Metadata, c.Categories.Metadata, d.Metadata},
		{"Content", p.Categories.Content, c.Categories.Content, d.Content},
		{"Technical", p.Categories.Technical, c.Categories.Technical, d.Technical},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-10s  %-10s  %-10s  %-10s\n", r.name, scoreText(p, r.before), scoreText(c, r.after), formatDelta(r.delta))
	}
	fmt.Fprintln(w, "  "+strings.Repeat("-", 45))
	fmt.Fprintf(w, "  %-10s  %-10d  %-10d  %-10s\n", "Pages", p.PagesCount, c.PagesCount, formatDelta(c.PagesCount-p.PagesCount))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(w, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(w, "  [+] [%s] %s\n", f.Severity, f.Title)
		}
	}
	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(w, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(w, "  [-] [%s] %s\n", f.Severity, f.Title)
		}
	}
	if len(result.AddedPages) > 0 || len(result.RemovedPages) > 0 {
		fmt.Fprintln(w, "\nPage Changes:")
		for _, u := range result.AddedPages {
			fmt.Fprintf(w, "  [+] %s\n", u)
		}
		for _, u := range result.RemovedPages {
			fmt.Fprintf(w, "  [-] %s\n", u)
		}
	}
	if result.UnchangedCount > 0 {
		fmt.Fprintf(w, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}
}

// scoreText prints a score, or "-" for an audit that was never scored.
func scoreText(b model.AuditBrief, score int) string {
	if !b.Scored {
		return "-"
	}
	return strconv.Itoa(score)
}

// formatDirection formats the score direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (score increased)"
	case directionDeclined:
		return "DECLINED (score decreased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
