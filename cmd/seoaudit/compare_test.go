package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()

	if cmd.Use != "compare [host]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	flagsWithShort := map[string]string{
		"with-id":  "i",
		"since":    "s",
		"json":     "j",
		"markdown": "m",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
	if cmd.Flags().Lookup("db-dir") == nil {
		t.Error("expected db-dir flag")
	}
}

func finding(title string, typ model.FindingType, sev model.Severity) model.KeyFinding {
	return model.KeyFinding{Title: title, Type: typ, Severity: sev}
}

func TestCompareAudits(t *testing.T) {
	t.Parallel()

	missingMeta := finding("Missing meta descriptions", model.FindingWeakness, model.SeverityHigh)
	slowPages := finding("Slow first paint", model.FindingWeakness, model.SeverityMedium)
	goodTitles := finding("Well-sized titles", model.FindingStrength, model.SeverityGood)
	brokenAlt := finding("Images without alt text", model.FindingWeakness, model.SeverityCritical)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		previousFindings  []model.KeyFinding
		currentFindings   []model.KeyFinding
		previousScore     int
		currentScore      int
		wantNew           []string
		wantResolved      []string
		wantUnchanged     int
		wantDirection     string
		wantOverallChange int
	}{
		{
			name:             "no changes when findings are identical",
			previousFindings: []model.KeyFinding{missingMeta},
			currentFindings:  []model.KeyFinding{missingMeta},
			previousScore:    70,
			currentScore:     70,
			wantUnchanged:    1,
			wantDirection:    directionUnchanged,
		},
		{
			name:              "detects new findings",
			currentFindings:   []model.KeyFinding{slowPages, brokenAlt},
			previousScore:     80,
			currentScore:      65,
			wantNew:           []string{brokenAlt.Title, slowPages.Title},
			wantDirection:     directionDeclined,
			wantOverallChange: -15,
		},
		{
			name:              "detects resolved findings",
			previousFindings:  []model.KeyFinding{missingMeta},
			previousScore:     60,
			currentScore:      72,
			wantResolved:      []string{missingMeta.Title},
			wantDirection:     directionImproved,
			wantOverallChange: 12,
		},
		{
			name:              "same title with a different type is a different finding",
			previousFindings:  []model.KeyFinding{goodTitles},
			currentFindings:   []model.KeyFinding{finding(goodTitles.Title, model.FindingWeakness, model.SeverityLow)},
			previousScore:     70,
			currentScore:      71,
			wantNew:           []string{goodTitles.Title},
			wantResolved:      []string{goodTitles.Title},
			wantDirection:     directionImproved,
			wantOverallChange: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			previous := testAudit("www.example.com", base, tt.previousScore, tt.previousFindings, "/")
			current := testAudit("www.example.com", base.Add(time.Hour), tt.currentScore, tt.currentFindings, "/")

			result := compareAudits(previous, current)

			if got := titles(result.NewFindings); !equalStrings(got, tt.wantNew) {
				t.Errorf("NewFindings = %v, want %v", got, tt.wantNew)
			}
			if got := titles(result.ResolvedFindings); !equalStrings(got, tt.wantResolved) {
				t.Errorf("ResolvedFindings = %v, want %v", got, tt.wantResolved)
			}
			if result.UnchangedCount != tt.wantUnchanged {
				t.Errorf("UnchangedCount = %d, want %d", result.UnchangedCount, tt.wantUnchanged)
			}
			if result.ScoreChange.Direction != tt.wantDirection {
				t.Errorf("Direction = %q, want %q", result.ScoreChange.Direction, tt.wantDirection)
			}
			if result.ScoreChange.Overall != tt.wantOverallChange {
				t.Errorf("Overall change = %d, want %d", result.ScoreChange.Overall, tt.wantOverallChange)
			}
		})
	}
}

func TestCompareAuditsPagesAndUnscored(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	previous := testAudit("www.example.com", base, 50, nil, "/", "/old", "/about")
	current := testAudit("www.example.com", base.Add(time.Hour), 90, nil, "/", "/about", "/new")

	result := compareAudits(previous, current)
	if !equalStrings(result.AddedPages, []string{"https://www.example.com/new"}) {
		t.Errorf("AddedPages = %v", result.AddedPages)
	}
	if !equalStrings(result.RemovedPages, []string{"https://www.example.com/old"}) {
		t.Errorf("RemovedPages = %v", result.RemovedPages)
	}

	previous.Scores = nil
	result = compareAudits(previous, current)
	if result.ScoreChange != (ScoreChange{Direction: directionUnchanged}) {
		t.Errorf("unscored comparison should not report deltas, got %+v", result.ScoreChange)
	}
}

// runCompare executes the compare command with args and returns its output.
func runCompare(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewCompareCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCompareCmd(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	missingMeta := finding("Missing meta descriptions", model.FindingWeakness, model.SeverityHigh)
	slowPages := finding("Slow first paint", model.FindingWeakness, model.SeverityMedium)

	first := testAudit("www.example.com", base, 55, []model.KeyFinding{missingMeta, slowPages}, "/")
	second := testAudit("www.example.com", base.Add(48*time.Hour), 62, []model.KeyFinding{missingMeta}, "/")
	third := testAudit("www.example.com", base.Add(96*time.Hour), 80, nil, "/", "/blog")
	lonely := testAudit("solo.example.net", base, 40, nil, "/")
	dbDir := seedHistory(t, first, second, third, lonely)

	decodeResult := func(t *testing.T, out string) ComparisonResult {
		t.Helper()
		var result ComparisonResult
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, out)
		}
		return result
	}

	t.Run("latest against previous", func(t *testing.T) {
		t.Parallel()
		out, err := runCompare(t, "--db-dir", dbDir, "--json", "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		result := decodeResult(t, out)
		if result.Previous.ID != second.ID || result.Current.ID != third.ID {
			t.Errorf("compared %s with %s", result.Previous.ID, result.Current.ID)
		}
		if result.ScoreChange.Overall != 18 || result.ScoreChange.Direction != directionImproved {
			t.Errorf("unexpected score change %+v", result.ScoreChange)
		}
		if len(result.ResolvedFindings) != 1 || result.ResolvedFindings[0].Title != missingMeta.Title {
			t.Errorf("ResolvedFindings = %+v", result.ResolvedFindings)
		}
		if !equalStrings(result.AddedPages, []string{"https://www.example.com/blog"}) {
			t.Errorf("AddedPages = %v", result.AddedPages)
		}
	})

	t.Run("with id prefix", func(t *testing.T) {
		t.Parallel()
		out, err := runCompare(t, "--db-dir", dbDir, "-j", "-i", first.ID.String()[:8], "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result := decodeResult(t, out); result.Previous.ID != first.ID {
			t.Errorf("Previous = %s, want %s", result.Previous.ID, first.ID)
		}
	})

	t.Run("since picks the oldest audit on or after the date", func(t *testing.T) {
		t.Parallel()
		out, err := runCompare(t, "--db-dir", dbDir, "-j", "--since", "2025-03-02", "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if result := decodeResult(t, out); result.Previous.ID != second.ID {
			t.Errorf("Previous = %s, want %s", result.Previous.ID, second.ID)
		}
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()
		out, err := runCompare(t, "--db-dir", dbDir, "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		for _, want := range []string{"Audit Comparison: www.example.com", "IMPROVED", "+18", "[-] [High] Missing meta descriptions"} {
			if !strings.Contains(out, want) {
				t.Errorf("text output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("markdown output", func(t *testing.T) {
		t.Parallel()
		out, err := runCompare(t, "--db-dir", dbDir, "--markdown", "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		for _, want := range []string{"# Audit Comparison: www.example.com", "| Metric", "## Resolved Findings (1)", "## Page Changes"} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown output missing %q:\n%s", want, out)
			}
		}
	})

	errorCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "single audit", args: []string{"solo.example.net"}, want: "at least 2 audits"},
		{name: "unknown host", args: []string{"nowhere.example"}, want: "no audit history"},
		{name: "id of another host", args: []string{"-i", lonely.ID.String(), "www.example.com"}, want: "belongs to solo.example.net"},
		{name: "id of the latest audit", args: []string{"-i", third.ID.String(), "www.example.com"}, want: "latest audit"},
		{name: "since after every audit", args: []string{"--since", "2030-01-01", "www.example.com"}, want: "no audits found since"},
		{name: "since matching only the latest", args: []string{"--since", "2025-03-05", "www.example.com"}, want: "only one audit"},
		{name: "bad date", args: []string{"--since", "March", "www.example.com"}, want: "invalid date format"},
		{name: "conflicting formats", args: []string{"-j", "-m", "www.example.com"}, want: "cannot be used together"},
		{name: "id and since", args: []string{"-i", "abc", "-s", "2025-01-01", "www.example.com"}, want: "cannot be used together"},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := runCompare(t, append([]string{"--db-dir", dbDir}, tt.args...)...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{5: "+5", 0: "0", -3: "-3"}
	for in, want := range tests {
		if got := formatDelta(in); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}

func titles(findings []model.KeyFinding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Title)
	}
	return out
}

func equalStrings(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
