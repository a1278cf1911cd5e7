package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/model"
)

// testAudit builds a finished, scored audit of host with one analyzed
// page per path.
func testAudit(host string, startedAt time.Time, overall int, findings []model.KeyFinding, paths ...string) *model.Audit {
	a := model.NewAudit("https://"+host+"/", 10)
	a.StartedAt = startedAt
	a.FinishedAt = startedAt.Add(time.Minute)
	for _, p := range paths {
		u := "https://" + host + p
		a.DiscoveredURLs = append(a.DiscoveredURLs, u)
		a.Pages = append(a.Pages, model.PageResult{
			Analysis:  model.PageAnalysis{URL: u, WordCount: 420},
			Technical: model.EmptyTechnicalMetrics(),
		})
	}
	a.Scores = &model.Scores{
		Overall:    overall,
		Categories: model.CategoryScores{Metadata: overall, Content: overall, Technical: overall},
	}
	a.KeyFindings = findings
	return a
}

// seedHistory saves audits into a new database and returns its directory.
func seedHistory(t *testing.T, audits ...*model.Audit) string {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	for _, a := range audits {
		if err := db.SaveAudit(context.Background(), a); err != nil {
			t.Fatalf("SaveAudit() error = %v", err)
		}
	}
	return dir
}

// runHistory executes the history command with args and returns its output.
func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history [host]" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}
	for _, name := range []string{"show", "trend", "delete", "limit", "json", "markdown", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q to exist", name)
		}
	}
	if f := cmd.Flags().Lookup("limit"); f != nil && f.Shorthand != "n" {
		t.Errorf("limit: expected shorthand n, got %q", f.Shorthand)
	}
}

func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	older := testAudit("www.example.com", base, 60, nil, "/", "/pricing")
	newer := testAudit("www.example.com", base.Add(24*time.Hour), 75, nil, "/", "/pricing")
	other := testAudit("blog.example.org", base, 90, nil, "/")
	dbDir := seedHistory(t, older, newer, other)

	t.Run("lists hosts", func(t *testing.T) {
		t.Parallel()
		out, err := runHistory(t, "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		for _, host := range []string{"www.example.com", "blog.example.org"} {
			if !strings.Contains(out, host) {
				t.Errorf("output missing %s:\n%s", host, out)
			}
		}
	})

	t.Run("lists audits of a host as json", func(t *testing.T) {
		t.Parallel()
		out, err := runHistory(t, "--db-dir", dbDir, "--json", "https://www.example.com/")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		var briefs []model.AuditBrief
		if err := json.Unmarshal([]byte(out), &briefs); err != nil {
			t.Fatalf("output is not a JSON history: %v\n%s", err, out)
		}
		if len(briefs) != 2 {
			t.Fatalf("expected 2 audits, got %d", len(briefs))
		}
		if briefs[0].ID != newer.ID {
			t.Errorf("expected newest audit first, got %s", briefs[0].ID)
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()
		out, err := runHistory(t, "--db-dir", dbDir, "-j", "-n", "1", "www.example.com")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		var briefs []model.AuditBrief
		if err := json.Unmarshal([]byte(out), &briefs); err != nil {
			t.Fatal(err)
		}
		if len(briefs) != 1 {
			t.Errorf("expected 1 audit, got %d", len(briefs))
		}
	})

	t.Run("unknown host", func(t *testing.T) {
		t.Parallel()
		if _, err := runHistory(t, "--db-dir", dbDir, "nowhere.example"); err == nil {
			t.Error("expected error for host without history")
		}
	})

	t.Run("show by prefix", func(t *testing.T) {
		t.Parallel()
		out, err := runHistory(t, "--db-dir", dbDir, "--markdown", "--show", older.ID.String()[:8])
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(out, "www.example.com") {
			t.Errorf("report does not mention the host:\n%s", out)
		}
	})

	t.Run("trend", func(t *testing.T) {
		t.Parallel()
		out, err := runHistory(t, "--db-dir", dbDir, "--trend", "https://www.example.com/pricing")
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !strings.Contains(out, "AUDITED") || strings.Count(out, "2025-03-0") != 2 {
			t.Errorf("unexpected trend table:\n%s", out)
		}
	})

	t.Run("show and trend are exclusive", func(t *testing.T) {
		t.Parallel()
		if _, err := runHistory(t, "--db-dir", dbDir, "--show", "abc", "--trend", "https://x"); err == nil {
			t.Error("expected error for mutually exclusive flags")
		}
	})

	t.Run("delete requires a full id", func(t *testing.T) {
		t.Parallel()
		if _, err := runHistory(t, "--db-dir", dbDir, "--delete", "abc"); err == nil {
			t.Error("expected error for partial id")
		}
	})
}

func TestRunHistoryCmdDelete(t *testing.T) {
	t.Parallel()

	a := testAudit("www.example.com", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 70, nil, "/")
	dbDir := seedHistory(t, a)

	out, err := runHistory(t, "--db-dir", dbDir, "--delete", a.ID.String())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Deleted audit "+a.ID.String()) {
		t.Errorf("unexpected output %q", out)
	}

	_, err = runHistory(t, "--db-dir", dbDir, "--delete", a.ID.String())
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestRunHistoryCmdMissingDatabase(t *testing.T) {
	t.Parallel()

	_, err := runHistory(t, "--db-dir", t.TempDir())
	if err == nil {
		t.Fatal("expected error when no database exists")
	}
	if !strings.Contains(err.Error(), "run an audit first") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHostArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "www.example.com", want: "www.example.com"},
		{in: "WWW.Example.com/", want: "www.example.com"},
		{in: "https://www.example.com/pricing?x=1", want: "www.example.com"},
		{in: "http://localhost:8080/", want: "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := hostArg(tt.in); got != tt.want {
				t.Errorf("hostArg(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
