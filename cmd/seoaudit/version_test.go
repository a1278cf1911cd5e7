package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	info := readBuildInfo()
	if info.Version == "" {
		t.Error("version should fall back to a placeholder")
	}
	if info.Commit == "" || len(info.Commit) > 7 {
		t.Errorf("unexpected commit %q", info.Commit)
	}
	if info.Date == "" {
		t.Error("date should fall back to a placeholder")
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("unexpected go version %q", info.GoVersion)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("unexpected platform %q", info.Platform)
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"seoaudit version", "commit:", "built:", "go:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--json"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var info buildInfo
		if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if info.Version == "" {
			t.Error("expected version in JSON output")
		}
	})

	t.Run("rejects arguments", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})
		if err := cmd.Execute(); err == nil {
			t.Error("expected error for extra argument")
		}
	})
}
