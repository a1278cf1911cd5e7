package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	if cmd.Use != "serve" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	defaults := map[string]string{
		"addr":            config.DefaultServeAddress,
		"max-concurrent":  "2",
		"max-pages-limit": "500",
		"audit-timeout":   "10m0s",
		"renderer":        config.RendererChrome,
		"no-save":         "false",
	}
	for name, def := range defaults {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Errorf("expected flag %q to exist", name)
			continue
		}
		if f.DefValue != def {
			t.Errorf("flag %q: expected default %q, got %q", name, def, f.DefValue)
		}
	}

	for _, name := range []string{"json", "markdown", "output"} {
		if cmd.Flags().Lookup(name) != nil {
			t.Errorf("serve should not have report flag %q", name)
		}
	}
}

func TestRunServeCmdValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "positional arguments", args: []string{"example.com"}, want: "unknown command"},
		{name: "zero concurrency", args: []string{"--max-concurrent", "0"}, want: "must be positive"},
		{name: "zero page limit", args: []string{"--max-pages-limit", "0"}, want: "must be positive"},
		{name: "invalid renderer", args: []string{"--renderer", "lynx"}, want: "configuration error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewServeCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(append(tt.args, "--config", writeConfig(t, "{}\n"), "--no-save"))

			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestRunServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.DBDir = t.TempDir()
	cfg.ServeAddress = "127.0.0.1:0"

	// Long enough to open and migrate the database before shutdown starts.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	opts := serveOptions{addr: cfg.ServeAddress, maxConcurrent: 1, maxPagesLimit: 10, auditTimeout: time.Minute}
	if err := runServe(ctx, cfg, opts, slog.New(slog.DiscardHandler)); err != nil {
		t.Fatalf("runServe() error = %v", err)
	}

	// The history database is created and migrated even though no audit ran.
	if _, err := os.Stat(filepath.Join(cfg.DBDir, database.FileName)); err != nil {
		t.Errorf("expected history database: %v", err)
	}
}
