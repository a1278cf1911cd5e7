package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/log"
	"github.com/nao1215/seoaudit/internal/pipeline"
	"github.com/nao1215/seoaudit/internal/server"
	"github.com/nao1215/seoaudit/internal/summary"
)

const (
	defaultMaxConcurrentAudits = 2
	defaultMaxPagesLimit       = 500
	defaultServeAuditTimeout   = 10 * time.Minute
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run audits over an HTTP API",
		Long: `Serve starts an HTTP API that runs audits and browses the history
database.

Endpoints:
  POST   /api/audits              start an audit ({"url": "...", "max_pages": 10, "wait": false})
  GET    /api/jobs/{id}           progress of an asynchronous audit
  GET    /api/audits              saved audits (?host=&limit=)
  GET    /api/audits/{id}         one saved audit (an ID prefix is enough)
  GET    /api/audits/{id}/report  rendered report (?format=markdown|json|text)
  DELETE /api/audits/{id}         delete a saved audit
  GET    /api/hosts               audited hosts
  GET    /api/pages/trend         one page across audits (?url=&limit=)
  GET    /healthz                 liveness probe
  GET    /metrics                 Prometheus metrics

Examples:
  # Serve on the default address
  seoaudit serve

  # Serve on localhost only, one audit at a time
  seoaudit serve --addr 127.0.0.1:9090 --max-concurrent 1`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addSiteFlags(cmd)
	// Each API request audits one site.
	_ = cmd.Flags().MarkHidden("batch")

	cmd.Flags().String("addr", config.DefaultServeAddress,
		"Listen address of the HTTP API")
	cmd.Flags().Int("max-concurrent", defaultMaxConcurrentAudits,
		"Maximum number of audits running at once (requests over it get 429)")
	cmd.Flags().Int("max-pages-limit", defaultMaxPagesLimit,
		"Largest max_pages a client may request")
	cmd.Flags().Duration("audit-timeout", defaultServeAuditTimeout,
		"Timeout for each audit started through the API")

	return cmd
}

// serveOptions holds the serve-only flags.
type serveOptions struct {
	addr          string
	maxConcurrent int
	maxPagesLimit int
	auditTimeout  time.Duration
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildSiteConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	var opts serveOptions
	flags := cmd.Flags()
	if opts.addr, err = flags.GetString("addr"); err != nil {
		return err
	}
	if opts.maxConcurrent, err = flags.GetInt("max-concurrent"); err != nil {
		return err
	}
	if opts.maxPagesLimit, err = flags.GetInt("max-pages-limit"); err != nil {
		return err
	}
	if opts.auditTimeout, err = flags.GetDuration("audit-timeout"); err != nil {
		return err
	}
	if opts.maxConcurrent < 1 || opts.maxPagesLimit < 1 || opts.auditTimeout <= 0 {
		return errors.New("--max-concurrent, --max-pages-limit and --audit-timeout must be positive")
	}
	cfg.ServeAddress = opts.addr

	logger := log.NewSecureJSONLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, opts, logger)
}

// runServe wires the auditor, history database and metrics into the HTTP
// API and serves until ctx is done.
func runServe(ctx context.Context, cfg *config.Config, opts serveOptions, logger *slog.Logger) error {
	summarizer, err := summary.New(cfg.Summary, summary.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to configure summary provider: %w", err)
	}

	metrics := pipeline.NewMetrics()
	auditorOpts := []pipeline.AuditorOption{
		pipeline.WithSummarizer(summarizer),
		pipeline.WithMetrics(metrics),
		pipeline.WithAuditorLogger(logger),
	}
	serverOpts := []server.Option{
		server.WithMetrics(metrics),
		server.WithMaxConcurrentAudits(opts.maxConcurrent),
		server.WithMaxPagesLimit(opts.maxPagesLimit),
		server.WithAuditTimeout(opts.auditTimeout),
		server.WithLogger(logger),
	}

	if cfg.SaveToDB {
		db, err := database.OpenContext(ctx, cfg.DBDir, database.Options{
			CreateIfNotExists: true,
			EnableWAL:         true,
			Logger:            logger,
		})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		auditorOpts = append(auditorOpts, pipeline.WithStore(db))
		serverOpts = append(serverOpts, server.WithStore(db))
		logger.Info("database opened", "path", db.Path())
	}

	auditor := pipeline.NewAuditor(cfg, auditorOpts...)
	srv := server.New(server.FromAuditor(auditor), serverOpts...)

	return srv.ListenAndServe(ctx, cfg.ServeAddress)
}
