package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/seoaudit/internal/config"
	"github.com/nao1215/seoaudit/internal/database"
	"github.com/nao1215/seoaudit/internal/log"
	"github.com/nao1215/seoaudit/internal/model"
	"github.com/nao1215/seoaudit/internal/pipeline"
	"github.com/nao1215/seoaudit/internal/report"
	"github.com/nao1215/seoaudit/internal/summary"
)

// apiKeyEnv names the environment variable read for a provider's API key
// when neither the config file nor a flag set one.
var apiKeyEnv = map[string]string{
	config.ProviderOpenAI: "OPENAI_API_KEY",
	config.ProviderGoogle: "GEMINI_API_KEY",
}

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [url...]",
		Short: "Audit one or more websites",
		Long: `Audit crawls each website from its start URL, renders every discovered
page in a headless browser and reports:
- Metadata: titles, meta descriptions, social tags, canonical URLs
- Content: headings, word counts, image alt text, structured data
- Technical health: load timings, unused JavaScript and CSS, console errors

Each site gets an overall score from 0 to 100 with metadata, content and
technical category scores. Finished audits are saved to the history
database unless --no-save is given.

Examples:
  # Audit a single site
  seoaudit audit example.com

  # Audit several sites, two at a time
  seoaudit audit --batch 2 example.com example.org

  # Crawl up to 50 pages without a browser
  seoaudit audit --renderer http -p 50 https://example.com/

  # Write a Markdown report with an AI summary from a local Ollama server
  seoaudit audit --markdown -o report.md --summary ollama example.com

Configuration file (.seoaudit) example:
  sites:
    www.example.com:
      cookie: "session_id=abc123"
      maxPages: 25
      ignorePatterns:
        - "/admin/*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	addSiteFlags(cmd)

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().BoolP("quiet", "q", false,
		"Do not print progress")

	return cmd
}

// addSiteFlags registers the flags shared by every command that runs
// audits: crawl, rendering, configuration file, summary and history.
func addSiteFlags(cmd *cobra.Command) {
	// Crawl flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to audit per site")
	cmd.Flags().Int("concurrency", config.DefaultCrawlConcurrency,
		"Number of pages rendered at once while crawling")
	cmd.Flags().Int("analysis-concurrency", config.DefaultAnalysisConcurrency,
		"Number of pages rendered and profiled at once during analysis")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of sites audited at once")
	cmd.Flags().Float64("rate", 0,
		"Maximum renders per second per site (0 = unlimited)")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Number of rendered pages kept for reuse between crawl and analysis")

	// Rendering flags
	cmd.Flags().String("renderer", config.RendererChrome,
		"Page renderer: chrome (JavaScript, profiling) or http (no browser)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultRenderTimeout,
		"Timeout for each page render")
	cmd.Flags().Int("retries", config.DefaultRenderRetries,
		"Extra attempts after a failed render")
	cmd.Flags().Duration("profile-timeout", config.DefaultProfileTimeout,
		"Timeout for each technical profile")
	cmd.Flags().Bool("no-profile", false,
		"Skip technical profiling (timings, coverage, console errors)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User agent sent with every request")
	cmd.Flags().String("accept-language", config.DefaultAcceptLanguage,
		"Accept-Language header sent with every request")
	cmd.Flags().String("proxy", "",
		"Proxy URL (socks5:// for both renderers, http:// for chrome only)")
	cmd.Flags().String("chrome-path", "",
		"Path to the Chrome or Chromium executable")
	cmd.Flags().Bool("headful", false,
		"Show the browser window")
	cmd.Flags().Bool("screenshots", false,
		"Save a screenshot of every profiled page")
	cmd.Flags().String("screenshot-dir", "",
		"Directory for screenshots (default: XDG cache directory)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .seoaudit in current, XDG config or home directory)")

	// Summary flags
	cmd.Flags().String("summary", "",
		"Summary provider: none, ollama, openai or google (default: config file or none)")
	cmd.Flags().String("summary-model", "",
		"Model used by the summary provider")
	cmd.Flags().String("summary-url", "",
		"Base URL of the summary provider")
	cmd.Flags().Duration("summary-timeout", config.DefaultSummaryTimeout,
		"Timeout for the summary provider call")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not save audits to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	var sink pipeline.Sink
	if !quiet {
		sink = newProgressPrinter(cmd.ErrOrStderr())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAudit(ctx, cfg, cmd.OutOrStdout(), sink, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates the audit Config from cobra command flags and the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildSiteConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	cfg.Targets = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.Targets = append(cfg.Targets, config.NormalizeTarget(arg))
	}

	return cfg, nil
}

// buildSiteConfig reads the flags registered by addSiteFlags and merges
// the configuration file.
func buildSiteConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlConcurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.AnalysisConcurrency, err = flags.GetInt("analysis-concurrency"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
		return nil, err
	}
	if cfg.Renderer, err = flags.GetString("renderer"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RenderRetries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.ProfileTimeout, err = flags.GetDuration("profile-timeout"); err != nil {
		return nil, err
	}
	if cfg.NoProfile, err = flags.GetBool("no-profile"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.AcceptLanguage, err = flags.GetString("accept-language"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if cfg.Headful, err = flags.GetBool("headful"); err != nil {
		return nil, err
	}
	if cfg.Screenshots, err = flags.GetBool("screenshots"); err != nil {
		return nil, err
	}
	screenshotDir, err := flags.GetString("screenshot-dir")
	if err != nil {
		return nil, err
	}
	if screenshotDir != "" {
		cfg.ScreenshotDir = screenshotDir
	}

	if err := applySummaryFlags(cmd, cfg); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg); err != nil {
		return nil, err
	}

	// The config file may name a provider; the key still comes from the
	// environment when neither the file nor a flag set it.
	if env, ok := apiKeyEnv[cfg.Summary.Provider]; ok && cfg.Summary.APIKey == "" {
		cfg.Summary.APIKey = os.Getenv(env)
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applySummaryFlags copies the summary flags that were set into cfg.
// Unset flags leave room for the configuration file.
func applySummaryFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	provider, err := flags.GetString("summary")
	if err != nil {
		return err
	}
	if provider != "" {
		cfg.Summary.Provider = provider
	}
	if cfg.Summary.Model, err = flags.GetString("summary-model"); err != nil {
		return err
	}
	if cfg.Summary.BaseURL, err = flags.GetString("summary-url"); err != nil {
		return err
	}
	if cfg.Summary.Timeout, err = flags.GetDuration("summary-timeout"); err != nil {
		return err
	}
	return nil
}

// loadConfigFile applies the configuration file to cfg.
// An explicitly requested file must exist; a missing default file is not
// an error.
func loadConfigFile(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(cf)
	case explicit:
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.ApplyFile(&config.File{Sites: make(map[string]config.SiteConfig)})
	}
	return nil
}

// runAudit audits every target and writes one report per site.
func runAudit(ctx context.Context, cfg *config.Config, stdout io.Writer, sink pipeline.Sink, logger *slog.Logger) error {
	if len(cfg.Targets) == 0 {
		return errors.New("no targets provided (specify one or more URLs as arguments)")
	}

	logger.Info("starting audit",
		"targets", cfg.Targets,
		"renderer", cfg.Renderer,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	summarizer, err := summary.New(cfg.Summary, summary.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to configure summary provider: %w", err)
	}

	opts := []pipeline.AuditorOption{
		pipeline.WithSummarizer(summarizer),
		pipeline.WithAuditorLogger(logger),
	}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.Options{
			CreateIfNotExists: true,
			EnableWAL:         true,
			Logger:            logger,
		})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithStore(db))
		logger.Info("database opened", "path", db.Path())
	}
	auditor := pipeline.NewAuditor(cfg, opts...)

	output, closeOutput, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	bp := pipeline.NewBatchProcessor(auditor.Run,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
		pipeline.WithBatchSink(sink),
	)

	startTime := time.Now()
	var (
		mu     sync.Mutex
		failed int
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(audit *model.Audit, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if audit.ErrorMessage != "" {
			failed++
		}
		if _, err := writer.Write(audit); err != nil {
			logger.Error("report failed", "url", audit.StartURL, "error", err)
		}
	})
	logger.Info("audit finished", "elapsed", time.Since(startTime).Round(time.Millisecond))
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d audits failed", failed, len(cfg.Targets))
	}
	return nil
}

// newReportWriter picks the report format from cfg.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(w, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}

// openReportOutput returns the report destination: path when set,
// stdout otherwise.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// progressPrinter prints one line per pipeline milestone.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Notify implements pipeline.Sink.
func (p *progressPrinter) Notify(pr pipeline.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pr.Stage == pipeline.StageFailed {
		fmt.Fprintf(p.w, "[fail] %s: %s\n", pr.URL, pr.Message)
		return
	}
	fmt.Fprintf(p.w, "[%3d%%] %s: %s\n", pr.Percent, pr.URL, pr.Message)
}
