package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/seoaudit/internal/model"
)

// AuditFunc audits one site. Auditor.Run has this shape.
type AuditFunc func(ctx context.Context, startURL string, sink Sink) (*model.Audit, error)

// BatchProcessor audits several sites concurrently.
type BatchProcessor struct {
	audit       AuditFunc
	concurrency int
	sink        Sink
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is 2 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBatchSink sets the progress sink passed to every audit.
func WithBatchSink(s Sink) BatchOption {
	return func(b *BatchProcessor) {
		b.sink = s
	}
}

// NewBatchProcessor creates a BatchProcessor that runs audit for each site.
func NewBatchProcessor(audit AuditFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		audit:       audit,
		concurrency: 2,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits every target and returns the audits in target order.
// A failed audit does not stop the others; its error is recorded in the
// audit. The returned error is only non-nil when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Audit, error) {
	results := make([]*model.Audit, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(audit *model.Audit, index int) {
		results[index] = audit
	})
	return results, err
}

// ProcessBatchWithCallback audits every target and calls callback as each
// audit finishes. The callback runs on the goroutine that ran the audit,
// so it must be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(audit *model.Audit, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_sites", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing site",
				"url", target,
				"index", i+1,
				"total", len(targets),
			)

			audit, err := bp.audit(ctx, target, bp.sink)
			if err != nil {
				// Recorded in the audit; other sites keep going.
				bp.logger.Warn("audit failed", "url", target, "error", err)
			}
			if audit != nil {
				callback(audit, i)
			}
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_sites", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
