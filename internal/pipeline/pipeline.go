package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/seoaudit/internal/model"
)

// Step is one stage of an audit.
// Steps run in sequence, each receiving the audit filled in by the
// previous steps.
type Step interface {
	// Do executes the step. A returned error is fatal for the audit;
	// problems that should not stop the audit are logged or recorded in
	// the audit and nil is returned.
	Do(ctx context.Context, audit *model.Audit) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Milestones is implemented by steps that report progress.
// Started is reported before Do runs and Finished after it succeeds.
type Milestones interface {
	Started(audit *model.Audit) (Stage, string)
	Finished(audit *model.Audit) (Stage, string)
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// sink receives progress notifications.
	sink Sink

	// continueOnError keeps running later steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. The last error is still recorded in the audit.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithSink sets the progress sink.
func WithSink(sink Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		sink:  nopSink{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and sets audit.FinishedAt.
//
// Cancellation is checked between steps; steps handle it themselves while
// running. On cancellation audit.TimedOut is set. Unless continueOnError
// is set, the first failing step stops the pipeline and its error is
// returned and recorded in the audit.
func (p *Pipeline) Execute(ctx context.Context, audit *model.Audit) (err error) {
	defer func() {
		audit.FinishedAt = time.Now()
		switch {
		case err != nil:
			p.notify(audit, StageFailed, err.Error())
		case audit.Error != nil:
			p.notify(audit, StageFailed, audit.ErrorMessage)
		default:
			p.notify(audit, StageDone, "Audit complete.")
		}
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			audit.TimedOut = true
			audit.SetError(ctx.Err())
			return ctx.Err()
		default:
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"url", audit.StartURL,
		)

		m, hasMilestones := step.(Milestones)
		if hasMilestones {
			stage, message := m.Started(audit)
			p.notify(audit, stage, message)
		}

		if stepErr := step.Do(ctx, audit); stepErr != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", audit.StartURL,
				"error", stepErr,
			)

			audit.SetError(stepErr)
			if ctx.Err() != nil {
				audit.TimedOut = true
			}

			if !p.continueOnError {
				return stepErr
			}
		} else {
			if hasMilestones {
				stage, message := m.Finished(audit)
				p.notify(audit, stage, message)
			}
			p.logger.Debug("step completed",
				"step", step.Name(),
				"url", audit.StartURL,
			)
		}

		audit.PerformedSteps = append(audit.PerformedSteps, step.Name())
	}

	return nil
}

func (p *Pipeline) notify(audit *model.Audit, stage Stage, message string) {
	p.sink.Notify(Progress{
		AuditID: audit.ID,
		URL:     audit.StartURL,
		Stage:   stage,
		Percent: stage.Percent(),
		Message: message,
		Time:    time.Now(),
	})
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
