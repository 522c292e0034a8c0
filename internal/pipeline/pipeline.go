package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/logging"
)

// DefaultStepTimeout bounds a single step when the config sets none.
const DefaultStepTimeout = 30 * time.Minute

// RunContext carries the configuration and the artifacts steps hand to each
// other: the repository path, the pushed image reference and digest, and the
// deployed service URL.
type RunContext struct {
	Config *config.Config

	Repository  string // registry path for the image, set by ensure-repository
	ImageRef    string // Repository + fixed tag, set by ensure-repository
	ImageDigest string // set by push-image
	ServiceURL  string // set by deploy-service
}

// Step is one stage of the deploy pipeline.
type Step interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) error
}

// Event reports step progress to the CLI.
type Event struct {
	Step     string
	Status   string // "started", "completed", "failed"
	Duration time.Duration
	Err      error
}

// Callback receives an Event for every step transition, if set.
type Callback func(Event)

// Runner executes steps in order. The first step to fail aborts the run:
// no later step executes, and the run's error is that step's error. There is
// no rollback and no cleanup of earlier steps' effects.
type Runner struct {
	steps    []Step
	timeout  time.Duration
	retry    *RetryPolicy // nil: each step runs exactly once
	callback Callback
}

// Option configures a Runner.
type Option func(*Runner)

// WithStepTimeout sets the per-step timeout.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetry enables retry of transient step errors.
func WithRetry(p *RetryPolicy) Option {
	return func(r *Runner) { r.retry = p }
}

// WithCallback sets the progress event callback.
func WithCallback(cb Callback) Option {
	return func(r *Runner) { r.callback = cb }
}

func NewRunner(steps []Step, opts ...Option) *Runner {
	r := &Runner{
		steps:   steps,
		timeout: DefaultStepTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline.
func (r *Runner) Run(ctx context.Context, rc *RunContext) error {
	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline cancelled: %w", err)
		}

		start := time.Now()
		log := logging.With("step", step.Name())
		r.emit(Event{Step: step.Name(), Status: "started"})
		log.Debug("step started")

		err := r.runStep(ctx, step, rc)
		if err != nil {
			r.emit(Event{Step: step.Name(), Status: "failed", Duration: time.Since(start), Err: err})
			return fmt.Errorf("step %s failed: %w", step.Name(), err)
		}

		log.Debug("step completed", "duration", time.Since(start))
		r.emit(Event{Step: step.Name(), Status: "completed", Duration: time.Since(start)})
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step, rc *RunContext) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.retry == nil {
		return step.Run(ctx, rc)
	}
	return RetryWithBackoff(ctx, r.retry, func() error {
		return step.Run(ctx, rc)
	}, IsTransientError)
}

func (r *Runner) emit(event Event) {
	if r.callback != nil {
		r.callback(event)
	}
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	StepName string
	Fn       func(ctx context.Context, rc *RunContext) error
}

func (s StepFunc) Name() string { return s.StepName }

func (s StepFunc) Run(ctx context.Context, rc *RunContext) error {
	return s.Fn(ctx, rc)
}
