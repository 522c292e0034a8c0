package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipway-sh/slipway/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Platform:   "gcp",
		Project:    "demo",
		Region:     "us-central1",
		Repository: "apps",
		Image:      &config.Image{Name: "promptd"},
		Service:    &config.Service{Name: "promptd"},
	}
	cfg.ApplyDefaults()
	return cfg
}

// recordingStep appends its name to a shared log when run.
type recordingStep struct {
	name string
	log  *[]string
	err  error
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Run(ctx context.Context, rc *RunContext) error {
	*s.log = append(*s.log, s.name)
	return s.err
}

func TestRunner_RunsStepsInOrder(t *testing.T) {
	var log []string
	steps := []Step{
		&recordingStep{name: "one", log: &log},
		&recordingStep{name: "two", log: &log},
		&recordingStep{name: "three", log: &log},
	}

	runner := NewRunner(steps)
	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})

	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, log)
}

func TestRunner_FailureAbortsRemainingSteps(t *testing.T) {
	var log []string
	boom := fmt.Errorf("build exploded")
	steps := []Step{
		&recordingStep{name: "ensure-repository", log: &log},
		&recordingStep{name: "build-image", log: &log, err: boom},
		&recordingStep{name: "push-image", log: &log},
		&recordingStep{name: "deploy-service", log: &log},
	}

	runner := NewRunner(steps)
	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "build-image")
	// Nothing after the failing step ran.
	assert.Equal(t, []string{"ensure-repository", "build-image"}, log)
}

func TestRunner_EmitsEvents(t *testing.T) {
	var events []Event
	var log []string
	steps := []Step{
		&recordingStep{name: "ok", log: &log},
		&recordingStep{name: "bad", log: &log, err: fmt.Errorf("nope")},
	}

	runner := NewRunner(steps, WithCallback(func(e Event) {
		events = append(events, e)
	}))
	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})
	require.Error(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, Event{Step: "ok", Status: "started"}, Event{Step: events[0].Step, Status: events[0].Status})
	assert.Equal(t, "completed", events[1].Status)
	assert.Equal(t, "started", events[2].Status)
	assert.Equal(t, "failed", events[3].Status)
	assert.Equal(t, "bad", events[3].Step)
	assert.Error(t, events[3].Err)
}

func TestRunner_CancelledContext(t *testing.T) {
	var log []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner([]Step{&recordingStep{name: "one", log: &log}})
	err := runner.Run(ctx, &RunContext{Config: testConfig()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
	assert.Empty(t, log)
}

// flakyStep fails with a transient error until it has been attempted
// `failures` times.
type flakyStep struct {
	attempts int
	failures int
}

func (s *flakyStep) Name() string { return "flaky" }

func (s *flakyStep) Run(ctx context.Context, rc *RunContext) error {
	s.attempts++
	if s.attempts <= s.failures {
		return fmt.Errorf("service unavailable")
	}
	return nil
}

func TestRunner_RetryDisabledByDefault(t *testing.T) {
	step := &flakyStep{failures: 1}
	runner := NewRunner([]Step{step})

	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})

	require.Error(t, err)
	assert.Equal(t, 1, step.attempts)
}

func TestRunner_RetryRecoversTransientFailure(t *testing.T) {
	step := &flakyStep{failures: 2}
	runner := NewRunner([]Step{step}, WithRetry(&RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))

	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})

	require.NoError(t, err)
	assert.Equal(t, 3, step.attempts)
}

func TestRunner_RetryDoesNotMaskPermanentFailure(t *testing.T) {
	var log []string
	steps := []Step{
		&recordingStep{name: "one", log: &log, err: fmt.Errorf("access denied")},
		&recordingStep{name: "two", log: &log},
	}
	runner := NewRunner(steps, WithRetry(&RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	}))

	err := runner.Run(context.Background(), &RunContext{Config: testConfig()})

	require.Error(t, err)
	// Permanent error: one attempt, and step two never ran.
	assert.Equal(t, []string{"one"}, log)
}
