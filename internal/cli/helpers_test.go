package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slipway-sh/slipway/internal/config"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Millisecond, "42ms"},
		{999 * time.Microsecond, "1ms"},
		{1500 * time.Millisecond, "1.5s"},
		{2*time.Minute + 3*time.Second, "2m3s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}

func TestLedgerPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/work", ".slipway", "releases.json"), ledgerPath("/work"))
}

func TestLocalContainerName(t *testing.T) {
	cfg := &config.Config{Service: &config.Service{Name: "promptd"}}
	assert.Equal(t, "promptd-local", localContainerName(cfg))
}

func TestRunCommandStopFlag(t *testing.T) {
	assert.NotNil(t, runCmd.Flags().Lookup("stop"))
}

func TestRunnerOptions(t *testing.T) {
	cfg := &config.Config{}
	assert.Len(t, runnerOptions(cfg), 1)

	cfg.StepTimeout = "10m"
	assert.Len(t, runnerOptions(cfg), 2)

	cfg.Retry = &config.Retry{MaxRetries: 2}
	assert.Len(t, runnerOptions(cfg), 3)
}
