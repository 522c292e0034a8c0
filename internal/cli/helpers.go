package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/internal/eval"
	"github.com/slipway-sh/slipway/internal/pipeline"
)

// loadConfig evaluates the configured deploy file and returns it along with
// its directory (the working directory for builds and the release ledger).
func loadConfig(ctx context.Context) (*config.Config, string, error) {
	absPath, err := filepath.Abs(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve path %s: %w", cfgFile, err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, "", fmt.Errorf("failed to stat config %s: %w", cfgFile, err)
	}

	dir := filepath.Dir(absPath)
	evaluator := eval.NewEvaluator(dir)

	fmt.Print("Loading configuration... ")
	cfg, err := evaluator.LoadConfig(ctx, filepath.Base(absPath), properties)
	if err != nil {
		fmt.Println("FAILED")
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Println("OK")

	return cfg, dir, nil
}

// ledgerPath returns where the release history lives, next to the config.
func ledgerPath(dir string) string {
	return filepath.Join(dir, ".slipway", "releases.json")
}

// localContainerName is the fixed name the smoke-test container runs under,
// so "run --stop" can find it again.
func localContainerName(cfg *config.Config) string {
	return cfg.Service.Name + "-local"
}

// runnerOptions assembles pipeline options from config plus the progress
// renderer.
func runnerOptions(cfg *config.Config) []pipeline.Option {
	opts := []pipeline.Option{pipeline.WithCallback(renderStepEvent)}
	if d := cfg.StepTimeoutDuration(); d > 0 {
		opts = append(opts, pipeline.WithStepTimeout(d))
	}
	if p := pipeline.PolicyFromConfig(cfg.Retry); p != nil {
		opts = append(opts, pipeline.WithRetry(p))
	}
	return opts
}

// renderStepEvent prints step progress. Steps run sequentially, so started
// and completed/failed lines for one step are always adjacent.
func renderStepEvent(e pipeline.Event) {
	switch e.Status {
	case "started":
		fmt.Printf("%-20s ", e.Step+"...")
	case "completed":
		fmt.Printf("\033[32mOK\033[0m (%s)\n", formatDuration(e.Duration))
	case "failed":
		fmt.Printf("\033[31mFAILED\033[0m (%s)\n", formatDuration(e.Duration))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
