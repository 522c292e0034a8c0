package eval

import (
	"context"
	"fmt"

	"github.com/apple/pkl-go/pkl"
	"github.com/slipway-sh/slipway/internal/config"
)

// Evaluator handles PKL evaluation into deploy configuration.
type Evaluator struct {
	projectDir string
}

func NewEvaluator(projectDir string) *Evaluator {
	return &Evaluator{
		projectDir: projectDir,
	}
}

// LoadConfig evaluates the deploy configuration file and returns it with
// defaults applied and validated. External properties override config values
// the same way they do for any pkl module (read via `read("prop:...")`).
func (e *Evaluator) LoadConfig(ctx context.Context, entryPoint string, properties map[string]string) (*config.Config, error) {
	opts := []func(*pkl.EvaluatorOptions){pkl.PreconfiguredOptions}
	if len(properties) > 0 {
		opts = append(opts, func(o *pkl.EvaluatorOptions) {
			if o.Properties == nil {
				o.Properties = make(map[string]string)
			}
			for k, v := range properties {
				o.Properties[k] = v
			}
		})
	}

	evaluator, err := pkl.NewEvaluator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create PKL evaluator: %w", err)
	}
	defer evaluator.Close()

	var cfg config.Config
	if err := evaluator.EvaluateModule(ctx, pkl.FileSource(e.projectDir, entryPoint), &cfg); err != nil {
		return nil, fmt.Errorf("failed to evaluate config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
