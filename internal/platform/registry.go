package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/slipway-sh/slipway/internal/config"
	"github.com/slipway-sh/slipway/pkg/platform"
	"github.com/slipway-sh/slipway/platforms/aws"
	"github.com/slipway-sh/slipway/platforms/gcp"
)

// Registry manages the lifecycle of deploy targets.
type Registry struct {
	mu      sync.Mutex
	targets map[string]platform.Target
}

func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]platform.Target),
	}
}

// Load initializes and caches the target named by the config's platform.
// Only built-in targets exist; credentials come from each SDK's default
// chain.
func (r *Registry) Load(ctx context.Context, cfg *config.Config) (platform.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, exists := r.targets[cfg.Platform]; exists {
		return t, nil
	}

	var t platform.Target
	var err error
	switch cfg.Platform {
	case "aws":
		t, err = aws.New(ctx, cfg.Region)
	case "gcp":
		t, err = gcp.New(ctx, cfg.Project, cfg.Region, cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unknown platform: %s", cfg.Platform)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize platform %s: %w", cfg.Platform, err)
	}

	r.targets[cfg.Platform] = t
	return t, nil
}

// Close releases every loaded target.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, t := range r.targets {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close platform %s: %w", name, err)
		}
		delete(r.targets, name)
	}
	return firstErr
}
