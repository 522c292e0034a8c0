package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/builder"
	"github.com/slipway-sh/slipway/internal/pipeline"
	"github.com/slipway-sh/slipway/internal/platform"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a previously built image to the platform registry",
	Long: `Push tags the locally built image with the registry reference and
pushes it, creating the repository first if it does not exist. Run
"slipway build" beforehand.`,
	RunE: runPush,
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	registry := platform.NewRegistry()
	defer registry.Close()

	target, err := registry.Load(ctx, cfg)
	if err != nil {
		return err
	}

	b, err := builder.New()
	if err != nil {
		return err
	}

	steps := []pipeline.Step{
		pipeline.EnsureRepository(target),
		pipeline.TagImage(b),
		pipeline.PushImage(b, target),
	}

	runner := pipeline.NewRunner(steps, runnerOptions(cfg)...)
	rc := &pipeline.RunContext{Config: cfg}

	if err := runner.Run(ctx, rc); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	fmt.Printf("\nPushed %s\n", rc.ImageRef)
	return nil
}
