package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/builder"
	"github.com/slipway-sh/slipway/internal/pipeline"
	"github.com/slipway-sh/slipway/internal/platform"
	"github.com/slipway-sh/slipway/internal/release"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the full pipeline: build, push, and deploy",
	Long: `Deploy runs the pipeline in a fixed order: ensure the registry
repository exists, build the image, push it under the configured tag, and
create or update the managed service. The first failing step aborts the run.`,
	RunE: runDeploy,
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, dir, err := loadConfig(ctx)
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

	ledger := release.NewLedger(ledgerPath(dir))
	if err := ledger.Lock(); err != nil {
		return err
	}
	defer ledger.Unlock()

	steps := []pipeline.Step{
		pipeline.EnsureRepository(target),
		pipeline.BuildImage(b),
		pipeline.PushImage(b, target),
		pipeline.DeployService(target),
		pipeline.RecordRelease(ledger),
	}

	runner := pipeline.NewRunner(steps, runnerOptions(cfg)...)
	rc := &pipeline.RunContext{Config: cfg}

	fmt.Printf("\nDeploying %s to %s (%s)\n\n", cfg.Service.Name, cfg.Platform, cfg.Region)

	if err := runner.Run(ctx, rc); err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	fmt.Printf("\nDeploy complete!\n")
	fmt.Printf("  Image:   %s\n", rc.ImageRef)
	if rc.ImageDigest != "" {
		fmt.Printf("  Digest:  %s\n", rc.ImageDigest)
	}
	if rc.ServiceURL != "" {
		fmt.Printf("  Service: %s\n", rc.ServiceURL)
	}

	return nil
}
