package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/builder"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the image locally without pushing or deploying",
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	b, err := builder.New()
	if err != nil {
		return err
	}

	ref := cfg.LocalRef()
	if err := b.Build(ctx, cfg.Image.Context, cfg.Image.Dockerfile, []string{ref}); err != nil {
		return err
	}

	fmt.Printf("Built %s\n", ref)
	return nil
}
