package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/builder"
)

var runStop bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build the image and run it locally for a smoke test",
	Long: `Run builds the image and starts it on the local Docker daemon with
the service port published on localhost. The configured secret is read from
the local environment variable of the same name rather than from the
platform's secret store. Use --stop to stop a previously started container.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runStop, "stop", false, "Stop the local smoke-test container instead of starting one")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	b, err := builder.New()
	if err != nil {
		return err
	}

	if runStop {
		name := localContainerName(cfg)
		if err := b.StopLocal(ctx, name); err != nil {
			return err
		}
		fmt.Printf("Stopped %s\n", name)
		return nil
	}

	ref := cfg.LocalRef()
	if err := b.Build(ctx, cfg.Image.Context, cfg.Image.Dockerfile, []string{ref}); err != nil {
		return err
	}

	env := make(map[string]string, len(cfg.Service.Env)+1)
	for k, v := range cfg.Service.Env {
		env[k] = v
	}
	if secret := cfg.Service.Secret; secret != nil {
		value := os.Getenv(secret.Name)
		if value == "" {
			return fmt.Errorf("environment variable %s is not set (required by service.secret)", secret.Name)
		}
		env[secret.Name] = value
	}

	id, err := b.RunLocal(ctx, ref, localContainerName(cfg), cfg.Service.Port, env)
	if err != nil {
		return err
	}

	fmt.Printf("Running %s at http://127.0.0.1:%d (container %.12s)\n", ref, cfg.Service.Port, id)
	fmt.Println("Stop it with: slipway run --stop")
	return nil
}
