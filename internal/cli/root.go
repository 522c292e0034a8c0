package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/slipway-sh/slipway/internal/logging"
)

var (
	cfgFile    string
	properties map[string]string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Build, push, and deploy container services",
	Long: `Slipway drives a container deploy pipeline from a single config file:
build an image, push it to the platform's registry (creating the
repository if needed), and point a managed serverless service at it.

Each deploy reuses the configured tag, superseding the previous image.
Any failing step aborts the run; nothing after it executes.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "f", "slipway.pkl", "Path to the deploy configuration file")
	rootCmd.PersistentFlags().StringToStringVarP(&properties, "prop", "D", nil, "Set external properties (format: key=value)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(versionCmd)
}
