package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/config"
	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Background SLA evaluation for TowerOps work orders",
	Long: `worker re-evaluates open work orders against their SLA deadlines, flags breaches
once per breach episode and publishes the resulting events.

Configuration comes from the environment (and an optional .env file), the same as the API.

EXAMPLES:
  # Evaluate on every SLA_EVALUATION_INTERVAL_SECONDS until interrupted
  worker run

  # Evaluate one batch and exit (cron, manual catch-up)
  worker once

  # Apply or roll back the embedded schema migrations
  worker migrate up
  worker migrate down`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadRuntime reads configuration and builds the logger every subcommand needs.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
