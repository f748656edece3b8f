package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/app"
	"github.com/abdallahh166/TowerOps-sub002/internal/worker"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Evaluate one batch and exit",
	Long: `Evaluate a single batch of open work orders under the same lock and timeout as
'worker run', print the outcome and exit. Exits non-zero when the pass fails; a pass
skipped because another instance holds the lock is not a failure.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	if err := components.RequireDatabase(); err != nil {
		return err
	}

	result, err := newEvaluationWorker(cfg, components, logger).RunOnce(ctx)
	if errors.Is(err, worker.ErrSkipped) {
		logger.Info("evaluation skipped; another instance holds the lock")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sla evaluation: %w", err)
	}
	logger.Info("evaluation complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("breaches", result.Breaches))
	fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d processed=%d failed=%d breaches=%d\n",
		result.Fetched, result.Processed, result.Failed, result.Breaches)
	return nil
}
