package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/app"
	"github.com/abdallahh166/TowerOps-sub002/internal/config"
	"github.com/abdallahh166/TowerOps-sub002/internal/worker"
)

var metricsAddr string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate SLAs on a fixed interval until interrupted",
	Long: `Run the SLA evaluation loop.

Every tick one bounded batch of open work orders is classified and saved. A Redis lock
keeps a single instance evaluating per deployment; a tick that finds the previous pass
still running is skipped.

EXAMPLES:
  worker run
  worker run --metrics-addr :9102`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9102", "address for the Prometheus endpoint (empty disables)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	if err := components.RequireDatabase(); err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: components.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	w := newEvaluationWorker(cfg, components, logger)
	w.Start(ctx)
	logger.Info("sla evaluation worker stopped")
	return nil
}

func newEvaluationWorker(cfg *config.Config, components *app.Components, logger *zap.Logger) *worker.SlaEvaluationWorker {
	return worker.NewSlaEvaluationWorker(components.Evaluator, worker.SlaEvaluationOptions{
		Interval:   cfg.Sla.Interval(),
		RunTimeout: cfg.Sla.RunTimeout(),
		LockKey:    cfg.Sla.LockKey,
		LockTTL:    cfg.Sla.LockTTL(),
		Locker:     worker.NewRedisLocker(components.Redis.Client),
		Metrics:    components.Metrics,
		Logger:     logger,
	})
}
