package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/config"
	"github.com/abdallahh166/TowerOps-sub002/internal/events"
	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
	"github.com/abdallahh166/TowerOps-sub002/internal/persistence"
	"github.com/abdallahh166/TowerOps-sub002/internal/repository"
	"github.com/abdallahh166/TowerOps-sub002/internal/service"
	"github.com/abdallahh166/TowerOps-sub002/internal/settings"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	"github.com/abdallahh166/TowerOps-sub002/internal/worker"
)

// Components is the wiring shared by the API server and the worker.
type Components struct {
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Metrics    *observability.Metrics
	Clock      *sla.Clock
	Dispatcher events.Dispatcher

	WorkOrders *service.WorkOrderService
	Evaluator  *service.SlaEvaluationProcessor
	KPIs       *service.KPIService

	stopNotifications func()
}

// Build connects storage and assembles services. Close releases everything Build opened.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	provider, err := newSettingsProvider(cfg, pg, rdb)
	if err != nil {
		pg.Close()
		rdb.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	clock := sla.NewClock(provider, nil)
	dispatcher := events.NewInMemoryDispatcher()

	publishers := []events.Publisher{}
	if cfg.Events.RedisChannel != "" {
		publishers = append(publishers, events.NewRedisPublisher(rdb.Client, cfg.Events.RedisChannel))
	}
	if kp := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic); kp != nil {
		publishers = append(publishers, kp)
	}
	notifications := service.NewNotificationService(dispatcher, logger, metrics, publishers...)

	workOrderRepo := repository.NewWorkOrderRepository(pg.Pool)
	c := &Components{
		Postgres:   pg,
		Redis:      rdb,
		Metrics:    metrics,
		Clock:      clock,
		Dispatcher: dispatcher,
		WorkOrders: service.NewWorkOrderService(service.WorkOrderDependencies{
			WorkOrderRepo: workOrderRepo,
			SiteRepo:      repository.NewSiteRepository(pg.Pool),
			Clock:         clock,
			Dispatcher:    dispatcher,
			Logger:        logger,
		}),
		Evaluator: service.NewSlaEvaluationProcessor(service.SlaEvaluationDependencies{
			WorkOrderRepo: workOrderRepo,
			Clock:         clock,
			Dispatcher:    dispatcher,
			Logger:        logger,
			Metrics:       metrics,
		}),
		KPIs:              service.NewKPIService(workOrderRepo, repository.NewVisitRepository(pg.Pool), clock),
		stopNotifications: worker.StartNotificationWorker(notifications, logger),
	}
	logger.Info("components ready",
		zap.Int("event_publishers", len(publishers)),
		zap.Bool("database", pg.Pool != nil))
	return c, nil
}

// newSettingsProvider layers the overrides file over the settings table, which is read
// through a short Redis cache.
func newSettingsProvider(cfg *config.Config, pg *persistence.Postgres, rdb *persistence.Redis) (settings.Provider, error) {
	file, err := settings.NewFileSource(cfg.Sla.SettingsFile)
	if err != nil {
		return nil, err
	}
	chain := settings.Chain{file}
	if pg.Pool != nil {
		cached := settings.NewCachedProvider(
			settings.NewPostgresSource(pg.Pool),
			settings.NewRedisStore(rdb.Client),
			cfg.Sla.SettingsCacheTTL(),
			cfg.App.Name+":settings:",
		)
		chain = append(chain, cached)
	}
	return chain, nil
}

// RequireDatabase fails when Build ran without POSTGRES_DSN. The API tolerates that for
// health checks; the worker has nothing to evaluate without it.
func (c *Components) RequireDatabase() error {
	if c == nil || c.Postgres == nil || c.Postgres.Pool == nil {
		return errors.New("POSTGRES_DSN is required")
	}
	return nil
}

// Close flushes event publishers and closes storage.
func (c *Components) Close() {
	if c.stopNotifications != nil {
		c.stopNotifications()
	}
	c.Redis.Close()
	c.Postgres.Close()
}
