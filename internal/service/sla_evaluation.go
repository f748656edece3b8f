package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/events"
	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
	"github.com/abdallahh166/TowerOps-sub002/internal/repository"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
)

// Classifier decides the SLA outcome of one order at now.
type Classifier func(wo *domain.WorkOrder, now time.Time, thresholds sla.Thresholds) domain.SlaStatus

// BatchResult summarizes one evaluation pass.
type BatchResult struct {
	Fetched   int
	Processed int
	Failed    int
	Breaches  int
}

// SlaEvaluationProcessor re-classifies a bounded batch of open work orders and persists the
// outcome in one save.
type SlaEvaluationProcessor struct {
	orders     repository.WorkOrderRepository
	clock      *sla.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	classify   Classifier
}

// SlaEvaluationDependencies bundles collaborators for the processor.
type SlaEvaluationDependencies struct {
	WorkOrderRepo repository.WorkOrderRepository
	Clock         *sla.Clock
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	// Classifier defaults to sla.Classify.
	Classifier Classifier
}

func NewSlaEvaluationProcessor(deps SlaEvaluationDependencies) *SlaEvaluationProcessor {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	classify := deps.Classifier
	if classify == nil {
		classify = sla.Classify
	}
	return &SlaEvaluationProcessor{
		orders:     deps.WorkOrderRepo,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		classify:   classify,
	}
}

// EvaluateBatch runs one pass and returns the number of orders evaluated and saved.
func (p *SlaEvaluationProcessor) EvaluateBatch(ctx context.Context) (int, error) {
	result, err := p.Run(ctx)
	return result.Processed, err
}

// Run runs one pass. Nothing is written when no open order is fetched. An order whose
// evaluation fails is logged and left out of the save; the others still persist.
func (p *SlaEvaluationProcessor) Run(ctx context.Context) (result BatchResult, err error) {
	started := time.Now()
	defer func() {
		p.metrics.RecordEvaluation(result.Processed, result.Failed, result.Breaches, time.Since(started), err)
	}()

	limit := p.clock.BatchSize(ctx)
	batch, err := p.orders.GetOpenForSlaEvaluation(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("fetch open work orders: %w", err)
	}
	result.Fetched = len(batch)
	if len(batch) == 0 {
		return result, nil
	}

	now := p.clock.Now()
	thresholds := p.clock.Thresholds(ctx)
	evaluated := make([]*domain.WorkOrder, 0, len(batch))
	for _, wo := range batch {
		if err := p.evaluateOne(wo, now, thresholds); err != nil {
			result.Failed++
			p.logger.Error("sla evaluation failed for work order",
				zap.String("work_order_number", workOrderNumber(wo)),
				zap.Error(err))
			continue
		}
		evaluated = append(evaluated, wo)
	}
	if len(evaluated) == 0 {
		return result, nil
	}

	if err := p.orders.Save(ctx, evaluated...); err != nil {
		return result, fmt.Errorf("save evaluated work orders: %w", err)
	}
	result.Processed = len(evaluated)

	for _, wo := range evaluated {
		evs := wo.DrainEvents()
		for _, ev := range evs {
			if ev.Name == domain.EventSlaBreached {
				result.Breaches++
			}
		}
		if err := events.DispatchDomainEvents(ctx, p.dispatcher, evs); err != nil {
			p.logger.Warn("event dispatch failed",
				zap.String("work_order_number", wo.Number),
				zap.Error(err))
		}
	}

	p.logger.Info("sla evaluation pass completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("breaches", result.Breaches),
		zap.Int("batch_size", limit))
	return result, nil
}

func (p *SlaEvaluationProcessor) evaluateOne(wo *domain.WorkOrder, now time.Time, thresholds sla.Thresholds) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
		}
	}()
	if wo == nil {
		return errors.New("nil work order in batch")
	}
	wo.ApplySlaStatus(p.classify(wo, now, thresholds), now)
	return nil
}

func workOrderNumber(wo *domain.WorkOrder) string {
	if wo == nil {
		return ""
	}
	return wo.Number
}
