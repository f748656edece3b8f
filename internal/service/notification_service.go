package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/events"
	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
)

// NotificationService relays dispatched work-order events to the configured brokers.
// Delivery to people (email, push, SMS) happens downstream of the brokers.
type NotificationService struct {
	dispatcher events.Dispatcher
	publishers []events.Publisher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service. Nil publishers are ignored.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, publishers ...events.Publisher) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]events.Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		publishers: active,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		if eventType == events.EventWorkOrderSlaBreached {
			n.dispatcher.Subscribe(eventType, n.handleSlaBreached)
			continue
		}
		n.dispatcher.Subscribe(eventType, n.handleLifecycleEvent)
	}
}

func (n *NotificationService) handleSlaBreached(ctx context.Context, event events.Event) error {
	n.logger.Warn("WorkOrderSlaBreached",
		zap.String("work_order_number", event.WorkOrderNumber),
		zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleLifecycleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderEvent",
		zap.String("event_type", string(event.Type)),
		zap.String("work_order_number", event.WorkOrderNumber),
		zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	var errs []error
	for _, p := range n.publishers {
		if err := p.Publish(ctx, event); err != nil {
			n.metrics.RecordPublishFailure(string(event.Type))
			errs = append(errs, fmt.Errorf("publish %s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases broker resources.
func (n *NotificationService) Close() error {
	var errs []error
	for _, p := range n.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
