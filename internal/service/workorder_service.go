package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/events"
	"github.com/abdallahh166/TowerOps-sub002/internal/repository"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// WorkOrderService coordinates work-order commands: load, mutate, save, then dispatch.
type WorkOrderService struct {
	orders     repository.WorkOrderRepository
	sites      repository.SiteRepository
	clock      *sla.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// WorkOrderDependencies bundles collaborators for the work-order service.
type WorkOrderDependencies struct {
	WorkOrderRepo repository.WorkOrderRepository
	SiteRepo      repository.SiteRepository
	Clock         *sla.Clock
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// CreateWorkOrderInput describes work-order creation payload.
type CreateWorkOrderInput struct {
	Number            string
	SiteCode          string
	OfficeCode        string
	SlaClass          domain.SlaClass
	IssueDescription  string
	Scope             domain.WorkOrderScope
	Type              domain.WorkOrderType
	ResponseMinutes   *int
	ResolutionMinutes *int
	ScheduledVisitAt  *time.Time
}

// AssignInput carries the assignment metadata.
type AssignInput struct {
	EngineerID   string
	EngineerName string
	AssignedBy   string
}

// SlaStatusView is the on-demand classification of one order.
type SlaStatusView struct {
	WorkOrder   *domain.WorkOrder
	Status      domain.SlaStatus
	EvaluatedAt time.Time
}

// NewWorkOrderService constructs the service.
func NewWorkOrderService(deps WorkOrderDependencies) *WorkOrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkOrderService{
		orders:     deps.WorkOrderRepo,
		sites:      deps.SiteRepo,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create opens a work order with deadlines resolved from settings unless explicit minutes are given.
func (s *WorkOrderService) Create(ctx context.Context, input CreateWorkOrderInput) (*domain.WorkOrder, error) {
	number := strings.TrimSpace(input.Number)
	if number != "" {
		existing, err := s.orders.GetByWoNumber(ctx, number)
		if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, apperrors.NewConflict("work order number already exists", map[string]any{"wo_number": number})
		}
	}

	var site *domain.Site
	if s.sites != nil && strings.TrimSpace(input.SiteCode) != "" {
		found, err := s.sites.GetByCode(ctx, strings.TrimSpace(input.SiteCode))
		if err != nil {
			return nil, err
		}
		site = found
	}

	woType := input.Type
	if woType == "" {
		woType = domain.WorkOrderTypeCorrective
	}
	response, resolution := input.ResponseMinutes, input.ResolutionMinutes
	if input.SlaClass.IsValid() && woType.IsValid() && (response == nil || resolution == nil) {
		resolvedResponse, resolvedResolution := s.clock.ResolveMinutes(ctx, input.SlaClass, woType)
		if response == nil {
			response = &resolvedResponse
		}
		if resolution == nil {
			resolution = &resolvedResolution
		}
	}

	wo, err := domain.NewWorkOrder(domain.NewWorkOrderParams{
		Number:            number,
		SiteCode:          input.SiteCode,
		OfficeCode:        input.OfficeCode,
		SlaClass:          input.SlaClass,
		IssueDescription:  input.IssueDescription,
		Scope:             input.Scope,
		Type:              woType,
		ResponseMinutes:   response,
		ResolutionMinutes: resolution,
		ScheduledVisitAt:  input.ScheduledVisitAt,
		Site:              site,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, wo); err != nil {
		return nil, err
	}
	s.logger.Info("work order created",
		zap.String("work_order_number", wo.Number),
		zap.String("sla_class", string(wo.SlaClass)),
		zap.Time("response_deadline", wo.ResponseDeadline),
		zap.Time("resolution_deadline", wo.ResolutionDeadline))
	s.dispatch(ctx, wo)
	return wo, nil
}

// Get returns a work order by number.
func (s *WorkOrderService) Get(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.orders.GetByWoNumber(ctx, strings.TrimSpace(number))
}

// SlaStatus classifies one order against its response deadline without persisting anything.
func (s *WorkOrderService) SlaStatus(ctx context.Context, number string) (*SlaStatusView, error) {
	wo, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	return &SlaStatusView{
		WorkOrder:   wo,
		Status:      s.clock.EvaluateStatus(ctx, wo),
		EvaluatedAt: s.clock.Now(),
	}, nil
}

func (s *WorkOrderService) Assign(ctx context.Context, number string, input AssignInput) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpAssign, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.Assign(input.EngineerID, input.EngineerName, input.AssignedBy, at)
	})
}

func (s *WorkOrderService) Start(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpStart, (*domain.WorkOrder).Start)
}

func (s *WorkOrderService) Complete(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpComplete, (*domain.WorkOrder).Complete)
}

func (s *WorkOrderService) SubmitForCustomerAcceptance(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpSubmitForCustomerAcceptance, (*domain.WorkOrder).SubmitForCustomerAcceptance)
}

func (s *WorkOrderService) AcceptByCustomer(ctx context.Context, number, acceptedBy string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpAcceptByCustomer, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.AcceptByCustomer(acceptedBy, at)
	})
}

func (s *WorkOrderService) RejectByCustomer(ctx context.Context, number, reason string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpRejectByCustomer, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.RejectByCustomer(reason, at)
	})
}

func (s *WorkOrderService) Reopen(ctx context.Context, number, reason string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpReopen, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.Reopen(reason, at)
	})
}

func (s *WorkOrderService) Close(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpClose, (*domain.WorkOrder).Close)
}

func (s *WorkOrderService) Cancel(ctx context.Context, number string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpCancel, (*domain.WorkOrder).Cancel)
}

func (s *WorkOrderService) CaptureClientSignature(ctx context.Context, number, signature string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpCaptureClientSignature, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.CaptureClientSignature(signature, at)
	})
}

func (s *WorkOrderService) CaptureEngineerSignature(ctx context.Context, number, signature string) (*domain.WorkOrder, error) {
	return s.mutate(ctx, number, domain.OpCaptureEngineerSignature, func(wo *domain.WorkOrder, at time.Time) error {
		return wo.CaptureEngineerSignature(signature, at)
	})
}

// mutate loads one aggregate, applies op, saves and dispatches its events after commit.
func (s *WorkOrderService) mutate(ctx context.Context, number, operation string, op func(*domain.WorkOrder, time.Time) error) (*domain.WorkOrder, error) {
	wo, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	from := wo.Status()
	if err := op(wo, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, wo); err != nil {
		if apperrors.IsRetryable(err) {
			s.logger.Info("work order changed concurrently",
				zap.String("work_order_number", wo.Number),
				zap.String("operation", operation))
		}
		return nil, err
	}
	s.logger.Info("work order updated",
		zap.String("work_order_number", wo.Number),
		zap.String("operation", operation),
		zap.String("from_status", string(from)),
		zap.String("status", string(wo.Status())))
	s.dispatch(ctx, wo)
	return wo, nil
}

func (s *WorkOrderService) dispatch(ctx context.Context, wo *domain.WorkOrder) {
	evs := wo.DrainEvents()
	if len(evs) == 0 {
		return
	}
	if err := events.DispatchDomainEvents(ctx, s.dispatcher, evs); err != nil {
		s.logger.Warn("event dispatch failed",
			zap.String("work_order_number", wo.Number),
			zap.Error(err))
	}
}
