package domain

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// WorkOrderStatus enumerates lifecycle states for work orders.
type WorkOrderStatus string

const (
	WorkOrderStatusCreated                   WorkOrderStatus = "CREATED"
	WorkOrderStatusAssigned                  WorkOrderStatus = "ASSIGNED"
	WorkOrderStatusInProgress                WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusPendingInternalReview     WorkOrderStatus = "PENDING_INTERNAL_REVIEW"
	WorkOrderStatusPendingCustomerAcceptance WorkOrderStatus = "PENDING_CUSTOMER_ACCEPTANCE"
	WorkOrderStatusRework                    WorkOrderStatus = "REWORK"
	WorkOrderStatusClosed                    WorkOrderStatus = "CLOSED"
	WorkOrderStatusCancelled                 WorkOrderStatus = "CANCELLED"
)

// AllWorkOrderStatuses lists every lifecycle state.
var AllWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderStatusCreated,
	WorkOrderStatusAssigned,
	WorkOrderStatusInProgress,
	WorkOrderStatusPendingInternalReview,
	WorkOrderStatusPendingCustomerAcceptance,
	WorkOrderStatusRework,
	WorkOrderStatusClosed,
	WorkOrderStatusCancelled,
}

// IsTerminal reports whether no further lifecycle change is allowed.
func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderStatusClosed || s == WorkOrderStatusCancelled
}

// Operation names used in transition errors.
const (
	OpAssign                      = "assign"
	OpStart                       = "start"
	OpComplete                    = "complete"
	OpSubmitForCustomerAcceptance = "submit_for_customer_acceptance"
	OpAcceptByCustomer            = "accept_by_customer"
	OpRejectByCustomer            = "reject_by_customer"
	OpReopen                      = "reopen"
	OpClose                       = "close"
	OpCancel                      = "cancel"
	OpCaptureClientSignature      = "capture_client_signature"
	OpCaptureEngineerSignature    = "capture_engineer_signature"
)

// WorkOrder is the aggregate for field-service jobs under SLA.
type WorkOrder struct {
	ID               string
	Number           string
	SiteCode         string
	OfficeCode       string
	SlaClass         SlaClass
	Scope            WorkOrderScope
	Type             WorkOrderType
	IssueDescription string

	AssignedEngineerID   string
	AssignedEngineerName string
	AssignedBy           string
	AssignedAt           *time.Time

	ResponseDeadline   time.Time
	ResolutionDeadline time.Time
	SlaStartAt         time.Time
	SlaEvaluatedAt     *time.Time

	ClientSignature   string
	ClientSignedAt    *time.Time
	EngineerSignature string
	EngineerSignedAt  *time.Time

	ReworkCount int
	ReopenCount int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	CancelledAt *time.Time

	status      WorkOrderStatus
	wasBreached bool
	version     int64
	events      []DomainEvent
}

// NewWorkOrderParams carries the caller-supplied fields for opening a work order.
type NewWorkOrderParams struct {
	Number           string
	SiteCode         string
	OfficeCode       string
	SlaClass         SlaClass
	IssueDescription string
	Scope            WorkOrderScope
	Type             WorkOrderType
	// ResponseMinutes and ResolutionMinutes override the built-in table when set.
	ResponseMinutes   *int
	ResolutionMinutes *int
	// ScheduledVisitAt moves the SLA start of preventive orders to the planned visit.
	ScheduledVisitAt *time.Time
	// Site, when known, is checked against the requested scope.
	Site *Site
}

// NewWorkOrder validates params and opens a work order in CREATED with computed deadlines.
func NewWorkOrder(params NewWorkOrderParams, now time.Time) (*WorkOrder, error) {
	required := map[string]string{
		"wo_number":         params.Number,
		"site_code":         params.SiteCode,
		"office_code":       params.OfficeCode,
		"sla_class":         string(params.SlaClass),
		"issue_description": params.IssueDescription,
	}
	missing := []string{}
	for _, field := range []string{"wo_number", "site_code", "office_code", "sla_class", "issue_description"} {
		if strings.TrimSpace(required[field]) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if !params.SlaClass.IsValid() {
		return nil, apperrors.NewValidationError("unknown sla class", map[string]any{"sla_class": params.SlaClass})
	}

	scope := params.Scope
	if scope == "" {
		scope = ScopeClientEquipment
	}
	if !scope.IsValid() {
		return nil, apperrors.NewValidationError("unknown scope", map[string]any{"scope": scope})
	}
	woType := params.Type
	if woType == "" {
		woType = WorkOrderTypeCorrective
	}
	if !woType.IsValid() {
		return nil, apperrors.NewValidationError("unknown work order type", map[string]any{"type": woType})
	}
	if !params.Site.AllowsScope(scope) {
		return nil, apperrors.NewDomainError(apperrors.CodeScopeNotAllowed,
			"site responsibility does not cover tower infrastructure", http.StatusUnprocessableEntity,
			map[string]any{"site_code": params.SiteCode, "scope": scope})
	}

	responseMinutes := DefaultResponseMinutes(params.SlaClass)
	if params.ResponseMinutes != nil {
		responseMinutes = *params.ResponseMinutes
	}
	resolutionMinutes := DefaultResolutionMinutes(params.SlaClass)
	if params.ResolutionMinutes != nil {
		resolutionMinutes = *params.ResolutionMinutes
	}
	if responseMinutes <= 0 || resolutionMinutes <= 0 {
		return nil, apperrors.NewValidationError("sla minutes must be positive", map[string]any{
			"response_minutes":   responseMinutes,
			"resolution_minutes": resolutionMinutes,
		})
	}
	if resolutionMinutes < responseMinutes {
		return nil, apperrors.NewValidationError("resolution deadline cannot precede response deadline", map[string]any{
			"response_minutes":   responseMinutes,
			"resolution_minutes": resolutionMinutes,
		})
	}

	now = now.UTC()
	slaStart := now
	if woType == WorkOrderTypePreventive && params.ScheduledVisitAt != nil {
		slaStart = params.ScheduledVisitAt.UTC()
	}

	return &WorkOrder{
		ID:                 uuid.NewString(),
		Number:             strings.TrimSpace(params.Number),
		SiteCode:           strings.TrimSpace(params.SiteCode),
		OfficeCode:         strings.TrimSpace(params.OfficeCode),
		SlaClass:           params.SlaClass,
		Scope:              scope,
		Type:               woType,
		IssueDescription:   strings.TrimSpace(params.IssueDescription),
		SlaStartAt:         slaStart,
		ResponseDeadline:   slaStart.Add(time.Duration(responseMinutes) * time.Minute),
		ResolutionDeadline: slaStart.Add(time.Duration(resolutionMinutes) * time.Minute),
		CreatedAt:          now,
		UpdatedAt:          now,
		status:             WorkOrderStatusCreated,
	}, nil
}

// Status returns the current lifecycle state.
func (w *WorkOrder) Status() WorkOrderStatus { return w.status }

// BreachFlagged reports whether a breach event has been raised for the current breach episode.
func (w *WorkOrder) BreachFlagged() bool { return w.wasBreached }

// Version returns the optimistic-concurrency token last persisted.
func (w *WorkOrder) Version() int64 { return w.version }

// Rehydrate restores persisted lifecycle state. Only repositories call it.
func (w *WorkOrder) Rehydrate(status WorkOrderStatus, wasBreached bool, version int64) {
	w.status = status
	w.wasBreached = wasBreached
	w.version = version
	w.events = nil
}

// MarkPersisted records the version written by a successful save.
func (w *WorkOrder) MarkPersisted(version int64) {
	w.version = version
}

// PendingEvents returns events appended since the last drain without clearing them.
func (w *WorkOrder) PendingEvents() []DomainEvent {
	return append([]DomainEvent(nil), w.events...)
}

// DrainEvents returns and clears the pending events.
func (w *WorkOrder) DrainEvents() []DomainEvent {
	drained := w.events
	w.events = nil
	return drained
}

// Assign hands the order to an engineer. Legal from CREATED or REWORK.
func (w *WorkOrder) Assign(engineerID, engineerName, assignedBy string, at time.Time) error {
	if w.status != WorkOrderStatusCreated && w.status != WorkOrderStatusRework {
		return w.invalid(OpAssign)
	}
	engineerID = strings.TrimSpace(engineerID)
	engineerName = strings.TrimSpace(engineerName)
	assignedBy = strings.TrimSpace(assignedBy)
	if engineerID == "" || engineerName == "" || assignedBy == "" {
		return apperrors.NewValidationError("engineer_id, engineer_name, assigned_by required", nil)
	}
	at = at.UTC()
	w.AssignedEngineerID = engineerID
	w.AssignedEngineerName = engineerName
	w.AssignedBy = assignedBy
	w.AssignedAt = &at
	w.moveTo(WorkOrderStatusAssigned, at)
	return nil
}

// Start begins field work. Legal from ASSIGNED.
func (w *WorkOrder) Start(at time.Time) error {
	if w.status != WorkOrderStatusAssigned {
		return w.invalid(OpStart)
	}
	w.moveTo(WorkOrderStatusInProgress, at)
	return nil
}

// Complete hands finished work to internal review. Legal from IN_PROGRESS.
func (w *WorkOrder) Complete(at time.Time) error {
	if w.status != WorkOrderStatusInProgress {
		return w.invalid(OpComplete)
	}
	w.moveTo(WorkOrderStatusPendingInternalReview, at)
	return nil
}

// SubmitForCustomerAcceptance sends reviewed work to the customer.
func (w *WorkOrder) SubmitForCustomerAcceptance(at time.Time) error {
	if w.status != WorkOrderStatusPendingInternalReview {
		return w.invalid(OpSubmitForCustomerAcceptance)
	}
	w.moveTo(WorkOrderStatusPendingCustomerAcceptance, at)
	w.raise(EventSubmittedForAcceptance, at, nil)
	return nil
}

// AcceptByCustomer closes the order on customer acceptance.
func (w *WorkOrder) AcceptByCustomer(acceptedBy string, at time.Time) error {
	if w.status != WorkOrderStatusPendingCustomerAcceptance {
		return w.invalid(OpAcceptByCustomer)
	}
	acceptedBy = strings.TrimSpace(acceptedBy)
	if acceptedBy == "" {
		return apperrors.NewValidationError("accepted_by required", nil)
	}
	w.close(at)
	w.raise(EventAcceptedByCustomer, at, AcceptedPayload{AcceptedBy: acceptedBy})
	return nil
}

// RejectByCustomer sends the order back for rework.
func (w *WorkOrder) RejectByCustomer(reason string, at time.Time) error {
	if w.status != WorkOrderStatusPendingCustomerAcceptance {
		return w.invalid(OpRejectByCustomer)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.NewValidationError("reason required", nil)
	}
	w.ReworkCount++
	w.moveTo(WorkOrderStatusRework, at)
	w.raise(EventRejectedByCustomer, at, RejectedPayload{Reason: reason})
	return nil
}

// Reopen returns work under internal review to the field engineer.
func (w *WorkOrder) Reopen(reason string, at time.Time) error {
	if w.status != WorkOrderStatusPendingInternalReview {
		return w.invalid(OpReopen)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.NewValidationError("reason required", nil)
	}
	w.ReopenCount++
	w.moveTo(WorkOrderStatusInProgress, at)
	w.raise(EventReopened, at, ReopenedPayload{Reason: reason})
	return nil
}

// Close closes the order without (or after) customer acceptance.
func (w *WorkOrder) Close(at time.Time) error {
	if w.status != WorkOrderStatusPendingInternalReview && w.status != WorkOrderStatusPendingCustomerAcceptance {
		return w.invalid(OpClose)
	}
	w.close(at)
	return nil
}

// Cancel abandons the order from any non-terminal state.
func (w *WorkOrder) Cancel(at time.Time) error {
	if w.status.IsTerminal() {
		return w.invalid(OpCancel)
	}
	at = at.UTC()
	w.CancelledAt = &at
	w.moveTo(WorkOrderStatusCancelled, at)
	return nil
}

// CaptureClientSignature stores the customer's signature once.
func (w *WorkOrder) CaptureClientSignature(signature string, at time.Time) error {
	if w.status.IsTerminal() {
		return w.invalid(OpCaptureClientSignature)
	}
	if w.ClientSignature != "" {
		return signatureCaptured("client")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return apperrors.NewValidationError("signature required", nil)
	}
	at = at.UTC()
	w.ClientSignature = signature
	w.ClientSignedAt = &at
	w.UpdatedAt = at
	w.raise(EventClientSigned, at, nil)
	return nil
}

// CaptureEngineerSignature stores the engineer's signature once.
func (w *WorkOrder) CaptureEngineerSignature(signature string, at time.Time) error {
	if w.status.IsTerminal() {
		return w.invalid(OpCaptureEngineerSignature)
	}
	if w.EngineerSignature != "" {
		return signatureCaptured("engineer")
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return apperrors.NewValidationError("signature required", nil)
	}
	at = at.UTC()
	w.EngineerSignature = signature
	w.EngineerSignedAt = &at
	w.UpdatedAt = at
	return nil
}

// ApplySlaStatus records an evaluation outcome. A breach raises one event per breach episode;
// any non-breached outcome ends the episode. It is valid in every lifecycle state.
func (w *WorkOrder) ApplySlaStatus(status SlaStatus, evaluatedAt time.Time) {
	evaluatedAt = evaluatedAt.UTC()
	w.SlaEvaluatedAt = &evaluatedAt
	if status != SlaStatusBreached {
		w.wasBreached = false
		return
	}
	if w.wasBreached {
		return
	}
	w.wasBreached = true
	w.raise(EventSlaBreached, evaluatedAt, SlaBreachedPayload{
		SlaClass:           w.SlaClass,
		ResolutionDeadline: w.ResolutionDeadline,
		EvaluatedAt:        evaluatedAt,
	})
}

func (w *WorkOrder) close(at time.Time) {
	at = at.UTC()
	w.ClosedAt = &at
	w.moveTo(WorkOrderStatusClosed, at)
}

func (w *WorkOrder) moveTo(status WorkOrderStatus, at time.Time) {
	w.status = status
	w.UpdatedAt = at.UTC()
}

func (w *WorkOrder) raise(name EventName, at time.Time, payload any) {
	w.events = append(w.events, DomainEvent{
		Name:            name,
		WorkOrderID:     w.ID,
		WorkOrderNumber: w.Number,
		OccurredAt:      at.UTC(),
		Payload:         payload,
	})
}

func (w *WorkOrder) invalid(operation string) error {
	return apperrors.NewInvalidTransition(operation, string(w.status))
}

func signatureCaptured(party string) error {
	return apperrors.NewDomainError(apperrors.CodeSignatureAlreadyCaptured,
		party+" signature already captured", http.StatusConflict,
		map[string]any{"party": party})
}
