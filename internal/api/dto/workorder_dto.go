package dto

import (
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
)

// CreateWorkOrderRequest payload.
type CreateWorkOrderRequest struct {
	WoNumber          string                `json:"wo_number"`
	SiteCode          string                `json:"site_code"`
	OfficeCode        string                `json:"office_code"`
	SlaClass          domain.SlaClass       `json:"sla_class"`
	IssueDescription  string                `json:"issue_description"`
	Scope             domain.WorkOrderScope `json:"scope"`
	Type              domain.WorkOrderType  `json:"type"`
	ResponseMinutes   *int                  `json:"response_minutes"`
	ResolutionMinutes *int                  `json:"resolution_minutes"`
	ScheduledVisitAt  *time.Time            `json:"scheduled_visit_at"`
}

// AssignWorkOrderRequest payload.
type AssignWorkOrderRequest struct {
	EngineerID   string `json:"engineer_id"`
	EngineerName string `json:"engineer_name"`
	AssignedBy   string `json:"assigned_by"`
}

// AcceptWorkOrderRequest payload.
type AcceptWorkOrderRequest struct {
	AcceptedBy string `json:"accepted_by"`
}

// ReasonRequest carries the reason for reject and reopen.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// SignatureRequest carries a captured signature (typically a data URL or storage key).
type SignatureRequest struct {
	Signature string `json:"signature"`
}

// WorkOrderResponse is the API view of a work order.
type WorkOrderResponse struct {
	ID                   string                 `json:"id"`
	WoNumber             string                 `json:"wo_number"`
	SiteCode             string                 `json:"site_code"`
	OfficeCode           string                 `json:"office_code"`
	SlaClass             domain.SlaClass        `json:"sla_class"`
	Scope                domain.WorkOrderScope  `json:"scope"`
	Type                 domain.WorkOrderType   `json:"type"`
	Status               domain.WorkOrderStatus `json:"status"`
	IssueDescription     string                 `json:"issue_description"`
	AssignedEngineerID   string                 `json:"assigned_engineer_id,omitempty"`
	AssignedEngineerName string                 `json:"assigned_engineer_name,omitempty"`
	AssignedBy           string                 `json:"assigned_by,omitempty"`
	AssignedAt           *time.Time             `json:"assigned_at"`
	SlaStartAt           time.Time              `json:"sla_start_at"`
	ResponseDeadline     time.Time              `json:"response_deadline"`
	ResolutionDeadline   time.Time              `json:"resolution_deadline"`
	SlaEvaluatedAt       *time.Time             `json:"sla_evaluated_at"`
	WasBreached          bool                   `json:"was_breached"`
	ClientSignedAt       *time.Time             `json:"client_signed_at"`
	EngineerSignedAt     *time.Time             `json:"engineer_signed_at"`
	ReworkCount          int                    `json:"rework_count"`
	ReopenCount          int                    `json:"reopen_count"`
	Version              int64                  `json:"version"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
	ClosedAt             *time.Time             `json:"closed_at"`
	CancelledAt          *time.Time             `json:"cancelled_at"`
}

// SlaStatusResponse is the on-demand classification of one order.
type SlaStatusResponse struct {
	WoNumber           string           `json:"wo_number"`
	SlaClass           domain.SlaClass  `json:"sla_class"`
	SlaStatus          domain.SlaStatus `json:"sla_status"`
	ResponseDeadline   time.Time        `json:"response_deadline"`
	ResolutionDeadline time.Time        `json:"resolution_deadline"`
	EvaluatedAt        time.Time        `json:"evaluated_at"`
}

// NewWorkOrderResponse maps the aggregate. Signatures themselves are not echoed back.
func NewWorkOrderResponse(wo *domain.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:                   wo.ID,
		WoNumber:             wo.Number,
		SiteCode:             wo.SiteCode,
		OfficeCode:           wo.OfficeCode,
		SlaClass:             wo.SlaClass,
		Scope:                wo.Scope,
		Type:                 wo.Type,
		Status:               wo.Status(),
		IssueDescription:     wo.IssueDescription,
		AssignedEngineerID:   wo.AssignedEngineerID,
		AssignedEngineerName: wo.AssignedEngineerName,
		AssignedBy:           wo.AssignedBy,
		AssignedAt:           wo.AssignedAt,
		SlaStartAt:           wo.SlaStartAt,
		ResponseDeadline:     wo.ResponseDeadline,
		ResolutionDeadline:   wo.ResolutionDeadline,
		SlaEvaluatedAt:       wo.SlaEvaluatedAt,
		WasBreached:          wo.BreachFlagged(),
		ClientSignedAt:       wo.ClientSignedAt,
		EngineerSignedAt:     wo.EngineerSignedAt,
		ReworkCount:          wo.ReworkCount,
		ReopenCount:          wo.ReopenCount,
		Version:              wo.Version(),
		CreatedAt:            wo.CreatedAt,
		UpdatedAt:            wo.UpdatedAt,
		ClosedAt:             wo.ClosedAt,
		CancelledAt:          wo.CancelledAt,
	}
}
