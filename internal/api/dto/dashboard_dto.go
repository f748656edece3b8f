package dto

import (
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/service"
)

// OperationsDashboardResponse is the KPI snapshot. The last block repeats current values under
// the names older dashboard clients still read.
type OperationsDashboardResponse struct {
	OfficeCode *string          `json:"office_code"`
	SlaClass   *domain.SlaClass `json:"sla_class"`
	FromUtc    *time.Time       `json:"from_utc"`
	ToUtc      *time.Time       `json:"to_utc"`

	TotalWorkOrders             int       `json:"total_work_orders"`
	OpenWorkOrders              int       `json:"open_work_orders"`
	BreachedWorkOrders          int       `json:"breached_work_orders"`
	OpenBreachedWorkOrders      int       `json:"open_breached_work_orders"`
	AtRiskWorkOrders            int       `json:"at_risk_work_orders"`
	ClosedWorkOrders            int       `json:"closed_work_orders"`
	SubmittedVisits             int       `json:"submitted_visits"`
	EvidenceCompleteVisits      int       `json:"evidence_complete_visits"`
	SlaCompliancePercent        float64   `json:"sla_compliance_percent"`
	FirstTimeFixRatePercent     float64   `json:"first_time_fix_rate_percent"`
	ReopenRatePercent           float64   `json:"reopen_rate_percent"`
	EvidenceCompletenessPercent float64   `json:"evidence_completeness_percent"`
	MeanTimeToRepairHours       float64   `json:"mean_time_to_repair_hours"`
	CmAtRiskThresholdPercent    float64   `json:"cm_at_risk_threshold_percent"`
	PmAtRiskThresholdPercent    float64   `json:"pm_at_risk_threshold_percent"`
	GeneratedAtUtc              time.Time `json:"generated_at_utc"`

	SlaComplianceRatePercent float64 `json:"sla_compliance_rate_percent"`
	FtfRatePercent           float64 `json:"ftf_rate_percent"`
	MttrHours                float64 `json:"mttr_hours"`
	ReopenRate               float64 `json:"reopen_rate"`
	EvidenceCompleteness     float64 `json:"evidence_completeness"`
}

func NewOperationsDashboardResponse(s *service.KPISnapshot) OperationsDashboardResponse {
	return OperationsDashboardResponse{
		OfficeCode:                  s.OfficeCode,
		SlaClass:                    s.SlaClass,
		FromUtc:                     s.From,
		ToUtc:                       s.To,
		TotalWorkOrders:             s.TotalWorkOrders,
		OpenWorkOrders:              s.OpenWorkOrders,
		BreachedWorkOrders:          s.BreachedWorkOrders,
		OpenBreachedWorkOrders:      s.OpenBreachedWorkOrders,
		AtRiskWorkOrders:            s.AtRiskWorkOrders,
		ClosedWorkOrders:            s.ClosedWorkOrders,
		SubmittedVisits:             s.SubmittedVisits,
		EvidenceCompleteVisits:      s.EvidenceCompleteVisits,
		SlaCompliancePercent:        s.SlaCompliancePercent,
		FirstTimeFixRatePercent:     s.FirstTimeFixRatePercent,
		ReopenRatePercent:           s.ReopenRatePercent,
		EvidenceCompletenessPercent: s.EvidenceCompletenessPercent,
		MeanTimeToRepairHours:       s.MeanTimeToRepairHours,
		CmAtRiskThresholdPercent:    s.CorrectiveAtRiskThresholdPct,
		PmAtRiskThresholdPercent:    s.PreventiveAtRiskThresholdPct,
		GeneratedAtUtc:              s.GeneratedAt,

		SlaComplianceRatePercent: s.SlaCompliancePercent,
		FtfRatePercent:           s.FirstTimeFixRatePercent,
		MttrHours:                s.MeanTimeToRepairHours,
		ReopenRate:               s.ReopenRatePercent,
		EvidenceCompleteness:     s.EvidenceCompletenessPercent,
	}
}
