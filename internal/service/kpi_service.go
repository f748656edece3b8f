package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/repository"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// KPIQuery scopes a dashboard snapshot. Nil fields mean "all".
type KPIQuery struct {
	OfficeCode *string
	SlaClass   *domain.SlaClass
	From       *time.Time
	To         *time.Time
}

// KPISnapshot is the operations dashboard for one scope.
type KPISnapshot struct {
	OfficeCode *string
	SlaClass   *domain.SlaClass
	From       *time.Time
	To         *time.Time

	TotalWorkOrders              int
	OpenWorkOrders               int
	BreachedWorkOrders           int
	OpenBreachedWorkOrders       int
	AtRiskWorkOrders             int
	ClosedWorkOrders             int
	ClosedReworkedOrReopened     int
	ClosedReopened               int
	SubmittedVisits              int
	EvidenceCompleteVisits       int
	SlaCompliancePercent         float64
	FirstTimeFixRatePercent      float64
	ReopenRatePercent            float64
	EvidenceCompletenessPercent  float64
	MeanTimeToRepairHours        float64
	CorrectiveAtRiskThresholdPct float64
	PreventiveAtRiskThresholdPct float64
	GeneratedAt                  time.Time
}

// KPIService aggregates dashboard metrics from scoped repository counts.
type KPIService struct {
	orders repository.WorkOrderKPIQueries
	visits repository.VisitRepository
	clock  *sla.Clock
}

func NewKPIService(orders repository.WorkOrderKPIQueries, visits repository.VisitRepository, clock *sla.Clock) *KPIService {
	return &KPIService{orders: orders, visits: visits, clock: clock}
}

// Snapshot runs the scoped counts and derives the percentages.
func (s *KPIService) Snapshot(ctx context.Context, query KPIQuery) (*KPISnapshot, error) {
	if query.SlaClass != nil && !query.SlaClass.IsValid() {
		return nil, apperrors.NewValidationError("unknown sla class", map[string]any{"sla_class": *query.SlaClass})
	}
	if query.From != nil && query.To != nil && query.From.After(*query.To) {
		return nil, apperrors.NewValidationError("from must not be after to", map[string]any{
			"from": query.From.UTC(),
			"to":   query.To.UTC(),
		})
	}
	if query.OfficeCode != nil {
		office := strings.TrimSpace(*query.OfficeCode)
		query.OfficeCode = &office
		if office == "" {
			query.OfficeCode = nil
		}
	}

	filter := repository.KPIFilter{
		OfficeCode: query.OfficeCode,
		SlaClass:   query.SlaClass,
		From:       query.From,
		To:         query.To,
	}
	now := s.clock.Now()
	thresholds := s.clock.Thresholds(ctx)
	snap := &KPISnapshot{
		OfficeCode:                   query.OfficeCode,
		SlaClass:                     query.SlaClass,
		From:                         query.From,
		To:                           query.To,
		CorrectiveAtRiskThresholdPct: thresholds.CorrectivePct,
		PreventiveAtRiskThresholdPct: thresholds.PreventivePct,
		GeneratedAt:                  now,
	}

	counts := []struct {
		name string
		dst  *int
		fn   func() (int, error)
	}{
		{"total", &snap.TotalWorkOrders, func() (int, error) { return s.orders.CountTotal(ctx, filter) }},
		{"open", &snap.OpenWorkOrders, func() (int, error) { return s.orders.CountOpen(ctx, filter) }},
		{"closed", &snap.ClosedWorkOrders, func() (int, error) { return s.orders.CountClosed(ctx, filter) }},
		{"breached", &snap.BreachedWorkOrders, func() (int, error) { return s.orders.CountClosedBreached(ctx, filter) }},
		{"open breached", &snap.OpenBreachedWorkOrders, func() (int, error) { return s.orders.CountOpenBreached(ctx, filter) }},
		{"at risk", &snap.AtRiskWorkOrders, func() (int, error) {
			return s.orders.CountAtRisk(ctx, filter, thresholds.CorrectivePct, thresholds.PreventivePct, now)
		}},
		{"reworked or reopened", &snap.ClosedReworkedOrReopened, func() (int, error) {
			return s.orders.CountClosedWithReworkOrReopenedHistory(ctx, filter)
		}},
		{"reopened", &snap.ClosedReopened, func() (int, error) { return s.orders.CountClosedWithReopenedHistory(ctx, filter) }},
		{"submitted visits", &snap.SubmittedVisits, func() (int, error) { return s.visits.CountSubmitted(ctx, filter) }},
		{"evidence complete visits", &snap.EvidenceCompleteVisits, func() (int, error) { return s.visits.CountEvidenceComplete(ctx, filter) }},
	}
	for _, c := range counts {
		v, err := c.fn()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
		*c.dst = v
	}
	mttr, err := s.orders.GetClosedMeanTimeToRepairHours(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mean time to repair: %w", err)
	}

	closed := snap.ClosedWorkOrders
	snap.SlaCompliancePercent = Percentage(closed-snap.BreachedWorkOrders, closed)
	snap.FirstTimeFixRatePercent = Percentage(closed-snap.ClosedReworkedOrReopened, closed)
	snap.ReopenRatePercent = Percentage(snap.ClosedReopened, closed)
	snap.EvidenceCompletenessPercent = Percentage(snap.EvidenceCompleteVisits, snap.SubmittedVisits)
	snap.MeanTimeToRepairHours = round2(math.Max(mttr, 0))
	return snap, nil
}

// Percentage is numerator/denominator*100 with the denominator floored at 1, clamped to
// [0, 100] and rounded to two decimals.
func Percentage(numerator, denominator int) float64 {
	if denominator < 1 {
		denominator = 1
	}
	v := float64(numerator) / float64(denominator) * 100
	return round2(math.Min(math.Max(v, 0), 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
