package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/settings"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

func TestPercentage(t *testing.T) {
	cases := []struct {
		num, den int
		want     float64
	}{
		{0, 0, 0},
		{5, 0, 100},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{36, 40, 90},
		{50, 40, 100},
		{-3, 40, 0},
	}
	for _, tc := range cases {
		if got := Percentage(tc.num, tc.den); got != tc.want {
			t.Errorf("Percentage(%d, %d) = %v, want %v", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestSnapshot_DerivesPercentages(t *testing.T) {
	orders := &stubKPIQueries{
		total: 60, open: 20, closed: 40,
		closedBreached: 4, openBreached: 3, atRisk: 5,
		reworkedOrReopened: 6, reopened: 2,
		mttr: 5.4567,
	}
	clock := sla.NewClock(settings.Static{"SLA:PM:AtRiskThresholdPercent": "90"}, func() time.Time { return t0 })
	svc := NewKPIService(orders, stubVisitRepo{submitted: 30, evidenceComplete: 27}, clock)

	snap, err := svc.Snapshot(context.Background(), KPIQuery{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"sla compliance", snap.SlaCompliancePercent, 90},
		{"first time fix", snap.FirstTimeFixRatePercent, 85},
		{"reopen rate", snap.ReopenRatePercent, 5},
		{"evidence completeness", snap.EvidenceCompletenessPercent, 90},
		{"mttr", snap.MeanTimeToRepairHours, 5.46},
		{"cm threshold", snap.CorrectiveAtRiskThresholdPct, 80},
		{"pm threshold", snap.PreventiveAtRiskThresholdPct, 90},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if snap.TotalWorkOrders != 60 || snap.OpenBreachedWorkOrders != 3 || snap.AtRiskWorkOrders != 5 {
		t.Fatalf("counts not copied: %+v", snap)
	}
	if orders.gotCMPct != 80 || orders.gotPMPct != 90 || !orders.gotAtRiskT.Equal(t0) {
		t.Fatalf("at-risk query got cm=%v pm=%v now=%v", orders.gotCMPct, orders.gotPMPct, orders.gotAtRiskT)
	}
	if !snap.GeneratedAt.Equal(t0) {
		t.Fatalf("generated at = %v", snap.GeneratedAt)
	}
}

func TestSnapshot_EmptyScopeIsZero(t *testing.T) {
	svc := NewKPIService(&stubKPIQueries{}, stubVisitRepo{}, sla.NewClock(nil, nil))
	snap, err := svc.Snapshot(context.Background(), KPIQuery{})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SlaCompliancePercent != 0 || snap.FirstTimeFixRatePercent != 0 ||
		snap.ReopenRatePercent != 0 || snap.EvidenceCompletenessPercent != 0 || snap.MeanTimeToRepairHours != 0 {
		t.Fatalf("expected all zero, got %+v", snap)
	}
}

func TestSnapshot_ScopesFilter(t *testing.T) {
	orders := &stubKPIQueries{}
	svc := NewKPIService(orders, stubVisitRepo{}, sla.NewClock(nil, nil))
	office := "  CAI "
	class := domain.SlaClassP2
	from, to := t0, t0.Add(24*time.Hour)

	if _, err := svc.Snapshot(context.Background(), KPIQuery{OfficeCode: &office, SlaClass: &class, From: &from, To: &to}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	f := orders.gotFilter
	if f.OfficeCode == nil || *f.OfficeCode != "CAI" {
		t.Fatalf("office not trimmed: %v", f.OfficeCode)
	}
	if f.SlaClass == nil || *f.SlaClass != class || !f.From.Equal(from) || !f.To.Equal(to) {
		t.Fatalf("filter = %+v", f)
	}

	blank := "   "
	if _, err := svc.Snapshot(context.Background(), KPIQuery{OfficeCode: &blank}); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if orders.gotFilter.OfficeCode != nil {
		t.Fatalf("blank office should mean all offices")
	}
}

func TestSnapshot_Validation(t *testing.T) {
	svc := NewKPIService(&stubKPIQueries{}, stubVisitRepo{}, sla.NewClock(nil, nil))
	bad := domain.SlaClass("P7")
	from, to := t0.Add(time.Hour), t0

	for name, q := range map[string]KPIQuery{
		"unknown class": {SlaClass: &bad},
		"inverted range": {From: &from, To: &to},
	} {
		_, err := svc.Snapshot(context.Background(), q)
		if !apperrors.IsCode(err, apperrors.CodeValidationFailed) {
			t.Errorf("%s: expected VALIDATION_FAILED, got %v", name, err)
		}
	}
}

func TestSnapshot_RepositoryErrorIsWrapped(t *testing.T) {
	boom := errors.New("timeout")
	svc := NewKPIService(&stubKPIQueries{err: boom}, stubVisitRepo{}, sla.NewClock(nil, nil))
	if _, err := svc.Snapshot(context.Background(), KPIQuery{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
