package sla

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/settings"
)

var t0 = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

// recordingProvider remembers the order of lookups.
type recordingProvider struct {
	mu     sync.Mutex
	values settings.Static
	keys   []string
}

func (r *recordingProvider) Lookup(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.values.Lookup(ctx, key)
}

func fixedNow(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func openOrder(t *testing.T, class domain.SlaClass, woType domain.WorkOrderType, createdAt time.Time) *domain.WorkOrder {
	t.Helper()
	wo, err := domain.NewWorkOrder(domain.NewWorkOrderParams{
		Number: "WO-" + string(class), SiteCode: "ALX-7", OfficeCode: "ALX", SlaClass: class,
		IssueDescription: "generator fault", Type: woType,
	}, createdAt)
	if err != nil {
		t.Fatalf("NewWorkOrder: %v", err)
	}
	return wo
}

func TestResolveMinutes_LookupOrder(t *testing.T) {
	rec := &recordingProvider{values: settings.Static{}}
	clock := NewClock(rec, fixedNow(t0))

	response, resolution := clock.ResolveMinutes(context.Background(), domain.SlaClassP2, domain.WorkOrderTypePreventive)
	if response != 240 || resolution != 480 {
		t.Fatalf("minutes = %d/%d, want defaults 240/480", response, resolution)
	}
	want := []string{
		"SLA:PM:P2:ResponseMinutes",
		"SLA:P2:ResponseMinutes",
		"SLA:PM:P2:ResolutionMinutes",
		"SLA:P2:ResolutionMinutes",
	}
	if len(rec.keys) != len(want) {
		t.Fatalf("keys = %v, want %v", rec.keys, want)
	}
	for i := range want {
		if rec.keys[i] != want[i] {
			t.Errorf("lookup %d = %s, want %s", i, rec.keys[i], want[i])
		}
	}
}

func TestResolveMinutes_ShortCircuits(t *testing.T) {
	rec := &recordingProvider{values: settings.Static{
		"SLA:CM:P1:ResponseMinutes":   "30",
		"SLA:CM:P1:ResolutionMinutes": "0",
		"SLA:P1:ResolutionMinutes":    "180",
	}}
	clock := NewClock(rec, fixedNow(t0))

	response, resolution := clock.ResolveMinutes(context.Background(), domain.SlaClassP1, domain.WorkOrderTypeCorrective)
	if response != 30 || resolution != 180 {
		t.Fatalf("minutes = %d/%d, want 30/180", response, resolution)
	}
	want := []string{"SLA:CM:P1:ResponseMinutes", "SLA:CM:P1:ResolutionMinutes", "SLA:P1:ResolutionMinutes"}
	if len(rec.keys) != len(want) {
		t.Fatalf("keys = %v, want %v", rec.keys, want)
	}
	for i := range want {
		if rec.keys[i] != want[i] {
			t.Errorf("lookup %d = %s, want %s", i, rec.keys[i], want[i])
		}
	}
}

func TestResolveMinutes_ResolutionNeverBeforeResponse(t *testing.T) {
	clock := NewClock(settings.Static{"SLA:P3:ResponseMinutes": "2000"}, fixedNow(t0))
	response, resolution := clock.ResolveMinutes(context.Background(), domain.SlaClassP3, domain.WorkOrderTypeCorrective)
	if response != 2000 || resolution != 2000 {
		t.Fatalf("minutes = %d/%d, want 2000/2000", response, resolution)
	}
}

func TestCalculateDeadline_AllClasses(t *testing.T) {
	ctx := context.Background()
	overrides := settings.Static{"SLA:P2:ResponseMinutes": "120", "SLA:P3:ResponseMinutes": "-5"}
	clock := NewClock(overrides, fixedNow(t0))
	want := map[domain.SlaClass]int{
		domain.SlaClassP1: 60,
		domain.SlaClassP2: 120,
		domain.SlaClassP3: 1440,
		domain.SlaClassP4: 2880,
	}
	for class, minutes := range want {
		if got := clock.CalculateDeadline(ctx, t0, class); !got.Equal(t0.Add(time.Duration(minutes) * time.Minute)) {
			t.Errorf("%s deadline = %v, want +%dm", class, got, minutes)
		}
	}
}

func TestCalculateDeadlines(t *testing.T) {
	clock := NewClock(settings.Static{"SLA:CM:P1:ResolutionMinutes": "300"}, fixedNow(t0))
	d := clock.CalculateDeadlines(context.Background(), t0, domain.SlaClassP1, domain.WorkOrderTypeCorrective)
	if !d.Response.Equal(t0.Add(60*time.Minute)) || !d.Resolution.Equal(t0.Add(300*time.Minute)) {
		t.Errorf("deadlines = %+v", d)
	}
}

func TestIsBreached_Monotonic(t *testing.T) {
	ctx := context.Background()
	created := t0
	var breachedAt time.Duration = -1
	for offset := time.Duration(0); offset <= 3*time.Hour; offset += time.Minute {
		clock := NewClock(settings.Static{}, fixedNow(created.Add(offset)))
		breached := clock.IsBreached(ctx, created, 90, domain.SlaClassP1)
		if breached && breachedAt < 0 {
			breachedAt = offset
		}
		if !breached && breachedAt >= 0 {
			t.Fatalf("not breached at +%v after breaching at +%v", offset, breachedAt)
		}
	}
	if breachedAt != 91*time.Minute {
		t.Errorf("first breach at +%v, want +91m", breachedAt)
	}
}

func TestIsBreached_Resolution(t *testing.T) {
	ctx := context.Background()
	now := t0.Add(100 * time.Minute)
	cases := []struct {
		name      string
		values    settings.Static
		allotted  int
		class     domain.SlaClass
		wantBreak bool
	}{
		{"configured class wins", settings.Static{"SLA:P2:ResponseMinutes": "99"}, 500, domain.SlaClassP2, true},
		{"allotted when unset", settings.Static{}, 120, domain.SlaClassP1, false},
		{"default when allotted zero", settings.Static{}, 0, domain.SlaClassP1, true},
		{"exactly on the allowance", settings.Static{}, 100, domain.SlaClassP1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewClock(tc.values, fixedNow(now))
			if got := clock.IsBreached(ctx, t0, tc.allotted, tc.class); got != tc.wantBreak {
				t.Errorf("IsBreached = %v, want %v", got, tc.wantBreak)
			}
		})
	}
}

func TestEvaluateStatus_ResponseWindow(t *testing.T) {
	ctx := context.Background()
	wo := openOrder(t, domain.SlaClassP1, domain.WorkOrderTypeCorrective, t0)
	deadline := wo.ResponseDeadline

	cases := []struct {
		name string
		now  time.Time
		want domain.SlaStatus
	}{
		{"50 minutes before", deadline.Add(-50 * time.Minute), domain.SlaStatusOnTime},
		{"15 minutes before", deadline.Add(-15 * time.Minute), domain.SlaStatusAtRisk},
		{"window edge", deadline.Add(-30 * time.Minute), domain.SlaStatusAtRisk},
		{"at deadline", deadline, domain.SlaStatusAtRisk},
		{"one minute past", deadline.Add(time.Minute), domain.SlaStatusBreached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewClock(settings.Static{}, fixedNow(tc.now))
			if got := clock.EvaluateStatus(ctx, wo); got != tc.want {
				t.Errorf("EvaluateStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestEvaluateStatus_ConfiguredWindowAndBacklog(t *testing.T) {
	ctx := context.Background()
	wo := openOrder(t, domain.SlaClassP2, domain.WorkOrderTypeCorrective, t0)
	clock := NewClock(settings.Static{KeyAtRiskWindowMinutes: "60"}, fixedNow(wo.ResponseDeadline.Add(-45*time.Minute)))
	if got := clock.EvaluateStatus(ctx, wo); got != domain.SlaStatusAtRisk {
		t.Errorf("60m window, 45m left = %s", got)
	}

	backlog := openOrder(t, domain.SlaClassP4, domain.WorkOrderTypeCorrective, t0)
	clock = NewClock(settings.Static{}, fixedNow(backlog.ResponseDeadline.Add(-time.Minute)))
	if got := clock.EvaluateStatus(ctx, backlog); got != domain.SlaStatusOnTime {
		t.Errorf("backlog near deadline = %s, want ON_TIME", got)
	}
	clock = NewClock(settings.Static{}, fixedNow(backlog.ResponseDeadline.Add(time.Second)))
	if got := clock.EvaluateStatus(ctx, backlog); got != domain.SlaStatusBreached {
		t.Errorf("backlog past deadline = %s, want BREACHED", got)
	}
}

func TestThresholds(t *testing.T) {
	ctx := context.Background()
	clock := NewClock(settings.Static{
		"SLA:CM:AtRiskThresholdPercent": "70",
		"SLA:PM:AtRiskThresholdPercent": "140",
	}, fixedNow(t0))
	th := clock.Thresholds(ctx)
	if th.CorrectivePct != 70 || th.PreventivePct != DefaultAtRiskThresholdPct {
		t.Errorf("thresholds = %+v", th)
	}
	if got := NewClock(nil, nil).BatchSize(ctx); got != DefaultBatchSize {
		t.Errorf("BatchSize = %d", got)
	}
}

func TestClassify_PercentageElapsed(t *testing.T) {
	cm := openOrder(t, domain.SlaClassP1, domain.WorkOrderTypeCorrective, t0) // 60 minute window
	pm := openOrder(t, domain.SlaClassP1, domain.WorkOrderTypePreventive, t0)
	th := Thresholds{CorrectivePct: 80, PreventivePct: 50}

	cases := []struct {
		name string
		wo   *domain.WorkOrder
		now  time.Time
		want domain.SlaStatus
	}{
		{"cm at 50%", cm, t0.Add(30 * time.Minute), domain.SlaStatusOnTime},
		{"cm at 80%", cm, t0.Add(48 * time.Minute), domain.SlaStatusAtRisk},
		{"pm at 50%", pm, t0.Add(30 * time.Minute), domain.SlaStatusAtRisk},
		{"before start", pm, t0.Add(-time.Minute), domain.SlaStatusOnTime},
		{"past deadline", cm, t0.Add(61 * time.Minute), domain.SlaStatusBreached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.wo, tc.now, th); got != tc.want {
				t.Errorf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAtRiskPredicate_Placeholders(t *testing.T) {
	got := AtRiskPredicate("$4", "$5", "$6")
	for _, want := range []string{
		"$4::timestamptz <= response_deadline",
		"$4::timestamptz > sla_start_at",
		"WHEN 'PM' THEN $6::float8 ELSE $5::float8",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("predicate %q missing %q", got, want)
		}
	}
}
