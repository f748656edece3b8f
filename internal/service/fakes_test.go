package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/events"
	"github.com/abdallahh166/TowerOps-sub002/internal/repository"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// memWorkOrderRepo stores detached copies so tests observe only what was saved.
type memWorkOrderRepo struct {
	mu        sync.Mutex
	byNumber  map[string]*domain.WorkOrder
	saveCalls int
	saved     [][]string
	saveErr   error
	lastLimit int
	extraOpen []*domain.WorkOrder
}

func newMemWorkOrderRepo() *memWorkOrderRepo {
	return &memWorkOrderRepo{byNumber: map[string]*domain.WorkOrder{}}
}

func detach(wo *domain.WorkOrder) *domain.WorkOrder {
	cp := *wo
	cp.Rehydrate(wo.Status(), wo.BreachFlagged(), wo.Version())
	return &cp
}

func (m *memWorkOrderRepo) Save(_ context.Context, orders ...*domain.WorkOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	for _, wo := range orders {
		stored, exists := m.byNumber[wo.Number]
		switch {
		case wo.Version() == 0 && exists:
			return apperrors.NewConflict("work order number already exists", map[string]any{"wo_number": wo.Number})
		case wo.Version() > 0 && (!exists || stored.Version() != wo.Version()):
			return apperrors.NewConcurrencyConflict("work order", map[string]any{"wo_number": wo.Number})
		}
	}
	numbers := make([]string, 0, len(orders))
	for _, wo := range orders {
		wo.MarkPersisted(wo.Version() + 1)
		m.byNumber[wo.Number] = detach(wo)
		numbers = append(numbers, wo.Number)
	}
	m.saved = append(m.saved, numbers)
	return nil
}

func (m *memWorkOrderRepo) GetByWoNumber(_ context.Context, number string) (*domain.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wo, ok := m.byNumber[number]
	if !ok {
		return nil, apperrors.NewNotFound("work order", map[string]any{"wo_number": number})
	}
	return detach(wo), nil
}

func (m *memWorkOrderRepo) GetOpenForSlaEvaluation(_ context.Context, limit int) ([]*domain.WorkOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var open []*domain.WorkOrder
	for _, wo := range m.byNumber {
		if !wo.Status().IsTerminal() {
			open = append(open, detach(wo))
		}
	}
	sort.Slice(open, func(i, j int) bool {
		a, b := open[i].SlaEvaluatedAt, open[j].SlaEvaluatedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return open[i].Number < open[j].Number
	})
	open = append(open, m.extraOpen...)
	if n := repository.ClampEvaluationLimit(limit); len(open) > n {
		open = open[:n]
	}
	return open, nil
}

func (m *memWorkOrderRepo) stored(number string) *domain.WorkOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byNumber[number]
}

// stubKPIQueries returns preset counts and records what it was asked.
type stubKPIQueries struct {
	total, open, closed, closedBreached, openBreached int
	reworkedOrReopened, reopened, atRisk              int
	mttr                                              float64
	err                                               error

	gotFilter  repository.KPIFilter
	gotCMPct   float64
	gotPMPct   float64
	gotAtRiskT time.Time
}

func (s *stubKPIQueries) CountTotal(_ context.Context, f repository.KPIFilter) (int, error) {
	s.gotFilter = f
	return s.total, s.err
}
func (s *stubKPIQueries) CountOpen(context.Context, repository.KPIFilter) (int, error) {
	return s.open, nil
}
func (s *stubKPIQueries) CountClosed(context.Context, repository.KPIFilter) (int, error) {
	return s.closed, nil
}
func (s *stubKPIQueries) CountClosedBreached(context.Context, repository.KPIFilter) (int, error) {
	return s.closedBreached, nil
}
func (s *stubKPIQueries) CountOpenBreached(context.Context, repository.KPIFilter) (int, error) {
	return s.openBreached, nil
}
func (s *stubKPIQueries) CountClosedWithReworkOrReopenedHistory(context.Context, repository.KPIFilter) (int, error) {
	return s.reworkedOrReopened, nil
}
func (s *stubKPIQueries) CountClosedWithReopenedHistory(context.Context, repository.KPIFilter) (int, error) {
	return s.reopened, nil
}
func (s *stubKPIQueries) CountAtRisk(_ context.Context, _ repository.KPIFilter, cm, pm float64, now time.Time) (int, error) {
	s.gotCMPct, s.gotPMPct, s.gotAtRiskT = cm, pm, now
	return s.atRisk, nil
}
func (s *stubKPIQueries) GetClosedMeanTimeToRepairHours(context.Context, repository.KPIFilter) (float64, error) {
	return s.mttr, nil
}

type stubVisitRepo struct {
	submitted, evidenceComplete int
}

func (s stubVisitRepo) CountSubmitted(context.Context, repository.KPIFilter) (int, error) {
	return s.submitted, nil
}
func (s stubVisitRepo) CountEvidenceComplete(context.Context, repository.KPIFilter) (int, error) {
	return s.evidenceComplete, nil
}

type memSiteRepo map[string]*domain.Site

func (m memSiteRepo) GetByCode(_ context.Context, code string) (*domain.Site, error) {
	return m[code], nil
}

// eventRecorder subscribes to every work-order event type.
type eventRecorder struct {
	mu   sync.Mutex
	seen []events.Event
}

func newRecordingDispatcher() (events.Dispatcher, *eventRecorder) {
	d := events.NewInMemoryDispatcher()
	rec := &eventRecorder{}
	for _, et := range events.AllEventTypes {
		d.Subscribe(et, func(_ context.Context, ev events.Event) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.seen = append(rec.seen, ev)
			return nil
		})
	}
	return d, rec
}

func (r *eventRecorder) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.seen {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (r *eventRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
