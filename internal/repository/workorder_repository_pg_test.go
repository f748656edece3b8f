package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/persistence"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// openTestPool connects to DATABASE_URL and migrates it. Rows written under office are
// removed when the test ends.
func openTestPool(t *testing.T, office string) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := persistence.RunMigrations(dsn, persistence.MigrateUp, zap.NewNop()); err != nil {
		t.Skipf("migrations failed (expected in test environment): %v", err)
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Skipf("database connection failed: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM work_order_events WHERE work_order_id IN
            (SELECT id FROM work_orders WHERE office_code=$1)`, office)
		_, _ = pool.Exec(ctx, `DELETE FROM work_orders WHERE office_code=$1`, office)
		pool.Close()
	})
	return pool
}

func testOffice() string {
	return "IT-" + uuid.NewString()[:8]
}

func TestCountAtRisk_AgreesWithClassify(t *testing.T) {
	office := testOffice()
	repo := NewWorkOrderRepository(openTestPool(t, office))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	thresholds := sla.Thresholds{CorrectivePct: 80, PreventivePct: 50}

	// P1 response window is 60 minutes; the offsets straddle both thresholds and the deadline.
	var orders []*domain.WorkOrder
	for i, elapsedMin := range []int{-10, 0, 10, 29, 30, 31, 47, 48, 49, 59, 60, 61, 90} {
		for _, woType := range []domain.WorkOrderType{domain.WorkOrderTypeCorrective, domain.WorkOrderTypePreventive} {
			start := now.Add(-time.Duration(elapsedMin) * time.Minute)
			created := start
			if created.After(now) {
				created = now
			}
			wo, err := domain.NewWorkOrder(domain.NewWorkOrderParams{
				Number:           fmt.Sprintf("%s-%s-%02d", office, woType, i),
				SiteCode:         "CAI-0042",
				OfficeCode:       office,
				SlaClass:         domain.SlaClassP1,
				IssueDescription: "rectifier alarm",
				Type:             woType,
				ScheduledVisitAt: &start,
			}, created)
			if err != nil {
				t.Fatalf("new work order: %v", err)
			}
			if woType == domain.WorkOrderTypeCorrective {
				// corrective orders start their clock at creation
				wo.SlaStartAt = start
				wo.ResponseDeadline = start.Add(60 * time.Minute)
				wo.ResolutionDeadline = start.Add(240 * time.Minute)
			}
			orders = append(orders, wo)
		}
	}
	if err := repo.Save(ctx, orders...); err != nil {
		t.Fatalf("save: %v", err)
	}

	want := 0
	for _, wo := range orders {
		if sla.Classify(wo, now, thresholds) == domain.SlaStatusAtRisk {
			want++
		}
	}
	filter := KPIFilter{OfficeCode: &office}
	got, err := repo.CountAtRisk(ctx, filter, thresholds.CorrectivePct, thresholds.PreventivePct, now)
	if err != nil {
		t.Fatalf("count at risk: %v", err)
	}
	if got != want || want == 0 {
		t.Fatalf("CountAtRisk = %d, Classify counts %d", got, want)
	}

	open, err := repo.CountOpen(ctx, filter)
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if open != len(orders) {
		t.Fatalf("CountOpen = %d, want %d", open, len(orders))
	}
}

func TestSave_VersionConflictAndDuplicate(t *testing.T) {
	office := testOffice()
	repo := NewWorkOrderRepository(openTestPool(t, office))
	ctx := context.Background()
	now := time.Now().UTC()

	wo, err := domain.NewWorkOrder(domain.NewWorkOrderParams{
		Number:           office + "-1",
		SiteCode:         "CAI-0042",
		OfficeCode:       office,
		SlaClass:         domain.SlaClassP2,
		IssueDescription: "link down",
	}, now)
	if err != nil {
		t.Fatalf("new work order: %v", err)
	}
	if err := repo.Save(ctx, wo); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if wo.Version() != 1 {
		t.Fatalf("version after insert = %d", wo.Version())
	}

	dup, _ := domain.NewWorkOrder(domain.NewWorkOrderParams{
		Number:           office + "-1",
		SiteCode:         "CAI-0042",
		OfficeCode:       office,
		SlaClass:         domain.SlaClassP2,
		IssueDescription: "link down",
	}, now)
	if err := repo.Save(ctx, dup); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("duplicate insert: got %v, want CONFLICT", err)
	}

	first, err := repo.GetByWoNumber(ctx, wo.Number)
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	second, err := repo.GetByWoNumber(ctx, wo.Number)
	if err != nil {
		t.Fatalf("load second: %v", err)
	}
	if err := first.Assign("eng-1", "Mona", "dispatcher", now); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := second.Cancel(now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err = repo.Save(ctx, second)
	if !apperrors.IsCode(err, apperrors.CodeConcurrencyConflict) || !apperrors.IsRetryable(err) {
		t.Fatalf("stale save: got %v, want retryable CONCURRENCY_CONFLICT", err)
	}

	stored, err := repo.GetByWoNumber(ctx, wo.Number)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status() != domain.WorkOrderStatusAssigned || stored.Version() != 2 {
		t.Fatalf("stored = %s v%d", stored.Status(), stored.Version())
	}
}
