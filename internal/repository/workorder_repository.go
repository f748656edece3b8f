package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
	"github.com/abdallahh166/TowerOps-sub002/internal/sla"
	apperrors "github.com/abdallahh166/TowerOps-sub002/pkg/util/errorutil"
)

// WorkOrderRepository persists work-order aggregates.
type WorkOrderRepository interface {
	// Save writes every order and its pending events in one transaction. New orders
	// (version 0) are inserted; the rest are updated only if their version is unchanged.
	Save(ctx context.Context, orders ...*domain.WorkOrder) error
	GetByWoNumber(ctx context.Context, number string) (*domain.WorkOrder, error)
	// GetOpenForSlaEvaluation returns non-terminal orders, least recently evaluated first.
	GetOpenForSlaEvaluation(ctx context.Context, limit int) ([]*domain.WorkOrder, error)
}

// WorkOrderKPIQueries are the aggregate reads behind the operations dashboard.
type WorkOrderKPIQueries interface {
	CountTotal(ctx context.Context, filter KPIFilter) (int, error)
	CountOpen(ctx context.Context, filter KPIFilter) (int, error)
	CountClosed(ctx context.Context, filter KPIFilter) (int, error)
	CountClosedBreached(ctx context.Context, filter KPIFilter) (int, error)
	CountOpenBreached(ctx context.Context, filter KPIFilter) (int, error)
	CountClosedWithReworkOrReopenedHistory(ctx context.Context, filter KPIFilter) (int, error)
	CountClosedWithReopenedHistory(ctx context.Context, filter KPIFilter) (int, error)
	CountAtRisk(ctx context.Context, filter KPIFilter, cmThresholdPct, pmThresholdPct float64, now time.Time) (int, error)
	GetClosedMeanTimeToRepairHours(ctx context.Context, filter KPIFilter) (float64, error)
}

// ErrNoDatabase is returned by every query when the repository was built without a pool.
var ErrNoDatabase = errors.New("postgres pool not configured")

const (
	openPredicate   = "status NOT IN ('CLOSED','CANCELLED')"
	closedPredicate = "status = 'CLOSED'"
	uniqueViolation = "23505"
)

const workOrderColumns = `id, wo_number, site_code, office_code, sla_class, scope, wo_type, issue_description,
        status, assigned_engineer_id, assigned_engineer_name, assigned_by, assigned_at,
        sla_start_at, response_deadline, resolution_deadline, sla_evaluated_at, was_breached,
        client_signature, client_signed_at, engineer_signature, engineer_signed_at,
        rework_count, reopen_count, created_at, updated_at, closed_at, cancelled_at, version`

// WorkOrderPostgresRepository implements WorkOrderRepository and WorkOrderKPIQueries on pgx.
type WorkOrderPostgresRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository instantiates the Postgres repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) *WorkOrderPostgresRepository {
	return &WorkOrderPostgresRepository{pool: pool}
}

func (r *WorkOrderPostgresRepository) Save(ctx context.Context, orders ...*domain.WorkOrder) error {
	if len(orders) == 0 {
		return nil
	}
	if r.pool == nil {
		return ErrNoDatabase
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	versions := make([]int64, len(orders))
	for i, wo := range orders {
		if wo.Version() == 0 {
			err = r.insert(ctx, tx, wo)
			versions[i] = 1
		} else {
			err = r.update(ctx, tx, wo)
			versions[i] = wo.Version() + 1
		}
		if err != nil {
			return err
		}
		if err := r.appendEvents(ctx, tx, wo); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	for i, wo := range orders {
		wo.MarkPersisted(versions[i])
	}
	return nil
}

func (r *WorkOrderPostgresRepository) insert(ctx context.Context, tx pgx.Tx, wo *domain.WorkOrder) error {
	const query = `
        INSERT INTO work_orders (` + workOrderColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,1)`
	_, err := tx.Exec(ctx, query,
		wo.ID, wo.Number, wo.SiteCode, wo.OfficeCode, wo.SlaClass, wo.Scope, wo.Type, wo.IssueDescription,
		wo.Status(), nullable(wo.AssignedEngineerID), nullable(wo.AssignedEngineerName), nullable(wo.AssignedBy), wo.AssignedAt,
		wo.SlaStartAt, wo.ResponseDeadline, wo.ResolutionDeadline, wo.SlaEvaluatedAt, wo.BreachFlagged(),
		nullable(wo.ClientSignature), wo.ClientSignedAt, nullable(wo.EngineerSignature), wo.EngineerSignedAt,
		wo.ReworkCount, wo.ReopenCount, wo.CreatedAt, wo.UpdatedAt, wo.ClosedAt, wo.CancelledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewConflict("work order number already exists", map[string]any{"wo_number": wo.Number})
		}
		return fmt.Errorf("insert work order %s: %w", wo.Number, err)
	}
	return nil
}

func (r *WorkOrderPostgresRepository) update(ctx context.Context, tx pgx.Tx, wo *domain.WorkOrder) error {
	const query = `
        UPDATE work_orders SET status=$1, assigned_engineer_id=$2, assigned_engineer_name=$3, assigned_by=$4,
            assigned_at=$5, sla_evaluated_at=$6, was_breached=$7, client_signature=$8, client_signed_at=$9,
            engineer_signature=$10, engineer_signed_at=$11, rework_count=$12, reopen_count=$13,
            updated_at=$14, closed_at=$15, cancelled_at=$16, version=version+1
        WHERE id=$17 AND version=$18`
	cmd, err := tx.Exec(ctx, query,
		wo.Status(), nullable(wo.AssignedEngineerID), nullable(wo.AssignedEngineerName), nullable(wo.AssignedBy),
		wo.AssignedAt, wo.SlaEvaluatedAt, wo.BreachFlagged(), nullable(wo.ClientSignature), wo.ClientSignedAt,
		nullable(wo.EngineerSignature), wo.EngineerSignedAt, wo.ReworkCount, wo.ReopenCount,
		wo.UpdatedAt, wo.ClosedAt, wo.CancelledAt,
		wo.ID, wo.Version(),
	)
	if err != nil {
		return fmt.Errorf("update work order %s: %w", wo.Number, err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConcurrencyConflict("work order", map[string]any{
			"wo_number": wo.Number,
			"version":   wo.Version(),
		})
	}
	return nil
}

func (r *WorkOrderPostgresRepository) appendEvents(ctx context.Context, tx pgx.Tx, wo *domain.WorkOrder) error {
	const query = `
        INSERT INTO work_order_events (id, work_order_id, wo_number, event_name, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	for _, ev := range wo.PendingEvents() {
		var payload []byte
		if ev.Payload != nil {
			encoded, err := json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("encode %s payload: %w", ev.Name, err)
			}
			payload = encoded
		}
		if _, err := tx.Exec(ctx, query, uuid.NewString(), wo.ID, wo.Number, string(ev.Name), payload, ev.OccurredAt); err != nil {
			return fmt.Errorf("append %s event: %w", ev.Name, err)
		}
	}
	return nil
}

func (r *WorkOrderPostgresRepository) GetByWoNumber(ctx context.Context, number string) (*domain.WorkOrder, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE wo_number=$1`
	wo, err := scanWorkOrder(r.pool.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"wo_number": number})
		}
		return nil, err
	}
	return wo, nil
}

func (r *WorkOrderPostgresRepository) GetOpenForSlaEvaluation(ctx context.Context, limit int) ([]*domain.WorkOrder, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	query := `SELECT ` + workOrderColumns + ` FROM work_orders
        WHERE ` + openPredicate + `
        ORDER BY sla_evaluated_at ASC NULLS FIRST, created_at ASC
        LIMIT $1`
	rows, err := r.pool.Query(ctx, query, ClampEvaluationLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.WorkOrder
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, wo)
	}
	return result, rows.Err()
}

func (r *WorkOrderPostgresRepository) CountTotal(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at"))
}

func (r *WorkOrderPostgresRepository) CountOpen(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").add(openPredicate))
}

func (r *WorkOrderPostgresRepository) CountClosed(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").add(closedPredicate))
}

// CountClosedBreached counts closed orders that were flagged breached or closed after their
// resolution deadline.
func (r *WorkOrderPostgresRepository) CountClosedBreached(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").
		add(closedPredicate).
		add("(was_breached OR closed_at > resolution_deadline)"))
}

func (r *WorkOrderPostgresRepository) CountOpenBreached(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").add(openPredicate).add("was_breached"))
}

func (r *WorkOrderPostgresRepository) CountClosedWithReworkOrReopenedHistory(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").
		add(closedPredicate).
		add("(rework_count > 0 OR reopen_count > 0)"))
}

func (r *WorkOrderPostgresRepository) CountClosedWithReopenedHistory(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "created_at").add(closedPredicate).add("reopen_count > 0"))
}

// CountAtRisk counts open orders that sla.Classify would report as at risk at now.
func (r *WorkOrderPostgresRepository) CountAtRisk(ctx context.Context, filter KPIFilter, cmThresholdPct, pmThresholdPct float64, now time.Time) (int, error) {
	w := newWhere().scope(filter, "created_at").add(openPredicate)
	nowArg := w.arg(now.UTC())
	cmArg := w.arg(cmThresholdPct)
	pmArg := w.arg(pmThresholdPct)
	w.add(sla.AtRiskPredicate(nowArg, cmArg, pmArg))
	return r.count(ctx, w)
}

func (r *WorkOrderPostgresRepository) GetClosedMeanTimeToRepairHours(ctx context.Context, filter KPIFilter) (float64, error) {
	if r.pool == nil {
		return 0, ErrNoDatabase
	}
	w := newWhere().scope(filter, "created_at").add(closedPredicate).add("closed_at IS NOT NULL")
	query := `SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600.0), 0)::float8
        FROM work_orders WHERE ` + w.String()
	var hours float64
	if err := r.pool.QueryRow(ctx, query, w.args...).Scan(&hours); err != nil {
		return 0, err
	}
	return hours, nil
}

func (r *WorkOrderPostgresRepository) count(ctx context.Context, w *whereBuilder) (int, error) {
	if r.pool == nil {
		return 0, ErrNoDatabase
	}
	query := `SELECT COUNT(*) FROM work_orders WHERE ` + w.String()
	var total int
	if err := r.pool.QueryRow(ctx, query, w.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanWorkOrder(row pgx.Row) (*domain.WorkOrder, error) {
	var (
		wo                                   domain.WorkOrder
		status                               domain.WorkOrderStatus
		engineerID, engineerName, assignedBy *string
		clientSignature, engineerSignature   *string
		wasBreached                          bool
		version                              int64
	)
	if err := row.Scan(
		&wo.ID, &wo.Number, &wo.SiteCode, &wo.OfficeCode, &wo.SlaClass, &wo.Scope, &wo.Type, &wo.IssueDescription,
		&status, &engineerID, &engineerName, &assignedBy, &wo.AssignedAt,
		&wo.SlaStartAt, &wo.ResponseDeadline, &wo.ResolutionDeadline, &wo.SlaEvaluatedAt, &wasBreached,
		&clientSignature, &wo.ClientSignedAt, &engineerSignature, &wo.EngineerSignedAt,
		&wo.ReworkCount, &wo.ReopenCount, &wo.CreatedAt, &wo.UpdatedAt, &wo.ClosedAt, &wo.CancelledAt, &version,
	); err != nil {
		return nil, err
	}
	wo.AssignedEngineerID = deref(engineerID)
	wo.AssignedEngineerName = deref(engineerName)
	wo.AssignedBy = deref(assignedBy)
	wo.ClientSignature = deref(clientSignature)
	wo.EngineerSignature = deref(engineerSignature)
	wo.Rehydrate(status, wasBreached, version)
	return &wo, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
