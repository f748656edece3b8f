package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// VisitRepository exposes the visit counts the dashboard needs. Visits are written by the
// field-visit subsystem; the window applies to submitted_at.
type VisitRepository interface {
	CountSubmitted(ctx context.Context, filter KPIFilter) (int, error)
	CountEvidenceComplete(ctx context.Context, filter KPIFilter) (int, error)
}

type visitRepository struct {
	pool *pgxpool.Pool
}

func NewVisitRepository(pool *pgxpool.Pool) VisitRepository {
	return &visitRepository{pool: pool}
}

func (r *visitRepository) CountSubmitted(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "submitted_at").add("submitted_at IS NOT NULL"))
}

func (r *visitRepository) CountEvidenceComplete(ctx context.Context, filter KPIFilter) (int, error) {
	return r.count(ctx, newWhere().scope(filter, "submitted_at").
		add("submitted_at IS NOT NULL").
		add("evidence_complete"))
}

func (r *visitRepository) count(ctx context.Context, w *whereBuilder) (int, error) {
	if r.pool == nil {
		return 0, ErrNoDatabase
	}
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM visits WHERE `+w.String(), w.args...).Scan(&total)
	return total, err
}
