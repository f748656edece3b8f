package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abdallahh166/TowerOps-sub002/internal/domain"
)

// SiteRepository reads the site registry.
type SiteRepository interface {
	// GetByCode returns nil, nil for an unknown site.
	GetByCode(ctx context.Context, siteCode string) (*domain.Site, error)
}

type siteRepository struct {
	pool *pgxpool.Pool
}

// NewSiteRepository instantiates repository.
func NewSiteRepository(pool *pgxpool.Pool) SiteRepository {
	return &siteRepository{pool: pool}
}

func (r *siteRepository) GetByCode(ctx context.Context, siteCode string) (*domain.Site, error) {
	if r.pool == nil {
		return nil, ErrNoDatabase
	}
	const query = `SELECT site_code, office_code, responsibility_scope FROM sites WHERE site_code=$1`
	var site domain.Site
	if err := r.pool.QueryRow(ctx, query, siteCode).Scan(&site.SiteCode, &site.OfficeCode, &site.ResponsibilityScope); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &site, nil
}
