package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// CouponRepository implements repository.CouponRepository.
type CouponRepository struct {
	pool database.DBTX
}

// NewCouponRepository creates a PostgreSQL-backed coupon repository.
func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// GetByCode looks up a coupon case-insensitively within a site. Soft-deleted
// coupons are treated as absent.
func (r *CouponRepository) GetByCode(ctx context.Context, siteID, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, site_id, code, type, value, min_cart_amount, segment,
			valid_from, valid_until, max_usage, usage_count, per_user_limit,
			active, deleted_at, created_at, updated_at
		FROM coupons
		WHERE site_id = $1 AND lower(code) = lower($2) AND deleted_at IS NULL`

	var (
		c       domain.Coupon
		typ     string
		segment string
	)
	err := r.pool.QueryRow(ctx, query, siteID, code).Scan(
		&c.ID,
		&c.SiteID,
		&c.Code,
		&typ,
		&c.Value,
		&c.MinCartAmount,
		&segment,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.MaxUsage,
		&c.UsageCount,
		&c.PerUserLimit,
		&c.Active,
		&c.DeletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("coupon", code)
		}
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}

	couponType, err := domain.ParseCouponType(typ)
	if err != nil {
		return nil, fmt.Errorf("coupon %s: %w", c.ID, err)
	}
	c.Type = couponType
	c.Segment = domain.Segment(segment)

	return &c, nil
}

// CountUserRedemptions counts the user's past non-cancelled orders frozen
// with the given coupon code.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, siteID, userID, code string) (int, error) {
	query := `
		SELECT count(*)
		FROM orders
		WHERE site_id = $1 AND user_id = $2
			AND lower(coupon->>'code') = lower($3)
			AND status <> 'cancelled'`

	var count int
	if err := r.pool.QueryRow(ctx, query, siteID, userID, code).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupon redemptions: %w", err)
	}

	return count, nil
}
