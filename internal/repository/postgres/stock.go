package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
)

// Stock movement reasons recorded in the audit trail.
const (
	MovementReasonOrder      = "order"
	MovementReasonReturn     = "return"
	MovementReasonAdjustment = "adjustment"
)

// decrementStockQuery only matches when enough sellable stock (stock minus
// the safety buffer) remains, making the check-and-decrement atomic.
const decrementStockQuery = `
	UPDATE product_variants
	SET stock = stock - $2, updated_at = $3
	WHERE id = $1 AND stock - safety_stock >= $2`

const incrementStockQuery = `
	UPDATE product_variants
	SET stock = stock + $2, updated_at = $3
	WHERE id = $1`

const insertMovementQuery = `
	INSERT INTO stock_movements (id, variant_id, quantity, reason, created_at)
	VALUES ($1, $2, $3, $4, $5)`

// StockRepository implements repository.StockRepository.
type StockRepository struct {
	pool database.DBTX
}

// NewStockRepository creates a PostgreSQL-backed stock repository.
func NewStockRepository(pool database.DBTX) *StockRepository {
	return &StockRepository{pool: pool}
}

// Decrement subtracts quantity from a variant's stock if enough sellable
// stock remains, recording an audit movement. Returns false without error
// when the conditional update matched no row.
func (r *StockRepository) Decrement(ctx context.Context, variantID string, quantity int, reason string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	tag, err := tx.Exec(ctx, decrementStockQuery, variantID, quantity, now)
	if err != nil {
		return false, fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertMovementQuery, uuid.New().String(), variantID, -quantity, reason, now); err != nil {
		return false, fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// Increment adds quantity back to a variant's stock with an audit movement.
func (r *StockRepository) Increment(ctx context.Context, variantID string, quantity int, reason string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	if _, err := tx.Exec(ctx, incrementStockQuery, variantID, quantity, now); err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}

	if _, err := tx.Exec(ctx, insertMovementQuery, uuid.New().String(), variantID, quantity, reason, now); err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListLowStock returns variants whose sellable stock is at or below their
// low-stock threshold (out-of-stock included), most depleted first.
func (r *StockRepository) ListLowStock(ctx context.Context, siteID string, limit, offset int) ([]domain.ProductVariant, int, error) {
	query := `
		SELECT ` + variantColumns + `, count(*) OVER() AS total_count
		FROM product_variants
		WHERE site_id = $1 AND stock - safety_stock <= low_stock_threshold
		ORDER BY stock - safety_stock ASC, sku
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, siteID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var totalCount int
	variants := make([]domain.ProductVariant, 0)

	for rows.Next() {
		v, err := scanVariantInto(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan low stock row: %w", err)
		}
		variants = append(variants, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate low stock rows: %w", err)
	}

	return variants, totalCount, nil
}
