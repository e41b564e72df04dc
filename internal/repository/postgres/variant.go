// Package postgres implements the catalog, coupon, and order repositories.
// Price tables, snapshots, and addresses are stored as JSONB and validated
// when loaded.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

const variantColumns = `id, product_id, site_id, sku, name, image_url, weight_grams, attributes, stock, safety_stock, low_stock_threshold, prices, created_at, updated_at`

// VariantRepository implements repository.VariantRepository.
type VariantRepository struct {
	pool database.DBTX
}

// NewVariantRepository creates a PostgreSQL-backed variant repository.
func NewVariantRepository(pool database.DBTX) *VariantRepository {
	return &VariantRepository{pool: pool}
}

// GetByID retrieves a variant with its parsed price table.
func (r *VariantRepository) GetByID(ctx context.Context, siteID, variantID string) (*domain.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE site_id = $1 AND id = $2`

	row := r.pool.QueryRow(ctx, query, siteID, variantID)
	v, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return v, nil
}

// GetBatch loads several variants in one query, keyed by ID.
func (r *VariantRepository) GetBatch(ctx context.Context, siteID string, variantIDs []string) (map[string]*domain.ProductVariant, error) {
	if len(variantIDs) == 0 {
		return map[string]*domain.ProductVariant{}, nil
	}

	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE site_id = $1 AND id = ANY($2)`

	rows, err := r.pool.Query(ctx, query, siteID, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("batch get variants: %w", err)
	}
	defer rows.Close()

	variants := make(map[string]*domain.ProductVariant, len(variantIDs))
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		variants[v.ID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant rows: %w", err)
	}

	return variants, nil
}

// scanVariant reads one variant row and parses its JSONB columns.
func scanVariant(row pgx.Row) (*domain.ProductVariant, error) {
	return scanVariantInto(row, nil)
}

func scanVariantInto(row pgx.Row, totalCount *int) (*domain.ProductVariant, error) {
	var (
		v              domain.ProductVariant
		attributesJSON []byte
		pricesJSON     []byte
	)

	dest := []any{
		&v.ID,
		&v.ProductID,
		&v.SiteID,
		&v.SKU,
		&v.Name,
		&v.ImageURL,
		&v.WeightGrams,
		&attributesJSON,
		&v.Stock,
		&v.SafetyStock,
		&v.LowStockThreshold,
		&pricesJSON,
		&v.CreatedAt,
		&v.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if len(attributesJSON) > 0 && string(attributesJSON) != "null" {
		if err := json.Unmarshal(attributesJSON, &v.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal variant attributes: %w", err)
		}
	}

	if len(pricesJSON) > 0 && string(pricesJSON) != "null" {
		table, err := domain.ParsePriceTable(pricesJSON)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.ID, err)
		}
		v.Prices = table
	}

	return &v, nil
}
