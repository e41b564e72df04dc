package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

func newVariantRepo(t *testing.T) (*VariantRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewVariantRepository(mock), mock
}

func variantRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "product_id", "site_id", "sku", "name", "image_url", "weight_grams",
		"attributes", "stock", "safety_stock", "low_stock_threshold", "prices",
		"created_at", "updated_at",
	})
}

func TestVariantRepository_GetByID_Success(t *testing.T) {
	repo, mock := newVariantRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM product_variants").
		WithArgs("site-1", "var-1").
		WillReturnRows(variantRows().AddRow(
			"var-1", "prod-1", "site-1", "WDG-1", "Widget", "https://img/w.jpg", 250,
			[]byte(`{"color":"red"}`), 10, 2, 5,
			[]byte(`{"EUR":{"b2c":{"base":1000,"tiers":[{"min":5,"price":800}]}}}`),
			now, now,
		))

	v, err := repo.GetByID(context.Background(), "site-1", "var-1")
	require.NoError(t, err)
	assert.Equal(t, "WDG-1", v.SKU)
	assert.Equal(t, "red", v.Attributes["color"])
	assert.Equal(t, 8, v.Available())

	bucket, ok := v.Prices.Bucket("EUR", domain.SegmentB2C)
	require.True(t, ok)
	assert.Equal(t, int64(1000), bucket.Base)
	require.Len(t, bucket.Tiers, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newVariantRepo(t)

	mock.ExpectQuery("FROM product_variants").
		WithArgs("site-1", "var-missing").
		WillReturnRows(variantRows())

	v, err := repo.GetByID(context.Background(), "site-1", "var-missing")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVariantRepository_GetByID_MalformedPriceTable(t *testing.T) {
	repo, mock := newVariantRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM product_variants").
		WithArgs("site-1", "var-1").
		WillReturnRows(variantRows().AddRow(
			"var-1", "prod-1", "site-1", "WDG-1", "Widget", "", 0,
			[]byte(`null`), 10, 0, 5,
			[]byte(`{"EUR":{"wholesale":{"base":1000}}}`),
			now, now,
		))

	_, err := repo.GetByID(context.Background(), "site-1", "var-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown segment")
}

func TestVariantRepository_GetBatch(t *testing.T) {
	repo, mock := newVariantRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("FROM product_variants").
		WithArgs("site-1", []string{"var-1", "var-2"}).
		WillReturnRows(variantRows().AddRow(
			"var-1", "prod-1", "site-1", "WDG-1", "Widget", "", 0,
			[]byte(`null`), 3, 0, 5,
			[]byte(`{"EUR":{"b2c":{"base":500}}}`),
			now, now,
		))

	got, err := repo.GetBatch(context.Background(), "site-1", []string{"var-1", "var-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "WDG-1", got["var-1"].SKU)
	// var-2 is simply absent.
	assert.Nil(t, got["var-2"])
}

func TestVariantRepository_GetBatch_Empty(t *testing.T) {
	repo, _ := newVariantRepo(t)

	got, err := repo.GetBatch(context.Background(), "site-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
