package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
)

func tieredTable() domain.PriceTable {
	return domain.PriceTable{
		"EUR": {
			domain.SegmentB2C: {
				Base: 1000,
				Tiers: []domain.PriceTier{
					{MinQuantity: 5, Price: 800},
					{MinQuantity: 10, Price: 700},
				},
			},
		},
		"USD": {
			domain.SegmentB2C: {Base: 1100},
			domain.SegmentB2B: {Base: 950},
		},
	}
}

func TestResolve_BasePrice(t *testing.T) {
	quote, err := Resolve(tieredTable(), "EUR", domain.SegmentB2C, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.UnitPrice)
	assert.Equal(t, int64(1000), quote.BasePrice)
	assert.Zero(t, quote.Savings)
	assert.Zero(t, quote.DiscountPercent)
}

func TestResolve_TierSelection(t *testing.T) {
	tests := []struct {
		quantity int
		want     int64
	}{
		{1, 1000},
		{4, 1000},
		{5, 800},
		{9, 800},
		{10, 700},
		{999, 700},
	}

	for _, tt := range tests {
		quote, err := Resolve(tieredTable(), "EUR", domain.SegmentB2C, tt.quantity)
		require.NoError(t, err)
		assert.Equal(t, tt.want, quote.UnitPrice, "quantity %d", tt.quantity)
	}
}

// Buying more never costs more per unit.
func TestResolve_MonotonicNonIncreasing(t *testing.T) {
	table := tieredTable()
	prev := int64(1 << 62)
	for qty := 1; qty <= 20; qty++ {
		quote, err := Resolve(table, "EUR", domain.SegmentB2C, qty)
		require.NoError(t, err)
		assert.LessOrEqual(t, quote.UnitPrice, prev, "quantity %d", qty)
		prev = quote.UnitPrice
	}
}

func TestResolve_Savings(t *testing.T) {
	quote, err := Resolve(tieredTable(), "EUR", domain.SegmentB2C, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(800), quote.UnitPrice)
	assert.Equal(t, int64((1000-800)*5), quote.Savings)
	assert.InDelta(t, 20.0, quote.DiscountPercent, 0.001)
}

func TestResolve_B2BFallsBackToB2C(t *testing.T) {
	// EUR has no B2B bucket: fall back to the B2C base.
	quote, err := Resolve(tieredTable(), "EUR", domain.SegmentB2B, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), quote.UnitPrice)

	// USD has its own B2B bucket: no fallback.
	quote, err = Resolve(tieredTable(), "USD", domain.SegmentB2B, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(950), quote.UnitPrice)
}

func TestResolve_NoPrice(t *testing.T) {
	// Unknown currency.
	_, err := Resolve(tieredTable(), "GBP", domain.SegmentB2C, 1)
	assert.ErrorIs(t, err, ErrNoPrice)

	// B2C absent does not fall back to anything.
	table := domain.PriceTable{"EUR": {domain.SegmentB2B: {Base: 900}}}
	_, err = Resolve(table, "EUR", domain.SegmentB2C, 1)
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestResolve_InvalidQuantity(t *testing.T) {
	_, err := Resolve(tieredTable(), "EUR", domain.SegmentB2C, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPrice)
}

func TestResolve_TiersIgnoredAtQuantityOne(t *testing.T) {
	// A tier with min 2 must not apply to a single unit.
	table := domain.PriceTable{
		"EUR": {domain.SegmentB2C: {Base: 500, Tiers: []domain.PriceTier{{MinQuantity: 2, Price: 400}}}},
	}
	quote, err := Resolve(table, "EUR", domain.SegmentB2C, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(500), quote.UnitPrice)
}
