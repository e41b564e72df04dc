package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceTable_Valid(t *testing.T) {
	raw := []byte(`{
		"EUR": {
			"b2c": {"base": 1000, "tiers": [{"min": 5, "price": 800}, {"min": 10, "price": 700}]},
			"b2b": {"base": 900}
		},
		"USD": {
			"b2c": {"base": 1100}
		}
	}`)

	table, err := ParsePriceTable(raw)
	require.NoError(t, err)

	bucket, ok := table.Bucket("EUR", SegmentB2C)
	require.True(t, ok)
	assert.Equal(t, int64(1000), bucket.Base)
	require.Len(t, bucket.Tiers, 2)
	assert.Equal(t, 5, bucket.Tiers[0].MinQuantity)

	_, ok = table.Bucket("EUR", SegmentB2B)
	assert.True(t, ok)
	_, ok = table.Bucket("USD", SegmentB2B)
	assert.False(t, ok)
	_, ok = table.Bucket("GBP", SegmentB2C)
	assert.False(t, ok)
}

func TestParsePriceTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bad json", `{not json`},
		{"bad currency", `{"EURO": {"b2c": {"base": 100}}}`},
		{"unknown segment", `{"EUR": {"wholesale": {"base": 100}}}`},
		{"zero base", `{"EUR": {"b2c": {"base": 0}}}`},
		{"unsorted tiers", `{"EUR": {"b2c": {"base": 100, "tiers": [{"min": 10, "price": 90}, {"min": 5, "price": 80}]}}}`},
		{"duplicate tier min", `{"EUR": {"b2c": {"base": 100, "tiers": [{"min": 5, "price": 90}, {"min": 5, "price": 80}]}}}`},
		{"tier min of one", `{"EUR": {"b2c": {"base": 100, "tiers": [{"min": 1, "price": 90}]}}}`},
		{"zero tier price", `{"EUR": {"b2c": {"base": 100, "tiers": [{"min": 5, "price": 0}]}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePriceTable([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestParseSegment(t *testing.T) {
	seg, err := ParseSegment("b2b")
	require.NoError(t, err)
	assert.Equal(t, SegmentB2B, seg)

	_, err = ParseSegment("retail")
	assert.Error(t, err)
}
