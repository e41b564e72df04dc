package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "commerce-core", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 24*time.Hour, cfg.Commerce.CartTTL)
	assert.Equal(t, 2000, cfg.Commerce.TaxRateBps)
	assert.Equal(t, int64(490), cfg.Commerce.ShippingAmount)
	assert.Equal(t, 5.0, cfg.Commerce.PriceDriftWarnPercent)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("CART_TTL", "72h")
	t.Setenv("TAX_RATE_BPS", "550")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTP.Port)
	assert.Equal(t, 72*time.Hour, cfg.Commerce.CartTTL)
	assert.Equal(t, 550, cfg.Commerce.TaxRateBps)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "HTTP_PORT", "70000"},
		{"zero cart ttl", "CART_TTL", "0s"},
		{"tax rate above 100%", "TAX_RATE_BPS", "10001"},
		{"negative shipping", "SHIPPING_AMOUNT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
