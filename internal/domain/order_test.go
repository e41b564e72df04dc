package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to confirmed", OrderStatusPending, OrderStatusConfirmed, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"pending skips to delivered", OrderStatusPending, OrderStatusDelivered, false},
		{"confirmed to processing", OrderStatusConfirmed, OrderStatusProcessing, true},
		{"processing to shipped", OrderStatusProcessing, OrderStatusShipped, true},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"shipped to cancelled", OrderStatusShipped, OrderStatusCancelled, true},
		{"delivered is terminal", OrderStatusDelivered, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"backwards rejected", OrderStatusShipped, OrderStatusProcessing, false},
		{"unknown status", OrderStatus("refunded"), OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatus("refunded").IsTerminal())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(OrderStatusProcessing))
	assert.False(t, ValidStatus(OrderStatus("archived")))
}

func TestComputeTax(t *testing.T) {
	// 20% of 10000 = 2000.
	assert.Equal(t, int64(2000), ComputeTax(10000, 0, 2000))
	// Tax applies to the discounted subtotal.
	assert.Equal(t, int64(1600), ComputeTax(10000, 2000, 2000))
	// Rounds half up: 5.5% of 99 cents = 5.445 → 5.
	assert.Equal(t, int64(5), ComputeTax(99, 0, 550))
	// Never negative.
	assert.Equal(t, int64(0), ComputeTax(1000, 2000, 2000))
	assert.Equal(t, int64(0), ComputeTax(1000, 0, 0))
}

func TestComputeGrandTotal(t *testing.T) {
	assert.Equal(t, int64(10000-1000+1800+500), ComputeGrandTotal(10000, 1000, 1800, 500))
}

func TestOrderCanTransitionTo(t *testing.T) {
	o := &Order{Status: OrderStatusPending}
	assert.True(t, o.CanTransitionTo(OrderStatusConfirmed))
	assert.False(t, o.CanTransitionTo(OrderStatusShipped))
}
