package domain

import (
	"fmt"
	"time"
)

// CouponType is the discount computation mode.
type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

// ParseCouponType validates a coupon type string.
func ParseCouponType(s string) (CouponType, error) {
	switch CouponType(s) {
	case CouponTypePercentage, CouponTypeFixed:
		return CouponType(s), nil
	default:
		return "", fmt.Errorf("unknown coupon type %q", s)
	}
}

// Coupon is a promotional code with temporal and usage-count constraints.
// Value is an integer percent for percentage coupons and cents for fixed
// coupons. Zero-valued limits (MaxUsage, PerUserLimit, MinCartAmount) are
// unenforced. An empty Segment means the coupon applies to all segments.
type Coupon struct {
	ID            string     `json:"id"`
	SiteID        string     `json:"site_id"`
	Code          string     `json:"code"`
	Type          CouponType `json:"type"`
	Value         int64      `json:"value"`
	MinCartAmount int64      `json:"min_cart_amount"`
	Segment       Segment    `json:"segment,omitempty"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
	MaxUsage      int        `json:"max_usage"`
	UsageCount    int        `json:"usage_count"`
	PerUserLimit  int        `json:"per_user_limit"`
	Active        bool       `json:"active"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// InWindow reports whether now falls inside the validity window. Unset
// bounds are open.
func (c *Coupon) InWindow(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Exhausted reports whether the global usage limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.MaxUsage > 0 && c.UsageCount >= c.MaxUsage
}

// AppliesTo reports whether the coupon is valid for the given segment.
func (c *Coupon) AppliesTo(segment Segment) bool {
	return c.Segment == "" || c.Segment == segment
}

// DiscountFor computes the discount against a subtotal. A fixed discount
// never exceeds the subtotal.
func (c *Coupon) DiscountFor(subtotal int64) int64 {
	switch c.Type {
	case CouponTypePercentage:
		return subtotal * c.Value / 100
	case CouponTypeFixed:
		return min(c.Value, subtotal)
	default:
		return 0
	}
}

// Snapshot returns the denormalized summary stored on carts and orders,
// with the discount computed against the given subtotal.
func (c *Coupon) Snapshot(subtotal int64) *CouponSnapshot {
	return &CouponSnapshot{
		Code:           c.Code,
		Type:           c.Type,
		Value:          c.Value,
		DiscountAmount: c.DiscountFor(subtotal),
	}
}
