package domain

import (
	"fmt"
	"time"
)

// Cart item quantity bounds.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 999
)

// Cart is a mutable shopping cart owned by exactly one of an authenticated
// user or an anonymous guest token.
type Cart struct {
	ID         string          `json:"id"`
	SiteID     string          `json:"site_id"`
	UserID     string          `json:"user_id,omitempty"`
	GuestToken string          `json:"guest_token,omitempty"`
	Currency   string          `json:"currency"`
	Locale     string          `json:"locale"`
	Segment    Segment         `json:"segment"`
	Coupon     *CouponSnapshot `json:"coupon,omitempty"`
	Items      []CartItem      `json:"items"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// CartItem is one cart line: a variant reference, a quantity, and the price
// captured when the line was added or last re-priced.
type CartItem struct {
	VariantID string          `json:"variant_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice int64           `json:"unit_price"`
	BasePrice int64           `json:"base_price"`
	Savings   int64           `json:"savings,omitempty"`
	Message   string          `json:"message,omitempty"`
	Snapshot  ProductSnapshot `json:"snapshot"`
	AddedAt   time.Time       `json:"added_at"`
}

// CouponSnapshot is the denormalized coupon summary stored on the cart while
// a coupon is attached, and frozen onto the order at checkout.
type CouponSnapshot struct {
	Code           string     `json:"code"`
	Type           CouponType `json:"type"`
	Value          int64      `json:"value"`
	DiscountAmount int64      `json:"discount_amount"`
}

// ValidateOwner enforces the user-XOR-guest invariant.
func (c *Cart) ValidateOwner() error {
	if (c.UserID == "") == (c.GuestToken == "") {
		return fmt.Errorf("cart %s: exactly one of user id or guest token must be set", c.ID)
	}
	return nil
}

// Subtotal is the sum of unit price × quantity over all lines, in cents.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// ItemCount returns the total unit count across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the line for the given variant, or -1.
func (c *Cart) FindItemIndex(variantID string) int {
	for i := range c.Items {
		if c.Items[i].VariantID == variantID {
			return i
		}
	}
	return -1
}

// DiscountAmount returns the attached coupon's discount, capped at the
// current subtotal so totals never go negative.
func (c *Cart) DiscountAmount() int64 {
	if c.Coupon == nil {
		return 0
	}
	return min(c.Coupon.DiscountAmount, c.Subtotal())
}
