package domain

import "time"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ActorType identifies who drove a status transition.
type ActorType string

const (
	ActorTypeSystem   ActorType = "system"
	ActorTypeCustomer ActorType = "customer"
	ActorTypeAdmin    ActorType = "admin"
)

// statusTransitions is the single source of truth for legal lifecycle moves.
// Cancellation is reachable from every non-terminal state; delivered and
// cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether from → to is a legal one-step move.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && ValidStatus(s)
}

// Address is a frozen shipping or billing address snapshot.
type Address struct {
	FullName    string `json:"full_name"`
	Street      string `json:"street"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
	Phone       string `json:"phone,omitempty"`
}

// CustomerSnapshot preserves the customer identity at checkout, including
// for guests whose cart owner reference is gone after freeze.
type CustomerSnapshot struct {
	UserID     string `json:"user_id,omitempty"`
	GuestToken string `json:"guest_token,omitempty"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"full_name,omitempty"`
}

// Order is the immutable result of freezing a cart. After creation only the
// status (via the transition table) and admin notes change.
type Order struct {
	ID              string               `json:"id"`
	Reference       string               `json:"reference"`
	SiteID          string               `json:"site_id"`
	UserID          *string              `json:"user_id,omitempty"` // nil = guest order
	Status          OrderStatus          `json:"status"`
	Currency        string               `json:"currency"`
	Locale          string               `json:"locale"`
	Segment         Segment              `json:"segment"`
	Subtotal        int64                `json:"subtotal"`
	Discount        int64                `json:"discount"`
	TaxRateBps      int                  `json:"tax_rate_bps"`
	TaxAmount       int64                `json:"tax_amount"`
	ShippingAmount  int64                `json:"shipping_amount"`
	GrandTotal      int64                `json:"grand_total"`
	ShippingAddress Address              `json:"shipping_address"`
	BillingAddress  Address              `json:"billing_address"`
	Coupon          *CouponSnapshot      `json:"coupon,omitempty"`
	Customer        CustomerSnapshot     `json:"customer"`
	Items           []OrderItem          `json:"items"`
	History         []OrderStatusHistory `json:"history,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	ValidatedAt     *time.Time           `json:"validated_at,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// OrderItem is one frozen order line. Variant and product references are
// best-effort; display always prefers the snapshot.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	VariantID string          `json:"variant_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice int64           `json:"unit_price"`
	TaxAmount int64           `json:"tax_amount"`
	Savings   int64           `json:"savings,omitempty"`
	Snapshot  ProductSnapshot `json:"snapshot"`
}

// OrderStatusHistory is one append-only audit entry per transition.
// FromStatus is nil for the creation entry.
type OrderStatusHistory struct {
	ID         string            `json:"id"`
	OrderID    string            `json:"order_id"`
	FromStatus *OrderStatus      `json:"from_status,omitempty"`
	ToStatus   OrderStatus       `json:"to_status"`
	ActorID    string            `json:"actor_id"`
	ActorType  ActorType         `json:"actor_type"`
	Reason     string            `json:"reason,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ComputeGrandTotal applies the total identity:
// grand total = subtotal − discount + tax + shipping.
func ComputeGrandTotal(subtotal, discount, tax, shipping int64) int64 {
	return subtotal - discount + tax + shipping
}

// ComputeTax applies the basis-point tax rate to the discounted subtotal,
// rounding half up.
func ComputeTax(subtotal, discount int64, rateBps int) int64 {
	taxable := subtotal - discount
	if taxable <= 0 || rateBps <= 0 {
		return 0
	}
	return (taxable*int64(rateBps) + 5000) / 10000
}

// CanTransitionTo reports whether the order may move to target in one step.
func (o *Order) CanTransitionTo(target OrderStatus) bool {
	return CanTransition(o.Status, target)
}
