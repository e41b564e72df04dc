// Package repository defines the persistence interfaces the services depend
// on. Carts live in Redis; catalog, coupons, and orders live in PostgreSQL.
package repository

import (
	"context"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
)

// CartRepository persists carts keyed by owner (user or guest token) within
// a site. SaveIfVersion is the only mutation path services use after the
// initial save: it compares the stored version before writing so overlapping
// requests against the same cart cannot lose updates.
type CartRepository interface {
	GetByUser(ctx context.Context, siteID, userID string) (*domain.Cart, error)
	GetByGuest(ctx context.Context, siteID, guestToken string) (*domain.Cart, error)

	// Save persists the cart unconditionally, refreshing its TTL.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only when the stored version equals
	// expectedVersion (0 matches an absent key). On success the stored
	// version is expectedVersion+1. Returns false on version mismatch.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	Delete(ctx context.Context, cart *domain.Cart) error
}

// VariantRepository reads the catalog side the core needs: variants with
// stock counters and price tables.
type VariantRepository interface {
	GetByID(ctx context.Context, siteID, variantID string) (*domain.ProductVariant, error)

	// GetBatch loads several variants at once, keyed by variant ID. Missing
	// IDs are simply absent from the result.
	GetBatch(ctx context.Context, siteID string, variantIDs []string) (map[string]*domain.ProductVariant, error)
}

// StockRepository mutates stock counters outside the freeze transaction
// (ops adjustments, cancellation restores) and serves availability listings.
type StockRepository interface {
	// Decrement atomically subtracts quantity where enough sellable stock
	// remains. Returns false when the conditional update matched no row.
	Decrement(ctx context.Context, variantID string, quantity int, reason string) (bool, error)

	// Increment adds quantity back (cancellation, return, adjustment).
	Increment(ctx context.Context, variantID string, quantity int, reason string) error

	ListLowStock(ctx context.Context, siteID string, limit, offset int) ([]domain.ProductVariant, int, error)
}

// CouponRepository reads coupons and counts a user's prior redemptions for
// per-user limit checks. Usage increments happen inside the freeze
// transaction, not here.
type CouponRepository interface {
	// GetByCode looks a coupon up case-insensitively within a site.
	// Soft-deleted coupons are not returned.
	GetByCode(ctx context.Context, siteID, code string) (*domain.Coupon, error)

	// CountUserRedemptions counts the user's past non-cancelled orders that
	// froze with the given coupon code.
	CountUserRedemptions(ctx context.Context, siteID, userID, code string) (int, error)
}

// OrderFilter narrows and pages order listings.
type OrderFilter struct {
	SiteID string
	UserID *string
	Status *domain.OrderStatus
	Limit  int
	Offset int
}

// StatusChange carries one lifecycle transition to the store. The repository
// applies it conditionally on FromStatus so concurrent transitions cannot
// both land.
type StatusChange struct {
	OrderID    string
	FromStatus domain.OrderStatus
	ToStatus   domain.OrderStatus
	ActorID    string
	ActorType  domain.ActorType
	Reason     string
	Metadata   map[string]string

	// RestoreStock re-increments each order item's variant inside the same
	// transaction (cancellation path).
	RestoreStock bool
}

// OrderRepository owns the freeze transaction and the order lifecycle.
type OrderRepository interface {
	// Freeze atomically decrements stock for every item, inserts the order
	// with its items and creation history entry, and increments the
	// attached coupon's guarded usage counter. Any step failing rolls the
	// whole transaction back; insufficient stock or an exhausted coupon
	// surface as Conflict.
	Freeze(ctx context.Context, order *domain.Order) error

	GetByID(ctx context.Context, siteID, orderID string) (*domain.Order, error)
	GetByReference(ctx context.Context, siteID, reference string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// ChangeStatus applies a transition conditionally on the expected
	// current status, appends the history entry, and sets the relevant
	// milestone timestamp only if unset. Returns Conflict when the order
	// is no longer in FromStatus.
	ChangeStatus(ctx context.Context, change StatusChange) error

	UpdateNotes(ctx context.Context, siteID, orderID, notes string) error
}
