package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/pricing"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// CheckoutService freezes carts into immutable orders. The freeze itself is
// a single database transaction owned by the order repository; on success
// the cart is deleted afterward, outside the transaction.
type CheckoutService struct {
	carts    repository.CartRepository
	variants repository.VariantRepository
	coupons  repository.CouponRepository
	orders   repository.OrderRepository
	events   EventPublisher
	logger   *slog.Logger

	taxRateBps     int
	shippingAmount int64
}

// NewCheckoutService creates a checkout service. taxRateBps and
// shippingAmount are the site-wide defaults applied to every order.
func NewCheckoutService(
	carts repository.CartRepository,
	variants repository.VariantRepository,
	coupons repository.CouponRepository,
	orders repository.OrderRepository,
	events EventPublisher,
	logger *slog.Logger,
	taxRateBps int,
	shippingAmount int64,
) *CheckoutService {
	return &CheckoutService{
		carts:          carts,
		variants:       variants,
		coupons:        coupons,
		orders:         orders,
		events:         events,
		logger:         logger,
		taxRateBps:     taxRateBps,
		shippingAmount: shippingAmount,
	}
}

// FreezeInput carries the checkout data the cart does not hold.
type FreezeInput struct {
	Email           string        `validate:"required,email"`
	FullName        string        `validate:"required,max=200"`
	ShippingAddress AddressInput  `validate:"required"`
	BillingAddress  *AddressInput `validate:"omitempty"`
}

// AddressInput is a postal address as submitted at checkout.
type AddressInput struct {
	FullName    string `validate:"required,max=200"`
	Street      string `validate:"required,max=300"`
	PostalCode  string `validate:"required,max=20"`
	City        string `validate:"required,max=100"`
	CountryCode string `validate:"required,len=2"`
	Phone       string `validate:"omitempty,max=30"`
}

func (a AddressInput) toDomain() domain.Address {
	return domain.Address{
		FullName:    a.FullName,
		Street:      a.Street,
		PostalCode:  a.PostalCode,
		City:        a.City,
		CountryCode: strings.ToUpper(a.CountryCode),
		Phone:       a.Phone,
	}
}

// Freeze converts the owner's cart into a pending order. Every stock
// decrement, the order rows, and the coupon usage increment land in one
// transaction; any failure leaves stock, coupon, and cart untouched. Cart
// line prices are carried onto the order verbatim, never re-resolved here.
func (s *CheckoutService) Freeze(ctx context.Context, owner Owner, input FreezeInput) (*domain.Order, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.cartFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cannot checkout an empty cart")
	}

	if err := s.recheckAvailability(ctx, cart); err != nil {
		return nil, err
	}
	discount, err := s.recheckCoupon(ctx, cart)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(cart, input, discount)
	if err := s.orders.Freeze(ctx, order); err != nil {
		return nil, err
	}

	// The cart is spent. Deleting it can fail independently of the committed
	// order; the TTL sweeps any leftover.
	if err := s.carts.Delete(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete cart after freeze",
			slog.String("cart_id", cart.ID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order created event",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "order frozen",
		slog.String("order_id", order.ID),
		slog.String("reference", order.Reference),
		slog.Int64("grand_total", order.GrandTotal),
	)
	return order, nil
}

// recheckAvailability is a pre-transaction courtesy check so most stock
// failures surface with a precise message before any row is locked. The
// conditional decrements inside the transaction remain authoritative.
func (s *CheckoutService) recheckAvailability(ctx context.Context, cart *domain.Cart) error {
	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.variants.GetBatch(ctx, cart.SiteID, ids)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	for _, item := range cart.Items {
		variant, ok := variants[item.VariantID]
		if !ok {
			return apperrors.Conflict(fmt.Sprintf("variant %s is no longer available", item.VariantID))
		}
		if variant.Available() < item.Quantity {
			return apperrors.Conflict(fmt.Sprintf(
				"insufficient stock for %s: %d available", variant.SKU, variant.Available()))
		}
		if _, err := pricing.Resolve(variant.Prices, cart.Currency, cart.Segment, item.Quantity); err != nil {
			return apperrors.Conflict(fmt.Sprintf(
				"variant %s can no longer be purchased in %s/%s", item.VariantID, cart.Currency, cart.Segment))
		}
	}
	return nil
}

// recheckCoupon re-validates the attached coupon at freeze time and returns
// the final discount. A coupon that became ineligible since it was applied
// fails the checkout rather than silently dropping the discount.
func (s *CheckoutService) recheckCoupon(ctx context.Context, cart *domain.Cart) (int64, error) {
	if cart.Coupon == nil {
		return 0, nil
	}

	coupon, err := s.coupons.GetByCode(ctx, cart.SiteID, cart.Coupon.Code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return 0, apperrors.Conflict(fmt.Sprintf("coupon %s no longer exists", cart.Coupon.Code))
	}
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	if !coupon.Active || !coupon.InWindow(now) || coupon.Exhausted() || !coupon.AppliesTo(cart.Segment) {
		return 0, apperrors.Conflict(fmt.Sprintf("coupon %s is no longer valid", coupon.Code))
	}
	subtotal := cart.Subtotal()
	if coupon.MinCartAmount > 0 && subtotal < coupon.MinCartAmount {
		return 0, apperrors.Conflict(fmt.Sprintf(
			"coupon %s requires a minimum cart amount of %d", coupon.Code, coupon.MinCartAmount))
	}

	discount := coupon.DiscountFor(subtotal)
	cart.Coupon.DiscountAmount = discount
	return discount, nil
}

// buildOrder assembles the frozen order from the cart. Item prices come
// from the cart lines untouched.
func (s *CheckoutService) buildOrder(cart *domain.Cart, input FreezeInput, discount int64) *domain.Order {
	now := time.Now().UTC()
	subtotal := cart.Subtotal()
	tax := domain.ComputeTax(subtotal, discount, s.taxRateBps)
	grand := domain.ComputeGrandTotal(subtotal, discount, tax, s.shippingAmount)

	orderID := uuid.New().String()
	shipping := input.ShippingAddress.toDomain()
	billing := shipping
	if input.BillingAddress != nil {
		billing = input.BillingAddress.toDomain()
	}

	order := &domain.Order{
		ID:              orderID,
		Reference:       newReference(now),
		SiteID:          cart.SiteID,
		Status:          domain.OrderStatusPending,
		Currency:        cart.Currency,
		Locale:          cart.Locale,
		Segment:         cart.Segment,
		Subtotal:        subtotal,
		Discount:        discount,
		TaxRateBps:      s.taxRateBps,
		TaxAmount:       tax,
		ShippingAmount:  s.shippingAmount,
		GrandTotal:      grand,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Coupon:          cart.Coupon,
		Customer: domain.CustomerSnapshot{
			UserID:     cart.UserID,
			GuestToken: cart.GuestToken,
			Email:      input.Email,
			FullName:   input.FullName,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cart.UserID != "" {
		userID := cart.UserID
		order.UserID = &userID
	}

	actorID := cart.UserID
	if actorID == "" {
		actorID = cart.GuestToken
	}
	order.History = []domain.OrderStatusHistory{{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		ToStatus:  domain.OrderStatusPending,
		ActorID:   actorID,
		ActorType: domain.ActorTypeCustomer,
		Reason:    "order created",
		CreatedAt: now,
	}}

	order.Items = make([]domain.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		lineTotal := item.UnitPrice * int64(item.Quantity)
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   orderID,
			VariantID: item.VariantID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxAmount: domain.ComputeTax(lineTotal, 0, s.taxRateBps),
			Savings:   item.Savings,
			Snapshot:  item.Snapshot,
		})
	}

	return order
}

// newReference builds a human-readable order reference like
// ORD-20260829-1A2B3C4D. Uniqueness is enforced by the database.
func newReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func (s *CheckoutService) cartFor(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.UserID != "" {
		return s.carts.GetByUser(ctx, owner.SiteID, owner.UserID)
	}
	return s.carts.GetByGuest(ctx, owner.SiteID, owner.GuestToken)
}
