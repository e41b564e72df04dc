package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/pricing"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// CartService owns the cart lifecycle: creation, line mutations with price
// re-resolution, guest-to-user consolidation, and pre-checkout validation.
type CartService struct {
	carts    repository.CartRepository
	variants repository.VariantRepository
	events   EventPublisher
	logger   *slog.Logger

	ttl              time.Duration
	driftWarnPercent float64
}

// NewCartService creates a cart service. ttl is the sliding cart lifetime;
// driftWarnPercent is the unit-price drift above which validation warns.
func NewCartService(
	carts repository.CartRepository,
	variants repository.VariantRepository,
	events EventPublisher,
	logger *slog.Logger,
	ttl time.Duration,
	driftWarnPercent float64,
) *CartService {
	return &CartService{
		carts:            carts,
		variants:         variants,
		events:           events,
		logger:           logger,
		ttl:              ttl,
		driftWarnPercent: driftWarnPercent,
	}
}

// CartContext carries the pricing context fixed at cart creation.
type CartContext struct {
	Currency string `validate:"required,len=3"`
	Locale   string `validate:"required"`
	Segment  string `validate:"required,oneof=b2c b2b"`
}

// AddItemInput is one add-to-cart request. The cart context is only used
// when the owner has no cart yet.
type AddItemInput struct {
	VariantID string `validate:"required"`
	Quantity  int    `validate:"required,min=1,max=999"`
	Message   string `validate:"max=500"`

	Context CartContext
}

// ValidationIssue is one problem found by Validate.
type ValidationIssue struct {
	VariantID string `json:"variant_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`

	Available    int     `json:"available,omitempty"`
	OldUnitPrice int64   `json:"old_unit_price,omitempty"`
	NewUnitPrice int64   `json:"new_unit_price,omitempty"`
	DriftPercent float64 `json:"drift_percent,omitempty"`
}

// Validation issue codes.
const (
	IssueVariantGone    = "VARIANT_GONE"
	IssueOutOfStock     = "OUT_OF_STOCK"
	IssueNoPrice        = "NO_PRICE"
	IssuePriceDrift     = "PRICE_DRIFT"
	IssueCouponShrunken = "COUPON_DISCOUNT_CHANGED"
)

// ValidationReport is the outcome of a pre-checkout cart check. Ready is
// false when any blocking issue (missing variant, stock, price) exists;
// price drift alone only warns.
type ValidationReport struct {
	Ready    bool              `json:"ready"`
	Issues   []ValidationIssue `json:"issues,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// GetOrCreate returns the owner's cart, creating an empty one when none
// exists. The returned bool reports whether the cart was created.
func (s *CartService) GetOrCreate(ctx context.Context, owner Owner, cc CartContext) (*domain.Cart, bool, error) {
	if err := owner.Validate(); err != nil {
		return nil, false, err
	}

	cart, err := s.get(ctx, owner)
	if err == nil {
		return cart, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	cart = s.newCart(owner, cc)
	ok, err := s.carts.SaveIfVersion(ctx, cart, 0)
	if err != nil {
		return nil, false, fmt.Errorf("create cart: %w", err)
	}
	if !ok {
		// Lost the creation race; the other request's cart wins.
		cart, err = s.get(ctx, owner)
		if err != nil {
			return nil, false, err
		}
		return cart, false, nil
	}

	s.logger.InfoContext(ctx, "cart created",
		slog.String("cart_id", cart.ID),
		slog.String("site_id", cart.SiteID),
	)
	return cart, true, nil
}

// Get returns the owner's cart or NotFound.
func (s *CartService) Get(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	return s.get(ctx, owner)
}

// AddItem adds a variant to the owner's cart, creating the cart when absent.
// An existing line for the same variant has its quantity increased and its
// unit price re-resolved at the combined quantity.
func (s *CartService) AddItem(ctx context.Context, owner Owner, input AddItemInput) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if input.Quantity < domain.MinItemQuantity || input.Quantity > domain.MaxItemQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"quantity must be between %d and %d", domain.MinItemQuantity, domain.MaxItemQuantity))
	}

	cart, err := s.get(ctx, owner)
	created := false
	if errors.Is(err, apperrors.ErrNotFound) {
		cart = s.newCart(owner, input.Context)
		created = true
	} else if err != nil {
		return nil, err
	}

	variant, err := s.variants.GetByID(ctx, owner.SiteID, input.VariantID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	idx := cart.FindItemIndex(input.VariantID)
	quantity := input.Quantity
	if idx >= 0 {
		quantity += cart.Items[idx].Quantity
	}
	if quantity > domain.MaxItemQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"quantity for variant %s would exceed the maximum of %d", input.VariantID, domain.MaxItemQuantity))
	}
	if variant.Available() < quantity {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"insufficient stock for %s: %d available", variant.SKU, variant.Available()))
	}

	quote, err := pricing.Resolve(variant.Prices, cart.Currency, cart.Segment, quantity)
	if err != nil {
		if errors.Is(err, pricing.ErrNoPrice) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"variant %s cannot be purchased in %s/%s", input.VariantID, cart.Currency, cart.Segment))
		}
		return nil, err
	}

	if idx >= 0 {
		item := &cart.Items[idx]
		item.Quantity = quantity
		item.UnitPrice = quote.UnitPrice
		item.BasePrice = quote.BasePrice
		item.Savings = quote.Savings
		if input.Message != "" {
			item.Message = input.Message
		}
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			VariantID: variant.ID,
			ProductID: variant.ProductID,
			Quantity:  quantity,
			UnitPrice: quote.UnitPrice,
			BasePrice: quote.BasePrice,
			Savings:   quote.Savings,
			Message:   input.Message,
			Snapshot:  variant.Snapshot(),
			AddedAt:   now,
		})
	}

	s.refreshCouponDiscount(cart)
	if err := s.save(ctx, cart, created, now); err != nil {
		return nil, err
	}
	s.publishCartUpdated(ctx, cart)
	return cart, nil
}

// UpdateItemQuantity sets a line's quantity, re-resolving its unit price at
// the new quantity.
func (s *CartService) UpdateItemQuantity(ctx context.Context, owner Owner, variantID string, quantity int) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"quantity must be between %d and %d", domain.MinItemQuantity, domain.MaxItemQuantity))
	}

	cart, err := s.get(ctx, owner)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItemIndex(variantID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", variantID)
	}

	variant, err := s.variants.GetByID(ctx, owner.SiteID, variantID)
	if err != nil {
		return nil, err
	}
	if variant.Available() < quantity {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"insufficient stock for %s: %d available", variant.SKU, variant.Available()))
	}

	quote, err := pricing.Resolve(variant.Prices, cart.Currency, cart.Segment, quantity)
	if err != nil {
		if errors.Is(err, pricing.ErrNoPrice) {
			return nil, apperrors.Conflict(fmt.Sprintf(
				"variant %s cannot be purchased in %s/%s", variantID, cart.Currency, cart.Segment))
		}
		return nil, err
	}

	item := &cart.Items[idx]
	item.Quantity = quantity
	item.UnitPrice = quote.UnitPrice
	item.BasePrice = quote.BasePrice
	item.Savings = quote.Savings

	s.refreshCouponDiscount(cart)
	if err := s.save(ctx, cart, false, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.publishCartUpdated(ctx, cart)
	return cart, nil
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, owner Owner, variantID string) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.get(ctx, owner)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItemIndex(variantID)
	if idx < 0 {
		return nil, apperrors.NotFound("cart item", variantID)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)

	s.refreshCouponDiscount(cart)
	if err := s.save(ctx, cart, false, time.Now().UTC()); err != nil {
		return nil, err
	}
	s.publishCartUpdated(ctx, cart)
	return cart, nil
}

// Clear deletes the owner's cart entirely.
func (s *CartService) Clear(ctx context.Context, owner Owner) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	cart, err := s.get(ctx, owner)
	if err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, cart); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	if err := s.events.PublishCartCleared(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart cleared event",
			slog.String("cart_id", cart.ID), slog.String("error", err.Error()))
	}
	return nil
}

// Validate re-checks every line against the live catalog: variant existence,
// sellable stock, and price drift since the line was captured.
func (s *CartService) Validate(ctx context.Context, owner Owner) (*ValidationReport, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.get(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.validateCart(ctx, cart)
}

func (s *CartService) validateCart(ctx context.Context, cart *domain.Cart) (*ValidationReport, error) {
	report := &ValidationReport{Ready: true}
	if len(cart.Items) == 0 {
		return report, nil
	}

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.variants.GetBatch(ctx, cart.SiteID, ids)
	if err != nil {
		return nil, fmt.Errorf("validate cart: %w", err)
	}

	for _, item := range cart.Items {
		variant, ok := variants[item.VariantID]
		if !ok {
			report.Ready = false
			report.Issues = append(report.Issues, ValidationIssue{
				VariantID: item.VariantID,
				Code:      IssueVariantGone,
				Message:   "variant is no longer available",
			})
			continue
		}
		if variant.Available() < item.Quantity {
			report.Ready = false
			report.Issues = append(report.Issues, ValidationIssue{
				VariantID: item.VariantID,
				Code:      IssueOutOfStock,
				Message:   fmt.Sprintf("only %d of %s available", variant.Available(), variant.SKU),
				Available: variant.Available(),
			})
		}

		quote, err := pricing.Resolve(variant.Prices, cart.Currency, cart.Segment, item.Quantity)
		if err != nil {
			report.Ready = false
			report.Issues = append(report.Issues, ValidationIssue{
				VariantID: item.VariantID,
				Code:      IssueNoPrice,
				Message:   fmt.Sprintf("%s has no price in %s/%s", variant.SKU, cart.Currency, cart.Segment),
			})
			continue
		}
		if quote.UnitPrice != item.UnitPrice && item.UnitPrice > 0 {
			drift := math.Abs(float64(quote.UnitPrice-item.UnitPrice)) / float64(item.UnitPrice) * 100
			if drift > s.driftWarnPercent {
				report.Warnings = append(report.Warnings, ValidationIssue{
					VariantID:    item.VariantID,
					Code:         IssuePriceDrift,
					Message:      fmt.Sprintf("price of %s changed since it was added", variant.SKU),
					OldUnitPrice: item.UnitPrice,
					NewUnitPrice: quote.UnitPrice,
					DriftPercent: math.Round(drift*100) / 100,
				})
			}
		}
	}

	return report, nil
}

// MergeGuestCart folds a guest cart into the authenticated user's cart.
// Quantities for shared variants are summed and their unit prices
// re-resolved at the combined quantity. The guest cart is deleted afterward;
// a missing guest cart is a no-op, so retries are safe.
func (s *CartService) MergeGuestCart(ctx context.Context, siteID, userID, guestToken string) (*domain.Cart, error) {
	if siteID == "" || userID == "" || guestToken == "" {
		return nil, apperrors.InvalidInput("site id, user id and guest token are required")
	}

	guestCart, err := s.carts.GetByGuest(ctx, siteID, guestToken)
	if errors.Is(err, apperrors.ErrNotFound) {
		// Already merged or expired; return whatever the user has, creating
		// an empty cart when neither side exists so retries stay no-ops.
		userCart, _, err := s.GetOrCreate(ctx, Owner{SiteID: siteID, UserID: userID}, CartContext{})
		return userCart, err
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userCart, err := s.carts.GetByUser(ctx, siteID, userID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// No user cart yet: re-home the guest cart under the user key.
		adopted := *guestCart
		adopted.UserID = userID
		adopted.GuestToken = ""
		adopted.Version = 0
		adopted.UpdatedAt = now
		adopted.ExpiresAt = now.Add(s.ttl)

		ok, err := s.carts.SaveIfVersion(ctx, &adopted, 0)
		if err != nil {
			return nil, fmt.Errorf("merge cart: %w", err)
		}
		if !ok {
			return nil, apperrors.Conflict("cart was modified concurrently, please retry")
		}
		s.deleteGuestCart(ctx, guestCart)
		s.publishCartMerged(ctx, &adopted, guestToken)
		return &adopted, nil

	case err != nil:
		return nil, err
	}

	if err := s.mergeItems(ctx, userCart, guestCart); err != nil {
		return nil, err
	}
	s.refreshCouponDiscount(userCart)
	if err := s.save(ctx, userCart, false, now); err != nil {
		return nil, err
	}
	s.deleteGuestCart(ctx, guestCart)
	s.publishCartMerged(ctx, userCart, guestToken)
	return userCart, nil
}

// mergeItems folds guest lines into the user cart, summing quantities for
// shared variants and re-resolving prices at the combined quantity. A line
// whose variant vanished keeps its captured price; validation will flag it.
func (s *CartService) mergeItems(ctx context.Context, userCart, guestCart *domain.Cart) error {
	ids := make([]string, 0, len(guestCart.Items))
	for _, item := range guestCart.Items {
		ids = append(ids, item.VariantID)
	}
	variants, err := s.variants.GetBatch(ctx, userCart.SiteID, ids)
	if err != nil {
		return fmt.Errorf("merge cart: %w", err)
	}

	for _, guestItem := range guestCart.Items {
		idx := userCart.FindItemIndex(guestItem.VariantID)
		if idx < 0 {
			userCart.Items = append(userCart.Items, guestItem)
			continue
		}

		item := &userCart.Items[idx]
		item.Quantity = min(item.Quantity+guestItem.Quantity, domain.MaxItemQuantity)

		variant, ok := variants[guestItem.VariantID]
		if !ok {
			continue
		}
		quote, err := pricing.Resolve(variant.Prices, userCart.Currency, userCart.Segment, item.Quantity)
		if err != nil {
			continue
		}
		item.UnitPrice = quote.UnitPrice
		item.BasePrice = quote.BasePrice
		item.Savings = quote.Savings
	}
	return nil
}

func (s *CartService) newCart(owner Owner, cc CartContext) *domain.Cart {
	now := time.Now().UTC()
	segment := domain.SegmentB2C
	if parsed, err := domain.ParseSegment(cc.Segment); err == nil {
		segment = parsed
	}
	currency := cc.Currency
	if currency == "" {
		currency = "EUR"
	}
	locale := cc.Locale
	if locale == "" {
		locale = "fr-FR"
	}

	return &domain.Cart{
		ID:         uuid.New().String(),
		SiteID:     owner.SiteID,
		UserID:     owner.UserID,
		GuestToken: owner.GuestToken,
		Currency:   currency,
		Locale:     locale,
		Segment:    segment,
		Items:      []domain.CartItem{},
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
}

func (s *CartService) get(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.UserID != "" {
		return s.carts.GetByUser(ctx, owner.SiteID, owner.UserID)
	}
	return s.carts.GetByGuest(ctx, owner.SiteID, owner.GuestToken)
}

// save persists the cart with optimistic concurrency. created carts expect
// an absent key (version 0).
func (s *CartService) save(ctx context.Context, cart *domain.Cart, created bool, now time.Time) error {
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.ttl)

	expected := cart.Version
	if created {
		expected = 0
	}
	ok, err := s.carts.SaveIfVersion(ctx, cart, expected)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return nil
}

// refreshCouponDiscount recomputes the attached coupon's discount against
// the current subtotal. Full eligibility is re-checked at freeze time.
func (s *CartService) refreshCouponDiscount(cart *domain.Cart) {
	if cart.Coupon == nil {
		return
	}
	c := domain.Coupon{Type: cart.Coupon.Type, Value: cart.Coupon.Value}
	cart.Coupon.DiscountAmount = c.DiscountFor(cart.Subtotal())
}

func (s *CartService) deleteGuestCart(ctx context.Context, guestCart *domain.Cart) {
	if err := s.carts.Delete(ctx, guestCart); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete guest cart after merge",
			slog.String("cart_id", guestCart.ID), slog.String("error", err.Error()))
	}
}

func (s *CartService) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.events.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart updated event",
			slog.String("cart_id", cart.ID), slog.String("error", err.Error()))
	}
}

func (s *CartService) publishCartMerged(ctx context.Context, cart *domain.Cart, guestToken string) {
	if err := s.events.PublishCartMerged(ctx, cart, guestToken); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart merged event",
			slog.String("cart_id", cart.ID), slog.String("error", err.Error()))
	}
}
