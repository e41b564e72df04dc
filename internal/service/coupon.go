package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// Ineligibility reasons, in the order the checks run.
const (
	CouponReasonNotFound     = "COUPON_NOT_FOUND"
	CouponReasonInactive     = "COUPON_INACTIVE"
	CouponReasonExhausted    = "COUPON_EXHAUSTED"
	CouponReasonSegment      = "COUPON_WRONG_SEGMENT"
	CouponReasonMinCart      = "COUPON_MIN_CART_NOT_MET"
	CouponReasonPerUserLimit = "COUPON_PER_USER_LIMIT"
)

// CouponReport is the outcome of an eligibility check. When Eligible is
// false, Reason names the first failed check.
type CouponReport struct {
	Eligible       bool   `json:"eligible"`
	Reason         string `json:"reason,omitempty"`
	Message        string `json:"message,omitempty"`
	DiscountAmount int64  `json:"discount_amount,omitempty"`
}

// CouponService validates coupon eligibility against a cart and attaches or
// detaches coupon snapshots. Usage counters are only consumed at freeze.
type CouponService struct {
	coupons repository.CouponRepository
	carts   repository.CartRepository
	events  EventPublisher
	logger  *slog.Logger
	ttl     time.Duration
}

// NewCouponService creates a coupon service. ttl is the sliding cart
// lifetime, refreshed when a coupon mutation saves the cart.
func NewCouponService(
	coupons repository.CouponRepository,
	carts repository.CartRepository,
	events EventPublisher,
	logger *slog.Logger,
	ttl time.Duration,
) *CouponService {
	return &CouponService{coupons: coupons, carts: carts, events: events, logger: logger, ttl: ttl}
}

// Check runs the eligibility checks for a code against the owner's cart
// without attaching anything. Checks run in a fixed order and short-circuit
// on the first failure: existence, activity window, global usage, segment,
// minimum cart amount, per-user limit.
func (s *CouponService) Check(ctx context.Context, owner Owner, code string) (*CouponReport, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	report, _, err := s.check(ctx, cart, code)
	return report, err
}

// Apply attaches the coupon snapshot to the owner's cart after a successful
// eligibility check. An ineligible coupon returns Conflict with the reason.
func (s *CouponService) Apply(ctx context.Context, owner Owner, code string) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartFor(ctx, owner)
	if err != nil {
		return nil, err
	}

	report, coupon, err := s.check(ctx, cart, code)
	if err != nil {
		return nil, err
	}
	if !report.Eligible {
		return nil, apperrors.Conflict(report.Message)
	}

	cart.Coupon = coupon.Snapshot(cart.Subtotal())
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}

	if err := s.events.PublishCouponApplied(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon applied event",
			slog.String("cart_id", cart.ID), slog.String("error", err.Error()))
	}
	return cart, nil
}

// Remove detaches any coupon from the owner's cart. Removing when no coupon
// is attached is a no-op.
func (s *CouponService) Remove(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.cartFor(ctx, owner)
	if err != nil {
		return nil, err
	}
	if cart.Coupon == nil {
		return cart, nil
	}

	cart.Coupon = nil
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "coupon removed", slog.String("cart_id", cart.ID))
	return cart, nil
}

// check runs the ordered eligibility checks. A missing coupon is reported,
// not returned as an error, so callers can render it uniformly.
func (s *CouponService) check(ctx context.Context, cart *domain.Cart, code string) (*CouponReport, *domain.Coupon, error) {
	coupon, err := s.coupons.GetByCode(ctx, cart.SiteID, code)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &CouponReport{
			Reason:  CouponReasonNotFound,
			Message: fmt.Sprintf("coupon %s does not exist", code),
		}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	switch {
	case !coupon.Active || !coupon.InWindow(now):
		return &CouponReport{
			Reason:  CouponReasonInactive,
			Message: fmt.Sprintf("coupon %s is not currently active", coupon.Code),
		}, nil, nil

	case coupon.Exhausted():
		return &CouponReport{
			Reason:  CouponReasonExhausted,
			Message: fmt.Sprintf("coupon %s has reached its usage limit", coupon.Code),
		}, nil, nil

	case !coupon.AppliesTo(cart.Segment):
		return &CouponReport{
			Reason:  CouponReasonSegment,
			Message: fmt.Sprintf("coupon %s does not apply to your account type", coupon.Code),
		}, nil, nil

	case coupon.MinCartAmount > 0 && cart.Subtotal() < coupon.MinCartAmount:
		return &CouponReport{
			Reason:  CouponReasonMinCart,
			Message: fmt.Sprintf("coupon %s requires a minimum cart amount of %d", coupon.Code, coupon.MinCartAmount),
		}, nil, nil
	}

	if coupon.PerUserLimit > 0 && cart.UserID != "" {
		used, err := s.coupons.CountUserRedemptions(ctx, cart.SiteID, cart.UserID, coupon.Code)
		if err != nil {
			return nil, nil, fmt.Errorf("check coupon: %w", err)
		}
		if used >= coupon.PerUserLimit {
			return &CouponReport{
				Reason:  CouponReasonPerUserLimit,
				Message: fmt.Sprintf("coupon %s was already used the maximum number of times", coupon.Code),
			}, nil, nil
		}
	}

	return &CouponReport{
		Eligible:       true,
		DiscountAmount: coupon.DiscountFor(cart.Subtotal()),
	}, coupon, nil
}

func (s *CouponService) cartFor(ctx context.Context, owner Owner) (*domain.Cart, error) {
	if owner.UserID != "" {
		return s.carts.GetByUser(ctx, owner.SiteID, owner.UserID)
	}
	return s.carts.GetByGuest(ctx, owner.SiteID, owner.GuestToken)
}

func (s *CouponService) saveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.ttl)
	ok, err := s.carts.SaveIfVersion(ctx, cart, cart.Version)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return nil
}
