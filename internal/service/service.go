// Package service implements the business operations: cart mutations and
// consolidation, coupon validation, checkout freezing, and the order
// lifecycle. Services orchestrate repositories and publish domain events;
// event failures are logged, never returned to callers.
package service

import (
	"context"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

// Owner identifies a cart owner within a site: exactly one of UserID or
// GuestToken must be set.
type Owner struct {
	SiteID     string
	UserID     string
	GuestToken string
}

// Validate enforces the user-XOR-guest invariant on the identity itself.
func (o Owner) Validate() error {
	if o.SiteID == "" {
		return apperrors.InvalidInput("site id is required")
	}
	if (o.UserID == "") == (o.GuestToken == "") {
		return apperrors.InvalidInput("exactly one of user id or guest token must be provided")
	}
	return nil
}

// EventPublisher is the slice of the event producer the services use.
// Satisfied by *event.Producer.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, cart *domain.Cart) error
	PublishCartMerged(ctx context.Context, cart *domain.Cart, guestToken string) error
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus, actorType domain.ActorType, reason string) error
	PublishCouponApplied(ctx context.Context, cart *domain.Cart) error
}
