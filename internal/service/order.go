package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/pagination"
)

// OrderService drives the post-freeze order lifecycle: reads, listings,
// status transitions, and admin notes.
type OrderService struct {
	orders repository.OrderRepository
	events EventPublisher
	logger *slog.Logger
}

// NewOrderService creates an order service.
func NewOrderService(orders repository.OrderRepository, events EventPublisher, logger *slog.Logger) *OrderService {
	return &OrderService{orders: orders, events: events, logger: logger}
}

// Actor identifies who requests a transition.
type Actor struct {
	ID   string
	Type domain.ActorType
}

// TransitionInput is one status change request.
type TransitionInput struct {
	ToStatus string `validate:"required"`
	Reason   string `validate:"max=500"`
}

// Get returns one order with its items and history.
func (s *OrderService) Get(ctx context.Context, siteID, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, siteID, orderID)
}

// GetByReference returns one order by its human-readable reference.
func (s *OrderService) GetByReference(ctx context.Context, siteID, reference string) (*domain.Order, error) {
	return s.orders.GetByReference(ctx, siteID, reference)
}

// ListFilter narrows order listings.
type ListFilter struct {
	UserID string
	Status string
}

// List returns a page of orders, newest first, without items or history.
func (s *OrderService) List(ctx context.Context, siteID string, filter ListFilter, params pagination.Params) (pagination.Result[domain.Order], error) {
	repoFilter := repository.OrderFilter{
		SiteID: siteID,
		Limit:  params.PerPage,
		Offset: params.Offset,
	}
	if filter.UserID != "" {
		userID := filter.UserID
		repoFilter.UserID = &userID
	}
	if filter.Status != "" {
		status := domain.OrderStatus(filter.Status)
		if !domain.ValidStatus(status) {
			return pagination.Result[domain.Order]{}, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", filter.Status))
		}
		repoFilter.Status = &status
	}

	orders, total, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return pagination.Result[domain.Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return pagination.NewResult(orders, total, params), nil
}

// ChangeStatus moves an order one step through the lifecycle. Illegal
// transitions and stale expectations both surface as Conflict; cancellation
// restores every item's stock inside the same transaction.
func (s *OrderService) ChangeStatus(ctx context.Context, siteID, orderID string, input TransitionInput, actor Actor) (*domain.Order, error) {
	target := domain.OrderStatus(input.ToStatus)
	if !domain.ValidStatus(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", input.ToStatus))
	}

	order, err := s.orders.GetByID(ctx, siteID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(target) {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"cannot transition order from %s to %s", order.Status, target))
	}

	change := repository.StatusChange{
		OrderID:      orderID,
		FromStatus:   order.Status,
		ToStatus:     target,
		ActorID:      actor.ID,
		ActorType:    actor.Type,
		Reason:       input.Reason,
		RestoreStock: target == domain.OrderStatusCancelled,
	}
	if err := s.orders.ChangeStatus(ctx, change); err != nil {
		return nil, err
	}

	from := order.Status
	order, err = s.orders.GetByID(ctx, siteID, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishOrderStatusChanged(ctx, order, from, actor.Type, input.Reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status changed event",
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", order.ID),
		slog.String("from", string(from)),
		slog.String("to", string(order.Status)),
		slog.String("actor_type", string(actor.Type)),
	)
	return order, nil
}

// Cancel is the cancellation shorthand used by the customer-facing route.
func (s *OrderService) Cancel(ctx context.Context, siteID, orderID, reason string, actor Actor) (*domain.Order, error) {
	return s.ChangeStatus(ctx, siteID, orderID, TransitionInput{
		ToStatus: string(domain.OrderStatusCancelled),
		Reason:   reason,
	}, actor)
}

// UpdateNotes replaces the order's free-form admin notes.
func (s *OrderService) UpdateNotes(ctx context.Context, siteID, orderID, notes string) (*domain.Order, error) {
	if err := s.orders.UpdateNotes(ctx, siteID, orderID, notes); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, siteID, orderID)
}
