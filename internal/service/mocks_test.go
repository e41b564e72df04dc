package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type mockCartRepo struct{ mock.Mock }

func (m *mockCartRepo) GetByUser(ctx context.Context, siteID, userID string) (*domain.Cart, error) {
	args := m.Called(ctx, siteID, userID)
	if cart := args.Get(0); cart != nil {
		return cart.(*domain.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartRepo) GetByGuest(ctx context.Context, siteID, guestToken string) (*domain.Cart, error) {
	args := m.Called(ctx, siteID, guestToken)
	if cart := args.Get(0); cart != nil {
		return cart.(*domain.Cart), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepo) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	args := m.Called(ctx, cart, expectedVersion)
	if args.Bool(0) {
		cart.Version = expectedVersion + 1
	}
	return args.Bool(0), args.Error(1)
}

func (m *mockCartRepo) Delete(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

type mockVariantRepo struct{ mock.Mock }

func (m *mockVariantRepo) GetByID(ctx context.Context, siteID, variantID string) (*domain.ProductVariant, error) {
	args := m.Called(ctx, siteID, variantID)
	if v := args.Get(0); v != nil {
		return v.(*domain.ProductVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVariantRepo) GetBatch(ctx context.Context, siteID string, variantIDs []string) (map[string]*domain.ProductVariant, error) {
	args := m.Called(ctx, siteID, variantIDs)
	if v := args.Get(0); v != nil {
		return v.(map[string]*domain.ProductVariant), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStockRepo struct{ mock.Mock }

func (m *mockStockRepo) Decrement(ctx context.Context, variantID string, quantity int, reason string) (bool, error) {
	args := m.Called(ctx, variantID, quantity, reason)
	return args.Bool(0), args.Error(1)
}

func (m *mockStockRepo) Increment(ctx context.Context, variantID string, quantity int, reason string) error {
	return m.Called(ctx, variantID, quantity, reason).Error(0)
}

func (m *mockStockRepo) ListLowStock(ctx context.Context, siteID string, limit, offset int) ([]domain.ProductVariant, int, error) {
	args := m.Called(ctx, siteID, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]domain.ProductVariant), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

type mockCouponRepo struct{ mock.Mock }

func (m *mockCouponRepo) GetByCode(ctx context.Context, siteID, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, siteID, code)
	if c := args.Get(0); c != nil {
		return c.(*domain.Coupon), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCouponRepo) CountUserRedemptions(ctx context.Context, siteID, userID, code string) (int, error) {
	args := m.Called(ctx, siteID, userID, code)
	return args.Int(0), args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) Freeze(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, siteID, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, siteID, orderID)
	if o := args.Get(0); o != nil {
		return o.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) GetByReference(ctx context.Context, siteID, reference string) (*domain.Order, error) {
	args := m.Called(ctx, siteID, reference)
	if o := args.Get(0); o != nil {
		return o.(*domain.Order), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if o := args.Get(0); o != nil {
		return o.([]domain.Order), args.Int(1), args.Error(2)
	}
	return nil, args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) ChangeStatus(ctx context.Context, change repository.StatusChange) error {
	return m.Called(ctx, change).Error(0)
}

func (m *mockOrderRepo) UpdateNotes(ctx context.Context, siteID, orderID, notes string) error {
	return m.Called(ctx, siteID, orderID, notes).Error(0)
}

type mockEvents struct{ mock.Mock }

func (m *mockEvents) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockEvents) PublishCartCleared(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockEvents) PublishCartMerged(ctx context.Context, cart *domain.Cart, guestToken string) error {
	return m.Called(ctx, cart, guestToken).Error(0)
}

func (m *mockEvents) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockEvents) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus, actorType domain.ActorType, reason string) error {
	return m.Called(ctx, order, from, actorType, reason).Error(0)
}

func (m *mockEvents) PublishCouponApplied(ctx context.Context, cart *domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

// permissiveEvents accepts every publish call; used by tests that do not
// assert on events.
func permissiveEvents() *mockEvents {
	events := &mockEvents{}
	events.On("PublishCartUpdated", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishCartCleared", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishCartMerged", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishOrderCreated", mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishOrderStatusChanged", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	events.On("PublishCouponApplied", mock.Anything, mock.Anything).Return(nil).Maybe()
	return events
}
