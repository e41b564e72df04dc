package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

func newOrderRepo(t *testing.T) (*OrderRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewOrderRepository(mock), mock
}

func sampleFrozenOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := "user-1"
	return &domain.Order{
		ID:             "order-1",
		Reference:      "ORD-20260829-AB12CD",
		SiteID:         "site-1",
		UserID:         &userID,
		Status:         domain.OrderStatusPending,
		Currency:       "EUR",
		Locale:         "fr",
		Segment:        domain.SegmentB2C,
		Subtotal:       10000,
		Discount:       1000,
		TaxRateBps:     2000,
		TaxAmount:      1800,
		ShippingAmount: 500,
		GrandTotal:     11300,
		ShippingAddress: domain.Address{
			FullName: "Jean Martin", Street: "1 rue de la Paix",
			PostalCode: "75002", City: "Paris", CountryCode: "FR",
		},
		BillingAddress: domain.Address{
			FullName: "Jean Martin", Street: "1 rue de la Paix",
			PostalCode: "75002", City: "Paris", CountryCode: "FR",
		},
		Coupon:   &domain.CouponSnapshot{Code: "SAVE10", Type: domain.CouponTypePercentage, Value: 10, DiscountAmount: 1000},
		Customer: domain.CustomerSnapshot{UserID: "user-1", Email: "jean@example.com"},
		Items: []domain.OrderItem{
			{
				ID: "item-1", OrderID: "order-1", VariantID: "var-1", ProductID: "prod-1",
				Quantity: 2, UnitPrice: 5000, TaxAmount: 1800,
				Snapshot: domain.ProductSnapshot{Name: "Widget", SKU: "WDG-1"},
			},
		},
		History: []domain.OrderStatusHistory{
			{
				ID: "hist-1", OrderID: "order-1", ToStatus: domain.OrderStatusPending,
				ActorID: "user-1", ActorType: domain.ActorTypeCustomer, CreatedAt: now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_Freeze_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleFrozenOrder()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_variants").
		WithArgs("var-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "var-1", -2, MovementReasonOrder, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.Reference, o.SiteID, o.UserID, o.Status, o.Currency, o.Locale, o.Segment,
			o.Subtotal, o.Discount, o.TaxRateBps, o.TaxAmount, o.ShippingAmount, o.GrandTotal,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), o.Notes,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(
			"item-1", "order-1", "var-1", "prod-1", 2, int64(5000), int64(1800), int64(0),
			pgxmock.AnyArg(), o.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WithArgs(
			"hist-1", "order-1", pgxmock.AnyArg(), domain.OrderStatusPending,
			"user-1", domain.ActorTypeCustomer, "", pgxmock.AnyArg(), o.History[0].CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE coupons").
		WithArgs("site-1", "SAVE10", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Freeze(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Freeze_InsufficientStock(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleFrozenOrder()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_variants").
		WithArgs("var-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Freeze(context.Background(), o)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "insufficient stock")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Freeze_CouponExhausted(t *testing.T) {
	repo, mock := newOrderRepo(t)
	o := sampleFrozenOrder()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE product_variants").
		WithArgs("var-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "var-1", -2, MovementReasonOrder, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(
			o.ID, o.Reference, o.SiteID, o.UserID, o.Status, o.Currency, o.Locale, o.Segment,
			o.Subtotal, o.Discount, o.TaxRateBps, o.TaxAmount, o.ShippingAmount, o.GrandTotal,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), o.Notes,
			o.CreatedAt, o.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(
			"item-1", "order-1", "var-1", "prod-1", 2, int64(5000), int64(1800), int64(0),
			pgxmock.AnyArg(), o.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WithArgs(
			"hist-1", "order-1", pgxmock.AnyArg(), domain.OrderStatusPending,
			"user-1", domain.ActorTypeCustomer, "", pgxmock.AnyArg(), o.History[0].CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE coupons").
		WithArgs("site-1", "SAVE10", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.Freeze(context.Background(), o)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "usage limit")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ChangeStatus_Success(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusConfirmed, "order-1", domain.OrderStatusPending, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WithArgs(
			pgxmock.AnyArg(), "order-1", pgxmock.AnyArg(), domain.OrderStatusConfirmed,
			"admin-1", domain.ActorTypeAdmin, "payment received", pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.ChangeStatus(context.Background(), repository.StatusChange{
		OrderID:    "order-1",
		FromStatus: domain.OrderStatusPending,
		ToStatus:   domain.OrderStatusConfirmed,
		ActorID:    "admin-1",
		ActorType:  domain.ActorTypeAdmin,
		Reason:     "payment received",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ChangeStatus_ConcurrentChange(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusConfirmed, "order-1", domain.OrderStatusPending, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.ChangeStatus(context.Background(), repository.StatusChange{
		OrderID:    "order-1",
		FromStatus: domain.OrderStatusPending,
		ToStatus:   domain.OrderStatusConfirmed,
		ActorID:    "admin-1",
		ActorType:  domain.ActorTypeAdmin,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ChangeStatus_CancelRestoresStock(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders").
		WithArgs(domain.OrderStatusCancelled, "order-1", domain.OrderStatusPending, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WithArgs(
			pgxmock.AnyArg(), "order-1", pgxmock.AnyArg(), domain.OrderStatusCancelled,
			"user-1", domain.ActorTypeCustomer, "changed my mind", pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM order_items").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows([]string{"variant_id", "quantity"}).AddRow("var-1", 2))
	mock.ExpectExec("UPDATE product_variants").
		WithArgs("var-1", 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(pgxmock.AnyArg(), "var-1", 2, MovementReasonReturn, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.ChangeStatus(context.Background(), repository.StatusChange{
		OrderID:      "order-1",
		FromStatus:   domain.OrderStatusPending,
		ToStatus:     domain.OrderStatusCancelled,
		ActorID:      "user-1",
		ActorType:    domain.ActorTypeCustomer,
		Reason:       "changed my mind",
		RestoreStock: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateNotes(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectExec("UPDATE orders").
		WithArgs("site-1", "order-1", "call before delivery", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateNotes(context.Background(), "site-1", "order-1", "call before delivery"))

	mock.ExpectExec("UPDATE orders").
		WithArgs("site-1", "order-missing", "x", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.UpdateNotes(context.Background(), "site-1", "order-missing", "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery("FROM orders").
		WithArgs("site-1", "order-missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	o, err := repo.GetByID(context.Background(), "site-1", "order-missing")
	assert.Nil(t, o)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
