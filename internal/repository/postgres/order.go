package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/repository"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
)

const orderColumns = `id, reference, site_id, user_id, status, currency, locale, segment,
	subtotal, discount, tax_rate_bps, tax_amount, shipping_amount, grand_total,
	shipping_address, billing_address, coupon, customer, notes,
	validated_at, cancelled_at, delivered_at, created_at, updated_at`

const insertOrderQuery = `
	INSERT INTO orders (id, reference, site_id, user_id, status, currency, locale, segment,
		subtotal, discount, tax_rate_bps, tax_amount, shipping_amount, grand_total,
		shipping_address, billing_address, coupon, customer, notes,
		created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

const insertOrderItemQuery = `
	INSERT INTO order_items (id, order_id, variant_id, product_id, quantity, unit_price, tax_amount, savings, snapshot, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertHistoryQuery = `
	INSERT INTO order_status_history (id, order_id, from_status, to_status, actor_id, actor_type, reason, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// incrementCouponUsageQuery is guarded by the usage limit so the limit check
// and the increment are one atomic statement.
const incrementCouponUsageQuery = `
	UPDATE coupons
	SET usage_count = usage_count + 1, updated_at = $3
	WHERE site_id = $1 AND lower(code) = lower($2) AND deleted_at IS NULL
		AND (max_usage = 0 OR usage_count < max_usage)`

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Freeze inserts the order with its items and history inside one transaction
// that also decrements stock per item and increments the coupon usage
// counter. Insufficient stock or an exhausted coupon roll everything back
// with a Conflict.
func (r *OrderRepository) Freeze(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "Freeze", insertOrderQuery)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockQuery, item.VariantID, item.Quantity, now)
		if err != nil {
			return fmt.Errorf("decrement stock for variant %s: %w", item.VariantID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("insufficient stock for %s", item.Snapshot.SKU))
		}
		if _, err := tx.Exec(ctx, insertMovementQuery, uuid.New().String(), item.VariantID, -item.Quantity, MovementReasonOrder, now); err != nil {
			return fmt.Errorf("insert stock movement: %w", err)
		}
	}

	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}
	billingJSON, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return fmt.Errorf("marshal billing address: %w", err)
	}
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("marshal customer snapshot: %w", err)
	}
	var couponJSON []byte
	if o.Coupon != nil {
		couponJSON, err = json.Marshal(o.Coupon)
		if err != nil {
			return fmt.Errorf("marshal coupon snapshot: %w", err)
		}
	}

	_, err = tx.Exec(ctx, insertOrderQuery,
		o.ID, o.Reference, o.SiteID, o.UserID, o.Status, o.Currency, o.Locale, o.Segment,
		o.Subtotal, o.Discount, o.TaxRateBps, o.TaxAmount, o.ShippingAmount, o.GrandTotal,
		shippingJSON, billingJSON, couponJSON, customerJSON, o.Notes,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range o.Items {
		snapshotJSON, err := json.Marshal(item.Snapshot)
		if err != nil {
			return fmt.Errorf("marshal item snapshot: %w", err)
		}
		_, err = tx.Exec(ctx, insertOrderItemQuery,
			item.ID, item.OrderID, item.VariantID, item.ProductID,
			item.Quantity, item.UnitPrice, item.TaxAmount, item.Savings,
			snapshotJSON, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	for _, h := range o.History {
		if err := insertHistory(ctx, tx, h); err != nil {
			return err
		}
	}

	if o.Coupon != nil {
		tag, err := tx.Exec(ctx, incrementCouponUsageQuery, o.SiteID, o.Coupon.Code, now)
		if err != nil {
			return fmt.Errorf("increment coupon usage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("coupon %s usage limit reached", o.Coupon.Code))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, h domain.OrderStatusHistory) error {
	var metadataJSON []byte
	if len(h.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(h.Metadata)
		if err != nil {
			return fmt.Errorf("marshal history metadata: %w", err)
		}
	}

	_, err := tx.Exec(ctx, insertHistoryQuery,
		h.ID, h.OrderID, h.FromStatus, h.ToStatus,
		h.ActorID, h.ActorType, h.Reason, metadataJSON, h.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its items and status history.
func (r *OrderRepository) GetByID(ctx context.Context, siteID, orderID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE site_id = $1 AND id = $2`, siteID, orderID)
}

// GetByReference retrieves an order by its human-facing reference.
func (r *OrderRepository) GetByReference(ctx context.Context, siteID, reference string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE site_id = $1 AND reference = $2`, siteID, reference)
}

func (r *OrderRepository) getOne(ctx context.Context, query, siteID, key string) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, query, siteID, key)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", key)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, order_id, variant_id, product_id, quantity, unit_price, tax_amount, savings, snapshot
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	o.Items = make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item         domain.OrderItem
			snapshotJSON []byte
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.VariantID, &item.ProductID,
			&item.Quantity, &item.UnitPrice, &item.TaxAmount, &item.Savings,
			&snapshotJSON,
		); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if len(snapshotJSON) > 0 {
			if err := json.Unmarshal(snapshotJSON, &item.Snapshot); err != nil {
				return fmt.Errorf("unmarshal item snapshot: %w", err)
			}
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *OrderRepository) loadHistory(ctx context.Context, o *domain.Order) error {
	query := `
		SELECT id, order_id, from_status, to_status, actor_id, actor_type, reason, metadata, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, o.ID)
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()

	o.History = make([]domain.OrderStatusHistory, 0)
	for rows.Next() {
		var (
			h            domain.OrderStatusHistory
			metadataJSON []byte
		)
		if err := rows.Scan(
			&h.ID, &h.OrderID, &h.FromStatus, &h.ToStatus,
			&h.ActorID, &h.ActorType, &h.Reason, &metadataJSON, &h.CreatedAt,
		); err != nil {
			return fmt.Errorf("scan status history: %w", err)
		}
		if len(metadataJSON) > 0 && string(metadataJSON) != "null" {
			if err := json.Unmarshal(metadataJSON, &h.Metadata); err != nil {
				return fmt.Errorf("unmarshal history metadata: %w", err)
			}
		}
		o.History = append(o.History, h)
	}
	return rows.Err()
}

// List returns orders matching the filter plus the total count via a window
// function, newest first. Items and history are not loaded for listings.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	conditions := []string{"site_id = $1"}
	args := []any{filter.SiteID}
	argIndex := 2

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+orderColumns+`, count(*) OVER() AS total_count
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var totalCount int
	orders := make([]domain.Order, 0)

	for rows.Next() {
		o, err := scanOrderWithCount(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, totalCount, nil
}

// milestoneColumn maps a target status to the timestamp it sets once.
func milestoneColumn(to domain.OrderStatus) string {
	switch to {
	case domain.OrderStatusConfirmed:
		return "validated_at"
	case domain.OrderStatusCancelled:
		return "cancelled_at"
	case domain.OrderStatusDelivered:
		return "delivered_at"
	default:
		return ""
	}
}

// ChangeStatus applies a lifecycle transition conditionally on the expected
// current status, appends the audit entry, and optionally restores stock,
// all in one transaction.
func (r *OrderRepository) ChangeStatus(ctx context.Context, change repository.StatusChange) (err error) {
	ctx, end := database.TraceQuery(ctx, "ChangeStatus", "UPDATE orders SET status ...")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// COALESCE keeps an already-set milestone on re-entry.
	milestone := ""
	if col := milestoneColumn(change.ToStatus); col != "" {
		milestone = fmt.Sprintf(", %s = COALESCE(%s, $4)", col, col)
	}
	query := fmt.Sprintf(
		`UPDATE orders SET status = $1, updated_at = $4%s WHERE id = $2 AND status = $3`,
		milestone,
	)

	tag, err := tx.Exec(ctx, query, change.ToStatus, change.OrderID, change.FromStatus, now)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("order status changed concurrently, please retry")
	}

	from := change.FromStatus
	if err := insertHistory(ctx, tx, domain.OrderStatusHistory{
		ID:         uuid.New().String(),
		OrderID:    change.OrderID,
		FromStatus: &from,
		ToStatus:   change.ToStatus,
		ActorID:    change.ActorID,
		ActorType:  change.ActorType,
		Reason:     change.Reason,
		Metadata:   change.Metadata,
		CreatedAt:  now,
	}); err != nil {
		return err
	}

	if change.RestoreStock {
		if err := restoreOrderStock(ctx, tx, change.OrderID, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func restoreOrderStock(ctx context.Context, tx pgx.Tx, orderID string, now time.Time) error {
	rows, err := tx.Query(ctx, `SELECT variant_id, quantity FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("load items for stock restore: %w", err)
	}

	type restore struct {
		variantID string
		quantity  int
	}
	var restores []restore
	for rows.Next() {
		var item restore
		if err := rows.Scan(&item.variantID, &item.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan item for stock restore: %w", err)
		}
		restores = append(restores, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate items for stock restore: %w", err)
	}

	for _, item := range restores {
		if _, err := tx.Exec(ctx, incrementStockQuery, item.variantID, item.quantity, now); err != nil {
			return fmt.Errorf("restore stock for variant %s: %w", item.variantID, err)
		}
		if _, err := tx.Exec(ctx, insertMovementQuery, uuid.New().String(), item.variantID, item.quantity, MovementReasonReturn, now); err != nil {
			return fmt.Errorf("insert restore movement: %w", err)
		}
	}

	return nil
}

// UpdateNotes sets the admin notes, the only non-status field that mutates
// after freeze.
func (r *OrderRepository) UpdateNotes(ctx context.Context, siteID, orderID, notes string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET notes = $3, updated_at = $4 WHERE site_id = $1 AND id = $2`,
		siteID, orderID, notes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update order notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", orderID)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	return scanOrderInto(row, nil)
}

func scanOrderWithCount(row pgx.Row, totalCount *int) (*domain.Order, error) {
	return scanOrderInto(row, totalCount)
}

func scanOrderInto(row pgx.Row, totalCount *int) (*domain.Order, error) {
	var (
		o            domain.Order
		shippingJSON []byte
		billingJSON  []byte
		couponJSON   []byte
		customerJSON []byte
	)

	dest := []any{
		&o.ID, &o.Reference, &o.SiteID, &o.UserID, &o.Status, &o.Currency, &o.Locale, &o.Segment,
		&o.Subtotal, &o.Discount, &o.TaxRateBps, &o.TaxAmount, &o.ShippingAmount, &o.GrandTotal,
		&shippingJSON, &billingJSON, &couponJSON, &customerJSON, &o.Notes,
		&o.ValidatedAt, &o.CancelledAt, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if err := json.Unmarshal(billingJSON, &o.BillingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal billing address: %w", err)
	}
	if len(couponJSON) > 0 && string(couponJSON) != "null" {
		if err := json.Unmarshal(couponJSON, &o.Coupon); err != nil {
			return nil, fmt.Errorf("unmarshal coupon snapshot: %w", err)
		}
	}
	if len(customerJSON) > 0 && string(customerJSON) != "null" {
		if err := json.Unmarshal(customerJSON, &o.Customer); err != nil {
			return nil, fmt.Errorf("unmarshal customer snapshot: %w", err)
		}
	}

	return &o, nil
}
