// Package event publishes the service's domain events to Kafka. Publishing
// is best-effort from the caller's perspective: services log failures and
// never fail the business operation over them.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	pkgkafka "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/kafka"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/logger"
)

// Topics for the events this service publishes.
var (
	TopicCartUpdated        = pkgkafka.Topic("cart", "updated")
	TopicCartCleared        = pkgkafka.Topic("cart", "cleared")
	TopicCartMerged         = pkgkafka.Topic("cart", "merged")
	TopicOrderCreated       = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicCouponApplied      = pkgkafka.Topic("coupon", "applied")
)

// Source identifies this service in event envelopes.
const Source = "commerce-core"

// Aggregate types.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// CartEventData is the payload shared by cart events.
type CartEventData struct {
	CartID    string `json:"cart_id"`
	SiteID    string `json:"site_id"`
	UserID    string `json:"user_id,omitempty"`
	ItemCount int    `json:"item_count"`
	Subtotal  int64  `json:"subtotal"`
	Currency  string `json:"currency"`
}

// CartMergedData is the payload for cart.merged.
type CartMergedData struct {
	CartEventData
	GuestToken string `json:"guest_token"`
}

// OrderCreatedData is the payload for order.created.
type OrderCreatedData struct {
	OrderID    string `json:"order_id"`
	Reference  string `json:"reference"`
	SiteID     string `json:"site_id"`
	UserID     string `json:"user_id,omitempty"`
	Currency   string `json:"currency"`
	GrandTotal int64  `json:"grand_total"`
	ItemCount  int    `json:"item_count"`
}

// OrderStatusChangedData is the payload for order.status_changed.
type OrderStatusChangedData struct {
	OrderID    string             `json:"order_id"`
	Reference  string             `json:"reference"`
	FromStatus domain.OrderStatus `json:"from_status"`
	ToStatus   domain.OrderStatus `json:"to_status"`
	ActorType  domain.ActorType   `json:"actor_type"`
	Reason     string             `json:"reason,omitempty"`
}

// CouponAppliedData is the payload for coupon.applied.
type CouponAppliedData struct {
	CartID         string `json:"cart_id"`
	SiteID         string `json:"site_id"`
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
}

// Producer publishes domain events through the shared Kafka producer.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func cartData(cart *domain.Cart) CartEventData {
	return CartEventData{
		CartID:    cart.ID,
		SiteID:    cart.SiteID,
		UserID:    cart.UserID,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Subtotal(),
		Currency:  cart.Currency,
	}
}

// PublishCartUpdated publishes cart.updated.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return p.publish(ctx, TopicCartUpdated, cart.ID, AggregateTypeCart, cartData(cart))
}

// PublishCartCleared publishes cart.cleared.
func (p *Producer) PublishCartCleared(ctx context.Context, cart *domain.Cart) error {
	return p.publish(ctx, TopicCartCleared, cart.ID, AggregateTypeCart, cartData(cart))
}

// PublishCartMerged publishes cart.merged after a guest cart was absorbed.
func (p *Producer) PublishCartMerged(ctx context.Context, cart *domain.Cart, guestToken string) error {
	data := CartMergedData{CartEventData: cartData(cart), GuestToken: guestToken}
	return p.publish(ctx, TopicCartMerged, cart.ID, AggregateTypeCart, data)
}

// PublishOrderCreated publishes order.created after a successful freeze.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:    order.ID,
		Reference:  order.Reference,
		SiteID:     order.SiteID,
		Currency:   order.Currency,
		GrandTotal: order.GrandTotal,
		ItemCount:  len(order.Items),
	}
	if order.UserID != nil {
		data.UserID = *order.UserID
	}
	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, data)
}

// PublishOrderStatusChanged publishes order.status_changed.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus, actorType domain.ActorType, reason string) error {
	data := OrderStatusChangedData{
		OrderID:    order.ID,
		Reference:  order.Reference,
		FromStatus: from,
		ToStatus:   order.Status,
		ActorType:  actorType,
		Reason:     reason,
	}
	return p.publish(ctx, TopicOrderStatusChanged, order.ID, AggregateTypeOrder, data)
}

// PublishCouponApplied publishes coupon.applied.
func (p *Producer) PublishCouponApplied(ctx context.Context, cart *domain.Cart) error {
	if cart.Coupon == nil {
		return nil
	}
	data := CouponAppliedData{
		CartID:         cart.ID,
		SiteID:         cart.SiteID,
		Code:           cart.Coupon.Code,
		DiscountAmount: cart.Coupon.DiscountAmount,
	}
	return p.publish(ctx, TopicCouponApplied, cart.ID, AggregateTypeCart, data)
}

// Noop discards every event; wired when Kafka is disabled.
type Noop struct{}

func (Noop) PublishCartUpdated(context.Context, *domain.Cart) error        { return nil }
func (Noop) PublishCartCleared(context.Context, *domain.Cart) error        { return nil }
func (Noop) PublishCartMerged(context.Context, *domain.Cart, string) error { return nil }
func (Noop) PublishOrderCreated(context.Context, *domain.Order) error      { return nil }
func (Noop) PublishOrderStatusChanged(context.Context, *domain.Order, domain.OrderStatus, domain.ActorType, string) error {
	return nil
}
func (Noop) PublishCouponApplied(context.Context, *domain.Cart) error { return nil }

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		event.WithCorrelationID(cid)
	}
	return p.kafka.Publish(ctx, topic, event)
}
