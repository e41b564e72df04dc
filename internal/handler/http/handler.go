// Package httpapi exposes the commerce operations as a JSON API under
// /api/v1. Identity travels in headers: X-Site-ID scopes every request,
// X-User-ID and X-Guest-Token identify the cart owner (exactly one).
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/service"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
)

// Identity headers.
const (
	HeaderSiteID     = "X-Site-ID"
	HeaderUserID     = "X-User-ID"
	HeaderGuestToken = "X-Guest-Token"
)

// Handler bundles the API endpoints over the services.
type Handler struct {
	carts    *service.CartService
	coupons  *service.CouponService
	checkout *service.CheckoutService
	orders   *service.OrderService
	stock    *service.StockService
	logger   *slog.Logger
}

// New creates the API handler.
func New(
	carts *service.CartService,
	coupons *service.CouponService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	stock *service.StockService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		carts:    carts,
		coupons:  coupons,
		checkout: checkout,
		orders:   orders,
		stock:    stock,
		logger:   logger,
	}
}

// Routes mounts every endpoint on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/guest-tokens", h.issueGuestToken)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.getOrCreateCart)
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/validate", h.validateCart)
		r.Post("/merge", h.mergeCart)

		r.Post("/items", h.addItem)
		r.Put("/items/{variantID}", h.updateItemQuantity)
		r.Delete("/items/{variantID}", h.removeItem)

		r.Post("/coupon", h.applyCoupon)
		r.Post("/coupon/check", h.checkCoupon)
		r.Delete("/coupon", h.removeCoupon)
	})

	r.Post("/checkout", h.freeze)

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{orderID}", h.getOrder)
		r.Get("/reference/{reference}", h.getOrderByReference)
		r.Post("/{orderID}/status", h.changeOrderStatus)
		r.Post("/{orderID}/cancel", h.cancelOrder)
		r.Put("/{orderID}/notes", h.updateOrderNotes)
	})

	r.Route("/stock", func(r chi.Router) {
		r.Get("/low", h.listLowStock)
		r.Get("/{variantID}", h.getAvailability)
		r.Post("/{variantID}/adjust", h.adjustStock)
	})

	return r
}

// owner extracts the cart owner from the identity headers.
func owner(r *http.Request) (service.Owner, error) {
	o := service.Owner{
		SiteID:     r.Header.Get(HeaderSiteID),
		UserID:     r.Header.Get(HeaderUserID),
		GuestToken: r.Header.Get(HeaderGuestToken),
	}
	return o, o.Validate()
}

// siteID extracts the site scope; order and stock routes only need this.
func siteID(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderSiteID)
	if id == "" {
		return "", apperrors.InvalidInput("X-Site-ID header is required")
	}
	return id, nil
}

// decode unmarshals the request body; an empty body leaves v zeroed.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return apperrors.InvalidInput("invalid JSON body")
	}
	return nil
}

// issueGuestToken hands an anonymous visitor a token to own a cart with.
func (h *Handler) issueGuestToken(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: map[string]string{"guest_token": uuid.New().String()},
	})
}
