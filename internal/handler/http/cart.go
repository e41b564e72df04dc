package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/service"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/validator"
)

type createCartRequest struct {
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Locale   string `json:"locale" validate:"omitempty,max=10"`
	Segment  string `json:"segment" validate:"omitempty,oneof=b2c b2b"`
}

func (h *Handler) getOrCreateCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req createCartRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, created, err := h.carts.GetOrCreate(r.Context(), o, service.CartContext{
		Currency: req.Currency,
		Locale:   req.Locale,
		Segment:  req.Segment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: cart})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.carts.Get(r.Context(), o)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.carts.Clear(r.Context(), o); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	VariantID string `json:"variant_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=999"`
	Message   string `json:"message" validate:"max=500"`

	Currency string `json:"currency" validate:"omitempty,len=3"`
	Locale   string `json:"locale" validate:"omitempty,max=10"`
	Segment  string `json:"segment" validate:"omitempty,oneof=b2c b2b"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req addItemRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), o, service.AddItemInput{
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
		Message:   req.Message,
		Context: service.CartContext{
			Currency: req.Currency,
			Locale:   req.Locale,
			Segment:  req.Segment,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}

func (h *Handler) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req updateQuantityRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), o, chi.URLParam(r, "variantID"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), o, chi.URLParam(r, "variantID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	report, err := h.carts.Validate(r.Context(), o)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

type mergeCartRequest struct {
	GuestToken string `json:"guest_token" validate:"required"`
}

// mergeCart folds the guest cart named in the body into the authenticated
// user's cart. The user comes from X-User-ID.
func (h *Handler) mergeCart(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("X-User-ID header is required"), h.logger)
		return
	}

	var req mergeCartRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.carts.MergeGuestCart(r.Context(), site, userID, req.GuestToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
