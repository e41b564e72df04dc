package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/domain"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/service"
	apperrors "github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/errors"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/pagination"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/validator"
)

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.orders.Get(r.Context(), site, chi.URLParam(r, "orderID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

func (h *Handler) getOrderByReference(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.orders.GetByReference(r.Context(), site, chi.URLParam(r, "reference"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

// listOrders pages orders newest first. Optional query filters: status;
// user scope comes from X-User-ID when present.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	filter := service.ListFilter{
		UserID: r.Header.Get(HeaderUserID),
		Status: r.URL.Query().Get("status"),
	}
	result, err := h.orders.List(r.Context(), site, filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required,max=20"`
	Reason string `json:"reason" validate:"max=500"`
}

// changeOrderStatus is the ops-facing transition endpoint.
func (h *Handler) changeOrderStatus(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req changeStatusRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.orders.ChangeStatus(r.Context(), site, chi.URLParam(r, "orderID"),
		service.TransitionInput{ToStatus: req.Status, Reason: req.Reason},
		service.Actor{ID: r.Header.Get(HeaderUserID), Type: domain.ActorTypeAdmin})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// cancelOrder is the customer-facing cancellation endpoint.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
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

	var req cancelOrderRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.orders.Cancel(r.Context(), site, chi.URLParam(r, "orderID"), req.Reason,
		service.Actor{ID: userID, Type: domain.ActorTypeCustomer})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}

type updateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (h *Handler) updateOrderNotes(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req updateNotesRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.orders.UpdateNotes(r.Context(), site, chi.URLParam(r, "orderID"), req.Notes)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: order})
}
