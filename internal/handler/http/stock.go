package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/pagination"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/validator"
)

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	availability, err := h.stock.GetAvailability(r.Context(), site, chi.URLParam(r, "variantID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: availability})
}

// listLowStock is the ops replenishment view.
func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.stock.ListLowStock(r.Context(), site, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

type adjustStockRequest struct {
	Quantity int `json:"quantity" validate:"required"`
}

// adjustStock applies a manual correction; positive adds, negative removes.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	site, err := siteID(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req adjustStockRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	availability, err := h.stock.Adjust(r.Context(), site, chi.URLParam(r, "variantID"), req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: availability})
}
