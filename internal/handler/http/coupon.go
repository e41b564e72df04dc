package httpapi

import (
	"net/http"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/validator"
)

type couponRequest struct {
	Code string `json:"code" validate:"required,max=50"`
}

func (h *Handler) checkCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req couponRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	report, err := h.coupons.Check(r.Context(), o, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: report})
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req couponRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.coupons.Apply(r.Context(), o, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.coupons.Remove(r.Context(), o)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
