package httpapi

import (
	"net/http"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/internal/service"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/httputil"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/validator"
)

type addressRequest struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Street      string `json:"street" validate:"required,max=300"`
	PostalCode  string `json:"postal_code" validate:"required,max=20"`
	City        string `json:"city" validate:"required,max=100"`
	CountryCode string `json:"country_code" validate:"required,len=2"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
}

func (a addressRequest) toInput() service.AddressInput {
	return service.AddressInput{
		FullName:    a.FullName,
		Street:      a.Street,
		PostalCode:  a.PostalCode,
		City:        a.City,
		CountryCode: a.CountryCode,
		Phone:       a.Phone,
	}
}

type checkoutRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	FullName        string          `json:"full_name" validate:"required,max=200"`
	ShippingAddress addressRequest  `json:"shipping_address" validate:"required"`
	BillingAddress  *addressRequest `json:"billing_address" validate:"omitempty"`
}

// freeze converts the owner's cart into a pending order.
func (h *Handler) freeze(w http.ResponseWriter, r *http.Request) {
	o, err := owner(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req checkoutRequest
	if err := decode(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := service.FreezeInput{
		Email:           req.Email,
		FullName:        req.FullName,
		ShippingAddress: req.ShippingAddress.toInput(),
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toInput()
		input.BillingAddress = &billing
	}

	order, err := h.checkout.Freeze(r.Context(), o, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}
