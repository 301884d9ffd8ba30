package httpapi

import (
	"net/http"

	"travelbook/internal/auth"
	"travelbook/internal/envelope"
	"travelbook/internal/payment"
)

// Both payment routes validate the body before touching the store or the
// gateway.
func (h *Handler) handleCreateIntent(r *http.Request, id auth.Identity) (envelope.Response, error) {
	body, err := readBody(r)
	if err != nil {
		return envelope.Response{}, err
	}
	req, err := payment.ValidateCreate(body)
	if err != nil {
		return envelope.Response{}, err
	}
	intent, err := h.payments.CreateIntent(r.Context(), id.ID, req)
	if err != nil {
		return envelope.Response{}, err
	}
	return envelope.Created("Payment intent created", intent), nil
}

func (h *Handler) handleConfirmIntent(r *http.Request, id auth.Identity) (envelope.Response, error) {
	body, err := readBody(r)
	if err != nil {
		return envelope.Response{}, err
	}
	req, err := payment.ValidateConfirm(body)
	if err != nil {
		return envelope.Response{}, err
	}
	intent, err := h.payments.ConfirmIntent(r.Context(), id.ID, req)
	if err != nil {
		return envelope.Response{}, err
	}
	return envelope.Build(http.StatusOK, "Payment confirmed", intent), nil
}
