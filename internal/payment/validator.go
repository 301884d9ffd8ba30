package payment

import (
	"encoding/json"

	"travelbook/internal/apperr"

	"github.com/go-playground/validator/v10"
)

const (
	MsgBookingIDRequired       = "Booking ID is required"
	MsgPaymentIntentIDRequired = "Payment Intent ID is required"
)

type CreateIntentRequest struct {
	BookingID string `json:"bookingId" validate:"required"`
}

type ConfirmIntentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateCreate accepts any JSON object whose bookingId is a non-empty
// string. Other fields are ignored.
func ValidateCreate(body []byte) (CreateIntentRequest, error) {
	var req CreateIntentRequest
	if !stringField(body, "bookingId", &req.BookingID) || validate.Struct(req) != nil {
		return CreateIntentRequest{}, apperr.Validation(MsgBookingIDRequired)
	}
	return req, nil
}

// ValidateConfirm accepts any JSON object whose paymentIntentId is a
// non-empty string. Other fields are ignored.
func ValidateConfirm(body []byte) (ConfirmIntentRequest, error) {
	var req ConfirmIntentRequest
	if !stringField(body, "paymentIntentId", &req.PaymentIntentID) || validate.Struct(req) != nil {
		return ConfirmIntentRequest{}, apperr.Validation(MsgPaymentIntentIDRequired)
	}
	return req, nil
}

// stringField fails for a missing key or a value that is not a JSON string.
// null decodes into a string without error, so it is rejected here.
func stringField(body []byte, name string, dst *string) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false
	}
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
