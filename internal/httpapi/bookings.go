package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"travelbook/internal/apperr"
	"travelbook/internal/auth"
	"travelbook/internal/envelope"
	"travelbook/internal/models"
	"travelbook/internal/store"
)

const dateLayout = "2006-01-02"

type createBookingRequest struct {
	ListingID string `json:"listingId" validate:"required"`
	CheckIn   string `json:"checkIn" validate:"required,datetime=2006-01-02"`
	CheckOut  string `json:"checkOut" validate:"required,datetime=2006-01-02"`
	Guests    int    `json:"guests" validate:"gte=1,lte=16"`
}

func (h *Handler) handleCreateBooking(r *http.Request, id auth.Identity) (envelope.Response, error) {
	var req createBookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return envelope.Response{}, err
	}
	checkIn, _ := time.Parse(dateLayout, req.CheckIn)
	checkOut, _ := time.Parse(dateLayout, req.CheckOut)
	if !checkOut.After(checkIn) {
		return envelope.Response{}, apperr.Validation("checkOut must be after checkIn")
	}
	today := h.now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return envelope.Response{}, apperr.Validation("checkIn cannot be in the past")
	}
	if models.Nights(checkIn, checkOut) > models.MaxNights {
		return envelope.Response{}, apperr.Validation(fmt.Sprintf("A stay cannot exceed %d nights", models.MaxNights))
	}

	booking, err := h.store.CreateBooking(r.Context(), store.CreateBookingInput{
		UserID:    id.ID,
		ListingID: req.ListingID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
		Currency:  h.currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return envelope.Response{}, apperr.NotFound("Listing not found")
		case errors.Is(err, store.ErrDatesConflict):
			return envelope.Response{}, apperr.Conflict("Listing is not available for those dates")
		case errors.Is(err, store.ErrInvalidStay):
			return envelope.Response{}, apperr.Validation("Stay total is out of range")
		default:
			return envelope.Response{}, fmt.Errorf("create booking: %w", err)
		}
	}
	return envelope.Created("Booking created", booking), nil
}
