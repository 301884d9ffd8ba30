package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"travelbook/internal/apperr"
	"travelbook/internal/auth"
	"travelbook/internal/envelope"
	"travelbook/internal/models"
	"travelbook/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type wishlistToggleRequest struct {
	ListingID string `json:"listingId" validate:"required"`
}

type wishlistToggleResponse struct {
	ListingID  string `json:"listingId"`
	Wishlisted bool   `json:"wishlisted"`
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

func (h *Handler) handleListings(r *http.Request) (envelope.Response, error) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		return envelope.Response{}, err
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return envelope.Response{}, err
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	listings, err := h.store.ListListings(r.Context(), limit, offset)
	if err != nil {
		return envelope.Response{}, fmt.Errorf("list listings: %w", err)
	}
	return envelope.OK(listings), nil
}

func (h *Handler) handleListing(r *http.Request) (envelope.Response, error) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/listings/"), "/")
	if id == "" || strings.Contains(id, "/") {
		return envelope.Response{}, apperr.NotFound("Listing not found")
	}
	listing, err := h.store.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return envelope.Response{}, apperr.NotFound("Listing not found")
		}
		return envelope.Response{}, fmt.Errorf("get listing: %w", err)
	}
	return envelope.OK(listing), nil
}

func (h *Handler) handleWishlist(r *http.Request, id auth.Identity) (envelope.Response, error) {
	listings, err := h.store.ListWishlist(r.Context(), id.ID)
	if err != nil {
		return envelope.Response{}, fmt.Errorf("list wishlist: %w", err)
	}
	return envelope.OK(listings), nil
}

func (h *Handler) handleWishlistToggle(r *http.Request, id auth.Identity) (envelope.Response, error) {
	var req wishlistToggleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return envelope.Response{}, err
	}
	added, err := h.store.ToggleWishlist(r.Context(), id.ID, req.ListingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return envelope.Response{}, apperr.NotFound("Listing not found")
		}
		return envelope.Response{}, fmt.Errorf("toggle wishlist: %w", err)
	}
	message := "Removed from wishlist"
	if added {
		message = "Added to wishlist"
	}
	return envelope.Build(http.StatusOK, message, wishlistToggleResponse{ListingID: req.ListingID, Wishlisted: added}), nil
}

func (h *Handler) handleContact(r *http.Request) (envelope.Response, error) {
	var req contactRequest
	if err := decodeAndValidate(r, &req); err != nil {
		return envelope.Response{}, err
	}
	msg, err := h.store.CreateContactMessage(r.Context(), models.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Body:    strings.TrimSpace(req.Message),
	})
	if err != nil {
		return envelope.Response{}, fmt.Errorf("save contact message: %w", err)
	}
	return envelope.Created("Message received", msg), nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(key + " must be a number")
	}
	return value, nil
}
