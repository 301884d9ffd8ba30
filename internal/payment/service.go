// Package payment gates the booking payment lifecycle: request validation,
// state preconditions and the calls out to the payment gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"travelbook/internal/apperr"
	"travelbook/internal/models"
	"travelbook/internal/store"
)

// DefaultHold matches the store's default payment hold.
const DefaultHold = 30 * time.Minute

type Service struct {
	store   store.PaymentStore
	gateway Gateway
	logger  *slog.Logger
	now     func() time.Time
	hold    time.Duration
}

type Option func(*Service)

// WithHold sets how long a created intent may wait for confirmation.
// Keep it equal to the store's payment hold.
func WithHold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.hold = d
		}
	}
}

func NewService(st store.PaymentStore, gateway Gateway, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: st, gateway: gateway, logger: logger, now: time.Now, hold: DefaultHold}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateIntent opens a payment intent for a pending booking owned by userID.
// Repeating the call for a booking that already has an intent returns it.
func (s *Service) CreateIntent(ctx context.Context, userID string, req CreateIntentRequest) (models.PaymentIntent, error) {
	booking, err := s.ownedBooking(ctx, userID, req.BookingID)
	if err != nil {
		return models.PaymentIntent{}, err
	}

	if booking.Status == models.BookingAwaitingPayment && booking.PaymentIntentID != nil {
		existing, err := s.store.GetPaymentIntent(ctx, *booking.PaymentIntentID)
		switch {
		case err == nil && !s.expired(existing):
			return existing, nil
		case err == nil:
			if err := s.release(ctx, booking, existing, "hold expired"); err != nil {
				return models.PaymentIntent{}, err
			}
			booking.Status = models.BookingPending
		case !errors.Is(err, store.ErrNotFound):
			return models.PaymentIntent{}, fmt.Errorf("load payment intent: %w", err)
		}
	}
	if !ValidTransition(ActionCreate, booking.Status) {
		return models.PaymentIntent{}, apperr.Conflict("Booking cannot be paid in its current state")
	}

	// A booking that already went through a failed intent needs a fresh
	// gateway intent, not the idempotent replay of the old one.
	key := "booking-" + booking.BookingID
	if booking.PaymentIntentID != nil {
		key += "-after-" + *booking.PaymentIntentID
	}
	gi, err := s.gateway.CreateIntent(ctx, GatewayCreateRequest{
		Amount:         booking.TotalAmount,
		Currency:       booking.Currency,
		BookingID:      booking.BookingID,
		IdempotencyKey: key,
	})
	if err != nil {
		return models.PaymentIntent{}, fmt.Errorf("gateway create intent: %w", err)
	}

	intent := models.PaymentIntent{
		IntentID:     gi.ID,
		BookingID:    booking.BookingID,
		UserID:       userID,
		Amount:       booking.TotalAmount,
		Currency:     booking.Currency,
		Status:       models.IntentCreated,
		ClientSecret: gi.ClientSecret,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.SavePaymentIntent(ctx, intent); err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidState):
			return models.PaymentIntent{}, apperr.Conflict("Booking cannot be paid in its current state")
		case errors.Is(err, store.ErrDatesConflict):
			return models.PaymentIntent{}, apperr.Conflict("Listing is no longer available for those dates")
		}
		return models.PaymentIntent{}, fmt.Errorf("save payment intent: %w", err)
	}
	s.logger.InfoContext(ctx, "payment intent created", "booking_id", booking.BookingID, "intent_id", intent.IntentID, "amount", intent.Amount)
	return intent, nil
}

// ConfirmIntent confirms a created intent with the gateway and marks the
// booking paid. Confirming an already confirmed intent returns it.
func (s *Service) ConfirmIntent(ctx context.Context, userID string, req ConfirmIntentRequest) (models.PaymentIntent, error) {
	intent, err := s.store.GetPaymentIntent(ctx, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PaymentIntent{}, apperr.NotFound("Payment intent not found")
		}
		return models.PaymentIntent{}, fmt.Errorf("load payment intent: %w", err)
	}
	if intent.UserID != userID {
		return models.PaymentIntent{}, apperr.Forbidden("Payment intent does not belong to you")
	}
	switch intent.Status {
	case models.IntentConfirmed:
		return intent, nil
	case models.IntentFailed:
		return models.PaymentIntent{}, apperr.Conflict("Payment intent is no longer active")
	}

	booking, err := s.ownedBooking(ctx, userID, intent.BookingID)
	if err != nil {
		return models.PaymentIntent{}, err
	}
	if !ValidTransition(ActionConfirm, booking.Status) {
		return models.PaymentIntent{}, apperr.Conflict("Booking is not awaiting payment")
	}
	if s.expired(intent) {
		if err := s.release(ctx, booking, intent, "hold expired"); err != nil {
			return models.PaymentIntent{}, err
		}
		return models.PaymentIntent{}, apperr.Conflict("Payment hold expired, start a new payment")
	}

	gi, err := s.gateway.ConfirmIntent(ctx, intent.IntentID)
	if err != nil {
		return models.PaymentIntent{}, fmt.Errorf("gateway confirm intent: %w", err)
	}
	if gi.Status != GatewaySucceeded {
		s.logger.WarnContext(ctx, "payment not completed", "intent_id", intent.IntentID, "gateway_status", gi.Status)
		if err := s.release(ctx, booking, intent, "gateway status "+gi.Status); err != nil {
			return models.PaymentIntent{}, err
		}
		return models.PaymentIntent{}, apperr.New(apperr.KindPaymentFailed, "Payment was not completed")
	}

	confirmed, err := s.store.ConfirmPayment(ctx, intent.IntentID, s.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrInvalidState) {
			return models.PaymentIntent{}, apperr.Conflict("Booking is not awaiting payment")
		}
		return models.PaymentIntent{}, fmt.Errorf("confirm payment: %w", err)
	}
	s.logger.InfoContext(ctx, "payment confirmed", "booking_id", booking.BookingID, "intent_id", intent.IntentID)
	return confirmed, nil
}

func (s *Service) expired(intent models.PaymentIntent) bool {
	return intent.Status == models.IntentCreated && !intent.CreatedAt.Add(s.hold).After(s.now())
}

// release fails the intent and returns its booking to pending. Losing a
// race to another release or confirm is not an error.
func (s *Service) release(ctx context.Context, booking models.Booking, intent models.PaymentIntent, reason string) error {
	if !ValidTransition(ActionFail, booking.Status) {
		return apperr.Conflict("Booking is not awaiting payment")
	}
	if _, err := s.store.FailPayment(ctx, intent.IntentID); err != nil && !errors.Is(err, store.ErrInvalidState) {
		return fmt.Errorf("fail payment intent: %w", err)
	}
	s.logger.InfoContext(ctx, "payment intent released", "booking_id", intent.BookingID, "intent_id", intent.IntentID, "reason", reason)
	return nil
}

func (s *Service) ownedBooking(ctx context.Context, userID, bookingID string) (models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Booking{}, apperr.NotFound("Booking not found")
		}
		return models.Booking{}, fmt.Errorf("load booking: %w", err)
	}
	if booking.UserID != userID {
		return models.Booking{}, apperr.Forbidden("Booking does not belong to you")
	}
	return booking, nil
}
