package postgres

import (
	"context"
	"math"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `booking_id, user_id, listing_id, check_in, check_out, guests, total_amount, currency, status, payment_intent_id, created_at`

func scanBooking(row pgx.Row) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.BookingID, &b.UserID, &b.ListingID, &b.CheckIn, &b.CheckOut, &b.Guests, &b.TotalAmount, &b.Currency, &b.Status, &b.PaymentIntentID, &b.CreatedAt)
	return b, err
}

func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (booking models.Booking, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Booking{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var pricePerNight int64
	row := tx.QueryRow(ctx, `
		SELECT price_per_night
		FROM listings
		WHERE listing_id = $1
		FOR UPDATE
	`, input.ListingID)
	if err = row.Scan(&pricePerNight); err != nil {
		err = notFound(err)
		return models.Booking{}, err
	}

	if err = s.checkAvailable(ctx, tx, input.ListingID, input.CheckIn, input.CheckOut, ""); err != nil {
		return models.Booking{}, err
	}

	total, ok := stayTotal(pricePerNight, models.Nights(input.CheckIn, input.CheckOut))
	if !ok {
		err = store.ErrInvalidStay
		return models.Booking{}, err
	}

	booking = models.Booking{
		BookingID:   uuid.NewString(),
		UserID:      input.UserID,
		ListingID:   input.ListingID,
		CheckIn:     input.CheckIn,
		CheckOut:    input.CheckOut,
		Guests:      input.Guests,
		TotalAmount: total,
		Currency:    input.Currency,
		Status:      models.BookingPending,
	}
	row = tx.QueryRow(ctx, `
		INSERT INTO bookings (booking_id, user_id, listing_id, check_in, check_out, guests, total_amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, booking.BookingID, booking.UserID, booking.ListingID, booking.CheckIn, booking.CheckOut, booking.Guests, booking.TotalAmount, booking.Currency, booking.Status)
	if err = row.Scan(&booking.CreatedAt); err != nil {
		return models.Booking{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (models.Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE booking_id = $1
	`, bookingID)
	booking, err := scanBooking(row)
	if err != nil {
		return models.Booking{}, notFound(err)
	}
	return booking, nil
}

// stayTotal multiplies the nightly price out, failing when the stay is
// empty, longer than models.MaxNights, or the total would overflow.
func stayTotal(pricePerNight, nights int64) (int64, bool) {
	if nights < 1 || nights > models.MaxNights || pricePerNight < 0 {
		return 0, false
	}
	if pricePerNight > math.MaxInt64/nights {
		return 0, false
	}
	return pricePerNight * nights, true
}

// holdCutoff is the oldest intent creation time that still holds dates.
func (s *Store) holdCutoff() time.Time {
	return s.now().UTC().Add(-s.paymentHold)
}

// checkAvailable fails with store.ErrDatesConflict when a paid booking, or
// one whose payment started within the hold window, overlaps the stay.
// Pending bookings do not hold dates. Callers lock the listing row first.
func (s *Store) checkAvailable(ctx context.Context, tx pgx.Tx, listingID string, checkIn, checkOut time.Time, excludeBookingID string) error {
	var overlapping bool
	row := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings b
			LEFT JOIN payment_intents p ON p.intent_id = b.payment_intent_id
			WHERE b.listing_id = $1
			  AND b.booking_id <> $4
			  AND (b.status = $5 OR (b.status = $6 AND p.created_at > $7))
			  AND b.check_in < $3 AND b.check_out > $2
		)
	`, listingID, checkIn, checkOut, excludeBookingID, models.BookingPaid, models.BookingAwaitingPayment, s.holdCutoff())
	if err := row.Scan(&overlapping); err != nil {
		return err
	}
	if overlapping {
		return store.ErrDatesConflict
	}
	return nil
}
