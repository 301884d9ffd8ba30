package postgres

import (
	"context"
	"errors"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/store"

	"github.com/jackc/pgx/v5"
)

const intentColumns = `intent_id, booking_id, user_id, amount, currency, status, client_secret, created_at, confirmed_at`

func scanIntent(row pgx.Row) (models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := row.Scan(&p.IntentID, &p.BookingID, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.ClientSecret, &p.CreatedAt, &p.ConfirmedAt)
	return p, err
}

func (s *Store) GetPaymentIntent(ctx context.Context, intentID string) (models.PaymentIntent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+intentColumns+`
		FROM payment_intents
		WHERE intent_id = $1
	`, intentID)
	intent, err := scanIntent(row)
	if err != nil {
		return models.PaymentIntent{}, notFound(err)
	}
	return intent, nil
}

func (s *Store) SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var (
		listingID         string
		checkIn, checkOut time.Time
	)
	row := tx.QueryRow(ctx, `
		SELECT b.listing_id, b.check_in, b.check_out
		FROM bookings b
		JOIN listings l ON l.listing_id = b.listing_id
		WHERE b.booking_id = $1
		FOR UPDATE OF l
	`, intent.BookingID)
	if err = row.Scan(&listingID, &checkIn, &checkOut); err != nil {
		err = notFound(err)
		return err
	}
	if err = s.checkAvailable(ctx, tx, listingID, checkIn, checkOut, intent.BookingID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $3, payment_intent_id = $2
		WHERE booking_id = $1 AND status = $4
	`, intent.BookingID, intent.IntentID, models.BookingAwaitingPayment, models.BookingPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrInvalidState
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO payment_intents (intent_id, booking_id, user_id, amount, currency, status, client_secret, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, intent.IntentID, intent.BookingID, intent.UserID, intent.Amount, intent.Currency, intent.Status, intent.ClientSecret, intent.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ConfirmPayment(ctx context.Context, intentID string, confirmedAt time.Time) (intent models.PaymentIntent, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.PaymentIntent{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		UPDATE payment_intents
		SET status = $2, confirmed_at = $3
		WHERE intent_id = $1 AND status = $4
		RETURNING `+intentColumns+`
	`, intentID, models.IntentConfirmed, confirmedAt, models.IntentCreated)
	if intent, err = scanIntent(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrInvalidState
		}
		return models.PaymentIntent{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE booking_id = $1 AND status = $3
	`, intent.BookingID, models.BookingPaid, models.BookingAwaitingPayment)
	if err != nil {
		return models.PaymentIntent{}, err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrInvalidState
		return models.PaymentIntent{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.PaymentIntent{}, err
	}
	return intent, nil
}

// FailPayment marks a created intent failed and returns its booking to
// pending so the guest can start over and the dates are released.
func (s *Store) FailPayment(ctx context.Context, intentID string) (intent models.PaymentIntent, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.PaymentIntent{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		UPDATE payment_intents
		SET status = $2
		WHERE intent_id = $1 AND status = $3
		RETURNING `+intentColumns+`
	`, intentID, models.IntentFailed, models.IntentCreated)
	if intent, err = scanIntent(row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrInvalidState
		}
		return models.PaymentIntent{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE booking_id = $1 AND status = $3 AND payment_intent_id = $4
	`, intent.BookingID, models.BookingPending, models.BookingAwaitingPayment, intentID)
	if err != nil {
		return models.PaymentIntent{}, err
	}
	if tag.RowsAffected() == 0 {
		err = store.ErrInvalidState
		return models.PaymentIntent{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.PaymentIntent{}, err
	}
	return intent, nil
}
