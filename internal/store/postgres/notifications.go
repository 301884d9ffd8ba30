package postgres

import (
	"context"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/store"
)

var _ store.NotificationStore = (*Store)(nil)

func (s *Store) ListPendingNotifications(ctx context.Context, maxAttempts, limit int) ([]models.BookingNotice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT b.booking_id, l.title, u.name, u.email, b.check_in, b.check_out, b.total_amount, b.currency, b.notify_attempts
		FROM bookings b
		JOIN users u ON u.user_id = b.user_id
		JOIN listings l ON l.listing_id = b.listing_id
		WHERE b.status = $1
		  AND b.notified_at IS NULL
		  AND b.notify_attempts < $2
		ORDER BY b.created_at
		LIMIT $3
	`, models.BookingPaid, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notices := []models.BookingNotice{}
	for rows.Next() {
		var n models.BookingNotice
		if err := rows.Scan(&n.BookingID, &n.ListingTitle, &n.GuestName, &n.GuestEmail, &n.CheckIn, &n.CheckOut, &n.TotalAmount, &n.Currency, &n.Attempts); err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notices, nil
}

func (s *Store) MarkNotified(ctx context.Context, bookingID string, sentAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET notified_at = $2, notify_attempts = notify_attempts + 1, notify_error = NULL
		WHERE booking_id = $1
	`, bookingID, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) RecordNotificationFailure(ctx context.Context, bookingID, reason string) (int, error) {
	var attempts int
	row := s.pool.QueryRow(ctx, `
		UPDATE bookings
		SET notify_attempts = notify_attempts + 1, notify_error = $2
		WHERE booking_id = $1
		RETURNING notify_attempts
	`, bookingID, reason)
	if err := row.Scan(&attempts); err != nil {
		return 0, notFound(err)
	}
	return attempts, nil
}
