// Package notify sends booking confirmations to guests once a payment has
// been confirmed.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/store"
)

const confirmationTemplate = "Hi {guest_name}, your stay at {listing_title} from {check_in} to {check_out} is confirmed. " +
	"Total paid: {amount} {currency}. Booking reference: {booking_id}."

type Config struct {
	BatchSize   int
	MaxAttempts int
}

type Worker struct {
	store       store.NotificationStore
	provider    Provider
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

func New(st store.NotificationStore, provider Provider, cfg Config, logger *slog.Logger) *Worker {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:       st,
		provider:    provider,
		batchSize:   batch,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Run processes one batch. Provider failures are recorded on the booking and
// do not stop the batch; store failures do.
func (w *Worker) Run(ctx context.Context) error {
	notices, err := w.store.ListPendingNotifications(ctx, w.maxAttempts, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending notifications: %w", err)
	}
	for _, notice := range notices {
		if err := w.process(ctx, notice); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) process(ctx context.Context, notice models.BookingNotice) error {
	message := renderTemplate(confirmationTemplate, noticeVars(notice))
	if sendErr := w.provider.Send(ctx, message, notice.GuestEmail); sendErr != nil {
		attempts, err := w.store.RecordNotificationFailure(ctx, notice.BookingID, sendErr.Error())
		if err != nil {
			return fmt.Errorf("record notification failure: %w", err)
		}
		level := slog.LevelWarn
		if attempts >= w.maxAttempts {
			level = slog.LevelError
		}
		w.logger.Log(ctx, level, "booking confirmation not sent",
			"booking_id", notice.BookingID,
			"attempts", attempts,
			"max_attempts", w.maxAttempts,
			"error", sendErr,
		)
		return nil
	}
	if err := w.store.MarkNotified(ctx, notice.BookingID, w.now().UTC()); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	w.logger.InfoContext(ctx, "booking confirmation sent", "booking_id", notice.BookingID)
	return nil
}

func noticeVars(n models.BookingNotice) map[string]string {
	return map[string]string{
		"booking_id":    n.BookingID,
		"guest_name":    n.GuestName,
		"listing_title": n.ListingTitle,
		"check_in":      n.CheckIn.Format("2006-01-02"),
		"check_out":     n.CheckOut.Format("2006-01-02"),
		"amount":        formatAmount(n.TotalAmount),
		"currency":      strings.ToUpper(n.Currency),
	}
}

// renderTemplate replaces {name} placeholders. Unknown placeholders are left
// as they are.
func renderTemplate(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// formatAmount renders minor units with two decimals.
func formatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

func Start(ctx context.Context, interval time.Duration, w *Worker) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "notification worker error", "error", err)
			}
		}
	}
}
