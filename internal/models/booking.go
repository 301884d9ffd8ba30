package models

import "time"

type Booking struct {
	BookingID       string    `json:"id"`
	UserID          string    `json:"user_id"`
	ListingID       string    `json:"listing_id"`
	CheckIn         time.Time `json:"check_in"`
	CheckOut        time.Time `json:"check_out"`
	Guests          int       `json:"guests"`
	TotalAmount     int64     `json:"total_amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Booking statuses double as the payment lifecycle: pending has no intent,
// awaiting_payment has a created intent, paid has a confirmed one.
const (
	BookingPending         = "pending"
	BookingAwaitingPayment = "awaiting_payment"
	BookingPaid            = "paid"
	BookingCancelled       = "cancelled"
)

type PaymentIntent struct {
	IntentID     string     `json:"id"`
	BookingID    string     `json:"booking_id"`
	UserID       string     `json:"user_id"`
	Amount       int64      `json:"amount"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	ClientSecret string     `json:"client_secret,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

const (
	IntentCreated   = "created"
	IntentConfirmed = "confirmed"
	IntentFailed    = "failed"
)

// MaxNights is the longest stay a single booking may cover.
const MaxNights = 365

// Nights counts calendar days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int64 {
	n := dayNumber(checkOut) - dayNumber(checkIn)
	if n < 0 {
		return 0
	}
	return n
}

func dayNumber(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// BookingNotice is a paid booking whose guest has not been sent a
// confirmation yet.
type BookingNotice struct {
	BookingID    string
	ListingTitle string
	GuestName    string
	GuestEmail   string
	CheckIn      time.Time
	CheckOut     time.Time
	TotalAmount  int64
	Currency     string
	Attempts     int
}
