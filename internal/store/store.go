package store

import (
	"context"
	"time"

	"travelbook/internal/models"
)

type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

type CreateBookingInput struct {
	UserID    string
	ListingID string
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Currency  string
}

type UserStore interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
}

type ListingStore interface {
	ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error)
	GetListing(ctx context.Context, listingID string) (models.Listing, error)
}

type WishlistStore interface {
	// ToggleWishlist reports whether the listing is in the wishlist afterwards.
	ToggleWishlist(ctx context.Context, userID, listingID string) (bool, error)
	ListWishlist(ctx context.Context, userID string) ([]models.Listing, error)
}

type BookingStore interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (models.Booking, error)
}

type PaymentStore interface {
	GetBooking(ctx context.Context, bookingID string) (models.Booking, error)
	GetPaymentIntent(ctx context.Context, intentID string) (models.PaymentIntent, error)
	// SavePaymentIntent moves the booking from pending to awaiting_payment.
	SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) error
	// ConfirmPayment moves the booking from awaiting_payment to paid.
	ConfirmPayment(ctx context.Context, intentID string, confirmedAt time.Time) (models.PaymentIntent, error)
	// FailPayment marks a created intent failed and returns the booking to
	// pending.
	FailPayment(ctx context.Context, intentID string) (models.PaymentIntent, error)
}

type ContactStore interface {
	CreateContactMessage(ctx context.Context, msg models.ContactMessage) (models.ContactMessage, error)
}

// NotificationStore backs the booking confirmation worker.
type NotificationStore interface {
	ListPendingNotifications(ctx context.Context, maxAttempts, limit int) ([]models.BookingNotice, error)
	MarkNotified(ctx context.Context, bookingID string, sentAt time.Time) error
	// RecordNotificationFailure returns the attempt count after the failure.
	RecordNotificationFailure(ctx context.Context, bookingID, reason string) (int, error)
}

type Store interface {
	UserStore
	ListingStore
	WishlistStore
	BookingStore
	PaymentStore
	ContactStore
	Ping(ctx context.Context) error
}
