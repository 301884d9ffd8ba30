package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"travelbook/internal/apperr"
	"travelbook/internal/auth"
	"travelbook/internal/dispatch"
	"travelbook/internal/envelope"
	"travelbook/internal/payment"
	"travelbook/internal/store"
	"travelbook/internal/token"
)

type Deps struct {
	Store      store.Store
	Tokens     *token.Service
	Payments   *payment.Service
	Dispatcher *dispatch.Dispatcher
	Metrics    *Metrics
	Currency   string
	// Now defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	store      store.Store
	tokens     *token.Service
	guard      *auth.Guard
	payments   *payment.Service
	dispatcher *dispatch.Dispatcher
	metrics    *Metrics
	currency   string
	now        func() time.Time
}

func NewHandler(deps Deps) *Handler {
	currency := deps.Currency
	if currency == "" {
		currency = "usd"
	}
	d := deps.Dispatcher
	if d == nil {
		d = dispatch.New(nil)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		now:        now,
		store:      deps.Store,
		tokens:     deps.Tokens,
		guard:      auth.NewGuard(deps.Tokens),
		payments:   deps.Payments,
		dispatcher: d,
		metrics:    deps.Metrics,
		currency:   currency,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", h.handle(http.MethodGet, h.handleHealth))
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}

	mux.Handle("/api/auth/register", h.handle(http.MethodPost, h.handleRegister))
	mux.Handle("/api/auth/login", h.handle(http.MethodPost, h.handleLogin))
	mux.Handle("/api/auth/me", h.handle(http.MethodGet, h.guard.Authenticated(h.handleMe)))

	mux.Handle("/api/listings", h.handle(http.MethodGet, h.handleListings))
	mux.Handle("/api/listings/", h.handle(http.MethodGet, h.handleListing))
	mux.Handle("/api/wishlist", h.handle(http.MethodGet, h.guard.Authenticated(h.handleWishlist)))
	mux.Handle("/api/wishlist/toggle", h.handle(http.MethodPost, h.guard.Authenticated(h.handleWishlistToggle)))
	mux.Handle("/api/contact", h.handle(http.MethodPost, h.handleContact))

	mux.Handle("/api/bookings", h.handle(http.MethodPost, h.guard.Authenticated(h.handleCreateBooking)))

	mux.Handle("/api/payments/create-intent", h.handle(http.MethodPost, h.guard.Authenticated(h.handleCreateIntent)))
	mux.Handle("/api/payments/confirm", h.handle(http.MethodPost, h.guard.Authenticated(h.handleConfirmIntent)))
	return mux
}

// handle rejects other methods before fn runs, so an unauthenticated
// request with the wrong method gets a 405 rather than a 401.
func (h *Handler) handle(method string, fn dispatch.HandlerFunc) http.Handler {
	return h.dispatcher.Wrap(func(r *http.Request) (envelope.Response, error) {
		if r.Method != method {
			return envelope.Response{}, apperr.MethodNotAllowed()
		}
		return fn(r)
	})
}

func (h *Handler) handleHealth(r *http.Request) (envelope.Response, error) {
	if err := h.store.Ping(r.Context()); err != nil {
		return envelope.Response{}, fmt.Errorf("ping database: %w", err)
	}
	return envelope.Build(http.StatusOK, "ok", nil), nil
}
