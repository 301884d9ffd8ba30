package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"travelbook/internal/dispatch"
	"travelbook/internal/models"
	"travelbook/internal/payment"
	"travelbook/internal/store"
	"travelbook/internal/token"
)

const testSecret = "handler-test-secret-with-plenty-of-length"

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]models.User
	listings map[string]models.Listing
	wishlist map[string]bool
	bookings map[string]models.Booking
	intents  map[string]models.PaymentIntent
	contacts []models.ContactMessage

	pingErr       error
	bookingReads  int
	createBooking func(ctx context.Context, input store.CreateBookingInput) (models.Booking, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]models.User{},
		listings: map[string]models.Listing{},
		wishlist: map[string]bool{},
		bookings: map[string]models.Booking{},
		intents:  map[string]models.PaymentIntent{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == input.Email {
			return models.User{}, store.ErrEmailTaken
		}
	}
	user := models.User{
		UserID: "user-" + input.Email, Name: input.Name, Email: input.Email,
		Role: input.Role, PasswordHash: input.PasswordHash, Created: time.Now().UTC(),
	}
	f.users[user.UserID] = user
	return user, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Listing{}
	for _, l := range f.listings {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeStore) GetListing(ctx context.Context, listingID string) (models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[listingID]
	if !ok {
		return models.Listing{}, store.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) ToggleWishlist(ctx context.Context, userID, listingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.listings[listingID]; !ok {
		return false, store.ErrNotFound
	}
	key := userID + "/" + listingID
	if f.wishlist[key] {
		delete(f.wishlist, key)
		return false, nil
	}
	f.wishlist[key] = true
	return true, nil
}

func (f *fakeStore) ListWishlist(ctx context.Context, userID string) ([]models.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Listing{}
	for id, l := range f.listings {
		if f.wishlist[userID+"/"+id] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
	if f.createBooking != nil {
		return f.createBooking(ctx, input)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.listings[input.ListingID]
	if !ok {
		return models.Booking{}, store.ErrNotFound
	}
	b := models.Booking{
		BookingID: "booking-1", UserID: input.UserID, ListingID: input.ListingID,
		CheckIn: input.CheckIn, CheckOut: input.CheckOut, Guests: input.Guests,
		TotalAmount: l.PricePerNight * models.Nights(input.CheckIn, input.CheckOut),
		Currency:    input.Currency, Status: models.BookingPending,
	}
	f.bookings[b.BookingID] = b
	return b, nil
}

func (f *fakeStore) GetBooking(ctx context.Context, bookingID string) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookingReads++
	b, ok := f.bookings[bookingID]
	if !ok {
		return models.Booking{}, store.ErrNotFound
	}
	return b, nil
}

func (f *fakeStore) GetPaymentIntent(ctx context.Context, intentID string) (models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.intents[intentID]
	if !ok {
		return models.PaymentIntent{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) SavePaymentIntent(ctx context.Context, intent models.PaymentIntent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[intent.BookingID]
	if b.Status != models.BookingPending {
		return store.ErrInvalidState
	}
	b.Status = models.BookingAwaitingPayment
	b.PaymentIntentID = &intent.IntentID
	f.bookings[b.BookingID] = b
	f.intents[intent.IntentID] = intent
	return nil
}

func (f *fakeStore) ConfirmPayment(ctx context.Context, intentID string, confirmedAt time.Time) (models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.intents[intentID]
	b := f.bookings[p.BookingID]
	if p.Status != models.IntentCreated || b.Status != models.BookingAwaitingPayment {
		return models.PaymentIntent{}, store.ErrInvalidState
	}
	p.Status = models.IntentConfirmed
	p.ConfirmedAt = &confirmedAt
	b.Status = models.BookingPaid
	f.intents[intentID] = p
	f.bookings[b.BookingID] = b
	return p, nil
}

func (f *fakeStore) FailPayment(ctx context.Context, intentID string) (models.PaymentIntent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.intents[intentID]
	b := f.bookings[p.BookingID]
	if p.Status != models.IntentCreated || b.Status != models.BookingAwaitingPayment {
		return models.PaymentIntent{}, store.ErrInvalidState
	}
	p.Status = models.IntentFailed
	b.Status = models.BookingPending
	f.intents[intentID] = p
	f.bookings[b.BookingID] = b
	return p, nil
}

func (f *fakeStore) CreateContactMessage(ctx context.Context, msg models.ContactMessage) (models.ContactMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.MessageID = "msg-1"
	f.contacts = append(f.contacts, msg)
	return msg, nil
}

var testNow = time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *fakeStore
	tokens  *token.Service
	handler http.Handler
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := newFakeStore()
	tokens := token.NewService(token.Config{Secret: testSecret, Issuer: "travelbook"}, logger)
	h := NewHandler(Deps{
		Store:      st,
		Tokens:     tokens,
		Payments:   payment.NewService(st, payment.NewSandboxGateway(), logger),
		Dispatcher: dispatch.New(logger),
		Metrics:    NewMetrics(),
		Now:        func() time.Time { return testNow },
	})
	return &testEnv{store: st, tokens: tokens, handler: h.Routes()}
}

func (e *testEnv) tokenFor(userID string) string {
	raw, err := e.tokens.Issue(token.Claims{UserID: userID})
	if err != nil {
		panic(err)
	}
	return raw
}

type envelopeBody struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, payload any) (*httptest.ResponseRecorder, envelopeBody) {
	t.Helper()
	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(p)
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)

	var env envelopeBody
	if path != "/metrics" {
		if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not an envelope: %v (%s)", err, resp.Body.String())
		}
	}
	return resp, env
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv()
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/wishlist"},
		{http.MethodPost, "/api/wishlist/toggle"},
		{http.MethodPost, "/api/bookings"},
		{http.MethodPost, "/api/payments/create-intent"},
		{http.MethodPost, "/api/payments/confirm"},
	}
	for _, rt := range routes {
		for _, bearer := range []string{"", "forged.token.value"} {
			resp, body := env.do(t, rt.method, rt.path, bearer, `{"bookingId":"b1"}`)
			if resp.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s: expected 401, got %d", rt.method, rt.path, resp.Code)
			}
			if body.Success || body.Message != "Unauthorized" || string(body.Data) != "null" {
				t.Fatalf("%s %s: unexpected body %s", rt.method, rt.path, resp.Body.String())
			}
		}
	}
	if env.store.bookingReads != 0 {
		t.Fatalf("store touched by unauthenticated requests")
	}
}

func TestPaymentValidationRunsBeforeStore(t *testing.T) {
	env := newTestEnv()
	bearer := env.tokenFor("user-1")

	cases := []struct {
		path    string
		payload string
		message string
	}{
		{"/api/payments/create-intent", `{}`, payment.MsgBookingIDRequired},
		{"/api/payments/create-intent", `{"bookingId":""}`, payment.MsgBookingIDRequired},
		{"/api/payments/create-intent", `{"bookingId":null}`, payment.MsgBookingIDRequired},
		{"/api/payments/create-intent", `not json`, payment.MsgBookingIDRequired},
		{"/api/payments/confirm", `{}`, payment.MsgPaymentIntentIDRequired},
		{"/api/payments/confirm", `{"paymentIntentId":""}`, payment.MsgPaymentIntentIDRequired},
		{"/api/payments/confirm", `{"bookingId":"b1"}`, payment.MsgPaymentIntentIDRequired},
	}
	for _, tt := range cases {
		resp, body := env.do(t, http.MethodPost, tt.path, bearer, tt.payload)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: expected 400, got %d", tt.path, tt.payload, resp.Code)
		}
		if body.Success || body.Message != tt.message {
			t.Fatalf("%s %s: unexpected body %s", tt.path, tt.payload, resp.Body.String())
		}
	}
	if env.store.bookingReads != 0 {
		t.Fatalf("store read %d times for invalid payloads", env.store.bookingReads)
	}
}

func TestBookingAndPaymentFlow(t *testing.T) {
	env := newTestEnv()
	env.store.listings["l-1"] = models.Listing{ListingID: "l-1", Title: "Cabin", PricePerNight: 15000}
	bearer := env.tokenFor("user-1")

	resp, body := env.do(t, http.MethodPost, "/api/bookings", bearer, map[string]any{
		"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "2026-07-04", "guests": 2,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var booking models.Booking
	if err := json.Unmarshal(body.Data, &booking); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if booking.TotalAmount != 45000 || booking.Currency != "usd" || booking.Status != models.BookingPending {
		t.Fatalf("unexpected booking %+v", booking)
	}

	resp, body = env.do(t, http.MethodPost, "/api/payments/create-intent", bearer, map[string]string{"bookingId": booking.BookingID})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create intent: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var intent models.PaymentIntent
	if err := json.Unmarshal(body.Data, &intent); err != nil {
		t.Fatalf("decode intent: %v", err)
	}
	if intent.Amount != 45000 || intent.Status != models.IntentCreated {
		t.Fatalf("unexpected intent %+v", intent)
	}

	other := env.tokenFor("user-2")
	resp, _ = env.do(t, http.MethodPost, "/api/payments/confirm", other, map[string]string{"paymentIntentId": intent.IntentID})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign confirm: expected 403, got %d", resp.Code)
	}

	resp, body = env.do(t, http.MethodPost, "/api/payments/confirm", bearer, map[string]string{"paymentIntentId": intent.IntentID})
	if resp.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	if body.Message != "Payment confirmed" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if got := env.store.bookings[booking.BookingID].Status; got != models.BookingPaid {
		t.Fatalf("expected booking paid, got %s", got)
	}
}

func TestCreateBookingRejections(t *testing.T) {
	env := newTestEnv()
	env.store.listings["l-1"] = models.Listing{ListingID: "l-1", PricePerNight: 100}
	bearer := env.tokenFor("user-1")

	cases := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"checkout before checkin", map[string]any{"listingId": "l-1", "checkIn": "2026-07-04", "checkOut": "2026-07-01", "guests": 1}, http.StatusBadRequest},
		{"bad date", map[string]any{"listingId": "l-1", "checkIn": "July 1", "checkOut": "2026-07-04", "guests": 1}, http.StatusBadRequest},
		{"no guests", map[string]any{"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "2026-07-04"}, http.StatusBadRequest},
		{"unknown listing", map[string]any{"listingId": "nope", "checkIn": "2026-07-01", "checkOut": "2026-07-04", "guests": 1}, http.StatusNotFound},
		{"check-in in the past", map[string]any{"listingId": "l-1", "checkIn": "2026-05-31", "checkOut": "2026-06-02", "guests": 1}, http.StatusBadRequest},
		{"stay too long", map[string]any{"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "2027-07-02", "guests": 1}, http.StatusBadRequest},
		{"far future stay", map[string]any{"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "9999-12-31", "guests": 1}, http.StatusBadRequest},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, http.MethodPost, "/api/bookings", bearer, tt.payload)
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, resp.Code, resp.Body.String())
			}
		})
	}

	env.store.createBooking = func(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
		return models.Booking{}, store.ErrDatesConflict
	}
	resp, _ := env.do(t, http.MethodPost, "/api/bookings", bearer, map[string]any{
		"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "2026-07-04", "guests": 1,
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	env.store.createBooking = func(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
		return models.Booking{}, store.ErrInvalidStay
	}
	resp, _ = env.do(t, http.MethodPost, "/api/bookings", bearer, map[string]any{
		"listingId": "l-1", "checkIn": "2026-07-01", "checkOut": "2026-07-04", "guests": 1,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an out of range total, got %d", resp.Code)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv()

	resp, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "correct-horse",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("correct-horse")) || bytes.Contains(resp.Body.Bytes(), []byte("password")) {
		t.Fatalf("register response leaks credentials: %s", resp.Body.String())
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "correct-horse",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", resp.Code)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", resp.Code)
	}

	resp, body = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "correct-horse",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	if err := json.Unmarshal(body.Data, &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	claims, ok := env.tokens.Verify(context.Background(), login.Token)
	if !ok || claims.UserID != login.User.UserID || claims.Role != models.RoleGuest {
		t.Fatalf("issued token does not verify: %+v", claims)
	}

	resp, body = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", resp.Code)
	}
	var me models.User
	if err := json.Unmarshal(body.Data, &me); err != nil || me.Email != "ana@example.com" {
		t.Fatalf("unexpected me payload %s", string(body.Data))
	}
}

func TestRegisterValidationMessage(t *testing.T) {
	env := newTestEnv()
	resp, body := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ana", "email": "not-an-email", "password": "correct-horse",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if body.Message != "email must be a valid email address" || body.Error != "validation_error" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestWishlistToggle(t *testing.T) {
	env := newTestEnv()
	env.store.listings["l-1"] = models.Listing{ListingID: "l-1", Title: "Cabin"}
	bearer := env.tokenFor("user-1")

	for i, want := range []bool{true, false} {
		resp, body := env.do(t, http.MethodPost, "/api/wishlist/toggle", bearer, map[string]string{"listingId": "l-1"})
		if resp.Code != http.StatusOK {
			t.Fatalf("toggle %d: expected 200, got %d", i, resp.Code)
		}
		var out wishlistToggleResponse
		if err := json.Unmarshal(body.Data, &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Wishlisted != want {
			t.Fatalf("toggle %d: expected wishlisted=%v", i, want)
		}
	}

	resp, _ := env.do(t, http.MethodPost, "/api/wishlist/toggle", bearer, map[string]string{"listingId": "missing"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListingsAndContact(t *testing.T) {
	env := newTestEnv()
	env.store.listings["l-1"] = models.Listing{ListingID: "l-1", Title: "Cabin"}

	resp, body := env.do(t, http.MethodGet, "/api/listings", "", nil)
	if resp.Code != http.StatusOK || !body.Success {
		t.Fatalf("list: unexpected %d %s", resp.Code, resp.Body.String())
	}
	resp, _ = env.do(t, http.MethodGet, "/api/listings?limit=abc", "", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", resp.Code)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/listings/l-1", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.Code)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/listings/nope", "", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404, got %d", resp.Code)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/contact", "", map[string]string{
		"name": "Ana", "email": "ana@example.com", "message": "Is the cabin pet friendly?",
	})
	if resp.Code != http.StatusCreated || len(env.store.contacts) != 1 {
		t.Fatalf("contact: expected 201 and one stored message, got %d", resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv()
	resp, body := env.do(t, http.MethodGet, "/api/payments/confirm", "", nil)
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if body.Success || body.Error != "method_not_allowed" {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}

func TestHealthHidesStoreErrors(t *testing.T) {
	env := newTestEnv()
	resp, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusOK || !body.Success {
		t.Fatalf("healthy: unexpected %d", resp.Code)
	}

	env.store.pingErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")
	resp, body = env.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if body.Message != "Something went wrong" || bytes.Contains(resp.Body.Bytes(), []byte("10.0.0.5")) {
		t.Fatalf("store error leaked: %s", resp.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics()
	h := NewHandler(Deps{
		Store:    newFakeStore(),
		Tokens:   token.NewService(token.Config{Secret: testSecret}, logger),
		Metrics:  metrics,
		Payments: payment.NewService(newFakeStore(), payment.NewSandboxGateway(), logger),
	})
	routes := LoggingMiddleware(logger, metrics, h.Routes())

	routes.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	resp := httptest.NewRecorder()
	routes.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`travelbook_http_requests_total{method="GET",status="200"} 1`)) {
		t.Fatalf("request counter missing:\n%s", resp.Body.String())
	}
}
