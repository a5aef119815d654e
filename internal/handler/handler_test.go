package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/aircnc/internal/booking"
	"github.com/hitoshi/aircnc/internal/identity"
	"github.com/hitoshi/aircnc/internal/listing"
	"github.com/hitoshi/aircnc/internal/middleware"
	"github.com/hitoshi/aircnc/internal/model"
)

// --- モック定義 ---

type mockUserService struct {
	upsertFunc func(ctx context.Context, email string, profile map[string]any) (*identity.UpsertResult, error)
	getFunc    func(ctx context.Context, email string) (*model.User, error)
	listFunc   func(ctx context.Context) ([]*model.User, error)
}

func (m *mockUserService) Upsert(ctx context.Context, email string, profile map[string]any) (*identity.UpsertResult, error) {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, email, profile)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Get(ctx context.Context, email string) (*model.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

type mockHomeService struct {
	createFunc func(ctx context.Context, in listing.HomeInput) (*model.Home, error)
	getFunc    func(ctx context.Context, id string) (*model.Home, error)
	listFunc   func(ctx context.Context) ([]*model.Home, error)
	searchFunc func(ctx context.Context, location string) ([]*model.Home, error)
}

func (m *mockHomeService) Create(ctx context.Context, in listing.HomeInput) (*model.Home, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockHomeService) Get(ctx context.Context, id string) (*model.Home, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockHomeService) List(ctx context.Context) ([]*model.Home, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockHomeService) Search(ctx context.Context, location string) ([]*model.Home, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, location)
	}
	return nil, nil
}

type mockBookingService struct {
	createBookingFunc func(ctx context.Context, in booking.BookingInput) (*booking.CreateResult, error)
	listBookingsFunc  func(ctx context.Context, email string) ([]*model.Booking, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, in booking.BookingInput) (*booking.CreateResult, error) {
	if m.createBookingFunc != nil {
		return m.createBookingFunc(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockBookingService) ListBookings(ctx context.Context, email string) ([]*model.Booking, error) {
	if m.listBookingsFunc != nil {
		return m.listBookingsFunc(ctx, email)
	}
	return nil, nil
}

type mockPaymentService struct {
	createPaymentIntentFunc func(ctx context.Context, price string) (*model.PaymentAuthorization, error)
}

func (m *mockPaymentService) CreatePaymentIntent(ctx context.Context, price string) (*model.PaymentAuthorization, error) {
	if m.createPaymentIntentFunc != nil {
		return m.createPaymentIntentFunc(ctx, price)
	}
	return nil, errors.New("not implemented")
}

type mockHealthChecker struct {
	pingFunc func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// --- テストヘルパー ---

// newTestDeps は全サービスを空のモックで埋めたRouterDepsを返す。
func newTestDeps(t *testing.T) *RouterDeps {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)
	return &RouterDeps{
		CORSAllowedOrigin: "*",
		RateLimiter:       rl,
		HealthChecker:     &mockHealthChecker{},
		UserService:       &mockUserService{},
		HomeService:       &mockHomeService{},
		BookingService:    &mockBookingService{},
		PaymentService:    &mockPaymentService{},
	}
}

// serve はルーター経由でリクエストを処理する。
func serve(t *testing.T, deps *RouterDeps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	NewRouter(deps).ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v\nraw: %s", err, w.Body.String())
	}
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	decodeBody(t, w, &result)
	return result
}
