package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/middleware"
)

// HealthChecker はヘルスチェックでデータベース疎通を確認するためのインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ドメインサービス
	UserService    UserServiceInterface
	HomeService    HomeServiceInterface
	BookingService BookingServiceInterface
	PaymentService PaymentServiceInterface

	// PaymentIntentStrict がtrueの場合、決済ゲートウェイ失敗を502で返す
	PaymentIntentStrict bool
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → RateLimit(GeneralMiddleware)
//
// 運用エンドポイント（/, /health, /metrics）はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	userHandler := NewUserHandler(deps.UserService)
	homeHandler := NewHomeHandler(deps.HomeService)
	bookingHandler := NewBookingHandler(deps.BookingService)
	paymentHandler := NewPaymentHandler(deps.PaymentService, deps.PaymentIntentStrict)

	// --- 運用エンドポイント ---
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Server is running..."))
	})
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Get("/{email}", userHandler.Get)
			r.Put("/{email}", userHandler.Upsert)
		})

		r.Route("/homes", func(r chi.Router) {
			r.Get("/", homeHandler.List)
			r.Post("/", homeHandler.Create)
			r.Get("/{id}", homeHandler.Get)
		})
		r.Get("/search-result", homeHandler.Search)

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", bookingHandler.List)
			r.Post("/", bookingHandler.Create)
		})

		// 決済承認は専用レート制限を追加
		r.With(deps.RateLimiter.PaymentMiddleware()).Post("/create-payment-intent", paymentHandler.CreateIntent)
	})

	return r
}

// healthHandler はDB疎通を確認し、結果をJSONで返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := checker.PingContext(ctx); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
