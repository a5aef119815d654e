package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/aircnc/internal/booking"
	"github.com/hitoshi/aircnc/internal/config"
	"github.com/hitoshi/aircnc/internal/database"
	"github.com/hitoshi/aircnc/internal/handler"
	"github.com/hitoshi/aircnc/internal/identity"
	"github.com/hitoshi/aircnc/internal/listing"
	"github.com/hitoshi/aircnc/internal/logger"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/middleware"
	"github.com/hitoshi/aircnc/internal/mq"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/payment"
	"github.com/hitoshi/aircnc/internal/repository"
	"github.com/hitoshi/aircnc/internal/worker/redelivery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// shutdownTimeout はHTTPサーバーと通知キューの停止待ちの上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込んだうえで環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envと環境変数から設定を読み込む
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("notify_transport", cfg.NotifyTransport),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行い、
// 通知キューに残ったジョブを送り切ってから終了する。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	homeRepo := repository.NewPostgresHomeRepo(db)
	bookingRepo := repository.NewPostgresBookingRepo(db)

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mc := metrics.NewCollector(reg)

	// 4. ドメインサービスの初期化
	tokens, err := identity.NewTokenIssuer(cfg.AccessTokenSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}
	identityService := identity.NewService(userRepo, tokens)
	listingService := listing.NewService(homeRepo)
	paymentService := payment.NewService(payment.NewStripeGateway(cfg.StripeKey, nil), mc, slog.Default())

	queue, closeQueue, err := newNotificationQueue(cfg, bookingRepo, mc, slog.Default())
	if err != nil {
		return err
	}
	bookingService := booking.NewService(bookingRepo, queue, mc, slog.Default())

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitPayment),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           mc,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(reg),

		UserService:    identityService,
		HomeService:    listingService,
		BookingService: bookingService,
		PaymentService: paymentService,

		PaymentIntentStrict: cfg.PaymentIntentStrict,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		closeQueue(context.Background())
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	// 未送信のジョブはpendingのまま残り、ワーカーの再配信対象になる
	if err := closeQueue(ctx); err != nil {
		slog.Warn("notification queue did not drain before shutdown",
			slog.String("error", err.Error()),
		)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// queueCloser は通知キューを停止する関数。
type queueCloser func(ctx context.Context) error

// newNotificationQueue は設定されたトランスポートの通知キューを生成する。
// inprocessではプロセス内のワーカーが直接メールを送信し、
// amqpではRabbitMQに投入してワーカーモードのコンシューマーが送信する。
func newNotificationQueue(
	cfg *config.Config,
	bookingRepo repository.BookingRepository,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) (notify.Queue, queueCloser, error) {
	switch cfg.NotifyTransport {
	case config.TransportAMQP:
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.NotifyExchange)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to message broker: %w", err)
		}
		slog.Info("notification transport: amqp", slog.String("exchange", cfg.NotifyExchange))
		return pub, func(context.Context) error { return pub.Close() }, nil
	default:
		dispatcher := newDispatcher(cfg, bookingRepo, mc, logger)
		q := notify.NewAsyncQueue(dispatcher, cfg.NotifyWorkers, cfg.NotifyQueueSize, logger)
		slog.Info("notification transport: inprocess",
			slog.Int("workers", cfg.NotifyWorkers),
			slog.Int("queue_size", cfg.NotifyQueueSize),
		)
		return q, q.Close, nil
	}
}

// newDispatcher は配信結果を予約に記録するDispatcherを生成する。
func newDispatcher(
	cfg *config.Config,
	bookingRepo repository.BookingRepository,
	mc metrics.MetricsCollector,
	logger *slog.Logger,
) *notify.Dispatcher {
	return notify.NewDispatcher(newMailer(cfg, logger), logger,
		notify.WithStatusRecorder(redelivery.NewRecorder(bookingRepo, cfg.RedeliveryMaxAttempts)),
		notify.WithMetrics(mc),
		notify.WithSendTimeout(cfg.NotifySendTimeout),
	)
}

// newMailer はSMTPの認証情報があればSMTPMailerを、なければログ出力のみのMailerを返す。
func newMailer(cfg *config.Config, logger *slog.Logger) notify.Mailer {
	if !cfg.MailEnabled() {
		slog.Warn("EMAIL is not set; booking notifications will only be logged")
		return notify.NewLogMailer(logger)
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.MailUser,
		Password: cfg.MailPassword,
		Timeout:  cfg.NotifySendTimeout,
	})
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、通知の再配信スケジューラを起動する。
// amqpトランスポートではRabbitMQのコンシューマーも並行して起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. 配信の組み立て
	// ワーカーは/metricsを公開しないためメトリクスは記録しない
	bookingRepo := repository.NewPostgresBookingRepo(db)
	dispatcher := newDispatcher(cfg, bookingRepo, metrics.Nop{}, slog.Default())

	scheduler := redelivery.NewScheduler(bookingRepo, dispatcher, slog.Default(), redelivery.Options{
		Grace:       cfg.RedeliveryGrace,
		MaxAttempts: cfg.RedeliveryMaxAttempts,
	})

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// 3. RabbitMQコンシューマー
	if cfg.NotifyTransport == config.TransportAMQP {
		consumer, err := mq.NewConsumer(cfg.RabbitURL, cfg.NotifyExchange, cfg.NotifyQueue, dispatcher, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Run(ctx); err != nil {
				slog.Error("consumer stopped", slog.String("error", err.Error()))
				cancel()
			}
		}()
	}

	slog.Info("worker starting",
		slog.Duration("redelivery_interval", cfg.RedeliveryInterval),
		slog.Duration("redelivery_grace", cfg.RedeliveryGrace),
		slog.Int("max_attempts", cfg.RedeliveryMaxAttempts),
	)

	// 再配信スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.RedeliveryInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// healthcheckPort はConfigを読み込まずにサーバーポートを決定する。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
