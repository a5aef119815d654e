// Package redelivery は未送信の予約通知を定期的に再配信するバックグラウンド処理を提供する。
// スケジューラ、配信結果の記録、リトライ/バックオフ戦略を含む。
package redelivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// defaultInterval はStartに0以下の間隔が渡された場合の実行間隔。
const defaultInterval = time.Minute

// Options は再配信対象の抽出条件と並列度。
type Options struct {
	Grace          time.Duration // pendingの予約を対象にするまでの猶予
	MaxAttempts    int
	Lease          time.Duration // 取得した予約を他ワーカーから隠す期間
	BatchSize      int
	MaxConcurrency int
}

// Scheduler は再配信対象の予約を定期的に取得し、並列数を制限しながら配信する。
type Scheduler struct {
	bookingRepo repository.BookingRepository
	handler     notify.JobHandler
	logger      *slog.Logger
	opts        Options
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// 未設定のオプションはデフォルト値（猶予5分、最大5回、リース10分、100件、並列数4）を使う。
func NewScheduler(
	bookingRepo repository.BookingRepository,
	handler notify.JobHandler,
	logger *slog.Logger,
	opts Options,
) *Scheduler {
	if opts.Grace <= 0 {
		opts.Grace = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Lease <= 0 {
		opts.Lease = 10 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &Scheduler{
		bookingRepo: bookingRepo,
		handler:     handler,
		logger:      logger,
		opts:        opts,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
// intervalが0以下の場合はdefaultIntervalを使用する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("再配信スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.opts.MaxConcurrency),
	)

	// 起動直後に1回実行
	s.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("再配信スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("再配信サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// RunOnce は再配信対象の予約を1回取得し、並列で配信する。
// 個別の配信失敗は配信結果として記録され、RunOnceのエラーにはならない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	bookings, err := s.bookingRepo.ClaimDueNotifications(ctx, repository.DueNotificationQuery{
		Grace:       s.opts.Grace,
		MaxAttempts: s.opts.MaxAttempts,
		Lease:       s.opts.Lease,
		Limit:       s.opts.BatchSize,
	})
	if err != nil {
		return err
	}

	if len(bookings) == 0 {
		s.logger.Debug("再配信対象の予約はありません")
		return nil
	}

	s.logger.Info("再配信サイクルを開始します",
		slog.Int("booking_count", len(bookings)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.opts.MaxConcurrency)
	var wg sync.WaitGroup

	for _, booking := range bookings {
		wg.Add(1)
		sem <- struct{}{}

		go func(b *model.Booking) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.handler.Deliver(ctx, notify.NewBookingJob(b)); err != nil {
				s.logger.Warn("予約通知の再配信に失敗しました",
					slog.String("booking_id", b.ID),
					slog.Int("attempt", b.NotificationAttempts+1),
					slog.String("error", err.Error()),
				)
			}
		}(booking)
	}

	wg.Wait()

	s.logger.Info("再配信サイクルが完了しました",
		slog.Int("booking_count", len(bookings)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
