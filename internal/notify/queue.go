package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/aircnc/internal/model"
)

// BookingSubject は予約完了メールの件名。
const BookingSubject = "Booking successful!"

var (
	// ErrQueueFull はキューが満杯でジョブを受け付けられない場合のエラー。
	ErrQueueFull = errors.New("notification queue is full")
	// ErrQueueClosed はClose後にEnqueueされた場合のエラー。
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Job は予約1件分の通知ジョブ。
type Job struct {
	BookingID string `json:"bookingId"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Attempt   int    `json:"attempt"` // これまでの試行回数
}

// NewBookingJob は予約の宛先と採番済みIDから予約完了通知のジョブを生成する。
func NewBookingJob(b *model.Booking) Job {
	return Job{
		BookingID: b.ID,
		Recipient: b.GuestEmail,
		Subject:   BookingSubject,
		Message:   "Booking Id: " + b.ID,
		Attempt:   b.NotificationAttempts,
	}
}

// Queue は通知ジョブの投入先。
// Enqueueは配信完了を待たずに返る。
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// JobHandler はキューから取り出したジョブを処理する。
type JobHandler interface {
	Deliver(ctx context.Context, job Job) error
}

// AsyncQueue はプロセス内の有界チャネルと固定数のワーカーによるQueue実装。
// 配信はリクエストのコンテキストから切り離して実行する。
type AsyncQueue struct {
	jobs    chan Job
	handler JobHandler
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewAsyncQueue はAsyncQueueを生成し、workers個のワーカーを起動する。
// workersまたはsizeが0以下の場合はそれぞれ1を使う。
func NewAsyncQueue(handler JobHandler, workers, size int, logger *slog.Logger) *AsyncQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &AsyncQueue{
		jobs:    make(chan Job, size),
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

func (q *AsyncQueue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		// 送信失敗はDispatcher側でログ・記録済み
		_ = q.handler.Deliver(q.ctx, job)
	}
}

// Enqueue はジョブを投入する。ブロックせず、満杯ならErrQueueFullを返す。
func (q *AsyncQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close は新規投入を止め、投入済みジョブの処理完了を待つ。
// ctxが先に終了した場合は処理中の送信をキャンセルしてctxのエラーを返す。
func (q *AsyncQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		q.logger.Warn("通知キューの停止がタイムアウトしました",
			slog.Int("remaining", len(q.jobs)),
		)
		return ctx.Err()
	}
}
