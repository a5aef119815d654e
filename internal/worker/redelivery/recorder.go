package redelivery

import (
	"context"
	"time"

	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// Recorder は配信結果を予約の通知状態として永続化するnotify.StatusRecorder実装。
type Recorder struct {
	repo        repository.BookingRepository
	maxAttempts int
	now         func() time.Time
}

// NewRecorder はRecorderを生成する。maxAttemptsが0以下の場合は5を使う。
func NewRecorder(repo repository.BookingRepository, maxAttempts int) *Recorder {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Recorder{repo: repo, maxAttempts: maxAttempts, now: time.Now}
}

// RecordDelivery は配信結果を記録する。
func (r *Recorder) RecordDelivery(ctx context.Context, job notify.Job, sendErr error) error {
	return r.repo.RecordNotification(ctx, job.BookingID, Outcome(job, sendErr, r.maxAttempts, r.now()))
}

var _ notify.StatusRecorder = (*Recorder)(nil)
