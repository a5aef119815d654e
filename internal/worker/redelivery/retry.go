package redelivery

import (
	"time"

	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

const (
	// initialBackoff は指数バックオフの初回遅延（1分）。
	initialBackoff = time.Minute
	// maxBackoff は指数バックオフの最大遅延（1時間）。
	maxBackoff = time.Hour
	// maxErrorLength は記録するエラーメッセージの最大バイト数。
	maxErrorLength = 1000
)

// CalculateBackoff は連続失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回1分、2倍ずつ増加、最大1時間。
func CalculateBackoff(consecutiveFailures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveFailures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// Outcome は1回の配信試行の結果から記録する通知状態を決める。
// 成功ならsent、失敗して試行回数がmaxAttemptsに達したらabandoned、
// それ以外はfailedとしてバックオフ後の次回試行時刻を設定する。
func Outcome(job notify.Job, sendErr error, maxAttempts int, now time.Time) repository.NotificationResult {
	if sendErr == nil {
		return repository.NotificationResult{Status: model.NotificationSent, At: now}
	}

	msg := sendErr.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}

	attempts := job.Attempt + 1
	if attempts >= maxAttempts {
		return repository.NotificationResult{Status: model.NotificationAbandoned, Error: msg, At: now}
	}

	next := now.Add(CalculateBackoff(attempts - 1))
	return repository.NotificationResult{
		Status:        model.NotificationFailed,
		Error:         msg,
		NextAttemptAt: &next,
		At:            now,
	}
}
