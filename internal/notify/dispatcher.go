package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/aircnc/internal/metrics"
)

// ErrNoRecipient は宛先が空の場合のエラー。
var ErrNoRecipient = errors.New("no recipient")

// StatusRecorder は配信結果を予約の通知状態に反映する。
type StatusRecorder interface {
	// RecordDelivery はjobの配信結果を記録する。sendErrがnilなら成功。
	RecordDelivery(ctx context.Context, job Job, sendErr error) error
}

// Dispatcher はメールの組み立てと送信を行い、結果をログ・メトリクス・通知状態に反映する。
type Dispatcher struct {
	composer    *Composer
	mailer      Mailer
	recorder    StatusRecorder
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	sendTimeout time.Duration
}

// DispatcherOption はDispatcherの任意設定。
type DispatcherOption func(*Dispatcher)

// WithStatusRecorder は配信結果の記録先を設定する。
func WithStatusRecorder(r StatusRecorder) DispatcherOption {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(mc metrics.MetricsCollector) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = mc }
}

// WithSendTimeout は1通あたりの送信タイムアウトを設定する。
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.sendTimeout = timeout }
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
func NewDispatcher(mailer Mailer, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		composer: NewComposer(),
		mailer:   mailer,
		metrics:  metrics.Nop{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendMail はrecipient宛てに件名と本文のHTMLメールを1通送信する。
// 結果はログとメトリクスに記録され、呼び出し元には送信エラーのみ返す。
func (d *Dispatcher) SendMail(ctx context.Context, data EmailData, recipient string) error {
	if strings.TrimSpace(recipient) == "" {
		d.metrics.RecordNotification(metrics.ResultFailure)
		d.logger.Warn("宛先が空のためメールを送信しませんでした",
			slog.String("subject", data.Subject),
		)
		return ErrNoRecipient
	}

	msg := d.composer.Compose(data, recipient)

	if d.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.sendTimeout)
		defer cancel()
	}

	start := time.Now()
	err := d.mailer.Send(ctx, msg)
	d.metrics.RecordNotificationLatency(time.Since(start))

	if err != nil {
		d.metrics.RecordNotification(metrics.ResultFailure)
		d.logger.Error("メール送信に失敗しました",
			slog.String("recipient", msg.To),
			slog.String("subject", msg.Subject),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("send mail: %w", err)
	}

	d.metrics.RecordNotification(metrics.ResultSuccess)
	d.logger.Info("メールを送信しました",
		slog.String("recipient", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// Deliver はjobを送信し、StatusRecorderが設定されていれば結果を記録する。
// 記録の失敗はログのみで、送信結果を返す。
func (d *Dispatcher) Deliver(ctx context.Context, job Job) error {
	sendErr := d.SendMail(ctx, EmailData{Subject: job.Subject, Message: job.Message}, job.Recipient)

	if d.recorder != nil {
		if err := d.recorder.RecordDelivery(ctx, job, sendErr); err != nil {
			d.logger.Error("通知状態の記録に失敗しました",
				slog.String("booking_id", job.BookingID),
				slog.String("error", err.Error()),
			)
		}
	}
	return sendErr
}
