package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/aircnc/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// prefetchCount はack前に受け取るメッセージの上限。handleは逐次処理のため小さく保つ。
const prefetchCount = 8

// errMalformedJob はデコードできない、または予約IDを欠くメッセージ。
var errMalformedJob = errors.New("malformed notification job")

// Consumer はキューから通知ジョブを受信し、JobHandlerで配信する。
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	handler notify.JobHandler
	logger  *slog.Logger
}

// NewConsumer はRabbitMQに接続し、キューを宣言してエクスチェンジにバインドする。
func NewConsumer(url, exchange, queue string, handler notify.JobHandler, logger *slog.Logger) (*Consumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	if err := declareExchange(ch, exchange); err != nil {
		closeAll()
		return nil, err
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		closeAll()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, RoutingKeyNotify, exchange, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("bind %s: %w", RoutingKeyNotify, err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name, handler: handler, logger: logger}, nil
}

// Run はコンテキストがキャンセルされるか配信チャネルが閉じられるまでメッセージを処理する。
// 接続が切れた場合はエラーを返し、再接続はプロセスの再起動に任せる。
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("通知キューの購読を開始しました", slog.String("queue", c.queue))
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("通知キューの購読を停止しました")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d.Body, d)
		}
	}
}

// acknowledger はamqp.Deliveryの応答操作。
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// handle は1件のメッセージを処理する。
// 不正なメッセージは再投入せず破棄し、送信失敗はDispatcher側で記録済みのためackする。
func (c *Consumer) handle(ctx context.Context, body []byte, ack acknowledger) {
	job, err := decodeJob(body)
	if err != nil {
		c.logger.Error("通知ジョブの解析に失敗しました", slog.String("error", err.Error()))
		_ = ack.Nack(false, false)
		return
	}

	if err := c.handler.Deliver(ctx, job); err != nil {
		c.logger.Warn("通知ジョブの配信に失敗しました",
			slog.String("booking_id", job.BookingID),
			slog.String("error", err.Error()),
		)
	}
	_ = ack.Ack(false)
}

func decodeJob(body []byte) (notify.Job, error) {
	var job notify.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return notify.Job{}, fmt.Errorf("%w: %v", errMalformedJob, err)
	}
	if job.BookingID == "" {
		return notify.Job{}, fmt.Errorf("%w: missing bookingId", errMalformedJob)
	}
	return job, nil
}

// Close はチャネルと接続を閉じる。
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
