// Package mq はRabbitMQを使った通知ジョブの配送を提供する。
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hitoshi/aircnc/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyNotify は予約通知ジョブのルーティングキー。
const RoutingKeyNotify = "booking.notify"

// channel はPublisherが使うAMQPチャネルの操作。
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc はブローカーへの接続とチャネルの確立を行う。
type dialFunc func() (io.Closer, channel, error)

// Publisher は通知ジョブをトピックエクスチェンジに発行するnotify.Queue実装。
// 接続またはチャネルが閉じられていた場合は、発行時に一度だけ再接続して再送する。
type Publisher struct {
	conn     io.Closer
	ch       channel
	exchange string
	dial     dialFunc

	mu sync.Mutex
}

// NewPublisher はRabbitMQに接続し、エクスチェンジを宣言したPublisherを返す。
func NewPublisher(url, exchange string) (*Publisher, error) {
	dial := func() (io.Closer, channel, error) {
		return dialExchange(url, exchange)
	}
	conn, ch, err := dial()
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, dial: dial}, nil
}

func dialExchange(url, exchange string) (io.Closer, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}

// Enqueue はジョブをJSONで発行する。ブローカーへの書き込み後に返り、配信完了は待たない。
func (p *Publisher) Enqueue(ctx context.Context, job notify.Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.BookingID,
		Body:         b,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyNotify, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) && p.dial != nil {
		if rerr := p.redial(); rerr != nil {
			return fmt.Errorf("publish job: %w (reconnect: %v)", err, rerr)
		}
		err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKeyNotify, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// redial は古い接続を破棄して張り直す。p.muを保持した状態で呼ぶこと。
func (p *Publisher) redial() error {
	_ = p.closeLocked()
	conn, ch, err := p.dial()
	if err != nil {
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Close はチャネルと接続を閉じる。
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
