package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// Mailer はメール送信のインターフェース。
// 実装は複数のgoroutineから同時に呼び出せること。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig はSMTPリレーの接続設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPMailer はSMTPリレー経由でメールを送信する。
// 送信ごとに接続を確立して閉じるため、送信間で共有する可変状態を持たない。
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer はSMTPMailerを生成する。Fromが空の場合はUsernameを送信元にする。
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPMailer{cfg: cfg}
}

// Send はSTARTTLS必須でリレーに接続し、HTMLメールを1通送信する。
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(m.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	return nil
}

// LogMailer は送信せずにログへ出力するMailer。
// SMTP認証情報が未設定の環境で使う。
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send はメール内容をログに記録する。
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("メール送信をスキップしました（SMTP未設定）",
		slog.String("recipient", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
