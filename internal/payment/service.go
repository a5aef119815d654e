package payment

import (
	"context"
	"log/slog"

	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
)

const (
	// Currency は決済通貨。固定値。
	Currency = "usd"
	// MethodCard は許可する決済手段。
	MethodCard = "card"
)

// Service は決済承認のサービス層。
// 承認結果は永続化しない。
type Service struct {
	gateway Gateway
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(gateway Gateway, mc metrics.MetricsCollector, logger *slog.Logger) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, metrics: mc, logger: logger}
}

// CreatePaymentIntent は価格文字列を最小単位に変換し、カード決済の承認を作成する。
// 金額の変換に浮動小数点は使わない（"19.99" → 1999）。
// ゲートウェイの失敗はログに記録し、PAYMENT_FAILEDとして返す。
func (s *Service) CreatePaymentIntent(ctx context.Context, price string) (*model.PaymentAuthorization, error) {
	amount, err := model.ParseMoney(price)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, model.NewValidationError("price", "0より大きい金額を指定してください")
	}

	secret, err := s.gateway.CreateIntent(ctx, amount, Currency, []string{MethodCard})
	if err != nil {
		s.metrics.RecordPaymentIntent(metrics.ResultFailure)
		s.logger.Error("決済承認の作成に失敗しました",
			slog.String("amount", amount.String()),
			slog.String("currency", Currency),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPaymentFailedError()
	}

	s.metrics.RecordPaymentIntent(metrics.ResultSuccess)
	return &model.PaymentAuthorization{
		ClientSecret: secret,
		Amount:       amount,
		Currency:     Currency,
	}, nil
}
