// Package payment は決済ゲートウェイへの承認リクエストを提供する。
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/aircnc/internal/model"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Gateway は決済承認を発行する外部サービスのインターフェース。
type Gateway interface {
	// CreateIntent は指定金額の決済承認を作成し、クライアント用のシークレットを返す。
	CreateIntent(ctx context.Context, amount model.Money, currency string, methods []string) (string, error)
}

// StripeGateway はStripe PaymentIntents APIを使うGateway実装。
// APIクライアントは明示的に生成したものを保持し、パッケージグローバルの鍵は使わない。
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway はシークレットキーからStripeGatewayを生成する。
// backendsがnilの場合はStripe本番のエンドポイントを使う。
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{api: client.New(secretKey, backends)}
}

// CreateIntent はPaymentIntentを作成してclient_secretを返す。
func (g *StripeGateway) CreateIntent(ctx context.Context, amount model.Money, currency string, methods []string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount.Cents()),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice(methods),
	}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe payment intent: %w", err)
	}
	if intent.ClientSecret == "" {
		return "", errors.New("stripe payment intent: empty client secret")
	}
	return intent.ClientSecret, nil
}
