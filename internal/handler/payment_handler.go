package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/aircnc/internal/model"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	CreatePaymentIntent(ctx context.Context, price string) (*model.PaymentAuthorization, error)
}

// PaymentHandler は決済承認のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
	// strict がfalseの場合、ゲートウェイ失敗時も200で空オブジェクトを返す
	strict bool
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, strict bool) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		strict:  strict,
	}
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret,omitempty"`
}

// CreateIntent は金額から決済承認を作成し、クライアントシークレットを返す。
// POST /create-payment-intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	price, err := priceField(body, "price")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	auth, err := h.service.CreatePaymentIntent(r.Context(), price)
	if err != nil {
		var apiErr *model.APIError
		if !h.strict && errors.As(err, &apiErr) && apiErr.Code == model.ErrCodePaymentFailed {
			writeJSON(w, http.StatusOK, paymentIntentResponse{})
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paymentIntentResponse{ClientSecret: auth.ClientSecret})
}
