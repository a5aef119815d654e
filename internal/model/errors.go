// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, booking, listing, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeValidation     = "VALIDATION_FAILED"
	ErrCodeInvalidPrice   = "INVALID_PRICE"
	ErrCodeInvalidID      = "INVALID_ID"
	ErrCodeInvalidEmail   = "INVALID_EMAIL"
	ErrCodePaymentFailed  = "PAYMENT_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewValidationError は必須項目の欠落や形式不正のエラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s が不正です: %s", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidPriceError は金額の形式不正エラーを生成する。
func NewInvalidPriceError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPrice,
		Message:  fmt.Sprintf("無効な金額です: %q", raw),
		Category: "validation",
		Action:   "金額は0以上の10進数（小数点以下2桁まで有効）で指定してください。",
	}
}

// NewInvalidIDError は識別子の形式不正エラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("無効なIDです: %s", id),
		Category: "validation",
		Action:   "UUID形式のIDを指定してください。",
	}
}

// NewInvalidEmailError はメールアドレスの形式不正エラーを生成する。
func NewInvalidEmailError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  fmt.Sprintf("無効なメールアドレスです: %q", email),
		Category: "validation",
		Action:   "有効なメールアドレスを指定してください。",
	}
}

// NewPaymentFailedError は決済ゲートウェイでの承認失敗エラーを生成する。
func NewPaymentFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePaymentFailed,
		Message:  "決済の承認リクエストに失敗しました。",
		Category: "payment",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
