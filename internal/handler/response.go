package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/aircnc/internal/model"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// insertedResponse は作成系エンドポイントの挿入結果。
type insertedResponse struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     model.ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeValidation, model.ErrCodeInvalidPrice,
		model.ErrCodeInvalidID, model.ErrCodeInvalidEmail:
		return http.StatusBadRequest
	case model.ErrCodePaymentFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeObject はリクエストボディをJSONオブジェクトとして読み込む。
// 数値はjson.Numberのまま保持し、浮動小数点への変換を避ける。
func decodeObject(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, model.NewInvalidRequestError()
	}
	if body == nil {
		return nil, model.NewInvalidRequestError()
	}
	return body, nil
}

// stringField は文字列フィールドを取り出す。未指定やnullは空文字列。
func stringField(body map[string]any, key string) (string, error) {
	switch v := body[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", model.NewValidationError(key, "文字列で指定してください")
	}
}

// priceField は金額フィールドを10進数文字列として取り出す。
// JSONの数値と数値文字列のどちらも受け付ける。
func priceField(body map[string]any, key string) (string, error) {
	switch v := body[key].(type) {
	case nil:
		return "", nil
	case json.Number:
		return v.String(), nil
	case string:
		return v, nil
	default:
		return "", model.NewInvalidPriceError(fmt.Sprint(v))
	}
}

// withoutKeys は指定キーを除いたコピーを返す。
func withoutKeys(body map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// flatten は自由形式の項目に固定項目を重ねたレスポンス用のマップを作る。
// 固定項目が優先される。
func flatten(details map[string]any, fixed map[string]any) map[string]any {
	out := make(map[string]any, len(details)+len(fixed))
	for k, v := range details {
		out[k] = v
	}
	for k, v := range fixed {
		out[k] = v
	}
	return out
}
