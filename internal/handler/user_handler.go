package handler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/aircnc/internal/identity"
	"github.com/hitoshi/aircnc/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Upsert はメールアドレスをキーにユーザーを作成または上書きし、トークンを発行する。
	Upsert(ctx context.Context, email string, profile map[string]any) (*identity.UpsertResult, error)
	Get(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type upsertUserResult struct {
	Acknowledged bool           `json:"acknowledged"`
	Upserted     bool           `json:"upserted"`
	User         map[string]any `json:"user"`
}

type upsertUserResponse struct {
	Token  string           `json:"token"`
	Result upsertUserResult `json:"result"`
}

// Upsert はユーザープロフィールを保存し、署名付きトークンを返す。
// PUT /users/{email}
func (h *UserHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	email := emailParam(r)

	body, err := decodeObject(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Upsert(r.Context(), email, body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, upsertUserResponse{
		Token: result.Token,
		Result: upsertUserResult{
			Acknowledged: true,
			Upserted:     result.Upserted,
			User:         toUserResponse(result.User),
		},
	})
}

// Get はメールアドレスでユーザーを取得する。存在しない場合はnullを返す。
// GET /users/{email}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), emailParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// List は全ユーザーを返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]map[string]any, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// toUserResponse はプロフィール項目にemailと日時を重ねて返す。
func toUserResponse(u *model.User) map[string]any {
	return flatten(u.Profile, map[string]any{
		"email":     u.Email,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt": u.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// emailParam はパスのメールアドレスを取り出す。%40のようなエスケープは復元する。
func emailParam(r *http.Request) string {
	raw := chi.URLParam(r, "email")
	if email, err := url.PathUnescape(raw); err == nil {
		return email
	}
	return raw
}
