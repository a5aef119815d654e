package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/aircnc/internal/listing"
	"github.com/hitoshi/aircnc/internal/model"
)

// HomeServiceInterface は物件ハンドラーが必要とするサービスインターフェース。
type HomeServiceInterface interface {
	Create(ctx context.Context, in listing.HomeInput) (*model.Home, error)
	Get(ctx context.Context, id string) (*model.Home, error)
	List(ctx context.Context) ([]*model.Home, error)
	// Search は所在地の完全一致で絞り込む。空文字列は全件。
	Search(ctx context.Context, location string) ([]*model.Home, error)
}

// HomeHandler は物件（リスティング）のHTTPハンドラー。
type HomeHandler struct {
	service HomeServiceInterface
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(service HomeServiceInterface) *HomeHandler {
	return &HomeHandler{
		service: service,
	}
}

// Create は物件を登録する。
// POST /homes
func (h *HomeHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	location, err := stringField(body, "location")
	if err != nil {
		handleServiceError(w, err)
		return
	}
	price, err := priceField(body, "price")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	home, err := h.service.Create(r.Context(), listing.HomeInput{
		Location: location,
		Price:    price,
		Details:  withoutKeys(body, "location", "price", "_id", "id"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insertedResponse{Acknowledged: true, InsertedID: home.ID})
}

// List は全物件を返す。
// GET /homes
func (h *HomeHandler) List(w http.ResponseWriter, r *http.Request) {
	homes, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomeListResponse(homes))
}

// Get は物件を1件返す。存在しない場合はnullを返す。
// GET /homes/{id}
func (h *HomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	home, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if home == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toHomeResponse(home))
}

// Search は所在地で物件を検索する。
// GET /search-result?location=
func (h *HomeHandler) Search(w http.ResponseWriter, r *http.Request) {
	homes, err := h.service.Search(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHomeListResponse(homes))
}

func toHomeResponse(home *model.Home) map[string]any {
	return flatten(home.Details, map[string]any{
		"_id":        home.ID,
		"location":   home.Location,
		"price":      home.Price.String(),
		"priceCents": home.Price.Cents(),
		"createdAt":  home.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func toHomeListResponse(homes []*model.Home) []map[string]any {
	resp := make([]map[string]any, 0, len(homes))
	for _, home := range homes {
		resp = append(resp, toHomeResponse(home))
	}
	return resp
}
