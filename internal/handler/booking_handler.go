package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/aircnc/internal/booking"
	"github.com/hitoshi/aircnc/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	// CreateBooking は予約を保存し、予約完了メールのジョブを投入する。
	CreateBooking(ctx context.Context, in booking.BookingInput) (*booking.CreateResult, error)
	// ListBookings はemailが空でなければゲストのメールアドレスで絞り込む。
	ListBookings(ctx context.Context, email string) ([]*model.Booking, error)
}

// BookingHandler は予約のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{
		service: service,
	}
}

// createBookingResponse はPOST /bookingsのレスポンス。
// NotificationStatusは今回のリクエストでの配信キュー投入結果（queued/pending）を表し、
// 保存済みの通知状態はGET /bookingsで返す。
type createBookingResponse struct {
	Acknowledged       bool           `json:"acknowledged"`
	InsertedID         string         `json:"insertedId"`
	NotificationStatus string         `json:"notificationStatus"`
	Booking            map[string]any `json:"booking"`
}

// bookingFields は予約ペイロードのうち専用の列に保存される項目。
var bookingFields = []string{"guestEmail", "price", "homeId", "from", "to", "_id", "id"}

// Create は予約を作成する。メール送信の成否はレスポンスに影響しない。
// POST /bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeObject(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	in := booking.BookingInput{Details: withoutKeys(body, bookingFields...)}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"guestEmail", &in.GuestEmail},
		{"homeId", &in.HomeID},
		{"from", &in.From},
		{"to", &in.To},
	} {
		if *f.dst, err = stringField(body, f.key); err != nil {
			handleServiceError(w, err)
			return
		}
	}
	if in.Price, err = priceField(body, "price"); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.CreateBooking(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 作成時の通知状態はトップレベルのnotificationStatusのみで返す
	created := toBookingResponse(result.Booking)
	delete(created, "notificationStatus")

	writeJSON(w, http.StatusOK, createBookingResponse{
		Acknowledged:       true,
		InsertedID:         result.Booking.ID,
		NotificationStatus: result.NotificationStatus,
		Booking:            created,
	})
}

// List は予約一覧を返す。
// GET /bookings?email=
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListBookings(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]map[string]any, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toBookingResponse(b *model.Booking) map[string]any {
	fixed := map[string]any{
		"_id":                b.ID,
		"guestEmail":         b.GuestEmail,
		"price":              b.Price.String(),
		"priceCents":         b.Price.Cents(),
		"notificationStatus": string(b.NotificationStatus),
		"createdAt":          b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.HomeID != "" {
		fixed["homeId"] = b.HomeID
	}
	if b.CheckIn != nil {
		fixed["from"] = b.CheckIn.Format(time.RFC3339)
	}
	if b.CheckOut != nil {
		fixed["to"] = b.CheckOut.Format(time.RFC3339)
	}
	return flatten(b.Details, fixed)
}
