// Package booking は予約の作成と照会を提供する。
// 予約の保存後に通知ジョブを投入し、通知の成否は予約作成の結果に影響させない。
package booking

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/aircnc/internal/metrics"
	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/notify"
	"github.com/hitoshi/aircnc/internal/repository"
)

// 作成直後の通知状態。queuedは配信キューへの投入に成功した状態。
const (
	NotificationQueued  = "queued"
	NotificationPending = "pending"
)

// dateLayouts は宿泊日として受け付ける形式。
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// BookingInput は予約作成リクエストの入力。
// PriceとFrom/Toはクライアントから受け取った文字列のまま渡す。
type BookingInput struct {
	GuestEmail string
	Price      string
	HomeID     string
	From       string
	To         string
	Details    map[string]any
}

// CreateResult は予約作成の結果。
type CreateResult struct {
	Booking            *model.Booking
	NotificationStatus string
}

// Service は予約のサービス層。
// 物件やユーザーは参照のみで変更しない。
type Service struct {
	repo    repository.BookingRepository
	queue   notify.Queue
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	newID   func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.BookingRepository, queue notify.Queue, mc metrics.MetricsCollector, logger *slog.Logger) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		queue:   queue,
		metrics: mc,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

// CreateBooking は入力を検証して予約を保存し、予約完了メールのジョブを投入する。
// 保存に失敗した場合のみエラーを返す。ジョブ投入の失敗はログに記録し、
// 予約はpendingのまま再配信ワーカーの対象になる。
func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (*CreateResult, error) {
	booking, err := s.validate(in)
	if err != nil {
		return nil, err
	}
	booking.ID = s.newID()
	booking.NotificationStatus = model.NotificationPending

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("予約の保存に失敗しました: %w", err)
	}
	s.metrics.RecordBookingCreated()

	status := NotificationQueued
	if err := s.queue.Enqueue(ctx, notify.NewBookingJob(booking)); err != nil {
		status = NotificationPending
		s.logger.Warn("予約通知のキュー投入に失敗しました",
			slog.String("booking_id", booking.ID),
			slog.String("error", err.Error()),
		)
	}

	return &CreateResult{Booking: booking, NotificationStatus: status}, nil
}

// ListBookings は予約を返す。emailが空でなければguest_emailが完全一致するものに絞り込む。
// ページネーションは行わない。
func (s *Service) ListBookings(ctx context.Context, email string) ([]*model.Booking, error) {
	if email == "" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByGuestEmail(ctx, email)
}

func (s *Service) validate(in BookingInput) (*model.Booking, error) {
	email := strings.TrimSpace(in.GuestEmail)
	if email == "" {
		return nil, model.NewValidationError("guestEmail", "必須項目です")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, model.NewInvalidEmailError(email)
	}

	price, err := model.ParseMoney(in.Price)
	if err != nil {
		return nil, err
	}

	homeID := strings.TrimSpace(in.HomeID)
	if homeID != "" {
		if _, err := uuid.Parse(homeID); err != nil {
			return nil, model.NewInvalidIDError(homeID)
		}
	}

	checkIn, err := parseDate("from", in.From)
	if err != nil {
		return nil, err
	}
	checkOut, err := parseDate("to", in.To)
	if err != nil {
		return nil, err
	}
	if checkIn != nil && checkOut != nil && checkOut.Before(*checkIn) {
		return nil, model.NewValidationError("to", "from より前の日付は指定できません")
	}

	return &model.Booking{
		GuestEmail: email,
		Price:      price,
		HomeID:     homeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Details:    in.Details,
	}, nil
}

// parseDate は空なら未指定としてnilを返す。
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, model.NewValidationError(field, "日付はYYYY-MM-DDまたはRFC3339形式で指定してください")
}
