// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/aircnc/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Upsert はemailをキーにユーザーを作成または全項目上書きする。
	// 新規作成の場合はtrueを返す。userのCreatedAt/UpdatedAtは保存後の値で更新される。
	Upsert(ctx context.Context, user *model.User) (bool, error)

	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// List は全ユーザーを返す。
	List(ctx context.Context) ([]*model.User, error)
}

// HomeRepository は物件データの永続化インターフェース。
type HomeRepository interface {
	// Create は物件を作成する。IDは呼び出し元で採番済みであること。
	Create(ctx context.Context, home *model.Home) error

	// FindByID は指定IDの物件を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Home, error)

	// List は全物件を返す。
	List(ctx context.Context) ([]*model.Home, error)

	// ListByLocation はlocationが完全一致（大文字小文字区別あり）する物件を返す。
	ListByLocation(ctx context.Context, location string) ([]*model.Home, error)
}

// BookingRepository は予約データの永続化インターフェース。
// 予約行自体が通知のアウトボックスを兼ねる。
type BookingRepository interface {
	// Create は予約を作成する。IDは呼び出し元で採番済みであること。
	Create(ctx context.Context, booking *model.Booking) error

	// List は全予約を返す。ページネーションは行わない。
	List(ctx context.Context) ([]*model.Booking, error)

	// ListByGuestEmail はguest_emailが完全一致する予約を返す。
	ListByGuestEmail(ctx context.Context, email string) ([]*model.Booking, error)

	// RecordNotification は通知試行の結果を記録し、試行回数をインクリメントする。
	RecordNotification(ctx context.Context, bookingID string, result NotificationResult) error

	// ClaimDueNotifications は再配信対象の予約を排他的に取得する。
	// 取得した行はnext_attempt_atをleaseだけ先送りし、他のワーカーが同時に取得しないようにする。
	ClaimDueNotifications(ctx context.Context, q DueNotificationQuery) ([]*model.Booking, error)
}

// NotificationResult は1回の通知試行の結果。
type NotificationResult struct {
	Status        model.NotificationStatus
	Error         string
	NextAttemptAt *time.Time // failedの場合の次回試行時刻
	At            time.Time
}

// DueNotificationQuery は再配信対象の抽出条件。
type DueNotificationQuery struct {
	Grace       time.Duration // pendingのまま放置された予約を対象にするまでの猶予
	MaxAttempts int
	Lease       time.Duration
	Limit       int
}
