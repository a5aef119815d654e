package model

import "time"

// Booking は宿泊予約を表す。
// 作成後は通知状態の列のみが更新され、予約内容自体は変更されない。
type Booking struct {
	ID         string
	GuestEmail string
	Price      Money
	HomeID     string     // 空文字列は物件参照なし
	CheckIn    *time.Time // 任意
	CheckOut   *time.Time // 任意
	Details    map[string]any

	NotificationStatus   NotificationStatus
	NotificationAttempts int
	NotificationError    string
	NextAttemptAt        *time.Time
	NotifiedAt           *time.Time

	CreatedAt time.Time
}

// NotificationStatus は予約完了メールの配信状態を表す。
type NotificationStatus string

const (
	// NotificationPending は未配信（キュー投入済みまたは投入失敗）。
	NotificationPending NotificationStatus = "pending"
	// NotificationSent は配信成功。
	NotificationSent NotificationStatus = "sent"
	// NotificationFailed は配信失敗（再配信対象）。
	NotificationFailed NotificationStatus = "failed"
	// NotificationAbandoned は最大試行回数に達し再配信を打ち切った状態。
	NotificationAbandoned NotificationStatus = "abandoned"
)

// PaymentAuthorization はクライアント側で決済を確定するための承認ハンドル。
// 永続化されない。
type PaymentAuthorization struct {
	ClientSecret string
	Amount       Money
	Currency     string
}
