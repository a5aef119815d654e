// Package model はドメインモデルを定義する。
package model

import "time"

// User はマーケットプレイスの利用者を表す。
// Emailが一意キーで、それ以外のプロフィール項目は自由形式。
type User struct {
	Email     string
	Profile   map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
