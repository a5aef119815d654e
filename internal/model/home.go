package model

import "time"

// Home は貸し出し可能な物件（リスティング）を表す。
// 作成後は変更されない。
type Home struct {
	ID        string
	Location  string
	Price     Money
	Details   map[string]any // location/price以外の自由形式の掲載項目
	CreatedAt time.Time
}
