package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Money は通貨の最小単位（USDならセント）で表した金額。
// 浮動小数点は一切経由しない。
type Money int64

// maxIntegerDigits は整数部の最大桁数。int64のセント表現で溢れない範囲に抑える。
const maxIntegerDigits = 15

// ParseMoney は10進数文字列を最小単位の金額に変換する。
// 小数点以下3桁目以降は切り捨てる（"19.999999" → 1999）。
// 負数、空文字列、指数表記、数字以外を含む文字列はエラーになる。
func ParseMoney(raw string) (Money, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, NewInvalidPriceError(raw)
	}

	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if hasDot && intPart == "" && fracPart == "" {
		return 0, NewInvalidPriceError(raw)
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (hasDot && fracPart != "" && !isDigits(fracPart)) {
		return 0, NewInvalidPriceError(raw)
	}
	intPart = strings.TrimLeft(intPart, "0")
	if len(intPart) > maxIntegerDigits {
		return 0, NewInvalidPriceError(raw)
	}

	// 小数部は2桁に切り詰め、足りなければ0で埋める
	if len(fracPart) > 2 {
		fracPart = fracPart[:2]
	}
	fracPart += strings.Repeat("0", 2-len(fracPart))

	cents, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return 0, NewInvalidPriceError(raw)
	}
	return Money(cents), nil
}

// String は金額を小数点以下2桁の10進数文字列で返す（1999 → "19.99"）。
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Cents は最小単位の整数値を返す。
func (m Money) Cents() int64 {
	return int64(m)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
