package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret は署名鍵が未設定の場合のエラー。
var ErrEmptySecret = errors.New("token secret must not be empty")

// TokenIssuer はHS256署名付きのアクセストークンを発行・検証する。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer はTokenIssuerを生成する。
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue はプロフィールの各項目とemailをクレームに含むトークンを発行する。
// iat/expは発行側で設定し、プロフィール側の同名項目より優先する。
func (t *TokenIssuer) Issue(email string, profile map[string]any) (string, error) {
	issuedAt := t.now()
	claims := jwt.MapClaims{}
	for k, v := range profile {
		claims[k] = v
	}
	claims["email"] = email
	claims["iat"] = issuedAt.Unix()
	claims["exp"] = issuedAt.Add(t.ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
func (t *TokenIssuer) Verify(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
