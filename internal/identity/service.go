// Package identity はユーザー登録とアクセストークン発行を提供する。
package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/repository"
)

// UpsertResult はユーザー登録の結果。
type UpsertResult struct {
	Token    string
	Upserted bool // 新規作成の場合true、既存レコードを上書きした場合false
	User     *model.User
}

// Service はユーザー登録のサービス層。
// トークンはどのエンドポイントでも検証されない。
type Service struct {
	repo   repository.UserRepository
	tokens *TokenIssuer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Upsert はemailをキーにユーザーを作成または全項目上書きし、トークンを発行する。
// profile内のemailはパスのemailで上書きされる。
func (s *Service) Upsert(ctx context.Context, email string, profile map[string]any) (*UpsertResult, error) {
	email = strings.TrimSpace(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, model.NewInvalidEmailError(email)
	}

	stored := make(map[string]any, len(profile))
	for k, v := range profile {
		if k == "email" {
			continue
		}
		stored[k] = v
	}

	user := &model.User{Email: email, Profile: stored}
	inserted, err := s.repo.Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの保存に失敗しました: %w", err)
	}

	token, err := s.tokens.Issue(email, stored)
	if err != nil {
		return nil, err
	}

	return &UpsertResult{Token: token, Upserted: inserted, User: user}, nil
}

// Get は指定emailのユーザーを返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, email string) (*model.User, error) {
	return s.repo.FindByEmail(ctx, email)
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	return s.repo.List(ctx)
}
