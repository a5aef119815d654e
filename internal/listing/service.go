// Package listing は物件リスティングのカタログ機能を提供する。
package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hitoshi/aircnc/internal/model"
	"github.com/hitoshi/aircnc/internal/repository"
)

// HomeInput は物件作成リクエストの入力。
// Priceはクライアントから受け取った10進数表記のまま渡す。
type HomeInput struct {
	Location string
	Price    string
	Details  map[string]any
}

// Service は物件カタログのサービス層。
// 物件は作成後に変更されない。
type Service struct {
	repo  repository.HomeRepository
	newID func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.HomeRepository) *Service {
	return &Service{
		repo:  repo,
		newID: func() string { return uuid.New().String() },
	}
}

// Create は物件を検証して作成する。locationとpriceは必須。
func (s *Service) Create(ctx context.Context, in HomeInput) (*model.Home, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return nil, model.NewValidationError("location", "必須項目です")
	}
	price, err := model.ParseMoney(in.Price)
	if err != nil {
		return nil, err
	}

	home := &model.Home{
		ID:       s.newID(),
		Location: location,
		Price:    price,
		Details:  in.Details,
	}
	if err := s.repo.Create(ctx, home); err != nil {
		return nil, fmt.Errorf("物件の保存に失敗しました: %w", err)
	}
	return home, nil
}

// Get は指定IDの物件を返す。見つからない場合はnilを返す。
// IDがUUID形式でない場合は検証エラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Home, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewInvalidIDError(id)
	}
	return s.repo.FindByID(ctx, id)
}

// List は全物件を返す。
func (s *Service) List(ctx context.Context) ([]*model.Home, error) {
	return s.repo.List(ctx)
}

// Search はlocationが完全一致する物件を返す。locationが空の場合は全物件を返す。
// 作成時と同様に前後の空白は除去して比較する。
func (s *Service) Search(ctx context.Context, location string) ([]*model.Home, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return s.repo.List(ctx)
	}
	return s.repo.ListByLocation(ctx, location)
}
