package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/aircnc/internal/model"
)

// PostgresHomeRepo はPostgreSQLを使用した物件リポジトリ。
type PostgresHomeRepo struct {
	db *sql.DB
}

// NewPostgresHomeRepo はPostgresHomeRepoを生成する。
func NewPostgresHomeRepo(db *sql.DB) *PostgresHomeRepo {
	return &PostgresHomeRepo{db: db}
}

const homeColumns = `id, location, price_cents, details, created_at`

// Create は物件を作成する。
func (r *PostgresHomeRepo) Create(ctx context.Context, home *model.Home) error {
	details, err := marshalJSONB(home.Details)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO homes (id, location, price_cents, details)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		home.ID, home.Location, home.Price.Cents(), details,
	).Scan(&home.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert home: %w", err)
	}
	return nil
}

// FindByID は指定IDの物件を取得する。見つからない場合はnilを返す。
func (r *PostgresHomeRepo) FindByID(ctx context.Context, id string) (*model.Home, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+homeColumns+` FROM homes WHERE id = $1`,
		id,
	)
	home, err := scanHome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find home by ID: %w", err)
	}
	return home, nil
}

// List は全物件を返す。
func (r *PostgresHomeRepo) List(ctx context.Context) ([]*model.Home, error) {
	return r.query(ctx, `SELECT `+homeColumns+` FROM homes ORDER BY created_at`)
}

// ListByLocation はlocationが完全一致する物件を返す。
func (r *PostgresHomeRepo) ListByLocation(ctx context.Context, location string) ([]*model.Home, error) {
	return r.query(ctx,
		`SELECT `+homeColumns+` FROM homes WHERE location = $1 ORDER BY created_at`,
		location,
	)
}

func (r *PostgresHomeRepo) query(ctx context.Context, query string, args ...any) ([]*model.Home, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list homes: %w", err)
	}
	defer rows.Close()

	homes := []*model.Home{}
	for rows.Next() {
		home, err := scanHome(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan home: %w", err)
		}
		homes = append(homes, home)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate homes: %w", err)
	}
	return homes, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHome(s rowScanner) (*model.Home, error) {
	home := &model.Home{}
	var price int64
	var details []byte
	if err := s.Scan(&home.ID, &home.Location, &price, &details, &home.CreatedAt); err != nil {
		return nil, err
	}
	home.Price = model.Money(price)

	var err error
	if home.Details, err = unmarshalJSONB(details); err != nil {
		return nil, err
	}
	return home, nil
}

// compile-time interface check
var _ HomeRepository = (*PostgresHomeRepo)(nil)
