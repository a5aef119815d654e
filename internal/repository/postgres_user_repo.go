package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/aircnc/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Upsert はemailをキーにユーザーを作成または全項目上書きする（last-write-wins）。
// xmax = 0 の判定でINSERTかUPDATEかを区別する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, user *model.User) (bool, error) {
	profile, err := marshalJSONB(user.Profile)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	var inserted bool
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO users (email, profile, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (email) DO UPDATE SET
		     profile = EXCLUDED.profile,
		     updated_at = EXCLUDED.updated_at
		 RETURNING created_at, updated_at, (xmax = 0) AS inserted`,
		user.Email, profile, now,
	).Scan(&user.CreatedAt, &user.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert user: %w", err)
	}

	return inserted, nil
}

// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	var profile []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT email, profile, created_at, updated_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.Email, &profile, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if user.Profile, err = unmarshalJSONB(profile); err != nil {
		return nil, err
	}
	return user, nil
}

// List は全ユーザーを返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT email, profile, created_at, updated_at FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user := &model.User{}
		var profile []byte
		if err := rows.Scan(&user.Email, &profile, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if user.Profile, err = unmarshalJSONB(profile); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
