package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/acrodex/internal/model"
)

// PostgresTokenRepo はPostgreSQLを使用したベアラートークンリポジトリ。
type PostgresTokenRepo struct {
	db *sql.DB
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
func NewPostgresTokenRepo(db *sql.DB) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db}
}

// Create はトークンを作成する。
func (r *PostgresTokenRepo) Create(ctx context.Context, token *model.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (id, token, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		token.ID, token.Token, token.UserID, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("トークンの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByToken はトークン文字列でトークンを検索する。見つからない場合はnilを返す。
func (r *PostgresTokenRepo) FindByToken(ctx context.Context, tokenValue string) (*model.Token, error) {
	token := &model.Token{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_id, created_at FROM tokens WHERE token = $1`,
		tokenValue,
	).Scan(&token.ID, &token.Token, &token.UserID, &token.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("トークンの検索に失敗しました: %w", err)
	}

	return token, nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
