package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/acrodex/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// Create はカテゴリを作成する。
// nameのUNIQUE制約違反の場合はVALIDATION_FAILEDエラーを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at)
		 VALUES ($1, $2, $3)`,
		category.ID, category.Name, category.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return model.NewValidationFailedError("name: 既に同名のカテゴリが存在します")
		}
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE id = $1`,
		id,
	).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}

	return category, nil
}

// FindByName は名前でカテゴリを検索する（完全一致）。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByName(ctx context.Context, name string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE name = $1`,
		name,
	).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("名前によるカテゴリの検索に失敗しました: %w", err)
	}

	return category, nil
}

// List は全カテゴリを作成順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		category := &model.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
