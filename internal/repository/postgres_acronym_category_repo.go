package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/acrodex/internal/model"
)

// PostgresAcronymCategoryRepo はPostgreSQLを使用した略語・カテゴリ関係リポジトリ。
type PostgresAcronymCategoryRepo struct {
	db *sql.DB
}

// NewPostgresAcronymCategoryRepo はPostgresAcronymCategoryRepoを生成する。
func NewPostgresAcronymCategoryRepo(db *sql.DB) *PostgresAcronymCategoryRepo {
	return &PostgresAcronymCategoryRepo{db: db}
}

// Attach はエッジを作成する。既に存在するエッジへの付与は何もしない（冪等）。
func (r *PostgresAcronymCategoryRepo) Attach(ctx context.Context, acronymID, categoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO acronym_categories (acronym_id, category_id)
		 VALUES ($1, $2)
		 ON CONFLICT (acronym_id, category_id) DO NOTHING`,
		acronymID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの付与に失敗しました: %w", err)
	}
	return nil
}

// Detach はエッジを削除する。存在しないエッジの削除はエラーにしない。
func (r *PostgresAcronymCategoryRepo) Detach(ctx context.Context, acronymID, categoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM acronym_categories WHERE acronym_id = $1 AND category_id = $2`,
		acronymID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの解除に失敗しました: %w", err)
	}
	return nil
}

// ListCategoriesByAcronymID は略語に関連付いたカテゴリ一覧を返す。
func (r *PostgresAcronymCategoryRepo) ListCategoriesByAcronymID(ctx context.Context, acronymID string) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_at
		 FROM categories c
		 JOIN acronym_categories ac ON ac.category_id = c.id
		 WHERE ac.acronym_id = $1
		 ORDER BY ac.created_at ASC`,
		acronymID,
	)
	if err != nil {
		return nil, fmt.Errorf("略語のカテゴリ一覧の取得に失敗しました: %w", err)
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
		return nil, fmt.Errorf("略語のカテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// ListAcronymsByCategoryID はカテゴリに関連付いた略語一覧を返す。
func (r *PostgresAcronymCategoryRepo) ListAcronymsByCategoryID(ctx context.Context, categoryID string) ([]*model.Acronym, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.short, a.long, a.user_id, a.created_at, a.updated_at
		 FROM acronyms a
		 JOIN acronym_categories ac ON ac.acronym_id = a.id
		 WHERE ac.category_id = $1
		 ORDER BY ac.created_at ASC`,
		categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの略語一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var acronyms []*model.Acronym
	for rows.Next() {
		acronym := &model.Acronym{}
		if err := rows.Scan(&acronym.ID, &acronym.Short, &acronym.Long, &acronym.UserID, &acronym.CreatedAt, &acronym.UpdatedAt); err != nil {
			return nil, fmt.Errorf("略語行の読み取りに失敗しました: %w", err)
		}
		acronyms = append(acronyms, acronym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリの略語一覧の走査に失敗しました: %w", err)
	}
	return acronyms, nil
}

// DeleteByAcronymID は略語に関連する全エッジを削除する。
func (r *PostgresAcronymCategoryRepo) DeleteByAcronymID(ctx context.Context, acronymID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM acronym_categories WHERE acronym_id = $1`,
		acronymID,
	)
	if err != nil {
		return fmt.Errorf("略語の全エッジの削除に失敗しました: %w", err)
	}
	return nil
}

// ApplyReconciliation はカテゴリ集合の差分を単一トランザクションで適用する。
// toAddの各名前はUNIQUE(name)制約を前提としたfind-or-createでカテゴリを解決して付与する。
// 同名カテゴリを同時に作成しようとする並行実行はON CONFLICTにより片方が既存行を拾う。
// いずれかのステップが失敗した場合はロールバックし、部分適用の状態を残さない。
func (r *PostgresAcronymCategoryRepo) ApplyReconciliation(ctx context.Context, acronymID string, toAdd, toRemove []string) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	for _, name := range toAdd {
		// find-or-create: INSERTが衝突した場合は既存行を使う
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, name) VALUES ($1, $2)
			 ON CONFLICT (name) DO NOTHING`,
			uuid.New().String(), name,
		)
		if err != nil {
			return fmt.Errorf("カテゴリのfind-or-createに失敗しました: %w", err)
		}

		var categoryID string
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE name = $1`,
			name,
		).Scan(&categoryID)
		if err != nil {
			return fmt.Errorf("カテゴリIDの解決に失敗しました: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO acronym_categories (acronym_id, category_id)
			 VALUES ($1, $2)
			 ON CONFLICT (acronym_id, category_id) DO NOTHING`,
			acronymID, categoryID,
		)
		if err != nil {
			return fmt.Errorf("カテゴリの付与に失敗しました: %w", err)
		}
	}

	for _, name := range toRemove {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM acronym_categories ac
			 USING categories c
			 WHERE ac.category_id = c.id AND ac.acronym_id = $1 AND c.name = $2`,
			acronymID, name,
		)
		if err != nil {
			return fmt.Errorf("カテゴリの解除に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ AcronymCategoryRepository = (*PostgresAcronymCategoryRepo)(nil)
