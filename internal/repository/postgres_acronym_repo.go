package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/acrodex/internal/model"
)

// PostgresAcronymRepo はPostgreSQLを使用した略語リポジトリ。
type PostgresAcronymRepo struct {
	db *sql.DB
}

// NewPostgresAcronymRepo はPostgresAcronymRepoを生成する。
func NewPostgresAcronymRepo(db *sql.DB) *PostgresAcronymRepo {
	return &PostgresAcronymRepo{db: db}
}

// Create は略語を作成する。
func (r *PostgresAcronymRepo) Create(ctx context.Context, acronym *model.Acronym) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO acronyms (id, short, long, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		acronym.ID, acronym.Short, acronym.Long, acronym.UserID, acronym.CreatedAt, acronym.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("略語の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの略語を取得する。見つからない場合はnilを返す。
func (r *PostgresAcronymRepo) FindByID(ctx context.Context, id string) (*model.Acronym, error) {
	acronym := &model.Acronym{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at FROM acronyms WHERE id = $1`,
		id,
	).Scan(&acronym.ID, &acronym.Short, &acronym.Long, &acronym.UserID, &acronym.CreatedAt, &acronym.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("略語の取得に失敗しました: %w", err)
	}

	return acronym, nil
}

// List は全略語を作成順で返す。
func (r *PostgresAcronymRepo) List(ctx context.Context) ([]*model.Acronym, error) {
	return r.queryAcronyms(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at
		 FROM acronyms ORDER BY created_at ASC`,
	)
}

// Update は略語のshort、long、user_idを更新する。
func (r *PostgresAcronymRepo) Update(ctx context.Context, acronym *model.Acronym) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE acronyms SET short = $2, long = $3, user_id = $4, updated_at = NOW() WHERE id = $1`,
		acronym.ID, acronym.Short, acronym.Long, acronym.UserID,
	)
	if err != nil {
		return fmt.Errorf("略語の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("略語が見つかりません: %s", acronym.ID)
	}
	return nil
}

// Delete は指定IDの略語を削除する。
func (r *PostgresAcronymRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM acronyms WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("略語の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("略語が見つかりません: %s", id)
	}
	return nil
}

// ListByUserID は指定ユーザーが所有する略語一覧を返す。
func (r *PostgresAcronymRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Acronym, error) {
	return r.queryAcronyms(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at
		 FROM acronyms WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
}

// Search はshortまたはlongがtermに完全一致する略語を返す。
func (r *PostgresAcronymRepo) Search(ctx context.Context, term string) ([]*model.Acronym, error) {
	return r.queryAcronyms(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at
		 FROM acronyms WHERE short = $1 OR long = $1 ORDER BY created_at ASC`,
		term,
	)
}

// First は作成順で先頭の略語を返す。1件も存在しない場合はnilを返す。
func (r *PostgresAcronymRepo) First(ctx context.Context) (*model.Acronym, error) {
	acronym := &model.Acronym{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at
		 FROM acronyms ORDER BY created_at ASC LIMIT 1`,
	).Scan(&acronym.ID, &acronym.Short, &acronym.Long, &acronym.UserID, &acronym.CreatedAt, &acronym.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("先頭の略語の取得に失敗しました: %w", err)
	}

	return acronym, nil
}

// ListSortedByShort は全略語をshortの辞書順（昇順）で返す。
func (r *PostgresAcronymRepo) ListSortedByShort(ctx context.Context) ([]*model.Acronym, error) {
	return r.queryAcronyms(ctx,
		`SELECT id, short, long, user_id, created_at, updated_at
		 FROM acronyms ORDER BY short ASC`,
	)
}

// queryAcronyms は略語の一覧クエリを実行し、走査結果を返す。
func (r *PostgresAcronymRepo) queryAcronyms(ctx context.Context, query string, args ...interface{}) ([]*model.Acronym, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("略語一覧の取得に失敗しました: %w", err)
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
		return nil, fmt.Errorf("略語一覧の走査に失敗しました: %w", err)
	}
	return acronyms, nil
}

// compile-time interface check
var _ AcronymRepository = (*PostgresAcronymRepo)(nil)
