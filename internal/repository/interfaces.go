// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/acrodex/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// usernameのUNIQUE制約違反の場合は*model.APIError（DUPLICATE_USERNAME）を返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーを作成順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// AcronymRepository は略語データの永続化インターフェース。
type AcronymRepository interface {
	// Create は略語を作成する。
	Create(ctx context.Context, acronym *model.Acronym) error

	// FindByID は指定IDの略語を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Acronym, error)

	// List は全略語を作成順で返す。
	List(ctx context.Context) ([]*model.Acronym, error)

	// Update は略語のshort、long、user_idを更新する。
	Update(ctx context.Context, acronym *model.Acronym) error

	// Delete は指定IDの略語を削除する。
	// ピボット行の削除は呼び出し側（サービス層）の責務。
	Delete(ctx context.Context, id string) error

	// ListByUserID は指定ユーザーが所有する略語一覧を返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Acronym, error)

	// Search はshortまたはlongがtermに完全一致する略語を返す。
	// 部分一致では検索しない。
	Search(ctx context.Context, term string) ([]*model.Acronym, error)

	// First は作成順で先頭の略語を返す。1件も存在しない場合はnilを返す。
	First(ctx context.Context) (*model.Acronym, error)

	// ListSortedByShort は全略語をshortの辞書順（昇順）で返す。
	ListSortedByShort(ctx context.Context) ([]*model.Acronym, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
type CategoryRepository interface {
	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error

	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)

	// FindByName は名前でカテゴリを検索する（完全一致）。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Category, error)

	// List は全カテゴリを作成順で返す。
	List(ctx context.Context) ([]*model.Category, error)
}

// AcronymCategoryRepository は略語とカテゴリの多対多関係の永続化インターフェース。
type AcronymCategoryRepository interface {
	// Attach はエッジを作成する。既に存在するエッジへの付与は何もしない（冪等）。
	Attach(ctx context.Context, acronymID, categoryID string) error

	// Detach はエッジを削除する。存在しないエッジの削除はエラーにしない。
	Detach(ctx context.Context, acronymID, categoryID string) error

	// ListCategoriesByAcronymID は略語に関連付いたカテゴリ一覧を返す。
	ListCategoriesByAcronymID(ctx context.Context, acronymID string) ([]*model.Category, error)

	// ListAcronymsByCategoryID はカテゴリに関連付いた略語一覧を返す。
	ListAcronymsByCategoryID(ctx context.Context, categoryID string) ([]*model.Acronym, error)

	// DeleteByAcronymID は略語に関連する全エッジを削除する。
	DeleteByAcronymID(ctx context.Context, acronymID string) error

	// ApplyReconciliation はカテゴリ集合の差分を単一トランザクションで適用する。
	// toAddの各名前はfind-or-create（UNIQUE制約 + ON CONFLICT）でカテゴリを解決して付与し、
	// toRemoveの各名前は対応するエッジを削除する。
	// いずれかのステップが失敗した場合は全体をロールバックする。
	ApplyReconciliation(ctx context.Context, acronymID string, toAdd, toRemove []string) error
}

// TokenRepository はベアラートークンの永続化インターフェース。
type TokenRepository interface {
	// Create はトークンを作成する。
	Create(ctx context.Context, token *model.Token) error

	// FindByToken はトークン文字列でトークンを検索する。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Token, error)
}

// SessionRepository はWeb UIセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
