// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Passwordはbcryptハッシュを保持し、APIレスポンスには決して含めない。
type User struct {
	ID        string
	Name      string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPublic はユーザーの公開プロジェクション。
// パスワードハッシュを除いたフィールドのみを持つ。
type UserPublic struct {
	ID       string
	Name     string
	Username string
}

// Public はユーザーの公開プロジェクションを返す。
func (u *User) Public() UserPublic {
	return UserPublic{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
	}
}

// Session はWeb UIのログインセッションを表す。
// APIのベアラートークンとは独立に管理され、有効期限を持つ。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
