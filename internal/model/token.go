// Package model はドメインモデルを定義する。
package model

import "time"

// Token はAPIアクセス用の不透明なベアラートークンを表す。
// ログイン時に発行され、ベアラー認証のたびに照合される。
// 有効期限は持たない。
type Token struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
}
