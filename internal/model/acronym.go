// Package model はドメインモデルを定義する。
package model

import "time"

// Acronym は略語と展開形のペアを表す。
// UserIDは所有ユーザーを指す必須の外部キー。
type Acronym struct {
	ID        string
	Short     string
	Long      string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AcronymCategory は略語とカテゴリの多対多関係を表すピボットレコード。
// (AcronymID, CategoryID)のペアが同一のエッジは重複して存在しない。
type AcronymCategory struct {
	AcronymID  string
	CategoryID string
	CreatedAt  time.Time
}
