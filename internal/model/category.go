// Package model はドメインモデルを定義する。
package model

import "time"

// Category は略語に付与されるタグを表す。
// nameにはUNIQUE制約があり、同名カテゴリの重複作成は
// find-or-createのトランザクションで防がれる。
type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
