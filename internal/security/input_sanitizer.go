// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はユーザーが送信するテキスト（略語のshort/long、
// カテゴリ名、ユーザー名）からHTMLタグを除去し、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayのStrictPolicyを使用し、タグを一切許可しない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// 略語・カテゴリ・ユーザーの作成および更新の保存前に使用される。
type InputSanitizerService interface {
	// Sanitize は入力テキストからすべてのHTMLタグを除去し、前後の空白を取り除く。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（許可タグなし）を使用するため、scriptタグや
// on*イベント属性を含むあらゆるHTMLが除去される。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからすべてのHTMLタグを除去し、前後の空白を取り除く。
func (s *inputSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ InputSanitizerService = (*inputSanitizer)(nil)
