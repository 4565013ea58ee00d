// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAcronymNotFound    = "ACRONYM_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeNoAcronyms         = "NO_ACRONYMS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeMissingSearchTerm  = "MISSING_SEARCH_TERM"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
)

// NewAcronymNotFoundError は略語未検出エラーを生成する。
func NewAcronymNotFoundError(acronymID string) *APIError {
	return &APIError{
		Code:     ErrCodeAcronymNotFound,
		Message:  fmt.Sprintf("指定された略語が見つかりません: %s", acronymID),
		Category: "resource",
		Action:   "略語IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "resource",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: "resource",
		Action:   "カテゴリIDを確認してください。",
	}
}

// NewNoAcronymsError は略語が1件も存在しない場合のエラーを生成する。
func NewNoAcronymsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoAcronyms,
		Message:  "略語がまだ登録されていません。",
		Category: "resource",
		Action:   "先に略語を登録してください。",
	}
}

// NewUnauthorizedError は認証が必要なことを示すエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// ユーザー名の存在有無を漏らさないよう、メッセージは常に同一にする。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewMissingSearchTermError は検索語未指定エラーを生成する。
func NewMissingSearchTermError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingSearchTerm,
		Message:  "検索語が指定されていません。",
		Category: "validation",
		Action:   "クエリパラメータtermを指定してください。",
	}
}

// NewValidationFailedError は入力値検証エラーを生成する。
func NewValidationFailedError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", field),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
