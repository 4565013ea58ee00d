// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/acrodex/internal/middleware"
	"github.com/hitoshi/acrodex/internal/model"
)

// AcronymServiceInterface は略語ハンドラーが必要とするサービスインターフェース。
type AcronymServiceInterface interface {
	// List は全略語を作成順で返す。
	List(ctx context.Context) ([]*model.Acronym, error)
	// Create は認証済みユーザーの略語を作成する。
	Create(ctx context.Context, userID, short, long string) (*model.Acronym, error)
	// Get は指定IDの略語を返す。
	Get(ctx context.Context, id string) (*model.Acronym, error)
	// Update は略語を更新する。所有権は編集者に移転する。
	Update(ctx context.Context, id, editorID, short, long string) (*model.Acronym, error)
	// Delete は略語とそのカテゴリ関連エッジを削除する。
	Delete(ctx context.Context, id string) error
	// Search は完全一致で略語を検索する。
	Search(ctx context.Context, term string) ([]*model.Acronym, error)
	// First は作成順で先頭の略語を返す。
	First(ctx context.Context) (*model.Acronym, error)
	// Sorted は全略語をshortの辞書順で返す。
	Sorted(ctx context.Context) ([]*model.Acronym, error)
	// Owner は略語の所有者を公開表現で返す。
	Owner(ctx context.Context, acronymID string) (*model.UserPublic, error)
	// Categories は略語に関連付いたカテゴリ一覧を返す。
	Categories(ctx context.Context, acronymID string) ([]*model.Category, error)
	// AttachCategory は略語にカテゴリを関連付ける（冪等）。
	AttachCategory(ctx context.Context, acronymID, categoryID string) error
	// DetachCategory は略語からカテゴリの関連付けを解除する。
	DetachCategory(ctx context.Context, acronymID, categoryID string) error
}

// CategoryReconciler はカテゴリ集合の調整に必要なインターフェース。
type CategoryReconciler interface {
	// Reconcile は略語のカテゴリ集合を希望集合に一致させる。
	Reconcile(ctx context.Context, acronymID string, desired []string) error
}

// AcronymHandler は略語管理のHTTPハンドラー。
type AcronymHandler struct {
	service    AcronymServiceInterface
	reconciler CategoryReconciler
}

// NewAcronymHandler はAcronymHandlerを生成する。
func NewAcronymHandler(service AcronymServiceInterface, reconciler CategoryReconciler) *AcronymHandler {
	return &AcronymHandler{
		service:    service,
		reconciler: reconciler,
	}
}

// acronymRequest は略語の作成・更新リクエストのボディ。
type acronymRequest struct {
	Short string `json:"short"`
	Long  string `json:"long"`
}

// reconcileCategoriesRequest はカテゴリ集合調整リクエストのボディ。
type reconcileCategoriesRequest struct {
	Categories []string `json:"categories"`
}

// acronymResponse は略語のAPIレスポンス。
type acronymResponse struct {
	ID     string `json:"id"`
	Short  string `json:"short"`
	Long   string `json:"long"`
	UserID string `json:"user_id"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListAcronyms は全略語の一覧を返す。
// GET /api/acronyms
func (h *AcronymHandler) ListAcronyms(w http.ResponseWriter, r *http.Request) {
	acronyms, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponses(acronyms))
}

// CreateAcronym は略語を作成する。
// POST /api/acronyms
func (h *AcronymHandler) CreateAcronym(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req acronymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	acronym, err := h.service.Create(r.Context(), userID, req.Short, req.Long)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toAcronymResponse(acronym))
}

// GetAcronym は略語詳細を取得する。
// GET /api/acronyms/:id
func (h *AcronymHandler) GetAcronym(w http.ResponseWriter, r *http.Request) {
	acronym, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponse(acronym))
}

// UpdateAcronym は略語を更新する。所有権は編集したユーザーに移転する。
// PUT /api/acronyms/:id
func (h *AcronymHandler) UpdateAcronym(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req acronymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	acronym, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, req.Short, req.Long)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponse(acronym))
}

// DeleteAcronym は略語を削除する。
// DELETE /api/acronyms/:id
func (h *AcronymHandler) DeleteAcronym(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchAcronyms はshortまたはlongの完全一致で略語を検索する。
// GET /api/acronyms/search?term=OMG
func (h *AcronymHandler) SearchAcronyms(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")

	acronyms, err := h.service.Search(r.Context(), term)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponses(acronyms))
}

// FirstAcronym は作成順で先頭の略語を返す。
// GET /api/acronyms/first
func (h *AcronymHandler) FirstAcronym(w http.ResponseWriter, r *http.Request) {
	acronym, err := h.service.First(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponse(acronym))
}

// SortedAcronyms は全略語をshortの辞書順で返す。
// GET /api/acronyms/sorted
func (h *AcronymHandler) SortedAcronyms(w http.ResponseWriter, r *http.Request) {
	acronyms, err := h.service.Sorted(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponses(acronyms))
}

// GetAcronymUser は略語の所有者を返す。
// GET /api/acronyms/:id/user
func (h *AcronymHandler) GetAcronymUser(w http.ResponseWriter, r *http.Request) {
	owner, err := h.service.Owner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(owner))
}

// GetAcronymCategories は略語に関連付いたカテゴリ一覧を返す。
// GET /api/acronyms/:id/categories
func (h *AcronymHandler) GetAcronymCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCategoryResponses(categories))
}

// AttachCategory は略語にカテゴリを関連付ける。既存のエッジへの付与は何もしない。
// POST /api/acronyms/:acronymID/categories/:categoryID
func (h *AcronymHandler) AttachCategory(w http.ResponseWriter, r *http.Request) {
	acronymID := chi.URLParam(r, "acronymID")
	categoryID := chi.URLParam(r, "categoryID")

	if err := h.service.AttachCategory(r.Context(), acronymID, categoryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// DetachCategory は略語からカテゴリの関連付けを解除する。
// DELETE /api/acronyms/:acronymID/categories/:categoryID
func (h *AcronymHandler) DetachCategory(w http.ResponseWriter, r *http.Request) {
	acronymID := chi.URLParam(r, "acronymID")
	categoryID := chi.URLParam(r, "categoryID")

	if err := h.service.DetachCategory(r.Context(), acronymID, categoryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReconcileCategories は略語のカテゴリ集合を希望集合に一致させる。
// PUT /api/acronyms/:id/categories
func (h *AcronymHandler) ReconcileCategories(w http.ResponseWriter, r *http.Request) {
	var req reconcileCategoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), chi.URLParam(r, "id"), req.Categories); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toAcronymResponse はmodel.AcronymからAPIレスポンスに変換する。
func toAcronymResponse(acronym *model.Acronym) acronymResponse {
	return acronymResponse{
		ID:     acronym.ID,
		Short:  acronym.Short,
		Long:   acronym.Long,
		UserID: acronym.UserID,
	}
}

// toAcronymResponses は略語スライスをAPIレスポンスに変換する。
// データが0件の場合もnullではなく空配列を返す。
func toAcronymResponses(acronyms []*model.Acronym) []acronymResponse {
	responses := make([]acronymResponse, 0, len(acronyms))
	for _, a := range acronyms {
		responses = append(responses, toAcronymResponse(a))
	}
	return responses
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// newInvalidRequestError はリクエストボディ解析失敗のエラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAcronymNotFound, model.ErrCodeUserNotFound,
		model.ErrCodeCategoryNotFound, model.ErrCodeNoAcronyms:
		return http.StatusNotFound
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeDuplicateUsername:
		return http.StatusConflict
	case model.ErrCodeMissingSearchTerm, model.ErrCodeValidationFailed, "INVALID_REQUEST":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
