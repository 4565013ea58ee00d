package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/acrodex/internal/model"
)

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	// Create は新しいカテゴリを作成する。
	Create(ctx context.Context, name string) (*model.Category, error)
	// List は全カテゴリを作成順で返す。
	List(ctx context.Context) ([]*model.Category, error)
	// Get は指定IDのカテゴリを返す。
	Get(ctx context.Context, id string) (*model.Category, error)
	// Acronyms はカテゴリに関連付いた略語一覧を返す。
	Acronyms(ctx context.Context, categoryID string) ([]*model.Acronym, error)
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// createCategoryRequest はカテゴリ作成リクエストのボディ。
type createCategoryRequest struct {
	Name string `json:"name"`
}

// categoryResponse はカテゴリのAPIレスポンス。
type categoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateCategory はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	category, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toCategoryResponse(category))
}

// ListCategories は全カテゴリの一覧を返す。
// GET /api/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCategoryResponses(categories))
}

// GetCategory はカテゴリ詳細を取得する。
// GET /api/categories/:id
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toCategoryResponse(category))
}

// GetCategoryAcronyms はカテゴリに関連付いた略語の一覧を返す。
// GET /api/categories/:id/acronyms
func (h *CategoryHandler) GetCategoryAcronyms(w http.ResponseWriter, r *http.Request) {
	acronyms, err := h.service.Acronyms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponses(acronyms))
}

// toCategoryResponse はmodel.CategoryからAPIレスポンスに変換する。
func toCategoryResponse(category *model.Category) categoryResponse {
	return categoryResponse{
		ID:   category.ID,
		Name: category.Name,
	}
}

// toCategoryResponses はカテゴリスライスをAPIレスポンスに変換する。
// データが0件の場合もnullではなく空配列を返す。
func toCategoryResponses(categories []*model.Category) []categoryResponse {
	responses := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, toCategoryResponse(c))
	}
	return responses
}
