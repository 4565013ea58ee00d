package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/acrodex/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Register は新しいユーザーを登録する。
	Register(ctx context.Context, name, username, password string) (*model.User, error)
	// List は全ユーザーを公開表現で返す。
	List(ctx context.Context) ([]model.UserPublic, error)
	// Get は指定IDのユーザーを公開表現で返す。
	Get(ctx context.Context, id string) (*model.UserPublic, error)
	// Acronyms は指定ユーザーが作成した略語一覧を返す。
	Acronyms(ctx context.Context, userID string) ([]*model.Acronym, error)
}

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// AuthenticateBasic はユーザー名とパスワードでユーザーを認証する。
	AuthenticateBasic(ctx context.Context, username, password string) (*model.User, error)
	// IssueToken はユーザーに新しいベアラートークンを発行する。
	IssueToken(ctx context.Context, user *model.User) (*model.Token, error)
}

// UserHandler はユーザー管理と認証のHTTPハンドラー。
type UserHandler struct {
	userService UserServiceInterface
	authService AuthServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(userService UserServiceInterface, authService AuthServiceInterface) *UserHandler {
	return &UserHandler{
		userService: userService,
		authService: authService,
	}
}

// registerUserRequest はユーザー登録リクエストのボディ。
type registerUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse はユーザーの公開表現のAPIレスポンス。
// パスワードハッシュは決して含めない。
type userResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// tokenResponse はログイン成功時のAPIレスポンス。
type tokenResponse struct {
	ID     string `json:"id"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// RegisterUser は新しいユーザーを登録する。
// POST /api/users
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	user, err := h.userService.Register(r.Context(), req.Name, req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	public := user.Public()
	writeJSONResponse(w, http.StatusCreated, toUserResponse(&public))
}

// ListUsers は全ユーザーの一覧を返す。
// GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for i := range users {
		responses = append(responses, toUserResponse(&users[i]))
	}
	writeJSONResponse(w, http.StatusOK, responses)
}

// GetUser はユーザー詳細を取得する。
// GET /api/users/:id
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toUserResponse(user))
}

// GetUserAcronyms はユーザーが作成した略語の一覧を返す。
// GET /api/users/:id/acronyms
func (h *UserHandler) GetUserAcronyms(w http.ResponseWriter, r *http.Request) {
	acronyms, err := h.userService.Acronyms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAcronymResponses(acronyms))
}

// Login はBasic認証でユーザーを認証し、ベアラートークンを発行する。
// POST /api/users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
		return
	}

	user, err := h.authService.AuthenticateBasic(r.Context(), username, password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	token, err := h.authService.IssueToken(r.Context(), user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{
		ID:     token.ID,
		Token:  token.Token,
		UserID: token.UserID,
	})
}

// toUserResponse はmodel.UserPublicからAPIレスポンスに変換する。
func toUserResponse(user *model.UserPublic) userResponse {
	return userResponse{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
	}
}
