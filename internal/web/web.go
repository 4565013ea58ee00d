// Package web はサーバーサイドレンダリングのWeb UIを提供する。
// 閲覧ページは誰でも見られるが、略語の登録・編集・削除はセッション
// ログインしたユーザーのみ行える。REST APIとは独立したルーティングを持つ。
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/acrodex/internal/middleware"
	"github.com/hitoshi/acrodex/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// AcronymService は略語ページに必要なサービスインターフェース。
type AcronymService interface {
	List(ctx context.Context) ([]*model.Acronym, error)
	Get(ctx context.Context, id string) (*model.Acronym, error)
	Create(ctx context.Context, userID, short, long string) (*model.Acronym, error)
	Update(ctx context.Context, id, editorID, short, long string) (*model.Acronym, error)
	Delete(ctx context.Context, id string) error
	Owner(ctx context.Context, acronymID string) (*model.UserPublic, error)
	Categories(ctx context.Context, acronymID string) ([]*model.Category, error)
}

// CategoryReconciler は略語フォームのカテゴリ入力を関連付けに反映する。
type CategoryReconciler interface {
	Reconcile(ctx context.Context, acronymID string, desired []string) error
}

// UserService はユーザーページに必要なサービスインターフェース。
type UserService interface {
	List(ctx context.Context) ([]model.UserPublic, error)
	Get(ctx context.Context, id string) (*model.UserPublic, error)
	Acronyms(ctx context.Context, userID string) ([]*model.Acronym, error)
}

// CategoryService はカテゴリページに必要なサービスインターフェース。
type CategoryService interface {
	List(ctx context.Context) ([]*model.Category, error)
	Get(ctx context.Context, id string) (*model.Category, error)
	Acronyms(ctx context.Context, categoryID string) ([]*model.Acronym, error)
}

// AuthService はログイン・ログアウトとセッションからのユーザー解決を行う。
type AuthService interface {
	AuthenticateBasic(ctx context.Context, username, password string) (*model.User, error)
	CreateSession(ctx context.Context, userID string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// Handler はWeb UIの全ページを処理する。
type Handler struct {
	acronymService  AcronymService
	reconciler      CategoryReconciler
	userService     UserService
	categoryService CategoryService
	authService     AuthService
	csrfConfig      middleware.CSRFConfig
	cookieSecure    bool
	templates       map[string]*template.Template
}

// NewHandler はHandlerを生成する。テンプレートは起動時にパースされ、
// 不正なテンプレートはここでpanicする。
func NewHandler(
	acronymService AcronymService,
	reconciler CategoryReconciler,
	userService UserService,
	categoryService CategoryService,
	authService AuthService,
	csrfConfig middleware.CSRFConfig,
) *Handler {
	pages := []string{
		"index.html",
		"acronym.html",
		"acronym_form.html",
		"users.html",
		"user.html",
		"categories.html",
		"category.html",
		"login.html",
	}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		templates[page] = template.Must(template.ParseFS(
			templatesFS, "templates/layout.html", "templates/"+page,
		))
	}

	return &Handler{
		acronymService:  acronymService,
		reconciler:      reconciler,
		userService:     userService,
		categoryService: categoryService,
		authService:     authService,
		csrfConfig:      csrfConfig,
		cookieSecure:    csrfConfig.CookieSecure,
		templates:       templates,
	}
}

// NewRouter はWeb UIのルーターを構築する。
// 書き込み系ページはセッションミドルウェアで保護され、未ログイン時は
// /login にリダイレクトされる。
func NewRouter(h *Handler, sessionFinder middleware.SessionFinder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewCSRFMiddleware(h.csrfConfig))

	r.Get("/", h.Index)
	r.Get("/acronyms/{id}", h.AcronymDetail)
	r.Get("/users", h.UserList)
	r.Get("/users/{id}", h.UserDetail)
	r.Get("/categories", h.CategoryList)
	r.Get("/categories/{id}", h.CategoryDetail)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	// JavaScriptからX-CSRF-Tokenヘッダーで送信する場合のトークン取得用
	r.Get("/csrf-token", middleware.NewCSRFTokenHandler(h.csrfConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewWebSessionMiddleware(sessionFinder, "/login"))

		r.Get("/acronyms/create", h.CreateAcronymForm)
		r.Post("/acronyms/create", h.CreateAcronym)
		r.Get("/acronyms/{id}/edit", h.EditAcronymForm)
		r.Post("/acronyms/{id}/edit", h.EditAcronym)
		r.Post("/acronyms/{id}/delete", h.DeleteAcronym)
	})

	return r
}

// pageData は全ページ共通のテンプレートデータ。
type pageData struct {
	Title       string
	CurrentUser *model.UserPublic
	CSRFToken   string

	Acronyms   []*model.Acronym
	Acronym    *model.Acronym
	Owner      *model.UserPublic
	Categories []*model.Category
	Users      []model.UserPublic
	User       *model.UserPublic
	Category   *model.Category

	LoginError string

	// 略語フォーム用
	Editing       bool
	Short         string
	Long          string
	CategoryNames string
}

// newPageData は共通フィールドを埋めたpageDataを返す。
// CSRFトークンCookieが未設定の場合はここで払い出す。
func (h *Handler) newPageData(w http.ResponseWriter, r *http.Request, title string) pageData {
	data := pageData{Title: title}

	if token, err := middleware.EnsureCSRFToken(w, r, h.csrfConfig); err == nil {
		data.CSRFToken = token
	}

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if user, err := h.authService.GetCurrentUser(r.Context(), cookie.Value); err == nil {
			public := user.Public()
			data.CurrentUser = &public
		}
	}

	return data
}

func (h *Handler) render(w http.ResponseWriter, page string, data pageData) {
	tmpl, ok := h.templates[page]
	if !ok {
		slog.Error("template not found", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("template execution failed",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

// renderError はサービスエラーをHTMLページとして描画する。
// 404相当のエラーコードはNot Found、それ以外は500として扱う。
func (h *Handler) renderError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeAcronymNotFound, model.ErrCodeUserNotFound,
			model.ErrCodeCategoryNotFound, model.ErrCodeNoAcronyms:
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}
	slog.Error("web handler error", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// Index は略語の一覧ページを表示する。
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	acronyms, err := h.acronymService.List(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, "略語一覧")
	data.Acronyms = acronyms
	h.render(w, "index.html", data)
}

// AcronymDetail は略語の詳細ページを表示する。
func (h *Handler) AcronymDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	acronym, err := h.acronymService.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	owner, err := h.acronymService.Owner(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	categories, err := h.acronymService.Categories(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, acronym.Short)
	data.Acronym = acronym
	data.Owner = owner
	data.Categories = categories
	h.render(w, "acronym.html", data)
}

// UserList はユーザーの一覧ページを表示する。
func (h *Handler) UserList(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, "ユーザー一覧")
	data.Users = users
	h.render(w, "users.html", data)
}

// UserDetail はユーザーの詳細ページを表示する。
func (h *Handler) UserDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	acronyms, err := h.userService.Acronyms(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, user.Name)
	data.User = user
	data.Acronyms = acronyms
	h.render(w, "user.html", data)
}

// CategoryList はカテゴリの一覧ページを表示する。
func (h *Handler) CategoryList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, "カテゴリ一覧")
	data.Categories = categories
	h.render(w, "categories.html", data)
}

// CategoryDetail はカテゴリの詳細ページを表示する。
func (h *Handler) CategoryDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	category, err := h.categoryService.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	acronyms, err := h.categoryService.Acronyms(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPageData(w, r, category.Name)
	data.Category = category
	data.Acronyms = acronyms
	h.render(w, "category.html", data)
}

// LoginForm はログインフォームを表示する。
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(w, r, "ログイン")
	h.render(w, "login.html", data)
}

// Login はフォームの資格情報を検証し、セッションCookieを発行する。
// 認証失敗時はエラーメッセージ付きでフォームを再表示する。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := h.authService.AuthenticateBasic(r.Context(), username, password)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			data := h.newPageData(w, r, "ログイン")
			data.LoginError = "ユーザー名またはパスワードが正しくありません。"
			w.WriteHeader(http.StatusUnauthorized)
			h.render(w, "login.html", data)
			return
		}
		h.renderError(w, err)
		return
	}

	session, err := h.authService.CreateSession(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はセッションを破棄し、Cookieを失効させる。
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("session deletion failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// CreateAcronymForm は略語の登録フォームを表示する。
func (h *Handler) CreateAcronymForm(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(w, r, "略語を登録")
	h.render(w, "acronym_form.html", data)
}

// CreateAcronym はフォームから略語を登録し、カテゴリを関連付ける。
func (h *Handler) CreateAcronym(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	acronym, err := h.acronymService.Create(r.Context(),
		userID,
		r.PostFormValue("short"),
		r.PostFormValue("long"),
	)
	if err != nil {
		h.renderFormError(w, r, err, false, "")
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), acronym.ID, splitCategoryNames(r.PostFormValue("categories"))); err != nil {
		h.renderError(w, err)
		return
	}

	http.Redirect(w, r, "/acronyms/"+acronym.ID, http.StatusSeeOther)
}

// EditAcronymForm は略語の編集フォームを既存の値で表示する。
func (h *Handler) EditAcronymForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	acronym, err := h.acronymService.Get(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}
	categories, err := h.acronymService.Categories(r.Context(), id)
	if err != nil {
		h.renderError(w, err)
		return
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	data := h.newPageData(w, r, "略語を編集")
	data.Editing = true
	data.Short = acronym.Short
	data.Long = acronym.Long
	data.CategoryNames = strings.Join(names, ", ")
	h.render(w, "acronym_form.html", data)
}

// EditAcronym はフォームから略語を更新し、カテゴリの関連付けを同期する。
func (h *Handler) EditAcronym(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	acronym, err := h.acronymService.Update(r.Context(),
		id,
		userID,
		r.PostFormValue("short"),
		r.PostFormValue("long"),
	)
	if err != nil {
		h.renderFormError(w, r, err, true, id)
		return
	}

	if err := h.reconciler.Reconcile(r.Context(), acronym.ID, splitCategoryNames(r.PostFormValue("categories"))); err != nil {
		h.renderError(w, err)
		return
	}

	http.Redirect(w, r, "/acronyms/"+acronym.ID, http.StatusSeeOther)
}

// DeleteAcronym は略語を削除し、一覧ページへ戻す。
func (h *Handler) DeleteAcronym(w http.ResponseWriter, r *http.Request) {
	if err := h.acronymService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// renderFormError はバリデーションエラー時に入力値を保持したまま
// フォームを再表示する。それ以外のエラーは通常のエラーページに委ねる。
func (h *Handler) renderFormError(w http.ResponseWriter, r *http.Request, err error, editing bool, id string) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		h.renderError(w, err)
		return
	}

	title := "略語を登録"
	if editing {
		title = "略語を編集"
	}
	data := h.newPageData(w, r, title)
	data.Editing = editing
	data.Short = r.PostFormValue("short")
	data.Long = r.PostFormValue("long")
	data.CategoryNames = r.PostFormValue("categories")
	w.WriteHeader(http.StatusBadRequest)
	h.render(w, "acronym_form.html", data)
}

// splitCategoryNames はカンマ区切りのカテゴリ入力を名前のスライスに変換する。
// 空要素は取り除く。
func splitCategoryNames(input string) []string {
	parts := strings.Split(input, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
