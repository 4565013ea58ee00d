package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/acrodex/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin  string
	RateLimiter        *middleware.RateLimiter
	TokenAuthenticator middleware.TokenAuthenticator
	Logger             *slog.Logger
	MetricsMiddleware  func(next http.Handler) http.Handler
	MetricsHandler     http.Handler

	// サービス
	AcronymService     AcronymServiceInterface
	CategoryReconciler CategoryReconciler
	UserService        UserServiceInterface
	AuthService        AuthServiceInterface
	CategoryService    CategoryServiceInterface

	// ヘルスチェック
	HealthChecker HealthChecker

	// Web UI（設定されている場合、未マッチのパスを処理する）
	WebHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// GET系の参照ルートとログインは認証不要。
// 書き込み系ルートはBearerAuth → RateLimit(General)を追加で通過する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.MetricsMiddleware != nil {
		r.Use(deps.MetricsMiddleware)
	}

	acronymHandler := NewAcronymHandler(deps.AcronymService, deps.CategoryReconciler)
	userHandler := NewUserHandler(deps.UserService, deps.AuthService)
	categoryHandler := NewCategoryHandler(deps.CategoryService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// Prometheusスクレイプ
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// ログイン（専用レート制限を適用）
	r.With(deps.RateLimiter.LoginMiddleware()).Post("/api/users/login", userHandler.Login)

	// 略語の参照
	r.Get("/api/acronyms", acronymHandler.ListAcronyms)
	r.Get("/api/acronyms/search", acronymHandler.SearchAcronyms)
	r.Get("/api/acronyms/first", acronymHandler.FirstAcronym)
	r.Get("/api/acronyms/sorted", acronymHandler.SortedAcronyms)
	r.Get("/api/acronyms/{id}", acronymHandler.GetAcronym)
	r.Get("/api/acronyms/{id}/user", acronymHandler.GetAcronymUser)
	r.Get("/api/acronyms/{id}/categories", acronymHandler.GetAcronymCategories)

	// ユーザーの参照
	r.Get("/api/users", userHandler.ListUsers)
	r.Get("/api/users/{id}", userHandler.GetUser)
	r.Get("/api/users/{id}/acronyms", userHandler.GetUserAcronyms)

	// カテゴリの参照
	r.Get("/api/categories", categoryHandler.ListCategories)
	r.Get("/api/categories/{id}", categoryHandler.GetCategory)
	r.Get("/api/categories/{id}/acronyms", categoryHandler.GetCategoryAcronyms)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenAuthenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー登録は認証済みユーザーのみ行える
		r.Post("/api/users", userHandler.RegisterUser)

		// 略語の書き込み
		r.Post("/api/acronyms", acronymHandler.CreateAcronym)
		r.Put("/api/acronyms/{id}", acronymHandler.UpdateAcronym)
		r.Delete("/api/acronyms/{id}", acronymHandler.DeleteAcronym)

		// カテゴリ関連付け
		r.Put("/api/acronyms/{id}/categories", acronymHandler.ReconcileCategories)
		r.Post("/api/acronyms/{acronymID}/categories/{categoryID}", acronymHandler.AttachCategory)
		r.Delete("/api/acronyms/{acronymID}/categories/{categoryID}", acronymHandler.DetachCategory)

		// カテゴリの作成
		r.Post("/api/categories", categoryHandler.CreateCategory)
	})

	// Web UI（静的なAPIルートが優先され、残りはここへ落ちる）
	if deps.WebHandler != nil {
		r.Mount("/", deps.WebHandler)
	}

	return r
}

// newHealthHandler はデータベース接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
