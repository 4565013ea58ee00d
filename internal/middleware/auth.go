package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/acrodex/internal/model"
)

// TokenAuthenticator はベアラートークンの検証に必要なインターフェース。
type TokenAuthenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (*model.User, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証する
// ミドルウェアを返す。認証済みユーザーIDをリクエストコンテキストに注入する。
// ヘッダーが欠落・不正・無効な場合は401 Unauthorizedを統一エラーフォーマットで返す。
func NewBearerAuthMiddleware(authenticator TokenAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenValue, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			user, err := authenticator.AuthenticateBearer(r.Context(), tokenValue)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				slog.Error("failed to authenticate bearer token",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			ctx := ContextWithUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからベアラートークンを抽出する。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
