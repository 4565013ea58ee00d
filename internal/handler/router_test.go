package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/acrodex/internal/middleware"
	"github.com/hitoshi/acrodex/internal/model"
)

// mockTokenAuthenticator はmiddleware.TokenAuthenticatorのモック実装。
type mockTokenAuthenticator struct {
	authenticateBearerFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockTokenAuthenticator) AuthenticateBearer(ctx context.Context, token string) (*model.User, error) {
	if m.authenticateBearerFn != nil {
		return m.authenticateBearerFn(ctx, token)
	}
	return nil, model.NewUnauthorizedError()
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	pingErr error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.pingErr
}

func newTestRouter(t *testing.T, authenticator middleware.TokenAuthenticator) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		LoginRate:       rate.Limit(1000),
		LoginBurst:      1000,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin:  "http://localhost:3000",
		RateLimiter:        rl,
		TokenAuthenticator: authenticator,
		AcronymService:     &mockAcronymService{},
		CategoryReconciler: &mockCategoryReconciler{},
		UserService:        &mockUserService{},
		AuthService:        &mockAuthService{},
		CategoryService:    &mockCategoryService{},
		HealthChecker:      &mockHealthChecker{},
	})
}

func TestRouter_PublicRoutesRequireNoAuth(t *testing.T) {
	router := newTestRouter(t, &mockTokenAuthenticator{})

	paths := []string{
		"/api/acronyms",
		"/api/acronyms/search?term=OMG",
		"/api/acronyms/sorted",
		"/api/acronyms/acr-1",
		"/api/acronyms/acr-1/user",
		"/api/acronyms/acr-1/categories",
		"/api/users",
		"/api/users/user-1",
		"/api/users/user-1/acronyms",
		"/api/categories",
		"/api/categories/cat-1",
		"/api/categories/cat-1/acronyms",
	}

	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code == http.StatusUnauthorized {
			t.Errorf("GET %s: 認証なしで401が返されてはならない", path)
		}
	}
}

func TestRouter_WriteRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t, &mockTokenAuthenticator{})

	requests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/acronyms"},
		{http.MethodPut, "/api/acronyms/acr-1"},
		{http.MethodDelete, "/api/acronyms/acr-1"},
		{http.MethodPost, "/api/acronyms/acr-1/categories/cat-1"},
		{http.MethodDelete, "/api/acronyms/acr-1/categories/cat-1"},
		{http.MethodPut, "/api/acronyms/acr-1/categories"},
		{http.MethodPost, "/api/users"},
		{http.MethodPost, "/api/categories"},
	}

	for _, tt := range requests {
		req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString("{}"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, 認証なしは401であるべき", tt.method, tt.path, rec.Code)
		}
	}
}

func TestRouter_AuthenticatedCreateSucceeds(t *testing.T) {
	authenticator := &mockTokenAuthenticator{
		authenticateBearerFn: func(ctx context.Context, token string) (*model.User, error) {
			return &model.User{ID: "user-1", Username: "alice"}, nil
		},
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rl.Stop()

	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin:  "http://localhost:3000",
		RateLimiter:        rl,
		TokenAuthenticator: authenticator,
		AcronymService: &mockAcronymService{
			createFn: func(ctx context.Context, userID, short, long string) (*model.Acronym, error) {
				return &model.Acronym{ID: "acr-1", Short: short, Long: long, UserID: userID}, nil
			},
		},
		CategoryReconciler: &mockCategoryReconciler{},
		UserService:        &mockUserService{},
		AuthService:        &mockAuthService{},
		CategoryService:    &mockCategoryService{},
		HealthChecker:      &mockHealthChecker{},
	})

	body := `{"short": "OMG", "long": "Oh My God"}`
	req := httptest.NewRequest(http.MethodPost, "/api/acronyms", bytes.NewBufferString(body))
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, &mockTokenAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRouter_SecurityHeadersApplied(t *testing.T) {
	router := newTestRouter(t, &mockTokenAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("X-Content-Type-Optionsヘッダーが設定されるべき")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("CORSヘッダーが設定されるべき")
	}
}
