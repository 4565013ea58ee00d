package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(generalBurst, loginBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // 補充をほぼ無効化してバーストのみを検証
		GeneralBurst:    generalBurst,
		LoginRate:       rate.Limit(0.001),
		LoginBurst:      loginBurst,
		CleanupInterval: time.Hour,
	}
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestGeneralMiddleware_RejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
		req = req.WithContext(ContextWithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		lastCode = rec.Code

		if i == 2 {
			if rec.Header().Get("Retry-After") == "" {
				t.Error("Retry-Afterヘッダーが設定されるべき")
			}
		}
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("3リクエスト目のstatus = %d, want 429", lastCode)
	}
}

func TestGeneralMiddleware_PerUserBuckets(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// user-1がバーストを使い切る
	req1 := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
	req1 = req1.WithContext(ContextWithUserID(req1.Context(), "user-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req1)

	// user-2は影響を受けない
	req2 := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
	req2 = req2.WithContext(ContextWithUserID(req2.Context(), "user-2"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req2)

	if rec.Code != http.StatusOK {
		t.Errorf("user-2のstatus = %d, want 200", rec.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestGeneralMiddleware_RequiresAuthentication(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginMiddleware_KeyedByClientIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	handler := rl.LoginMiddleware()(okHandler())

	// 同一IPからの2回目は拒否される
	req1 := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	req1.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	req2.RemoteAddr = "10.0.0.1:5678"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusTooManyRequests {
		t.Errorf("同一IPの2回目のstatus = %d, want 429", rec2.Code)
	}

	// 別IPは独立したバケット
	req3 := httptest.NewRequest(http.MethodPost, "/api/users/login", nil)
	req3.RemoteAddr = "10.0.0.2:1234"
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, req3)

	if rec3.Code != http.StatusOK {
		t.Errorf("別IPのstatus = %d, want 200", rec3.Code)
	}
	if rl.LoginLimiterCount() != 2 {
		t.Errorf("LoginLimiterCount = %d, want 2", rl.LoginLimiterCount())
	}
}

func TestCleanup_RemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	rl.getOrCreateLimiter(&rl.generalMu, rl.generalLimiters, "user-1", rl.config.GeneralRate, rl.config.GeneralBurst)

	// 最終アクセス時刻を過去に巻き戻す
	rl.generalMu.Lock()
	rl.generalLimiters["user-1"].lastAccess = time.Now().Add(-3 * time.Hour)
	rl.generalMu.Unlock()

	rl.cleanup()

	if rl.GeneralLimiterCount() != 0 {
		t.Errorf("GeneralLimiterCount = %d, 古いエントリは削除されるべき", rl.GeneralLimiterCount())
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.LoginBurst != 10 {
		t.Errorf("LoginBurst = %d, want 10", config.LoginBurst)
	}
}
