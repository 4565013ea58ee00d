package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/acronyms", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if origin := rec.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want http://localhost:3000", origin)
	}
	if creds := rec.Header().Get("Access-Control-Allow-Credentials"); creds != "true" {
		t.Errorf("Allow-Credentials = %q, want true", creds)
	}
	if headers := rec.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "Authorization") {
		t.Errorf("Allow-Headers = %q, Authorizationが含まれるべき", headers)
	}
}

func TestCORSMiddleware_PreflightReturns204(t *testing.T) {
	handler := NewCORSMiddleware("http://localhost:3000")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("プリフライトリクエストでハンドラーが呼ばれてはならない")
		}),
	)

	req := httptest.NewRequest(http.MethodOptions, "/api/acronyms", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
