package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecureMiddleware_SetsHeaders(t *testing.T) {
	handler := NewSecureMiddleware(SecureOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	tests := []struct {
		header string
		want   string
	}{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
		{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	}
	for _, tt := range tests {
		if got := w.Header().Get(tt.header); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.header, got, tt.want)
		}
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS should be disabled outside production, got %q", got)
	}
}

func TestSecureMiddleware_ProductionRedirectsPlainHTTP(t *testing.T) {
	called := false
	handler := NewSecureMiddleware(SecureOptions{Production: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.example.com/health", nil))

	if called {
		t.Error("next handler should not be called for plain HTTP in production")
	}
	if w.Code < 300 || w.Code >= 400 {
		t.Errorf("status = %d, want redirect", w.Code)
	}
}

func TestSecureMiddleware_ProductionBehindTLSProxy(t *testing.T) {
	handler := NewSecureMiddleware(SecureOptions{Production: true})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}

// コンテナ内ヘルスチェックは本番でもHTTPのまま通す。
func TestSecureMiddleware_ProductionPlainHTTPPath(t *testing.T) {
	handler := NewSecureMiddleware(SecureOptions{
		Production:     true,
		PlainHTTPPaths: []string{"/health"},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost:8080/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://localhost:8080/users", nil))
	if w.Code < 300 || w.Code >= 400 {
		t.Errorf("POST /users status = %d, want redirect", w.Code)
	}
}
