package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/internal/ctxkeys"
	"github.com/BaSui01/quizflow/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func serveOnce(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := serveOnce(SecurityHeaders()(okHandler), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serveOnce(Chain(okHandler, mark("a"), mark("b"), mark("c")), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRequestID(t *testing.T) {
	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ctxkeys.RequestID(r.Context())
	})
	h := RequestID()(inner)

	t.Run("generated", func(t *testing.T) {
		w := serveOnce(h, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Header().Get("X-Request-ID")
		assert.Len(t, id, 36)
		assert.Equal(t, id, seen)
	})

	t.Run("client id preserved", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "client-123")
		w := serveOnce(h, r)
		assert.Equal(t, "client-123", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "client-123", seen)
	})

	t.Run("oversized id replaced", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", strings.Repeat("x", 200))
		w := serveOnce(h, r)
		assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	})
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	w := serveOnce(Recovery(zap.NewNop())(panicky), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/game", "/api/game"},
		{"/api/topics", "/api/topics"},
		{"/api/game/0b6c5a3e-9f2d-4b8a-9c1e-3f4a5b6c7d8e", "/api/game/:id"},
		{"/api/game/0b6c5a3e-9f2d-4b8a-9c1e-3f4a5b6c7d8e/end", "/api/game/:id/end"},
		{"/api/game/42/end", "/api/game/:id/end"},
		{"/api/game/golang", "/api/game/golang"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	collector := metrics.NewCollector("cmd_middleware_test", zap.NewNop())
	h := MetricsMiddleware(collector)(okHandler)

	w := serveOnce(h, httptest.NewRequest(http.MethodGet, "/api/game/42", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() != "cmd_middleware_test_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "path" && l.GetValue() == "/api/game/:id" {
					found = true
				}
			}
		}
	}
	assert.True(t, found)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := RateLimiter(ctx, 1, 2)(okHandler)
	newReq := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
		r.RemoteAddr = addr
		return r
	}

	assert.Equal(t, http.StatusOK, serveOnce(h, newReq("10.0.0.1:1000")).Code)
	assert.Equal(t, http.StatusOK, serveOnce(h, newReq("10.0.0.1:1001")).Code)

	w := serveOnce(h, newReq("10.0.0.1:1002"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// 不同 IP 使用独立的桶
	assert.Equal(t, http.StatusOK, serveOnce(h, newReq("10.0.0.2:1000")).Code)
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := RateLimiter(context.Background(), 0, 0)(okHandler)
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serveOnce(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://quiz.example.com"})(okHandler)

	t.Run("allowed preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/game", nil)
		r.Header.Set("Origin", "https://quiz.example.com")
		w := serveOnce(h, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://quiz.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("forbidden preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/game", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		w := serveOnce(h, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("simple request passes through", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
		r.Header.Set("Origin", "https://quiz.example.com")
		w := serveOnce(h, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://quiz.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	cfg := config.JWTConfig{Enabled: true, Secret: secret, Issuer: "quizflow"}

	var userID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ = ctxkeys.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := JWTAuth(cfg, publicPaths, zap.NewNop())(inner)

	withToken := func(token string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		return r
	}
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantUser string
	}{
		{
			name:     "user_id claim",
			token:    signToken(t, secret, jwt.MapClaims{"user_id": "u-1", "sub": "s-1", "iss": "quizflow", "exp": exp}),
			wantCode: http.StatusOK,
			wantUser: "u-1",
		},
		{
			name:     "sub claim",
			token:    signToken(t, secret, jwt.MapClaims{"sub": "s-1", "iss": "quizflow", "exp": exp}),
			wantCode: http.StatusOK,
			wantUser: "s-1",
		},
		{
			name:     "missing header",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "expired",
			token:    signToken(t, secret, jwt.MapClaims{"sub": "s-1", "iss": "quizflow", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no expiry",
			token:    signToken(t, secret, jwt.MapClaims{"sub": "s-1", "iss": "quizflow"}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong issuer",
			token:    signToken(t, secret, jwt.MapClaims{"sub": "s-1", "iss": "other", "exp": exp}),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "wrong secret",
			token:    signToken(t, "other-secret", jwt.MapClaims{"sub": "s-1", "iss": "quizflow", "exp": exp}),
			wantCode: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID = ""
			w := serveOnce(h, withToken(tt.token))
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, userID)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	h := JWTAuth(config.JWTConfig{Enabled: true, Secret: "s"}, publicPaths, zap.NewNop())(okHandler)

	assert.Equal(t, http.StatusOK, serveOnce(h, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, serveOnce(h, httptest.NewRequest(http.MethodOptions, "/api/game", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serveOnce(h, httptest.NewRequest(http.MethodGet, "/api/game", nil)).Code)
}
