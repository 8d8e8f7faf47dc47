package trialguard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/trialguard/internal/config"
	"github.com/magabrotheeeer/trialguard/internal/lib/jwt"
	"github.com/magabrotheeeer/trialguard/internal/models"
	authservice "github.com/magabrotheeeer/trialguard/internal/services/auth"
	"github.com/magabrotheeeer/trialguard/internal/services/dispatcher"
)

type noUsers struct{}

func (noUsers) RegisterUser(context.Context, models.User) (string, error) { return "", nil }

func (noUsers) GetUserByUsername(context.Context, string) (*models.User, error) { return nil, nil }

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newTestRouter(t *testing.T, origins ...string) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.HTTPServer{RateLimitRPS: 100, RateLimitBurst: 100, AllowedOrigins: origins}
	router := NewRouter(cfg, logger, prometheus.NewRegistry(), Services{
		Auth:    authservice.NewService(noUsers{}, maker),
		Trigger: dispatcher.NewTrigger(nil),
		DB:      okPinger{},
	})
	return router, maker
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	router, maker := newTestRouter(t)

	userToken, err := maker.GenerateToken("uid-1", "alice", models.RoleUser)
	require.NoError(t, err)
	adminToken, err := maker.GenerateToken("uid-2", "root", models.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/api/v1/analytics", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, http.MethodPost, "/api/v1/admin/reminders/dispatch", userToken).Code)
	// брокер не настроен
	assert.Equal(t, http.StatusServiceUnavailable, do(t, router, http.MethodPost, "/api/v1/admin/reminders/dispatch", adminToken).Code)

	rec := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trialguard_http_requests_total")
}

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/subscriptions", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_CORS(t *testing.T) {
	t.Run("no origins configured", func(t *testing.T) {
		router, _ := newTestRouter(t)

		rec := preflight(router, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("allow-list", func(t *testing.T) {
		router, _ := newTestRouter(t, "https://app.example")

		rec := preflight(router, "https://app.example")
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

		rec = preflight(router, "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
