package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abgdnv/storefront/internal/config"
	"github.com/abgdnv/storefront/internal/store"
	"github.com/abgdnv/storefront/pkg/messaging"
	"github.com/abgdnv/storefront/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupHttpHandler(t *testing.T) {
	// given
	metrics, err := telemetry.NewMetrics("storefront-test")
	require.NoError(t, err)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	deps := SetupDependencies(store.NewMemoryStore(), messaging.NopPublisher{}, metrics, logger)
	handler := SetupHttpHandler(deps)

	// when
	register := httptest.NewRecorder()
	handler.ServeHTTP(register, httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(`{"username":"alice"}`)))
	unauthorized := httptest.NewRecorder()
	handler.ServeHTTP(unauthorized, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	scrape := httptest.NewRecorder()
	handler.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	assert.Equal(t, http.StatusCreated, register.Code)
	assert.NotEmpty(t, register.Header().Get("X-Request-Id"))
	assert.Equal(t, http.StatusUnauthorized, unauthorized.Code)
	require.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "storefront_http_requests_total")
	assert.Contains(t, scrape.Body.String(), "go_goroutines")
}

func TestSetupHttpHandler_WithoutMetrics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := SetupHttpHandler(SetupDependencies(store.NewMemoryStore(), nil, nil, logger))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSetupHttpServer(t *testing.T) {
	cfg := &config.Config{}
	cfg.HTTPServer.Port = 8081
	cfg.HTTPServer.MaxHeaderBytes = 1 << 20
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	srv := SetupHttpServer(SetupDependencies(store.NewMemoryStore(), nil, nil, logger), cfg)

	assert.Equal(t, ":8081", srv.Addr)
	assert.Equal(t, 1<<20, srv.MaxHeaderBytes)
	assert.NotNil(t, srv.Handler)
}
