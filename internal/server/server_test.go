package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercadolibros/internal/config"
	"mercadolibros/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHealth map[string]string

func (s stubHealth) Health(context.Context) map[string]string { return s }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "production"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://libros.example.com"}},
		RateLimit: config.RateLimitConfig{
			RequestsPerWindow: 2,
			Window:            time.Minute,
		},
	}
}

func TestRouter_Health(t *testing.T) {
	for status, want := range map[string]int{"up": http.StatusOK, "down": http.StatusServiceUnavailable} {
		router := newRouter(testConfig(), zap.NewNop(), stubHealth{"status": status}, memory.NewStore(), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, want, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, status, body["status"])
	}
}

func TestRouter_ServesCatalogRoutes(t *testing.T) {
	router := newRouter(testConfig(), zap.NewNop(), stubHealth{"status": "up"}, memory.NewStore(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/genres", strings.NewReader(`{"name":"fantasía"}`)))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/genres/1", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/genres", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"FANTASIA"`)
}

func TestRouter_CORSAllowsConfiguredOrigin(t *testing.T) {
	router := newRouter(testConfig(), zap.NewNop(), stubHealth{"status": "up"}, memory.NewStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set("Origin", "https://libros.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "https://libros.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimitsWritesOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	router := newRouter(testConfig(), zap.NewNop(), stubHealth{"status": "up"}, memory.NewStore(), rdb)

	codes := make([]int, 0, 3)
	for _, name := range []string{"terror", "poesía", "misterio"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/genres", strings.NewReader(`{"name":"`+name+`"}`)))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/genres", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNewRedisClient_DisabledOrUnreachable(t *testing.T) {
	assert.Nil(t, newRedisClient(config.RateLimitConfig{Enabled: false}, zap.NewNop()))
	assert.Nil(t, newRedisClient(config.RateLimitConfig{Enabled: true, RedisAddr: "127.0.0.1:1"}, zap.NewNop()))

	mr := miniredis.RunT(t)
	client := newRedisClient(config.RateLimitConfig{Enabled: true, RedisAddr: mr.Addr()}, zap.NewNop())
	require.NotNil(t, client)
	client.Close()
}
