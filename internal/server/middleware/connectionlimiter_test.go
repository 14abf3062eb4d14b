package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Saymandev/advanced-poss-gateway/internal/server/middleware"
	"github.com/Saymandev/advanced-poss-gateway/pkg/config"
	"github.com/stretchr/testify/assert"
)

func runLimiter(t *testing.T, cfg config.ConnectionLimitConfig, count int, target string) (*httptest.ResponseRecorder, bool, bool) {
	t.Helper()
	reached := false
	cycled := false
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })
	h := middleware.Chain(final,
		middleware.RequestMetadataMiddleware(),
		middleware.NewConnectionLimiter(
			newTestLogger(),
			func(string) int { return count },
			func(string) { cycled = true },
			cfg,
		),
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "10.0.0.1:55555"
	h.ServeHTTP(rec, req)
	return rec, reached, cycled
}

func TestConnectionLimiterUnderLimit(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "reject"}
	rec, reached, _ := runLimiter(t, cfg, 1, "/ws?userId=u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestConnectionLimiterRejectMode(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "reject"}
	rec, reached, cycled := runLimiter(t, cfg, 2, "/ws?userId=u1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, reached)
	assert.False(t, cycled)
}

func TestConnectionLimiterCycleMode(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "cycle"}
	rec, reached, cycled := runLimiter(t, cfg, 2, "/ws?userId=u1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.True(t, cycled)
}

func TestConnectionLimiterSkipsAnonymous(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerUser: 1, Mode: "reject"}
	_, reached, _ := runLimiter(t, cfg, 5, "/ws")
	assert.True(t, reached)
}

func TestConnectionLimiterDisabled(t *testing.T) {
	cfg := config.ConnectionLimitConfig{MaxPerUser: 0, Mode: "reject"}
	_, reached, _ := runLimiter(t, cfg, 100, "/ws?userId=u1")
	assert.True(t, reached)
}
