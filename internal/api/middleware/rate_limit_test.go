package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slateci/slate-federation/internal/config"
)

func testRateLimitConfig() *config.Config {
	return &config.Config{
		MutatingRateLimitPerSec: 1,
		MutatingRateLimitBurst:  1,
		ReadRateLimitPerSec:     2,
		ReadRateLimitBurst:      2,
	}
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	handler := RateLimit(testRateLimitConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1alpha3/users", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_MutatingTierExhaustsFaster(t *testing.T) {
	handler := RateLimit(testRateLimitConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1alpha3/groups", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		return req
	}

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, newReq())
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
	assert.NotEmpty(t, rec2.Header().Get("Retry-After"))
}

func TestRateLimit_ExemptsPublicPaths(t *testing.T) {
	handler := RateLimit(testRateLimitConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.3:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTierForRequest(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/v1alpha3/groups", nil)
	assert.Equal(t, tierRead, tierForRequest(get))

	post := httptest.NewRequest(http.MethodPost, "/v1alpha3/groups", nil)
	assert.Equal(t, tierMutating, tierForRequest(post))
}

func TestGetClientIP_PrefersXForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}
