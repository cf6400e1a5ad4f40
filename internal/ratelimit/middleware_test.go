package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	result Result
	err    error
	keys   []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.keys = append(l.keys, key)
	return l.result, l.err
}

func okProbe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddlewareAllowsWithinLimit(t *testing.T) {
	limiter := &stubLimiter{result: Result{
		Allowed:   true,
		Limit:     10,
		Remaining: 9,
		Reset:     time.Now().Add(time.Minute),
	}}
	h := Handler{Limiter: limiter, Key: func(*http.Request) string { return "1.2.3.4" }}

	rec := httptest.NewRecorder()
	h.Middleware(okProbe()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "9", rec.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, []string{"1.2.3.4"}, limiter.keys)
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	limiter := &stubLimiter{result: Result{
		Allowed:   false,
		Limit:     10,
		Remaining: 0,
		Reset:     time.Now().Add(30 * time.Second),
	}}
	h := Handler{Limiter: limiter, Key: func(*http.Request) string { return "1.2.3.4" }}

	rec := httptest.NewRecorder()
	h.Middleware(okProbe()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpenOnLimiterError(t *testing.T) {
	var observed error
	limiter := &stubLimiter{err: errors.New("redis down")}
	h := Handler{
		Limiter: limiter,
		Key:     func(*http.Request) string { return "1.2.3.4" },
		OnError: func(err error) { observed = err },
	}

	rec := httptest.NewRecorder()
	h.Middleware(okProbe()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Error(t, observed)
}

func TestMiddlewarePassesThroughWhenUnconfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Middleware(okProbe()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMemoryLimiterEnforcesWindow(t *testing.T) {
	l := NewMemoryLimiter(time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}

	result, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Zero(t, result.Remaining)

	// A different key has its own window.
	result, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, result.Allowed)
}
