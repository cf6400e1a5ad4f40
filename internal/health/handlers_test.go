package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	redisErr   error
	transports int
}

func (c stubChecker) PingRedis(context.Context, time.Duration) error { return c.redisErr }
func (c stubChecker) TransportCount() int                            { return c.transports }

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Live(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestReady(t *testing.T) {
	cases := []struct {
		name       string
		checker    stubChecker
		wantStatus int
		wantRedis  string
	}{
		{
			name:       "all dependencies healthy",
			checker:    stubChecker{transports: 2},
			wantStatus: http.StatusOK,
			wantRedis:  "ok",
		},
		{
			name:       "redis degraded",
			checker:    stubChecker{redisErr: errors.New("connection refused"), transports: 2},
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "connection refused",
		},
		{
			name:       "no transports",
			checker:    stubChecker{transports: 0},
			wantStatus: http.StatusServiceUnavailable,
			wantRedis:  "ok",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler{Checker: tc.checker}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			require.Equal(t, tc.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.Equal(t, tc.wantRedis, body["redis"])
		})
	}
}

func TestReadyWithoutChecker(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler{}.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
