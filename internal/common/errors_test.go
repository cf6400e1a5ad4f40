package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsAppErrorUnwrapsWrappedErrors(t *testing.T) {
	appErr := NewAppError("QUOTA_EXCEEDED", "limit reached", http.StatusTooManyRequests, nil)
	wrapped := fmt.Errorf("send mail: %w", appErr)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, "QUOTA_EXCEEDED", got.Code)

	_, ok = AsAppError(errors.New("plain"))
	require.False(t, ok)
}

func TestWriteAppError(t *testing.T) {
	t.Run("app error keeps its status and code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteAppError(rec, NewAppError("NOT_FOUND", "user not found", http.StatusNotFound, nil))

		require.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]ErrorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "NOT_FOUND", body["error"].Code)
		require.Equal(t, "user not found", body["error"].Message)
	})

	t.Run("unknown error maps to 500", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteAppError(rec, errors.New("boom"))

		require.Equal(t, http.StatusInternalServerError, rec.Code)

		var body map[string]ErrorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "INTERNAL", body["error"].Code)
		// Internal details never leak to the client.
		require.NotContains(t, rec.Body.String(), "boom")
	})
}
