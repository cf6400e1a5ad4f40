package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return &Handler{Service: NewService(NewMemoryStore()), Validate: validator.New()}
}

func signupBody() string {
	return `{
		"firstname": "Ada",
		"lastname": "Lovelace",
		"email": "ada@example.com",
		"password": "correct horse battery",
		"role": "USER"
	}`
}

func doSignup(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/signup", strings.NewReader(body))
	h.Signup(rec, req)
	return rec
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSignupCreatesUser(t *testing.T) {
	h := newTestHandler()
	rec := doSignup(t, h, signupBody())

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data Profile `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, int64(1), body.Data.ID)
	require.Equal(t, "ada@example.com", body.Data.Email)
	// The password hash must never leave the service.
	require.NotContains(t, rec.Body.String(), "password")
}

func TestSignupValidation(t *testing.T) {
	h := newTestHandler()

	cases := []struct {
		name string
		body string
	}{
		{"missing email", `{"password": "correct horse battery", "role": "USER"}`},
		{"bad email", `{"email": "nope", "password": "correct horse battery", "role": "USER"}`},
		{"short password", `{"email": "a@example.com", "password": "short", "role": "USER"}`},
		{"bad role", `{"email": "a@example.com", "password": "correct horse battery", "role": "ROOT"}`},
		{"malformed json", `{"email":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doSignup(t, h, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)
	require.Equal(t, http.StatusConflict, doSignup(t, h, signupBody()).Code)
}

func TestListUsers(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	h.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []Profile `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "ada@example.com", body.Data[0].Email)
}

func TestListRoleFilter(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)

	t.Run("lowercase filter is normalized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users?role=user", nil)
		h.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty filtered result is not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users?role=ADMIN", nil)
		h.List(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetUser(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/users/1", nil), "id", "1")
		h.Get(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/users/42", nil), "id", "42")
		h.Get(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/users/abc", nil), "id", "abc")
		h.Get(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateUser(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/users/1", strings.NewReader(`{"firstname": "Grace"}`)), "id", "1")
	h.Update(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data Profile `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "Grace", body.Data.FirstName)
	require.Equal(t, "Lovelace", body.Data.LastName)
}

func TestDeleteUser(t *testing.T) {
	h := newTestHandler()
	require.Equal(t, http.StatusCreated, doSignup(t, h, signupBody()).Code)

	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/users/1", nil), "id", "1")
	h.Delete(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = withURLParam(httptest.NewRequest(http.MethodDelete, "/users/1", nil), "id", "1")
	h.Delete(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
