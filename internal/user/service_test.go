package user

import (
	"context"
	"net/http"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-mailer/internal/common"
)

func TestServiceCreateHashesPassword(t *testing.T) {
	svc := NewService(NewMemoryStore())

	profile, err := svc.Create(context.Background(), CreateParams{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "correct horse battery",
		Role:      RoleUser,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), profile.ID)
	require.Equal(t, RoleUser, profile.Role)

	stored, err := svc.store.GetByID(context.Background(), profile.ID)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery", stored.PasswordHash)
	match, err := argon2id.ComparePasswordAndHash("correct horse battery", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, match)
}

func TestServiceCreateRejectsInvalidRole(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Create(context.Background(), CreateParams{
		Email:    "ada@example.com",
		Password: "correct horse battery",
		Role:     "SUPERUSER",
	})
	require.Error(t, err)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
}

func TestServiceCreateRejectsShortPassword(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Create(context.Background(), CreateParams{
		Email:    "ada@example.com",
		Password: "short",
		Role:     RoleUser,
	})
	require.Error(t, err)
}

func TestServiceCreateDuplicateEmailConflict(t *testing.T) {
	svc := NewService(NewMemoryStore())
	params := CreateParams{Email: "ada@example.com", Password: "correct horse battery", Role: RoleUser}

	_, err := svc.Create(context.Background(), params)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), params)
	require.Error(t, err)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "EMAIL_ALREADY_USED", appErr.Code)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
}

func TestServiceGetUnknownUser(t *testing.T) {
	svc := NewService(NewMemoryStore())

	_, err := svc.Get(context.Background(), 42)
	require.Error(t, err)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestServiceListEmptyRoleFilterIsNotFound(t *testing.T) {
	svc := NewService(NewMemoryStore())
	_, err := svc.Create(context.Background(), CreateParams{
		Email: "ada@example.com", Password: "correct horse battery", Role: RoleUser,
	})
	require.NoError(t, err)

	profiles, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	_, err = svc.List(context.Background(), RoleAdmin)
	require.Error(t, err)

	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, "NOT_FOUND", appErr.Code)
	require.Contains(t, appErr.Message, "no users with role ADMIN found")
}

func TestServiceDeleteReturnsProfile(t *testing.T) {
	svc := NewService(NewMemoryStore())
	created, err := svc.Create(context.Background(), CreateParams{
		Email: "ada@example.com", Password: "correct horse battery", Role: RoleUser,
	})
	require.NoError(t, err)

	removed, err := svc.Delete(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, removed.ID)

	_, err = svc.Get(context.Background(), created.ID)
	require.Error(t, err)
}
