package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/argon2id"

	"github.com/noah-isme/backend-mailer/internal/common"
)

// CreateParams carries the fields accepted at signup.
type CreateParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
}

// Service exposes directory operations over the injected Store.
type Service struct {
	store Store
}

// NewService constructs a directory service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create registers a new user with a hashed password.
func (s *Service) Create(ctx context.Context, params CreateParams) (Profile, error) {
	if !params.Role.Valid() {
		return Profile{}, common.NewAppError("VALIDATION_ERROR", "valid role required", http.StatusBadRequest, nil)
	}
	if len(params.Password) < 8 {
		return Profile{}, common.NewAppError("VALIDATION_ERROR", "password must be at least 8 characters", http.StatusBadRequest, nil)
	}

	hash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.Create(ctx, User{
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         params.Role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Profile{}, common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, err)
		}
		return Profile{}, fmt.Errorf("create user: %w", err)
	}
	return created.Sanitize(), nil
}

// Get returns the sanitized user with the given id.
func (s *Service) Get(ctx context.Context, id int64) (Profile, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("user with id %d not found", id), http.StatusNotFound, err)
		}
		return Profile{}, fmt.Errorf("get user: %w", err)
	}
	return u.Sanitize(), nil
}

// List returns sanitized users, optionally filtered by role. A role filter
// that matches nobody is a not-found condition.
func (s *Service) List(ctx context.Context, role Role) ([]Profile, error) {
	if role != "" && !role.Valid() {
		return nil, common.NewAppError("VALIDATION_ERROR", "valid role required", http.StatusBadRequest, nil)
	}
	users, err := s.store.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if role != "" && len(users) == 0 {
		return nil, common.NewAppError("NOT_FOUND", fmt.Sprintf("no users with role %s found", role), http.StatusNotFound, nil)
	}
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitize())
	}
	return out, nil
}

// Update patches the user record and returns the updated profile.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (Profile, error) {
	if params.Role != nil && !params.Role.Valid() {
		return Profile{}, common.NewAppError("VALIDATION_ERROR", "valid role required", http.StatusBadRequest, nil)
	}
	updated, err := s.store.Update(ctx, id, params)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return Profile{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("user with id %d not found", id), http.StatusNotFound, err)
		case errors.Is(err, ErrEmailTaken):
			return Profile{}, common.NewAppError("EMAIL_ALREADY_USED", "email is already registered", http.StatusConflict, err)
		}
		return Profile{}, fmt.Errorf("update user: %w", err)
	}
	return updated.Sanitize(), nil
}

// Delete removes the user and returns the removed profile.
func (s *Service) Delete(ctx context.Context, id int64) (Profile, error) {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Profile{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("user with id %d not found", id), http.StatusNotFound, err)
		}
		return Profile{}, fmt.Errorf("delete user: %w", err)
	}
	return removed.Sanitize(), nil
}
