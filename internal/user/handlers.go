package user

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-mailer/internal/common"
)

// Handler exposes HTTP handlers for the user directory.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type signupRequest struct {
	FirstName string `json:"firstname" validate:"omitempty,max=100"`
	LastName  string `json:"lastname" validate:"omitempty,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      Role   `json:"role" validate:"required,oneof=USER ADMIN"`
}

type updateRequest struct {
	FirstName *string `json:"firstname" validate:"omitempty,max=100"`
	LastName  *string `json:"lastname" validate:"omitempty,max=100"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Role      *Role   `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// Signup handles POST /users/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", validationDetails(err))
		return
	}
	profile, err := h.Service.Create(r.Context(), CreateParams{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": profile})
}

// List handles GET /users with an optional ?role= filter. The router
// restricts this route to admins.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	role := Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role"))))
	profiles, err := h.Service.List(r.Context(), role)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profiles})
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.Service.Get(r.Context(), id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

// Update handles PATCH /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", validationDetails(err))
		return
	}
	profile, err := h.Service.Update(r.Context(), id, UpdateParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

func validationDetails(err error) any {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return fields
}
