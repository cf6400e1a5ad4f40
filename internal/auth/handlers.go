package auth

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-mailer/internal/common"
	"github.com/noah-isme/backend-mailer/internal/obs"
)

// Handler exposes HTTP handlers for authentication endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
			return
		}
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if obs.LoginTotal != nil {
			obs.LoginTotal.WithLabelValues("rejected").Inc()
		}
		common.WriteAppError(w, err)
		return
	}
	if obs.LoginTotal != nil {
		obs.LoginTotal.WithLabelValues("ok").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
