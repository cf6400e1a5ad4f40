package mailer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-mailer/internal/common"
)

// DemoMessage holds the canned recipient/subject/body used when the caller
// supplies only a placeholder mapping.
type DemoMessage struct {
	To      Address
	Subject string
	HTML    string
}

// Handler exposes the send-email HTTP endpoint.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Demo     DemoMessage
}

type addressPayload struct {
	Name    string `json:"name"`
	Address string `json:"address" validate:"required,email"`
}

type sendEmailRequest struct {
	To           []addressPayload  `json:"to" validate:"omitempty,dive"`
	Subject      string            `json:"subject"`
	HTML         string            `json:"html"`
	Placeholders map[string]string `json:"placeholders"`
}

// SendEmail handles POST /mailer/send-email. The sender is always the
// authenticated caller; recipient, subject, and body fall back to the
// configured demo message when omitted.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "mailer service not configured", nil)
		return
	}
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}

	var req sendEmailRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
			return
		}
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
			return
		}
	}

	to := make([]Address, 0, len(req.To))
	for _, rcpt := range req.To {
		to = append(to, Address{Name: rcpt.Name, Address: rcpt.Address})
	}
	if len(to) == 0 {
		to = []Address{h.Demo.To}
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = h.Demo.Subject
	}
	html := req.HTML
	if strings.TrimSpace(html) == "" {
		html = h.Demo.HTML
	}

	senderName := caller.Name
	if strings.TrimSpace(senderName) == "" {
		senderName = "No Name"
	}

	delivery, err := h.Service.SendMail(r.Context(), SendRequest{
		UserID:       caller.ID,
		From:         &Address{Name: senderName, Address: caller.Email},
		To:           to,
		Subject:      subject,
		HTML:         html,
		Placeholders: req.Placeholders,
	})
	if err != nil {
		var deliveryErr *DeliveryError
		if errors.As(err, &deliveryErr) {
			causes := make(map[string]string, len(deliveryErr.Attempts))
			for _, attempt := range deliveryErr.Attempts {
				causes[attempt.Provider] = attempt.Err.Error()
			}
			common.JSONError(w, http.StatusBadGateway, "DELIVERY_FAILED", "all mail transports failed", causes)
			return
		}
		common.WriteAppError(w, err)
		return
	}

	message := "email sent successfully"
	if delivery.Provider != "primary" {
		message = "email sent successfully (via fallback)"
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"message":  message,
		"provider": delivery.Provider,
		"result":   delivery.Receipt,
	})
}
