package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/backend-mailer/internal/common"
	"github.com/noah-isme/backend-mailer/internal/obs"
	"github.com/noah-isme/backend-mailer/internal/user"
)

const defaultDailyLimit = 3

// ErrNoTransports signals that the orchestrator has no delivery channel wired.
var ErrNoTransports = errors.New("mailer: no transports configured")

// QuotaLedger is the charge contract the orchestrator consumes. A charge
// must be atomic per user: check, day rollover, and increment happen as one
// step.
type QuotaLedger interface {
	ChargeDailyQuota(ctx context.Context, userID int64, limit int) error
}

// Attempt records one failed transport attempt.
type Attempt struct {
	Provider string
	Err      error
}

// DeliveryError aggregates the failure of every configured transport.
type DeliveryError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return "all mail transports failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the underlying transport errors to errors.Is/As.
func (e *DeliveryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// Service orchestrates one send: quota charge, template rendering, and an
// ordered walk over the configured transports.
type Service struct {
	Ledger      QuotaLedger
	Transports  []Transport
	DefaultFrom Address
	DailyLimit  int
	Log         zerolog.Logger
	Tracer      trace.Tracer
}

// SendMail executes the delivery pipeline for one request.
//
// The quota is charged before any delivery attempt, so a send that later
// fails on every transport still consumed one unit; this bounds outbound
// attempt volume per user per day. A request whose user id is unknown to the
// ledger is logged and proceeds as if the charge succeeded, matching the
// directory's long-standing behavior.
func (s *Service) SendMail(ctx context.Context, req SendRequest) (Delivery, error) {
	limit := s.DailyLimit
	if limit <= 0 {
		limit = defaultDailyLimit
	}
	if len(req.To) == 0 {
		return Delivery{}, common.NewAppError("VALIDATION_ERROR", "at least one recipient is required", http.StatusBadRequest, nil)
	}
	if len(s.Transports) == 0 {
		return Delivery{}, ErrNoTransports
	}

	if err := s.Ledger.ChargeDailyQuota(ctx, req.UserID, limit); err != nil {
		switch {
		case errors.Is(err, user.ErrQuotaExceeded):
			if obs.MailQuotaRejectedTotal != nil {
				obs.MailQuotaRejectedTotal.Inc()
			}
			s.Log.Warn().Int64("user_id", req.UserID).Int("limit", limit).Msg("send rejected: daily quota exceeded")
			msg := fmt.Sprintf("you have reached your daily email limit of %d, try again tomorrow", limit)
			return Delivery{}, common.NewAppError("QUOTA_EXCEEDED", msg, http.StatusTooManyRequests, err)
		case errors.Is(err, user.ErrNotFound):
			s.Log.Warn().Int64("user_id", req.UserID).Msg("quota charge skipped: user not found")
		default:
			return Delivery{}, fmt.Errorf("charge quota: %w", err)
		}
	}

	html := req.HTML
	if len(req.Placeholders) > 0 {
		html = Render(req.HTML, req.Placeholders)
	}

	from := s.DefaultFrom
	if req.From != nil {
		from = *req.From
	}

	msg := Message{From: from, To: req.To, Subject: req.Subject, HTML: html}

	attempts := make([]Attempt, 0, len(s.Transports))
	for _, transport := range s.Transports {
		receipt, err := s.attempt(ctx, transport, msg)
		if err == nil {
			s.Log.Info().
				Str("provider", transport.Name()).
				Str("message_id", receipt.MessageID).
				Int64("user_id", req.UserID).
				Msg("email sent")
			return Delivery{Provider: transport.Name(), Receipt: receipt}, nil
		}
		s.Log.Error().
			Err(err).
			Str("provider", transport.Name()).
			Int64("user_id", req.UserID).
			Msg("mail transport failed")
		attempts = append(attempts, Attempt{Provider: transport.Name(), Err: err})
	}

	return Delivery{}, &DeliveryError{Attempts: attempts}
}

func (s *Service) attempt(ctx context.Context, transport Transport, msg Message) (Receipt, error) {
	if s.Tracer != nil {
		var span trace.Span
		ctx, span = s.Tracer.Start(ctx, "mail.send",
			trace.WithAttributes(attribute.String("mail.provider", transport.Name())))
		defer span.End()
	}

	start := time.Now()
	receipt, err := transport.Send(ctx, msg)
	if obs.MailAttemptLatency != nil {
		obs.MailAttemptLatency.WithLabelValues(transport.Name()).Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.MailSendTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.MailSendTotal.WithLabelValues(transport.Name(), result).Inc()
	}
	return receipt, err
}
