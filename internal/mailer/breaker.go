package mailer

import (
	"context"

	"github.com/noah-isme/backend-mailer/internal/resilience"
)

// BreakerTransport guards a Transport with a circuit breaker. While the
// breaker is open the transport fails fast with ErrOpenCircuit, so the
// orchestrator moves on to the next transport without waiting on a dead SMTP
// host.
type BreakerTransport struct {
	Inner   Transport
	Breaker *resilience.Breaker
}

// GuardTransport wraps transport with a breaker labelled after it.
func GuardTransport(transport Transport, breaker *resilience.Breaker) *BreakerTransport {
	breaker.WithTarget("smtp-" + transport.Name())
	return &BreakerTransport{Inner: transport, Breaker: breaker}
}

// Name reports the inner transport's name.
func (t *BreakerTransport) Name() string { return t.Inner.Name() }

// Send delegates to the inner transport when the breaker permits it and
// reports the outcome back to the breaker.
func (t *BreakerTransport) Send(ctx context.Context, msg Message) (Receipt, error) {
	if t.Breaker != nil && !t.Breaker.Allow(ctx) {
		return Receipt{}, resilience.ErrOpenCircuit
	}
	receipt, err := t.Inner.Send(ctx, msg)
	if t.Breaker != nil {
		t.Breaker.Report(ctx, err == nil)
	}
	return receipt, err
}
