package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// MailSendTotal counts delivery outcomes by transport.
	MailSendTotal *prometheus.CounterVec
	// MailAttemptLatency records transport attempt latency in milliseconds.
	MailAttemptLatency *prometheus.HistogramVec
	// MailQuotaRejectedTotal counts sends refused by the daily quota.
	MailQuotaRejectedTotal prometheus.Counter
	// LoginTotal counts login outcomes.
	LoginTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		MailSendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_send_total",
			Help:      "Count of mail delivery attempts by transport and result.",
		}, []string{"provider", "result"})
		MailAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mail_attempt_duration_ms",
			Help:      "Latency for transport delivery attempts in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"provider"})
		MailQuotaRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mail_quota_rejected_total",
			Help:      "Number of send requests rejected by the per-user daily quota.",
		})
		LoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Count of login attempts by outcome.",
		}, []string{"result"})

		MailSendTotal = registerCounterVec(reg, MailSendTotal)
		MailAttemptLatency = registerHistogramVec(reg, MailAttemptLatency)
		MailQuotaRejectedTotal = registerCounter(reg, MailQuotaRejectedTotal)
		LoginTotal = registerCounterVec(reg, LoginTotal)
	})
}
