package session

import "github.com/prometheus/client_golang/prometheus"

// Refresh outcomes
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeNetwork = "network_error"
	outcomeSkipped = "skipped"
)

// Metrics counts refresh attempts and replays. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Refreshes   *prometheus.CounterVec
	Retries     prometheus.Counter
	Expirations prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg (if not nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "mailguard", Subsystem: "session", Name: "refresh_total", Help: "Token refresh attempts by outcome."},
			[]string{"outcome"},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "mailguard", Subsystem: "session", Name: "retries_total", Help: "Requests replayed after a successful refresh."},
		),
		Expirations: prometheus.NewCounter(
			prometheus.CounterOpts{Namespace: "mailguard", Subsystem: "session", Name: "expired_total", Help: "Sessions cleared because they could not be refreshed."},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Refreshes, m.Retries, m.Expirations)
	}
	return m
}

func (m *Metrics) refresh(outcome string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.Retries.Inc()
}

func (m *Metrics) expired() {
	if m == nil {
		return
	}
	m.Expirations.Inc()
}
