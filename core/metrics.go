package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors updated by the Service. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	verifications *prometheus.CounterVec
	nonces        *prometheus.CounterVec
	logins        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Name:      "signature_verifications_total",
			Help:      "Signature verifications by path (eoa, contract) and result.",
		}, []string{"path", "result"}),
		nonces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Name:      "nonces_total",
			Help:      "Nonce lifecycle operations by outcome.",
		}, []string{"op"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Name:      "logins_total",
			Help:      "Successful wallet sign-ins by whether a user was created.",
		}, []string{"created"}),
	}
	if reg != nil {
		reg.MustRegister(m.verifications, m.nonces, m.logins)
	}
	return m
}

func (m *Metrics) verification(path, result string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(path, result).Inc()
}

func (m *Metrics) nonce(op string) {
	if m == nil {
		return
	}
	m.nonces.WithLabelValues(op).Inc()
}

func (m *Metrics) noncesSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.nonces.WithLabelValues("swept").Add(float64(n))
}

func (m *Metrics) login(created bool) {
	if m == nil {
		return
	}
	if created {
		m.logins.WithLabelValues("true").Inc()
		return
	}
	m.logins.WithLabelValues("false").Inc()
}
