// Package metrics exposes the prometheus collectors the synchronizer and
// cipher package report against. It mirrors the role of a teacher-style
// counters file: a small, dependency-injected collector rather than a global
// registry, so tests can construct their own and assert on them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the handshake and cipher-operation instruments. A nil
// *Collector is valid and every method on it is a no-op, so callers that
// don't care about metrics can simply leave it unset.
type Collector struct {
	handshakesStarted  *prometheus.CounterVec
	handshakesReady    *prometheus.CounterVec
	handshakesErrored  *prometheus.CounterVec
	handshakeDuration  *prometheus.HistogramVec
	cipherOperations   *prometheus.CounterVec
}

// New constructs a Collector and registers its instruments with reg. Passing
// a fresh prometheus.NewRegistry() is recommended for tests.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		handshakesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesh_security",
			Name:      "handshakes_started_total",
			Help:      "Number of synchronizer handshakes initialized, by role.",
		}, []string{"role"}),
		handshakesReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesh_security",
			Name:      "handshakes_ready_total",
			Help:      "Number of synchronizer handshakes that reached Ready, by role.",
		}, []string{"role"}),
		handshakesErrored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesh_security",
			Name:      "handshakes_error_total",
			Help:      "Number of synchronizer handshakes that entered Error, by role and code.",
		}, []string{"role", "code"}),
		handshakeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mesh_security",
			Name:      "handshake_duration_seconds",
			Help:      "Wall time from Initialize to Ready, by role.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role"}),
		cipherOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mesh_security",
			Name:      "cipher_operations_total",
			Help:      "CipherPackage operations, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	reg.MustRegister(c.handshakesStarted, c.handshakesReady, c.handshakesErrored, c.handshakeDuration, c.cipherOperations)
	return c
}

func (c *Collector) HandshakeStarted(role string) {
	if c == nil {
		return
	}
	c.handshakesStarted.WithLabelValues(role).Inc()
}

func (c *Collector) HandshakeReady(role string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.handshakesReady.WithLabelValues(role).Inc()
	c.handshakeDuration.WithLabelValues(role).Observe(elapsed.Seconds())
}

func (c *Collector) HandshakeErrored(role, code string) {
	if c == nil {
		return
	}
	c.handshakesErrored.WithLabelValues(role, code).Inc()
}

func (c *Collector) CipherOperation(kind string, err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.cipherOperations.WithLabelValues(kind, outcome).Inc()
}
