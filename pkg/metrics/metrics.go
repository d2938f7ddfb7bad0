// Package metrics holds the Prometheus collectors of the moderation core.
// Every method is safe on a nil *Metrics so tests and tools can skip them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	FlowsStarted   prometheus.Counter
	FlowsFinished  *prometheus.CounterVec   // outcome=issued|cancelled|timed_out|errored
	FlowDuration   *prometheus.HistogramVec // outcome
	FlowsRejected  *prometheus.CounterVec   // reason
	LockContention prometheus.Counter
	LocksHeld      prometheus.Gauge
	Issued         *prometheus.CounterVec // kind
	Revoked        *prometheus.CounterVec // kind
	ExpiredTotal   *prometheus.CounterVec // kind
}

// New builds the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "punish_flows_started_total",
			Help: "Interactive punishment flows opened",
		}),
		FlowsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "punish_flows_finished_total",
				Help: "Interactive punishment flows by terminal outcome",
			},
			[]string{"outcome"},
		),
		FlowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "punish_flow_duration_seconds",
				Help:    "Time from opening a flow to its terminal state",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~8.5m
			},
			[]string{"outcome"},
		),
		FlowsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "punish_flows_rejected_total",
				Help: "Punish invocations refused before opening a flow",
			},
			[]string{"reason"},
		),
		LockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "punish_lock_contention_total",
			Help: "Attempts to lock a target that already had an open flow",
		}),
		LocksHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "punish_locks_held",
			Help: "Targets currently locked by a flow",
		}),
		Issued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "punishments_issued_total",
				Help: "Punishments issued by kind",
			},
			[]string{"kind"},
		),
		Revoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "punishments_revoked_total",
				Help: "Punishments revoked by kind",
			},
			[]string{"kind"},
		),
		ExpiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "punishments_expired_total",
				Help: "Punishments lifted by the expiry watcher",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.FlowsStarted,
			m.FlowsFinished,
			m.FlowDuration,
			m.FlowsRejected,
			m.LockContention,
			m.LocksHeld,
			m.Issued,
			m.Revoked,
			m.ExpiredTotal,
		)
	}
	return m
}

// NewRegistry returns a registry with the Go and process collectors
// plus the moderation metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, New(reg)
}

func (m *Metrics) FlowStarted() {
	if m == nil {
		return
	}
	m.FlowsStarted.Inc()
}

func (m *Metrics) FlowFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FlowsFinished.WithLabelValues(outcome).Inc()
	m.FlowDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) FlowRejected(reason string) {
	if m == nil {
		return
	}
	m.FlowsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Contention() {
	if m == nil {
		return
	}
	m.LockContention.Inc()
}

func (m *Metrics) SetLocksHeld(n int) {
	if m == nil {
		return
	}
	m.LocksHeld.Set(float64(n))
}

func (m *Metrics) PunishmentIssued(kind string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(kind).Inc()
}

func (m *Metrics) PunishmentRevoked(kind string) {
	if m == nil {
		return
	}
	m.Revoked.WithLabelValues(kind).Inc()
}

func (m *Metrics) PunishmentExpired(kind string) {
	if m == nil {
		return
	}
	m.ExpiredTotal.WithLabelValues(kind).Inc()
}
