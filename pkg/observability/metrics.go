package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/xstack/pkg/domain"
	"github.com/aretw0/xstack/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records stack activity observed on a bus.
type Metrics struct {
	processes      *prometheus.CounterVec
	runs           *prometheus.CounterVec
	rollbackErrors *prometheus.CounterVec
	duration       *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
	subs    map[ports.Bus]ports.Subscription
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		processes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xstack_process_total",
				Help: "Process lifecycle outcomes",
			},
			[]string{"process", "outcome"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xstack_stack_runs_total",
				Help: "Finished stack runs by terminal status",
			},
			[]string{"outcome"},
		),
		rollbackErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xstack_rollback_errors_total",
				Help: "Compensations that failed during rollback",
			},
			[]string{"process"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xstack_process_duration_seconds",
				Help:    "Duration of forward process execution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"process"},
		),
		started: make(map[string]time.Time),
		subs:    make(map[ports.Bus]ports.Subscription),
	}

	for _, c := range []prometheus.Collector{m.processes, m.runs, m.rollbackErrors, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Attach subscribes the metrics to every event on bus.
func (m *Metrics) Attach(bus ports.Bus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[bus]; ok {
		return
	}
	m.subs[bus] = bus.Subscribe(domain.EventAny, m.Handle)
}

// Detach stops observing bus.
func (m *Metrics) Detach(bus ports.Bus) {
	m.mu.Lock()
	sub, ok := m.subs[bus]
	delete(m.subs, bus)
	m.mu.Unlock()
	if ok {
		bus.Unsubscribe(sub)
	}
}

// Handle records a single event. It satisfies ports.Handler.
func (m *Metrics) Handle(_ context.Context, e domain.Event) error {
	key := e.RunID + "/" + e.ProcessName

	switch e.Type {
	case domain.EventProcessStarted:
		m.mu.Lock()
		m.started[key] = e.Timestamp
		m.mu.Unlock()

	case domain.EventProcessSucceeded, domain.EventProcessFailed:
		outcome := "succeeded"
		if e.Type == domain.EventProcessFailed {
			outcome = "failed"
		}
		m.processes.WithLabelValues(e.ProcessName, outcome).Inc()

		m.mu.Lock()
		start, ok := m.started[key]
		delete(m.started, key)
		m.mu.Unlock()
		if ok && !e.Timestamp.IsZero() {
			m.duration.WithLabelValues(e.ProcessName).Observe(e.Timestamp.Sub(start).Seconds())
		}

	case domain.EventProcessRolledBack:
		m.processes.WithLabelValues(e.ProcessName, "rolled_back").Inc()

	case domain.EventProcessRollbackError:
		m.processes.WithLabelValues(e.ProcessName, "rollback_error").Inc()
		m.rollbackErrors.WithLabelValues(e.ProcessName).Inc()

	case domain.EventStackCompleted:
		m.runs.WithLabelValues(string(domain.StackCompleted)).Inc()
	case domain.EventStackRolledBack:
		m.runs.WithLabelValues(string(domain.StackRolledBack)).Inc()
	case domain.EventStackFailed:
		m.runs.WithLabelValues(string(domain.StackFailed)).Inc()
	}
	return nil
}
