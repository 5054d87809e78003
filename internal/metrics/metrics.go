// Package metrics exposes Prometheus collectors for the ledger and the RPC surface.
// A nil *Metrics is valid and records nothing, so tests can leave it out.
package metrics

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "settleup"

// Metrics holds the application collectors.
type Metrics struct {
	entriesCreated    *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	optimizeDuration  *prometheus.HistogramVec
	planSize          *prometheus.HistogramVec
	rpcRequests       *prometheus.CounterVec
	rpcDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		entriesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_created_total",
			Help:      "Settlement entries written to the ledger, by source (expense or manual).",
		}, []string{"source"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_status_transitions_total",
			Help:      "Attempted entry status changes, by target status and result.",
		}, []string{"status", "result"}),
		optimizeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Time spent computing a settlement plan.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"mode"}),
		planSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_plan_instructions",
			Help:      "Number of payment instructions in a computed plan.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}, []string{"mode"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Handled RPCs by procedure and Connect code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	for _, c := range []prometheus.Collector{
		m.entriesCreated, m.statusTransitions, m.optimizeDuration,
		m.planSize, m.rpcRequests, m.rpcDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// EntriesCreated counts n new ledger entries from source.
func (m *Metrics) EntriesCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesCreated.WithLabelValues(source).Add(float64(n))
}

// StatusTransition records the outcome of moving an entry to status.
func (m *Metrics) StatusTransition(status string, err error) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status, result(err)).Inc()
}

// Optimized records how long a plan took and how many instructions it had.
func (m *Metrics) Optimized(mode string, took time.Duration, instructions int) {
	if m == nil {
		return
	}
	m.optimizeDuration.WithLabelValues(mode).Observe(took.Seconds())
	m.planSize.WithLabelValues(mode).Observe(float64(instructions))
}

// Interceptor returns a Connect interceptor that counts and times every unary RPC.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if m == nil {
				return next(ctx, req)
			}
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.rpcRequests.WithLabelValues(procedure, code(err)).Inc()
			return resp, err
		}
	}
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func code(err error) string {
	if err == nil {
		return "ok"
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr.Code().String()
	}
	return connect.CodeUnknown.String()
}
