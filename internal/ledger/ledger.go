// Package ledger implements an append-only cost & metrics ledger: one
// CostEntry per phase attempt, written to a JSON-lines file sink and
// mirrored into Prometheus metrics. Losing either sink never breaks
// orchestration correctness — the in-memory slice on workflow.Context
// remains the source of truth for total cost.
package ledger

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

// Sink receives a copy of every CostEntry as it is recorded. Implementations
// must be safe for the single-writer use the orchestrator thread makes of
// them. If the sink is single-writer-only, all writes are funnelled
// through the orchestrator thread.
type Sink interface {
	Write(entry workflow.CostEntry) error
	Close() error
}

// FileSink appends one JSON object per line to a file, matching the
// ledger_sink configuration key.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (creating if needed) the ledger sink file in append
// mode.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, apperrors.FailedToWithDetails("open ledger sink", "ledger", path, err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(entry workflow.CostEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(entry)
	if err != nil {
		return apperrors.FailedTo("marshal ledger entry", err)
	}
	line = append(line, '\n')
	if _, err := s.file.Write(line); err != nil {
		return apperrors.FailedTo("append ledger entry", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.file.Close()
}

// Metrics mirrors ledger entries into Prometheus collectors. It is a pure
// side-channel: Record never returns an error that affects orchestration.
type Metrics struct {
	duration *prometheus.HistogramVec
	cost     *prometheus.CounterVec
	attempts *prometheus.CounterVec
}

// NewMetrics registers the ledger's Prometheus collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "castforge_phase_duration_seconds",
			Help:    "Duration of a single phase attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "adapter", "outcome"}),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castforge_phase_cost_total",
			Help: "Cumulative provider cost billed across phase attempts.",
		}, []string{"phase", "adapter", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castforge_phase_attempts_total",
			Help: "Count of phase attempts by outcome.",
		}, []string{"phase", "adapter", "outcome"}),
	}
	reg.MustRegister(m.duration, m.cost, m.attempts)
	return m
}

// Record mirrors a CostEntry into the Prometheus collectors.
func (m *Metrics) Record(entry workflow.CostEntry) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"phase":   string(entry.PhaseID),
		"adapter": string(entry.Adapter),
		"outcome": string(entry.Outcome),
	}
	m.duration.With(labels).Observe(entry.EndedAt.Sub(entry.StartedAt).Seconds())
	m.cost.With(labels).Add(entry.CostAmount)
	m.attempts.With(labels).Inc()
}

// Ledger is the orchestrator-thread-owned recorder that fans each entry out
// to the in-memory workflow.Context, the file sink, and Prometheus.
type Ledger struct {
	sink    Sink
	metrics *Metrics
}

// New builds a Ledger. sink and metrics may each be nil to disable that
// side-channel.
func New(sink Sink, metrics *Metrics) *Ledger {
	return &Ledger{sink: sink, metrics: metrics}
}

// Record appends entry to ctx.Ledger (the correctness-bearing copy) and
// best-effort mirrors it to the file sink and Prometheus.
func (l *Ledger) Record(ctx *workflow.Context, entry workflow.CostEntry) {
	ctx.Ledger = append(ctx.Ledger, entry)
	if l == nil {
		return
	}
	if l.sink != nil {
		_ = l.sink.Write(entry) // best-effort: losing a ledger line doesn't break orchestration
	}
	if l.metrics != nil {
		l.metrics.Record(entry)
	}
}

// Summary aggregates a workflow's ledger into per-adapter and per-phase
// totals plus a grand total, for the Report.
type Summary struct {
	GrandTotal float64
	ByAdapter  map[phase.AdapterID]float64
	ByPhase    map[phase.ID]float64
}

// Summarize computes a Summary from a workflow.Context's ledger.
func Summarize(ctx *workflow.Context) Summary {
	s := Summary{
		ByAdapter: make(map[phase.AdapterID]float64),
		ByPhase:   make(map[phase.ID]float64),
	}
	for _, entry := range ctx.Ledger {
		s.GrandTotal += entry.CostAmount
		s.ByAdapter[entry.Adapter] += entry.CostAmount
		s.ByPhase[entry.PhaseID] += entry.CostAmount
	}
	return s
}
