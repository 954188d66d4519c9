// Package lifecycle implements the lifecycle.finalize adapter: the
// terminal bookkeeping step after update_status, with no external
// provider of its own. It closes out the run's observability trail —
// logging completion and incrementing a Prometheus counter — rather than
// calling anything outside the process.
package lifecycle

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/obslog"
	"github.com/castforge/castforge/internal/registry"
)

// Finalizer marks a run complete in the logs and in a Prometheus counter.
type Finalizer struct {
	Logger    *logrus.Logger
	finalized prometheus.Counter
}

// NewFinalizer registers the finalized-runs counter against reg.
func NewFinalizer(logger *logrus.Logger, reg prometheus.Registerer) *Finalizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "castforge_runs_finalized_total",
		Help: "Count of workflow runs that reached the finalize phase.",
	})
	reg.MustRegister(counter)
	return &Finalizer{Logger: logger, finalized: counter}
}

// Adapter returns an Adapter implementing registry.AdapterLifecycle.
func (f *Finalizer) Adapter() adapter.Adapter {
	return adapter.Func(func(ctx context.Context, in adapter.Input) adapter.Result {
		f.finalized.Inc()
		f.Logger.WithFields(obslog.NewFields().
			Component("lifecycle").
			Operation("finalize").Logrus()).
			Info("workflow reached finalize")
		return adapter.Result{Outputs: adapter.Input{registry.KeyFinalized: true}}
	})
}
