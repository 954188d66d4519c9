// Package orchestrator is the public facade: it wires adapters, breakers,
// ledger, and checkpoint store into a scheduler and exposes the two
// entrypoints a caller needs — Run for a fresh workflow, Resume for one
// restored from its last checkpoint. Neither entrypoint differs in how
// the scheduler is driven; only what workflow.Context and graph.Graph
// they start from differs.
package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/checkpoint"
	"github.com/castforge/castforge/internal/ledger"
	"github.com/castforge/castforge/internal/obslog"
	"github.com/castforge/castforge/internal/registry"
	"github.com/castforge/castforge/internal/report"
	"github.com/castforge/castforge/internal/scheduler"
	"github.com/castforge/castforge/internal/workflow"
)

// Facade is the assembled orchestration core, constructed once by
// cmd/castforge (or a test) and reused across runs.
type Facade struct {
	Adapters       adapter.Registry
	Breakers       *breaker.Table
	Ledger         *ledger.Ledger
	Checkpoints    checkpoint.Store
	Logger         *logrus.Logger
	Tracer         trace.Tracer
	MaxConcurrency int
}

func (f *Facade) logger() *logrus.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return logrus.StandardLogger()
}

func (f *Facade) scheduler() *scheduler.Scheduler {
	return &scheduler.Scheduler{
		Adapters:       f.Adapters,
		Breakers:       f.Breakers,
		Ledger:         f.Ledger,
		Checkpoints:    f.Checkpoints,
		Logger:         f.Logger,
		Tracer:         f.Tracer,
		MaxConcurrency: f.MaxConcurrency,
	}
}

// Run starts a brand-new workflow of the given type and drives it to a
// terminal state.
func (f *Facade) Run(ctx context.Context, t workflow.Type) (report.Report, error) {
	g, err := registry.Build(t)
	if err != nil {
		return report.Report{}, apperrors.FailedTo("build phase graph", err)
	}

	wfCtx := workflow.New(workflow.NewID(), t)
	f.logger().WithFields(obslog.NewFields().
		Component("orchestrator").
		Operation("run").
		Workflow(string(wfCtx.WorkflowID)).Logrus()).
		Info("starting workflow")

	return f.scheduler().Run(ctx, g, wfCtx)
}

// Resume loads the last checkpoint for id, rebuilds the phase graph for
// its recorded workflow.Type, and continues driving it from where it left
// off. Phases already terminal in the checkpoint are not re-launched.
func (f *Facade) Resume(ctx context.Context, id workflow.ID) (report.Report, error) {
	if f.Checkpoints == nil {
		return report.Report{}, apperrors.ConfigurationError("checkpoint_store", "resume requires a configured checkpoint store")
	}

	cp, found, err := f.Checkpoints.Load(ctx, id)
	if err != nil {
		return report.Report{}, apperrors.CheckpointError("load", string(id), err)
	}
	if !found {
		return report.Report{}, &NotFoundError{WorkflowID: id}
	}

	g, err := registry.Build(cp.Type)
	if err != nil {
		return report.Report{}, apperrors.FailedTo("build phase graph", err)
	}

	wfCtx := cp.Restore()
	f.logger().WithFields(obslog.NewFields().
		Component("orchestrator").
		Operation("resume").
		Workflow(string(id)).Logrus()).
		Info("resuming workflow from checkpoint")

	return f.scheduler().Run(ctx, g, wfCtx)
}

// NotFoundError reports that no checkpoint exists for a workflow ID.
type NotFoundError struct {
	WorkflowID workflow.ID
}

func (e *NotFoundError) Error() string {
	return "orchestrator: no checkpoint found for workflow " + string(e.WorkflowID)
}
