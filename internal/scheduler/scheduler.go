// Package scheduler drives a phase graph to a terminal state: it walks
// readiness layers, launches eligible phases concurrently, consults the
// circuit breaker before admitting each one, merges outputs into the
// shared workflow context, commits checkpoints, and cascades skips or
// aborts on failure. The scheduler is variant-agnostic — Standard and
// Enhanced differ only in which graph is handed to Run.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/checkpoint"
	"github.com/castforge/castforge/internal/graph"
	"github.com/castforge/castforge/internal/ledger"
	"github.com/castforge/castforge/internal/obslog"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/report"
	"github.com/castforge/castforge/internal/workflow"
)

// errCancellationTimeout is recorded against a phase that neither returned
// nor honoured context cancellation before the grace period elapsed.
var errCancellationTimeout = apperrors.FailedTo("phase did not return before the grace period elapsed", context.DeadlineExceeded)

// Scheduler owns the run loop. A Scheduler is stateless across runs — all
// mutable state lives on the workflow.Context passed to Run, which only
// the goroutine running Run ever mutates.
type Scheduler struct {
	Adapters    adapter.Registry
	Breakers    *breaker.Table
	Ledger      *ledger.Ledger
	Checkpoints checkpoint.Store
	Logger      *logrus.Logger
	Tracer      trace.Tracer

	// MaxConcurrency bounds how many phases may be Running at once across
	// the whole run. Zero means unbounded (limited only by graph shape).
	MaxConcurrency int

	// PollInterval is how often the loop wakes to re-check breaker
	// admission for deferred phases when nothing else is in flight.
	// Defaults to 25ms.
	PollInterval time.Duration

	// GracePeriod bounds how long an aborted run waits for in-flight
	// phases to return before force-recording them as Failed with a
	// Cancellation error. Defaults to 5s.
	GracePeriod time.Duration

	sem     *semaphore.Weighted
	semOnce bool
}

// semaphoreFor lazily builds the Weighted semaphore bounding concurrent
// phase goroutines. A zero MaxConcurrency leaves sem nil, meaning
// unbounded (the graph's own layering is the only limit).
func (s *Scheduler) semaphoreFor() *semaphore.Weighted {
	if s.MaxConcurrency <= 0 {
		return nil
	}
	if !s.semOnce {
		s.sem = semaphore.NewWeighted(int64(s.MaxConcurrency))
		s.semOnce = true
	}
	return s.sem
}

func (s *Scheduler) pollInterval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return 25 * time.Millisecond
}

func (s *Scheduler) gracePeriod() time.Duration {
	if s.GracePeriod > 0 {
		return s.GracePeriod
	}
	return 5 * time.Second
}

func (s *Scheduler) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// attemptMsg is what a phase goroutine sends back to the Run loop. Every
// message carries a ledger entry for that attempt; terminal marks whether
// the goroutine has exited (success, final failure, abort, or a breaker
// bounce that returns the phase to Pending).
type attemptMsg struct {
	id       phase.ID
	terminal bool
	abort    bool
	status   workflow.Status
	attempt  int
	outputs  map[phase.Key]interface{}
	errRec   *workflow.ErrorRecord
	entry    workflow.CostEntry
	start    time.Time
	end      time.Time
}

// Run drives g to completion starting from wfCtx's current state. Phases
// already Succeeded/Failed/Skipped on entry (e.g. restored from a
// checkpoint) are not re-launched.
func (s *Scheduler) Run(ctx context.Context, g *graph.Graph, wfCtx *workflow.Context) (report.Report, error) {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(g.PhaseIDs())
	msgCh := make(chan attemptMsg, 4*total+8)
	inFlight := make(map[phase.ID]bool, total)
	deferredOrder := make([]phase.ID, 0, total)

	aborted := false
	var abortDeadline time.Time

	for {
		if s.cascadeSkips(g, wfCtx) {
			s.commitCheckpoint(ctx, wfCtx)
		}

		terminal := terminalSet(wfCtx)
		if (len(terminal) == total || aborted) && len(inFlight) == 0 {
			break
		}

		if !aborted {
			ready := g.Ready(terminal, runningSet(wfCtx))
			order := orderByDeferral(ready, deferredOrder)

			sem := s.semaphoreFor()
			var stillDeferred []phase.ID
			for _, id := range order {
				spec := g.Spec(id)
				if !s.Breakers.Admit(spec.Adapter) {
					stillDeferred = append(stillDeferred, id)
					continue
				}
				if sem != nil && !sem.TryAcquire(1) {
					stillDeferred = append(stillDeferred, id)
					continue
				}
				s.launch(runCtx, g, spec, wfCtx, msgCh, sem)
				inFlight[id] = true
			}
			deferredOrder = stillDeferred
		}

		if len(inFlight) == 0 {
			select {
			case <-time.After(s.pollInterval()):
				continue
			case <-runCtx.Done():
				aborted = true
				abortDeadline = time.Now().Add(s.gracePeriod())
				cancel()
				continue
			}
		}

		var msg attemptMsg
		if aborted {
			wait := time.Until(abortDeadline)
			if wait < 0 {
				wait = 0
			}
			select {
			case msg = <-msgCh:
			case <-time.After(wait):
				s.forceFailInFlight(g, wfCtx, inFlight)
				inFlight = make(map[phase.ID]bool)
				continue
			}
		} else {
			msg = <-msgCh
		}

		s.Ledger.Record(wfCtx, msg.entry)
		wfCtx.Attempts[msg.id] = msg.attempt
		if !msg.terminal {
			continue
		}
		delete(inFlight, msg.id)

		s.applyTerminal(g, wfCtx, msg)
		s.commitCheckpoint(ctx, wfCtx)

		if !aborted && (msg.abort || (msg.status == workflow.Failed && g.Spec(msg.id).Criticality == phase.Critical)) {
			aborted = true
			abortDeadline = time.Now().Add(s.gracePeriod())
			cancel()
		}
	}

	if aborted {
		s.cascadeSkipRemaining(g, wfCtx)
	}
	s.commitCheckpoint(ctx, wfCtx)

	return report.Build(wfCtx, start, aborted), nil
}

func terminalSet(ctx *workflow.Context) map[phase.ID]bool {
	out := make(map[phase.ID]bool, len(ctx.PhaseStatus))
	for id, status := range ctx.PhaseStatus {
		if status.Terminal() {
			out[id] = true
		}
	}
	return out
}

func runningSet(ctx *workflow.Context) map[phase.ID]bool {
	out := make(map[phase.ID]bool)
	for id, status := range ctx.PhaseStatus {
		if status == workflow.Running {
			out[id] = true
		}
	}
	return out
}

// orderByDeferral puts previously-deferred IDs first, in their original
// deferral order, so a breaker-deferred phase is retried FIFO rather than
// losing its place to newly-ready siblings on every wakeup.
func orderByDeferral(ready []phase.ID, deferredOrder []phase.ID) []phase.ID {
	readySet := make(map[phase.ID]bool, len(ready))
	for _, id := range ready {
		readySet[id] = true
	}
	seen := make(map[phase.ID]bool, len(ready))
	out := make([]phase.ID, 0, len(ready))
	for _, id := range deferredOrder {
		if readySet[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range ready {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}

func (s *Scheduler) applyTerminal(g *graph.Graph, ctx *workflow.Context, msg attemptMsg) {
	ctx.PhaseStatus[msg.id] = msg.status
	if msg.status == workflow.Pending {
		// A breaker bounce: the goroutine exited without consuming an
		// attempt. The phase simply reappears in the next Ready() call
		// once the breaker admits it again.
		return
	}

	spec := g.Spec(msg.id)
	ctx.Timings[msg.id] = workflow.Timing{Start: msg.start, End: msg.end}

	if msg.status == workflow.Succeeded {
		for k, v := range msg.outputs {
			ctx.Outputs[k] = v
		}
		delete(ctx.Errors, msg.id)
		return
	}

	if msg.errRec != nil {
		ctx.Errors[msg.id] = *msg.errRec
	}
	if spec.Criticality == phase.BestEffort {
		ctx.NonFatalFail[msg.id] = true
	}
	s.logger().WithFields(obslog.NewFields().
		Component("scheduler").
		Phase(string(msg.id)).
		Adapter(string(spec.Adapter)).
		Attempt(msg.attempt).Logrus()).
		Warn("phase ended Failed")
}

// forceFailInFlight records a Cancellation failure for every phase still
// running once the grace period after an abort has elapsed. The
// goroutines themselves are abandoned; Go has no mechanism to preempt
// them, so they run to completion and their eventual message is simply
// never read.
func (s *Scheduler) forceFailInFlight(g *graph.Graph, ctx *workflow.Context, inFlight map[phase.ID]bool) {
	now := time.Now()
	for id := range inFlight {
		spec := g.Spec(id)
		ctx.PhaseStatus[id] = workflow.Failed
		ctx.Timings[id] = workflow.Timing{Start: now, End: now}
		ctx.Errors[id] = workflow.ErrorRecord{
			Kind:    phase.Cancellation,
			Message: errCancellationTimeout.Error(),
		}
		if spec.Criticality == phase.BestEffort {
			ctx.NonFatalFail[id] = true
		}
		s.logger().WithFields(obslog.NewFields().
			Component("scheduler").
			Phase(string(id)).Logrus()).
			Error("phase abandoned after grace period elapsed")
	}
}

// cascadeSkips marks Pending phases Skipped when a required predecessor is
// terminal-but-not-Succeeded and the keys it would have produced aren't
// covered by this phase's AcceptsMissing set. Returns whether any change
// was made, so the caller knows to checkpoint.
func (s *Scheduler) cascadeSkips(g *graph.Graph, ctx *workflow.Context) bool {
	changed := false
	for {
		roundChanged := false
		for _, id := range g.PhaseIDs() {
			if ctx.PhaseStatus[id].Terminal() {
				continue
			}
			spec := g.Spec(id)
			for dep := range spec.Requires {
				depStatus := ctx.PhaseStatus[dep]
				if !depStatus.Terminal() || depStatus == workflow.Succeeded {
					continue
				}
				depSpec := g.Spec(dep)
				if keysAccepted(depSpec.Produces, spec.AcceptsMissing) {
					continue
				}
				ctx.PhaseStatus[id] = workflow.Skipped
				roundChanged = true
				break
			}
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

func keysAccepted(produced map[phase.Key]struct{}, accepted map[phase.Key]struct{}) bool {
	for k := range produced {
		if _, ok := accepted[k]; !ok {
			return false
		}
	}
	return true
}

// cascadeSkipRemaining marks every non-terminal phase Skipped, used once a
// run has been torn down after a Critical failure or an external abort.
func (s *Scheduler) cascadeSkipRemaining(g *graph.Graph, ctx *workflow.Context) {
	for _, id := range g.PhaseIDs() {
		if !ctx.PhaseStatus[id].Terminal() {
			ctx.PhaseStatus[id] = workflow.Skipped
		}
	}
}

func (s *Scheduler) commitCheckpoint(ctx context.Context, wfCtx *workflow.Context) {
	if s.Checkpoints == nil {
		return
	}
	if err := s.Checkpoints.Save(ctx, checkpoint.FromContext(wfCtx)); err != nil {
		s.logger().WithFields(obslog.NewFields().
			Component("scheduler").
			Workflow(string(wfCtx.WorkflowID)).
			Error(err).Logrus()).
			Error("failed to commit checkpoint")
	}
}

var errNoAdapter = errors.New("scheduler: no adapter bound for this phase")
