package scheduler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/castforge/castforge/internal/adapter"
	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/breaker"
	"github.com/castforge/castforge/internal/graph"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/retry"
	"github.com/castforge/castforge/internal/workflow"
)

// launch marks id Running and starts its attempt-retry goroutine. It is
// only ever called from the Run loop, so the PhaseStatus write here is the
// single writer's. sem, if non-nil, already has one permit acquired by the
// caller and is released when the goroutine exits.
func (s *Scheduler) launch(ctx context.Context, g *graph.Graph, spec *phase.Spec, wfCtx *workflow.Context, msgCh chan<- attemptMsg, sem *semaphore.Weighted) {
	wfCtx.PhaseStatus[spec.ID] = workflow.Running
	startAttempt := wfCtx.Attempts[spec.ID]
	input := wfCtx.Snapshot(inputKeys(g, spec))
	workflowID := wfCtx.WorkflowID

	a, ok := s.Adapters.Lookup(spec.Adapter)
	if !ok {
		if sem != nil {
			sem.Release(1)
		}
		now := time.Now()
		msgCh <- attemptMsg{
			id: spec.ID, terminal: true, abort: true,
			status: workflow.Failed, attempt: startAttempt + 1, start: now, end: now,
			errRec: &workflow.ErrorRecord{Kind: phase.Abort, Message: apperrors.Wrapf(errNoAdapter, "adapter %s", spec.Adapter).Error()},
			entry: workflow.CostEntry{
				WorkflowID: workflowID, PhaseID: spec.ID, Attempt: startAttempt + 1,
				StartedAt: now, EndedAt: now, Outcome: workflow.OutcomeFailed, Adapter: spec.Adapter,
			},
		}
		return
	}
	wrapped := adapter.WithTimeout(a, spec.Timeout)

	go func() {
		if sem != nil {
			defer sem.Release(1)
		}
		s.runAttempts(ctx, wrapped, spec, workflowID, startAttempt, input, msgCh)
	}()
}

func (s *Scheduler) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return trace.NewNoopTracerProvider().Tracer("scheduler")
}

// inputKeys unions the output keys every required predecessor produces
// with the keys this phase declared it can proceed without, giving the
// adapter the full snapshot it might consume.
func inputKeys(g *graph.Graph, spec *phase.Spec) map[phase.Key]struct{} {
	keys := make(map[phase.Key]struct{})
	for dep := range spec.Requires {
		depSpec := g.Spec(dep)
		if depSpec == nil {
			continue
		}
		for k := range depSpec.Produces {
			keys[k] = struct{}{}
		}
	}
	for k := range spec.AcceptsMissing {
		keys[k] = struct{}{}
	}
	return keys
}

// runAttempts is the per-phase goroutine body: invoke, classify, retry or
// terminate, sending exactly one attemptMsg per attempt back to the Run
// loop. It touches no workflow.Context field directly — only msgCh.
func (s *Scheduler) runAttempts(
	ctx context.Context,
	a adapter.Adapter,
	spec *phase.Spec,
	workflowID workflow.ID,
	startAttempt int,
	input adapter.Input,
	msgCh chan<- attemptMsg,
) {
	attempt := startAttempt
	seenUnknown := false
	tracer := s.tracer()

	for {
		attempt++
		attemptStart := time.Now()

		spanCtx, span := tracer.Start(ctx, "phase.attempt", trace.WithAttributes(
			attribute.String("phase.id", string(spec.ID)),
			attribute.String("phase.adapter", string(spec.Adapter)),
			attribute.Int("phase.attempt", attempt),
		))

		var res adapter.Result
		callErr := s.Breakers.Call(spec.Adapter, func() error {
			res = a.Invoke(spanCtx, input)
			if res.Err != nil {
				return res.Err
			}
			return nil
		})
		attemptEnd := time.Now()
		if res.Err != nil {
			span.SetAttributes(attribute.String("phase.error_kind", string(res.Err.Kind)))
		}
		span.End()

		if errors.Is(callErr, breaker.ErrDeferred) {
			msgCh <- attemptMsg{
				id: spec.ID, terminal: true, status: workflow.Pending,
				attempt: attempt - 1, start: attemptStart, end: attemptEnd,
				entry: workflow.CostEntry{
					WorkflowID: workflowID, PhaseID: spec.ID, Attempt: attempt - 1,
					StartedAt: attemptStart, EndedAt: attemptEnd,
					Outcome: workflow.OutcomeRetrying, Adapter: spec.Adapter,
					Notes: "deferred by circuit breaker",
				},
			}
			return
		}

		if res.Err == nil {
			entry := costEntry(workflowID, spec, attempt, attemptStart, attemptEnd, workflow.OutcomeSucceeded, res.Cost, "")
			msgCh <- attemptMsg{
				id: spec.ID, terminal: true, status: workflow.Succeeded,
				attempt: attempt, start: attemptStart, end: attemptEnd,
				outputs: res.Outputs, entry: entry,
			}
			return
		}

		kind := res.Err.Kind
		if kind == "" {
			kind = retry.ClassifyUnknown(seenUnknown)
			seenUnknown = true
		}
		outcome := retry.Evaluate(spec.Retry, kind, attempt)

		switch outcome.Decision {
		case retry.DecisionRetry:
			entry := costEntry(workflowID, spec, attempt, attemptStart, attemptEnd, workflow.OutcomeRetrying, res.Err.Cost, res.Err.Message)
			msgCh <- attemptMsg{id: spec.ID, terminal: false, attempt: attempt, entry: entry}

			select {
			case <-time.After(outcome.Delay):
				continue
			case <-ctx.Done():
				now := time.Now()
				msgCh <- attemptMsg{
					id: spec.ID, terminal: true, status: workflow.Failed,
					attempt: attempt, start: attemptStart, end: now,
					errRec: &workflow.ErrorRecord{Kind: phase.Cancellation, Message: errCancellationTimeout.Error()},
					entry:  costEntry(workflowID, spec, attempt, attemptStart, now, workflow.OutcomeFailed, nil, "cancelled during backoff"),
				}
				return
			}

		case retry.DecisionAbort:
			entry := costEntry(workflowID, spec, attempt, attemptStart, attemptEnd, workflow.OutcomeFailed, res.Err.Cost, res.Err.Message)
			msgCh <- attemptMsg{
				id: spec.ID, terminal: true, abort: true, status: workflow.Failed,
				attempt: attempt, start: attemptStart, end: attemptEnd,
				errRec: res.Err, entry: entry,
			}
			return

		default: // DecisionFail
			entry := costEntry(workflowID, spec, attempt, attemptStart, attemptEnd, workflow.OutcomeFailed, res.Err.Cost, res.Err.Message)
			msgCh <- attemptMsg{
				id: spec.ID, terminal: true, status: workflow.Failed,
				attempt: attempt, start: attemptStart, end: attemptEnd,
				errRec: res.Err, entry: entry,
			}
			return
		}
	}
}

func costEntry(
	workflowID workflow.ID,
	spec *phase.Spec,
	attempt int,
	start, end time.Time,
	outcome workflow.Outcome,
	cost *workflow.CostEntry,
	notes string,
) workflow.CostEntry {
	entry := workflow.CostEntry{
		WorkflowID: workflowID,
		PhaseID:    spec.ID,
		Attempt:    attempt,
		StartedAt:  start,
		EndedAt:    end,
		Outcome:    outcome,
		Adapter:    spec.Adapter,
		Notes:      notes,
	}
	if cost != nil {
		entry.CostAmount = cost.CostAmount
		entry.CostCurrency = cost.CostCurrency
	}
	return entry
}
