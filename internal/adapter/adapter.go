// Package adapter defines the narrow contract through which a phase
// invokes an external capability. The scheduler sees only the result or
// error an Adapter returns; it has no framework knowledge of what runs
// inside one.
package adapter

import (
	"context"
	"time"

	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

// Input is the read-only snapshot of workflow outputs a phase may consume,
// keyed by the phase's declared Requires/AcceptsMissing sets.
type Input map[phase.Key]interface{}

// Result is what an Adapter returns for one invocation attempt.
type Result struct {
	Outputs map[phase.Key]interface{}
	Cost    *workflow.CostEntry
	Err     *workflow.ErrorRecord
}

// Adapter is the function signature every external capability must
// implement: given an input snapshot and a deadline carried on ctx, return
// outputs or a classified error. Adapters are otherwise opaque — no shared
// mutable state, no orchestration-core types beyond this signature.
type Adapter interface {
	Invoke(ctx context.Context, in Input) Result
}

// Func adapts a plain function to the Adapter interface.
type Func func(ctx context.Context, in Input) Result

func (f Func) Invoke(ctx context.Context, in Input) Result {
	return f(ctx, in)
}

// WithTimeout wraps an Adapter so Invoke's context is bounded by d,
// matching the per-phase Timeout the registry declares.
func WithTimeout(a Adapter, d time.Duration) Adapter {
	if d <= 0 {
		return a
	}
	return Func(func(ctx context.Context, in Input) Result {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return a.Invoke(ctx, in)
	})
}

// Registry maps each AdapterID the phase registry references to its
// concrete implementation. Looking up an unbound ID is a configuration
// error the orchestrator surfaces at startup, not at phase-launch time.
type Registry map[phase.AdapterID]Adapter

func (r Registry) Lookup(id phase.AdapterID) (Adapter, bool) {
	a, ok := r[id]
	return a, ok
}
