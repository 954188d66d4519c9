// Package checkpoint defines the durable serialisation of a
// workflow.Context and two Store implementations: an
// atomic-rename file store and a Redis store.
package checkpoint

import (
	"encoding/json"

	"github.com/castforge/castforge/internal/apperrors"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

// Checkpoint is the serialised subset of workflow.Context: every field
// except the cost Ledger (and in-flight cancellation handles, adapter
// connections, and ephemeral probe state). Running phases are demoted to Pending before
// being written, so a resumed workflow retries rather than waits forever
// on a phase that was mid-flight when the process died.
type Checkpoint struct {
	WorkflowID   workflow.ID                       `json:"workflow_id"`
	Type         workflow.Type                     `json:"type"`
	Outputs      map[phase.Key]interface{}         `json:"outputs"`
	PhaseStatus  map[phase.ID]workflow.Status      `json:"phase_status"`
	Attempts     map[phase.ID]int                  `json:"attempts"`
	Timings      map[phase.ID]workflow.Timing      `json:"timings"`
	Errors       map[phase.ID]workflow.ErrorRecord `json:"errors"`
	NonFatalFail map[phase.ID]bool                 `json:"non_fatal_fail"`
}

// FromContext builds a Checkpoint from a live workflow.Context, demoting
// any Running phase to Pending.
func FromContext(ctx *workflow.Context) Checkpoint {
	cp := Checkpoint{
		WorkflowID:   ctx.WorkflowID,
		Type:         ctx.Type,
		Outputs:      make(map[phase.Key]interface{}, len(ctx.Outputs)),
		PhaseStatus:  make(map[phase.ID]workflow.Status, len(ctx.PhaseStatus)),
		Attempts:     make(map[phase.ID]int, len(ctx.Attempts)),
		Timings:      make(map[phase.ID]workflow.Timing, len(ctx.Timings)),
		Errors:       make(map[phase.ID]workflow.ErrorRecord, len(ctx.Errors)),
		NonFatalFail: make(map[phase.ID]bool, len(ctx.NonFatalFail)),
	}
	for k, v := range ctx.Outputs {
		cp.Outputs[k] = v
	}
	for id, status := range ctx.PhaseStatus {
		if status == workflow.Running {
			status = workflow.Pending
		}
		cp.PhaseStatus[id] = status
	}
	for id, n := range ctx.Attempts {
		cp.Attempts[id] = n
	}
	for id, t := range ctx.Timings {
		cp.Timings[id] = t
	}
	for id, e := range ctx.Errors {
		cp.Errors[id] = e
	}
	for id, v := range ctx.NonFatalFail {
		cp.NonFatalFail[id] = v
	}
	return cp
}

// Restore rebuilds a workflow.Context from a Checkpoint. The ledger is not
// part of the checkpoint; the ledger sink is an independent append-only
// channel, so resume() does not replay historical ledger entries, only
// phase state.
func (cp Checkpoint) Restore() *workflow.Context {
	ctx := workflow.New(cp.WorkflowID, cp.Type)
	for k, v := range cp.Outputs {
		ctx.Outputs[k] = v
	}
	for id, status := range cp.PhaseStatus {
		ctx.PhaseStatus[id] = status
	}
	for id, n := range cp.Attempts {
		ctx.Attempts[id] = n
	}
	for id, t := range cp.Timings {
		ctx.Timings[id] = t
	}
	for id, e := range cp.Errors {
		ctx.Errors[id] = e
	}
	for id, v := range cp.NonFatalFail {
		ctx.NonFatalFail[id] = v
	}
	return ctx
}

func marshalCheckpoint(cp Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, apperrors.FailedTo("marshal checkpoint", err)
	}
	return data, nil
}

func unmarshalCheckpoint(data []byte) (Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, apperrors.FailedTo("unmarshal checkpoint", err)
	}
	return cp, nil
}
