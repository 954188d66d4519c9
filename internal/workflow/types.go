// Package workflow holds the mutable run state the scheduler owns: the
// WorkflowContext, per-phase status/attempt/timing bookkeeping, the cost
// ledger, and the WorkflowID/WorkflowType identifiers. internal/scheduler is
// the only writer; everything else only ever reads a snapshot.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/castforge/castforge/internal/phase"
)

// ID is an opaque, unique-per-run workflow identifier.
type ID string

// NewID returns a new, time-ordered-unique workflow ID.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

// Type selects which phases are registered for a run.
type Type string

const (
	Standard Type = "Standard"
	Enhanced Type = "Enhanced"
)

// Status is a phase's position in its state machine. Transitions only ever
// move forward: Pending -> Running -> (Succeeded | Failed | Skipped).
type Status string

const (
	Pending   Status = "Pending"
	Running   Status = "Running"
	Succeeded Status = "Succeeded"
	Failed    Status = "Failed"
	Skipped   Status = "Skipped"
)

// Terminal reports whether a status is one the phase will never leave.
func (s Status) Terminal() bool {
	return s == Succeeded || s == Failed || s == Skipped
}

// ErrorRecord carries an adapter failure's classification, message, and
// (if the provider billed) the cost it incurred.
type ErrorRecord struct {
	Kind    phase.ErrorKind
	Message string
	Cost    *CostEntry
}

func (e *ErrorRecord) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

// Outcome classifies a ledger entry's result for a single attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "Succeeded"
	OutcomeFailed    Outcome = "Failed"
	OutcomeRetrying  Outcome = "Retrying"
)

// CostEntry is a single append-only ledger record for one phase attempt.
type CostEntry struct {
	WorkflowID   ID
	PhaseID      phase.ID
	Attempt      int
	StartedAt    time.Time
	EndedAt      time.Time
	Outcome      Outcome
	Adapter      phase.AdapterID
	CostAmount   float64
	CostCurrency string
	Notes        string
}

// Timing records the start/end timestamps of the most recent attempt of a
// phase.
type Timing struct {
	Start time.Time
	End   time.Time
}

// Context is the mutable, single-owner state of one workflow run.
type Context struct {
	WorkflowID ID
	Type       Type

	Outputs      map[phase.Key]interface{}
	PhaseStatus  map[phase.ID]Status
	Attempts     map[phase.ID]int
	Timings      map[phase.ID]Timing
	Errors       map[phase.ID]ErrorRecord
	Ledger       []CostEntry
	NonFatalFail map[phase.ID]bool
}

// New creates an empty Context for a fresh run.
func New(id ID, t Type) *Context {
	return &Context{
		WorkflowID:   id,
		Type:         t,
		Outputs:      make(map[phase.Key]interface{}),
		PhaseStatus:  make(map[phase.ID]Status),
		Attempts:     make(map[phase.ID]int),
		Timings:      make(map[phase.ID]Timing),
		Errors:       make(map[phase.ID]ErrorRecord),
		NonFatalFail: make(map[phase.ID]bool),
	}
}

// TotalCost sums CostAmount across every ledger entry (
// includes failed attempts that incurred a charge).
func (c *Context) TotalCost() float64 {
	var total float64
	for _, entry := range c.Ledger {
		total += entry.CostAmount
	}
	return total
}

// Snapshot returns a read-only copy of the outputs for the given keys, for
// handing to a phase as its input. Missing keys are simply absent from the
// result (the caller, internal/scheduler, already knows whether that's
// acceptable via accepts_missing).
func (c *Context) Snapshot(keys map[phase.Key]struct{}) map[phase.Key]interface{} {
	out := make(map[phase.Key]interface{}, len(keys))
	for k := range keys {
		if v, ok := c.Outputs[k]; ok {
			out[k] = v
		}
	}
	return out
}
