// Package phase defines the immutable, compile-time-validated vocabulary a
// PhaseSpec is built from: phase identifiers, concurrency groups, adapter
// bindings, retry policy, and criticality. None of these types carry any
// behavior; internal/registry assembles them into a catalogue and
// internal/graph derives a dependency graph from that catalogue.
package phase

import "time"

// ID identifies a phase from the closed set a WorkflowType registers.
type ID string

// Key identifies a value written into the workflow context's output bag.
type Key string

// ConcurrencyGroup labels phases that may run in parallel once their
// dependencies are satisfied.
type ConcurrencyGroup string

// AdapterID identifies which external capability a phase invokes.
type AdapterID string

// Criticality decides whether a phase's final Failed status aborts the run.
type Criticality string

const (
	Critical   Criticality = "Critical"
	BestEffort Criticality = "BestEffort"
)

// ErrorKind classifies an adapter failure for the retry policy.
type ErrorKind string

const (
	Transient    ErrorKind = "Transient"
	Permanent    ErrorKind = "Permanent"
	Abort        ErrorKind = "Abort"
	Cancellation ErrorKind = "Cancellation"
)

// RetryPolicy is a value type: built at registration, never mutated.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	JitterFraction float64
	// TimeoutIsPermanent overrides the default (timeouts are Transient)
	// for phases that declare a timeout as non-retryable.
	TimeoutIsPermanent bool
}

// DefaultRetryPolicy returns the documented defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       60 * time.Second,
		JitterFraction: 0.2,
	}
}

// Spec is an immutable phase specification.
type Spec struct {
	ID ID

	// Requires lists predecessor phases whose outputs this phase reads.
	Requires map[ID]struct{}

	// Produces lists the context keys this phase writes. Each key must be
	// produced by exactly one phase in a given registry (validated by
	// internal/registry).
	Produces map[Key]struct{}

	// AcceptsMissing lists keys this phase can proceed without if their
	// producer ended Skipped or Failed. Empty by default.
	AcceptsMissing map[Key]struct{}

	Group       ConcurrencyGroup
	Adapter     AdapterID
	Retry       RetryPolicy
	Timeout     time.Duration
	Criticality Criticality
}

// RequiresSet builds a Requires set from a variadic list, for readable
// registry construction call sites.
func RequiresSet(ids ...ID) map[ID]struct{} {
	s := make(map[ID]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// KeySet builds a Produces/AcceptsMissing set from a variadic list.
func KeySet(keys ...Key) map[Key]struct{} {
	s := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}
