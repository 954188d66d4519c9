// Package retry implements bounded exponential backoff with jitter, plus
// the Transient/Permanent/Abort retry decision.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/castforge/castforge/internal/phase"
)

// noCapInterval stands in for MaxInterval when a policy leaves MaxDelay
// unset, so the curve's own capping never kicks in early.
const noCapInterval = 100 * 365 * 24 * time.Hour

// Decision is the outcome of consulting a RetryPolicy after a failed
// attempt.
type Decision string

const (
	// DecisionRetry means the caller should wait Delay and re-run the
	// phase, consuming one more attempt.
	DecisionRetry Decision = "Retry"
	// DecisionFail means the phase is terminally Failed; no more attempts.
	DecisionFail Decision = "Fail"
	// DecisionAbort means the phase is terminally Failed and the whole run
	// must be torn down.
	DecisionAbort Decision = "Abort"
)

// Outcome is the result of Evaluate: what to do, and (for DecisionRetry)
// how long to wait first.
type Outcome struct {
	Decision Decision
	Delay    time.Duration
}

// Evaluate implements the error-kind classification table. attempt is the
// 1-based count of attempts made so far (including the one that just
// failed).
func Evaluate(policy phase.RetryPolicy, kind phase.ErrorKind, attempt int) Outcome {
	switch kind {
	case phase.Abort:
		return Outcome{Decision: DecisionAbort}
	case phase.Permanent:
		return Outcome{Decision: DecisionFail}
	case phase.Cancellation:
		return Outcome{Decision: DecisionFail}
	default: // Transient, and unknown kinds default to Transient once.
		if attempt < policy.MaxAttempts {
			return Outcome{Decision: DecisionRetry, Delay: Delay(policy, attempt)}
		}
		return Outcome{Decision: DecisionFail}
	}
}

// Delay computes the backoff formula:
//
//	delay = min(max_delay, base_delay * 2^(attempt-1)) * (1 + uniform(-jitter, +jitter))
//
// by driving a backoff.ExponentialBackOff through attempt calls to
// NextBackOff, discarding every result but the last. The curve's Multiplier
// is pinned to 2 so its own doubling matches the formula's 2^(attempt-1),
// and its RandomizationFactor is the policy's jitter, so at
// jitter_fraction=0 NextBackOff returns the un-jittered interval exactly.
func Delay(policy phase.RetryPolicy, attempt int) time.Duration {
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxInterval := policy.MaxDelay
	if maxInterval <= 0 {
		maxInterval = noCapInterval
	}

	curve := backoff.NewExponentialBackOff()
	curve.InitialInterval = base
	curve.MaxInterval = maxInterval
	curve.Multiplier = 2
	curve.RandomizationFactor = policy.JitterFraction
	curve.MaxElapsedTime = 0
	curve.Reset()

	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = curve.NextBackOff()
	}
	return d
}

// ClassifyUnknown applies the rule for errors an adapter didn't
// classify: Transient once, then Permanent. seenBefore should be true if
// this phase has already had an unknown-kind failure classified as
// Transient in a prior attempt.
func ClassifyUnknown(seenBefore bool) phase.ErrorKind {
	if seenBefore {
		return phase.Permanent
	}
	return phase.Transient
}
