// Package breaker provides a per-AdapterID circuit breaker table on top of
// sony/gobreaker. Each adapter gets its own gobreaker.CircuitBreaker with
// ReadyToTrip keyed on consecutive failures, rather than gobreaker's usual
// failure-ratio default, so the scheduler gets a plain Closed/Open/HalfOpen
// admission contract per adapter.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/castforge/castforge/internal/obslog"
	"github.com/castforge/castforge/internal/phase"
)

// State mirrors gobreaker.State so callers don't need to import gobreaker
// directly.
type State = gobreaker.State

const (
	Closed   = gobreaker.StateClosed
	HalfOpen = gobreaker.StateHalfOpen
	Open     = gobreaker.StateOpen
)

// Config holds the per-adapter defaults (threshold and cooldown). A Table
// may be given per-adapter overrides via WithOverride.
type Config struct {
	Threshold uint32
	Cooldown  time.Duration
}

// DefaultConfig returns the documented defaults: trip after 5 consecutive
// failures, cool down for 30s before allowing a half-open probe.
func DefaultConfig() Config {
	return Config{Threshold: 5, Cooldown: 30 * time.Second}
}

type entry struct {
	cb *gobreaker.CircuitBreaker

	mu            sync.Mutex
	probeInFlight bool
}

// Table is the shared, mutex-guarded set of breakers the scheduler consults
// before launching a phase. It is shared across concurrently running phases.
type Table struct {
	mu        sync.Mutex
	defaults  Config
	overrides map[phase.AdapterID]Config
	entries   map[phase.AdapterID]*entry
	logger    *logrus.Logger
}

// NewTable builds a Table with the given default threshold/cooldown.
func NewTable(defaults Config, logger *logrus.Logger) *Table {
	if logger == nil {
		logger = logrus.New()
	}
	return &Table{
		defaults:  defaults,
		overrides: make(map[phase.AdapterID]Config),
		entries:   make(map[phase.AdapterID]*entry),
		logger:    logger,
	}
}

// WithOverride sets a per-adapter threshold/cooldown, replacing the
// defaults for that adapter. Must be called before the adapter's breaker is
// first used.
func (t *Table) WithOverride(adapter phase.AdapterID, cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides[adapter] = cfg
}

func (t *Table) configFor(adapter phase.AdapterID) Config {
	if cfg, ok := t.overrides[adapter]; ok {
		return cfg
	}
	return t.defaults
}

func (t *Table) getOrCreate(adapter phase.AdapterID) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[adapter]; ok {
		return e
	}

	cfg := t.configFor(adapter)
	logger := t.logger
	settings := gobreaker.Settings{
		Name:        string(adapter),
		MaxRequests: 1, // at most one half-open probe in flight
		Interval:    0, // never reset Closed counts on a timer; only a success resets
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(obslog.NewFields().
				Component("breaker").
				Adapter(name).Logrus()).
				Infof("circuit breaker transitioned from %s to %s", from, to)
		},
	}

	e := &entry{cb: gobreaker.NewCircuitBreaker(settings)}
	t.entries[adapter] = e
	return e
}

// State returns the current state of the breaker bound to adapter.
func (t *Table) State(adapter phase.AdapterID) State {
	return t.getOrCreate(adapter).cb.State()
}

// Admit reports whether a phase bound to adapter may be launched right now.
// Open always defers; HalfOpen with a probe already in flight also defers,
// since only one probe may be outstanding at a time.
func (t *Table) Admit(adapter phase.AdapterID) bool {
	e := t.getOrCreate(adapter)
	switch e.cb.State() {
	case gobreaker.StateOpen:
		return false
	case gobreaker.StateHalfOpen:
		e.mu.Lock()
		defer e.mu.Unlock()
		return !e.probeInFlight
	default:
		return true
	}
}

// ErrDeferred is returned by Call when the breaker did not admit the call;
// the caller should keep the phase Pending and retry later rather than
// treating this as a failed attempt.
var ErrDeferred = errors.New("circuit breaker deferred the call")

// Call invokes fn through the breaker bound to adapter. If the breaker does
// not admit the call, Call returns ErrDeferred without invoking fn and
// without consuming a retry attempt.
func (t *Table) Call(adapter phase.AdapterID, fn func() error) error {
	e := t.getOrCreate(adapter)

	if !t.Admit(adapter) {
		return ErrDeferred
	}

	halfOpen := e.cb.State() == gobreaker.StateHalfOpen
	if halfOpen {
		e.mu.Lock()
		e.probeInFlight = true
		e.mu.Unlock()
		defer func() {
			e.mu.Lock()
			e.probeInFlight = false
			e.mu.Unlock()
		}()
	}

	_, err := e.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrDeferred
	}
	return err
}
