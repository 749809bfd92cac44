// Package breaker implements the circuit breaker that guards calls to the
// upstream terminology service. Once the upstream is judged unhealthy the
// breaker fails fast instead of compounding latency with more attempts.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and no call is attempted.
// Callers can distinguish it from a real network failure and report
// "service degraded" instead of "not found".
var ErrOpen = errors.New("circuit breaker is open")

// State represents the breaker state.
type State int

const (
	StateClosed   State = iota // normal operation, calls pass through
	StateOpen                  // failing, calls are rejected immediately
	StateHalfOpen              // probing, limited calls test recovery
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the closed
	// state that trips the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before the next call
	// is let through as a half-open probe.
	ResetTimeout time.Duration
	// HalfOpenRequests is the number of consecutive successful probes
	// required to close the circuit again. A single probe failure reopens
	// it immediately: the breaker fails fast and recovers slowly.
	HalfOpenRequests int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		HalfOpenRequests: 3,
	}
}

// Stats is a snapshot of the breaker for health reporting.
type Stats struct {
	State           string    `json:"state"`
	FailureCount    int       `json:"failureCount"`
	SuccessCount    int       `json:"successCount"`
	LastFailureTime time.Time `json:"lastFailureTime"`
	IsHealthy       bool      `json:"isHealthy"`
}

// Breaker is a three-state circuit breaker. The zero value is not usable;
// create instances with New.
type Breaker struct {
	mu          sync.Mutex
	cfg         Config
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	now func() time.Time // overridable for tests
}

// New creates a closed breaker with the given configuration. Zero or
// negative thresholds fall back to the defaults.
func New(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenRequests <= 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Execute runs fn through the breaker. When the circuit is open and the
// reset timeout has not elapsed, fn is not invoked and ErrOpen is returned.
// Any error from fn counts as a failure; a nil error counts as a success.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// allow decides whether a call may proceed, moving the breaker from open to
// half-open once the reset timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		// Cooldown elapsed: this call becomes the first probe.
		b.state = StateHalfOpen
		b.successes = 0
		return nil
	default:
		return nil
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		// One failed probe reopens the circuit.
		b.state = StateOpen
		b.successes = 0
	case StateOpen:
		// A straggler from before the trip; nothing to transition.
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		// Only consecutive failures count toward the threshold.
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenRequests {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	case StateOpen:
		// Late success from an attempt started before the trip.
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker back to closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.lastFailure = time.Time{}
}

// Stats returns a snapshot for health reporting.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:           b.state.String(),
		FailureCount:    b.failures,
		SuccessCount:    b.successes,
		LastFailureTime: b.lastFailure,
		IsHealthy:       b.state == StateClosed,
	}
}
