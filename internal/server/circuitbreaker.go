// circuitbreaker.go - Circuit breaker guarding the artifact mirror.
//
// While object storage is unreachable every upload would otherwise wait out
// the mirror timeout. Once the breaker opens, mirror calls fail fast until
// the cool-down elapses and a single probe succeeds.
package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"xrpals-lps/internal/timeutil"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed: calls flow normally
	StateClosed CircuitState = iota
	// StateOpen: calls fail fast
	StateOpen
	// StateHalfOpen: one probe call is allowed through
	StateHalfOpen
)

func (s CircuitState) String() string {
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

var (
	// ErrCircuitOpen is returned when circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when a half-open circuit already has a probe in flight.
	ErrTooManyRequests = errors.New("too many requests while circuit is half-open")
)

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	mu    sync.Mutex
	log   *Logger
	clock timeutil.Clock

	maxFailures uint32
	timeout     time.Duration

	state           CircuitState
	failures        uint32
	lastFailureTime time.Time
	probing         bool
}

// NewCircuitBreaker opens after maxFailures consecutive failures and probes
// again once timeout has elapsed.
func NewCircuitBreaker(maxFailures uint32, timeout time.Duration, clock timeutil.Clock, log *Logger) *CircuitBreaker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &CircuitBreaker{
		log:         log,
		clock:       clock,
		maxFailures: maxFailures,
		timeout:     timeout,
		state:       StateClosed,
	}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.clock.Now().Sub(cb.lastFailureTime) <= cb.timeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.log.Info("circuit_breaker_half_open", map[string]interface{}{
			"timeout_elapsed": cb.timeout.String(),
		})
		fallthrough
	case StateHalfOpen:
		if cb.probing {
			return ErrTooManyRequests
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	wasProbe := cb.state == StateHalfOpen
	cb.probing = false

	if err == nil {
		cb.failures = 0
		if wasProbe {
			cb.state = StateClosed
			cb.log.Info("circuit_breaker_closed", map[string]interface{}{
				"reason": "recovery_successful",
			})
		}
		return
	}

	cb.failures++
	cb.lastFailureTime = cb.clock.Now()
	if wasProbe || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			cb.log.Warn("circuit_breaker_opened", map[string]interface{}{
				"failures":     cb.failures,
				"max_failures": cb.maxFailures,
				"timeout":      cb.timeout.String(),
			}, err)
		}
		cb.state = StateOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// guardedMirror routes writes and removals through a breaker. Check is
// passed straight through so health reporting reflects the live backend.
type guardedMirror struct {
	next    Mirror
	breaker *CircuitBreaker
}

// GuardMirror wraps m with breaker. A nil m stays nil.
func GuardMirror(m Mirror, breaker *CircuitBreaker) Mirror {
	if m == nil {
		return nil
	}
	return &guardedMirror{next: m, breaker: breaker}
}

func (g *guardedMirror) Put(ctx context.Context, name string, data []byte) error {
	return g.breaker.Execute(func() error { return g.next.Put(ctx, name, data) })
}

func (g *guardedMirror) Remove(ctx context.Context, name string) error {
	return g.breaker.Execute(func() error { return g.next.Remove(ctx, name) })
}

func (g *guardedMirror) Check(ctx context.Context) error {
	return g.next.Check(ctx)
}
