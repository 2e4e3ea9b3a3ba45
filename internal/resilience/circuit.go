// Package resilience wraps calls to the SnapAPI service with retry and
// circuit breaking.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets every call through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until ResetTimeout has elapsed.
	CircuitOpen
	// CircuitHalfOpen lets trial calls through to test recovery.
	CircuitHalfOpen
)

var stateNames = map[CircuitState]string{
	CircuitClosed:   "closed",
	CircuitOpen:     "open",
	CircuitHalfOpen: "half-open",
}

func (s CircuitState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling through while the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls when a breaker opens and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// ResetTimeout is how long an open circuit waits before letting a trial call through. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMaxTrials caps the calls admitted at once while half-open; that
	// many successful trials close the circuit again. Default: 1.
	HalfOpenMaxTrials int

	// ShouldTrip decides whether an error counts as a failure. If nil every
	// non-nil error counts.
	ShouldTrip func(err error) bool

	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the defaults used by the CLI.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  5,
		ResetTimeout:      30 * time.Second,
		HalfOpenMaxTrials: 1,
	}
}

func (c CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenMaxTrials <= 0 {
		c.HalfOpenMaxTrials = def.HalfOpenMaxTrials
	}
	if c.ShouldTrip == nil {
		c.ShouldTrip = func(err error) bool { return err != nil }
	}
	return c
}

// CircuitBreaker guards one group of endpoints.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int // successful trials since entering half-open
	inFlight  int // trials admitted and not yet finished
	openedAt  time.Time
	nowFunc   func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:    name,
		cfg:     cfg.withDefaults(),
		state:   CircuitClosed,
		nowFunc: time.Now,
	}
}

// ExecuteVal runs fn unless the circuit is open. A call that fails because
// ctx itself ended is neither a success nor a failure for the breaker.
func ExecuteVal[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	trial, err := cb.admit()
	if err != nil {
		var zero T
		return zero, err
	}
	val, err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		cb.release(trial)
		return val, err
	}
	cb.record(trial, err)
	return val, err
}

// State reports the current state. An open circuit whose reset timeout has
// passed reports half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CircuitOpen && cb.cooledDown() {
		return CircuitHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) cooledDown() bool {
	return cb.nowFunc().Sub(cb.openedAt) >= cb.cfg.ResetTimeout
}

// admit reports whether the call may proceed and whether it is a half-open trial.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitClosed:
		return false, nil
	case CircuitOpen:
		if !cb.cooledDown() {
			return false, ErrCircuitOpen
		}
		cb.successes = 0
		cb.setState(CircuitHalfOpen)
	}
	if cb.inFlight >= cb.cfg.HalfOpenMaxTrials {
		return false, ErrCircuitOpen
	}
	cb.inFlight++
	return true, nil
}

func (cb *CircuitBreaker) release(trial bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.endTrial(trial)
}

// endTrial must be called with mu held.
func (cb *CircuitBreaker) endTrial(trial bool) {
	if trial && cb.inFlight > 0 {
		cb.inFlight--
	}
}

func (cb *CircuitBreaker) record(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.endTrial(trial)

	if err == nil || !cb.cfg.ShouldTrip(err) {
		if cb.state == CircuitHalfOpen {
			if !trial {
				return
			}
			cb.successes++
			if cb.successes < cb.cfg.HalfOpenMaxTrials {
				return
			}
			cb.successes = 0
			cb.setState(CircuitClosed)
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.openedAt = cb.nowFunc()
	switch {
	case cb.state == CircuitHalfOpen:
		cb.successes = 0
		cb.setState(CircuitOpen)
	case cb.state == CircuitClosed && cb.failures >= cb.cfg.FailureThreshold:
		cb.setState(CircuitOpen)
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to CircuitState) {
	from := cb.state
	cb.state = to
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

// Breakers hands out one CircuitBreaker per endpoint group so an outage of
// one endpoint family does not block the others.
type Breakers struct {
	cfg CircuitBreakerConfig

	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewBreakers creates an empty registry sharing cfg.
func NewBreakers(cfg CircuitBreakerConfig) *Breakers {
	return &Breakers{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for group, creating it on first use.
func (b *Breakers) Get(group string) *CircuitBreaker {
	b.mu.RLock()
	cb, ok := b.breakers[group]
	b.mu.RUnlock()
	if ok {
		return cb
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok = b.breakers[group]; ok {
		return cb
	}
	cb = NewCircuitBreaker(group, b.cfg)
	b.breakers[group] = cb
	return cb
}

// States returns a snapshot of every breaker's state.
func (b *Breakers) States() map[string]CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]CircuitState, len(b.breakers))
	for name, cb := range b.breakers {
		out[name] = cb.State()
	}
	return out
}
