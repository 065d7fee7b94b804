package agent

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen rejects model calls while the backend is cooling off.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker defaults, applied for zero config values.
const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
	defaultCooldown         = 30 * time.Second
)

// CircuitState is the breaker position: closed passes calls through,
// open rejects them, half-open lets probe calls test for recovery.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig bounds how hard the agent leans on a failing
// model backend.
type CircuitBreakerConfig struct {
	// FailureThreshold is the run of consecutive failures that opens
	// the breaker.
	FailureThreshold int

	// SuccessThreshold is the run of probe successes that closes it
	// again.
	SuccessThreshold int

	// Cooldown is how long an open breaker rejects calls before
	// letting probes through.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig returns the production thresholds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: defaultFailureThreshold,
		SuccessThreshold: defaultSuccessThreshold,
		Cooldown:         defaultCooldown,
	}
}

// CircuitBreaker keeps a failing model backend from being hammered by
// every retry of every concurrent turn. generateWithRetry asks Allow
// before each call and reports the outcome back.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     CircuitState
	failures  int
	successes int
	openedAt  time.Time
}

// NewCircuitBreaker creates a breaker in the closed position. Zero
// config fields fall back to the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = defaultSuccessThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow gates one model call. The exclusive lock makes the open to
// half-open transition race-free: exactly one caller observes the
// expired cooldown and flips the state.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.openedAt) <= cb.cfg.Cooldown {
			return ErrCircuitOpen
		}
		cb.state = CircuitHalfOpen
		cb.successes = 0
	}
	return nil
}

// Success records a model call that came back healthy.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failures = 0
		}
	}
}

// Failure records a failed model call. One failure during probing
// reopens the breaker; in the closed position it takes a full run of
// them.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = CircuitOpen
			cb.openedAt = cb.now()
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current breaker position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
