package agent

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// stubClock lets tests move an open breaker through its cooldown
// without sleeping.
type stubClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stubClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stubClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func openBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *stubClock) {
	clock := &stubClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	if cb.State() != CircuitClosed {
		t.Fatalf("new breaker state = %v, want closed", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("Allow() on closed breaker = %v", err)
	}
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()

	cb, _ := openBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	for range 2 {
		cb.Failure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state after 2 failures = %v, want closed", cb.State())
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state after 3 failures = %v, want open", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() on open breaker = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerSuccessResetsFailureRun(t *testing.T) {
	t.Parallel()

	// Only a consecutive run of failures may open the breaker.
	cb, _ := openBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	cb.Failure()
	cb.Failure()
	cb.Success()
	cb.Failure()
	cb.Failure()
	if cb.State() != CircuitClosed {
		t.Errorf("state = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerProbesAfterCooldown(t *testing.T) {
	t.Parallel()

	cb, clock := openBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
	})
	cb.Failure()

	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() inside cooldown = %v, want ErrCircuitOpen", err)
	}

	clock.advance(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after cooldown = %v, want nil", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %v, want half-open", cb.State())
	}
}

func TestCircuitBreakerClosesAfterProbeSuccesses(t *testing.T) {
	t.Parallel()

	cb, clock := openBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Cooldown:         time.Minute,
	})
	cb.Failure()
	clock.advance(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	cb.Success()
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state after 1 probe success = %v, want half-open", cb.State())
	}
	cb.Success()
	if cb.State() != CircuitClosed {
		t.Errorf("state after 2 probe successes = %v, want closed", cb.State())
	}
}

func TestCircuitBreakerReopensOnProbeFailure(t *testing.T) {
	t.Parallel()

	cb, clock := openBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		Cooldown:         time.Minute,
	})
	cb.Failure()
	clock.advance(2 * time.Minute)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	cb.Failure()
	if cb.State() != CircuitOpen {
		t.Fatalf("state after probe failure = %v, want open", cb.State())
	}
	// The failed probe restarts the cooldown.
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() after reopen = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreakerConcurrentAccess(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(3)
		go func() { defer wg.Done(); _ = cb.Allow() }()
		go func() { defer wg.Done(); cb.Success() }()
		go func() { defer wg.Done(); cb.Failure() }()
	}
	wg.Wait()
	_ = cb.State()
}
