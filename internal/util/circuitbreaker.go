package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of the circuit breaker
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"
	CircuitStateOpen     CircuitState = "OPEN"
	CircuitStateHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) String() string {
	return string(s)
}

// HealthCheckFunction probes a dependency while the circuit is open.
type HealthCheckFunction func() bool

// StateChangeFunc is notified on every transition, outside the breaker lock.
type StateChangeFunc func(name string, from, to CircuitState)

// CircuitBreaker guards one outbound dependency (a scraper host or an LLM provider).
type CircuitBreaker struct {
	name                string
	state               CircuitState
	failureCount        int
	failureThreshold    int
	resetTimeout        time.Duration
	nextRetryTime       time.Time
	nextHealthCheckTime time.Time
	healthCheckInterval time.Duration
	isHealthChecking    bool
	healthCheckFn       HealthCheckFunction
	onStateChange       StateChangeFunc
	clock               Clock
	logger              *zap.Logger
	mu                  sync.Mutex
}

// BreakerOption customises a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithHealthCheck enables async probing while open instead of time based recovery.
func WithHealthCheck(fn HealthCheckFunction, interval time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) {
		cb.healthCheckFn = fn
		cb.healthCheckInterval = interval
	}
}

func WithStateChange(fn StateChangeFunc) BreakerOption {
	return func(cb *CircuitBreaker) { cb.onStateChange = fn }
}

func WithBreakerClock(c Clock) BreakerOption {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

func NewCircuitBreaker(name string, failureThreshold int, resetTimeout time.Duration, logger *zap.Logger, opts ...BreakerOption) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := &CircuitBreaker{
		name:             name,
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		clock:            SystemClock(),
		logger:           logger.With(zap.String("breaker", name)),
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// GetState returns the current state, moving OPEN to HALF_OPEN once the
// retry time has passed (or kicking off a health check when one is set).
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	var transition func()
	if cb.state == CircuitStateOpen {
		now := cb.clock.Now()
		if cb.healthCheckFn != nil {
			if now.After(cb.nextHealthCheckTime) && !cb.isHealthChecking {
				cb.isHealthChecking = true
				go cb.runHealthCheck()
			}
		} else if !now.Before(cb.nextRetryTime) {
			transition = cb.transitionTo(CircuitStateHalfOpen)
		}
	}
	state := cb.state
	cb.mu.Unlock()

	if transition != nil {
		transition()
	}
	return state
}

func (cb *CircuitBreaker) CanExecute() bool {
	return cb.GetState() != CircuitStateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var transition func()
	switch {
	case cb.state == CircuitStateHalfOpen:
		cb.logger.Info("Circuit breaker recovered")
		cb.failureCount = 0
		transition = cb.transitionTo(CircuitStateClosed)
	case cb.failureCount > 0:
		cb.failureCount = 0
	}
	cb.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// RecordFailure counts a failure. customTimeout overrides the reset timeout
// when positive (rate limits use a longer window).
func (cb *CircuitBreaker) RecordFailure(customTimeout time.Duration) {
	cb.mu.Lock()
	cb.failureCount++

	timeout := cb.resetTimeout
	if customTimeout > 0 {
		timeout = customTimeout
	}

	cb.logger.Warn("Circuit breaker failure recorded",
		zap.Int("count", cb.failureCount),
		zap.Int("threshold", cb.failureThreshold),
	)

	var transition func()
	if cb.state == CircuitStateHalfOpen || cb.failureCount >= cb.failureThreshold {
		now := cb.clock.Now()
		cb.nextRetryTime = now.Add(timeout)
		if cb.healthCheckFn != nil {
			cb.nextHealthCheckTime = now.Add(cb.healthCheckInterval)
		}
		if cb.state != CircuitStateOpen {
			transition = cb.transitionTo(CircuitStateOpen)
		}
	}
	cb.mu.Unlock()

	if transition != nil {
		transition()
	}
}

func (cb *CircuitBreaker) runHealthCheck() {
	healthy := cb.healthCheckFn()

	cb.mu.Lock()
	cb.isHealthChecking = false
	var transition func()
	if healthy {
		transition = cb.transitionTo(CircuitStateHalfOpen)
	} else {
		cb.nextHealthCheckTime = cb.clock.Now().Add(cb.healthCheckInterval)
	}
	cb.mu.Unlock()

	if transition != nil {
		transition()
	}
}

// transitionTo must be called with the lock held. It returns the callback
// notification so the caller can fire it after unlocking.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) func() {
	oldState := cb.state
	cb.state = newState

	cb.logger.Info("Circuit breaker state transition",
		zap.String("from", oldState.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
	)

	fn := cb.onStateChange
	name := cb.name
	if fn == nil {
		return nil
	}
	return func() { fn(name, oldState, newState) }
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.nextRetryTime = time.Time{}
}

func (cb *CircuitBreaker) GetStatus() CircuitBreakerStatus {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	status := CircuitBreakerStatus{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
	}
	if cb.state == CircuitStateOpen {
		next := cb.nextRetryTime
		status.NextRetryTime = &next
	}
	return status
}

type CircuitBreakerStatus struct {
	Name          string       `json:"name"`
	State         CircuitState `json:"state"`
	FailureCount  int          `json:"failureCount"`
	NextRetryTime *time.Time   `json:"nextRetryTime,omitempty"`
}
