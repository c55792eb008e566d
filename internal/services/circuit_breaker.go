package services

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// CircuitBreakerState is the breaker's position; the values double as the
// circuit_breaker_state gauge.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type CircuitBreakerConfig struct {
	MaxFailures     int
	ResetTimeout    time.Duration
	HalfOpenMaxSucc int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxSucc: 3,
	}
}

// CircuitBreaker stops calling a failing dependency for ResetTimeout after
// MaxFailures consecutive failures, then lets trial calls through.
type CircuitBreaker struct {
	mu                sync.RWMutex
	config            CircuitBreakerConfig
	state             CircuitBreakerState
	failures          int
	halfOpenSuccesses int
	lastFailureTime   time.Time
	onStateChange     func(from, to CircuitBreakerState)
}

func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// OnStateChange registers a callback run, under the breaker's lock, on every
// transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to CircuitBreakerState)) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
	return cb
}

func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.shouldTransitionToHalfOpen() {
		cb.setState(StateHalfOpen)
		cb.halfOpenSuccesses = 0
		return false
	}

	return cb.state == StateOpen
}

func (cb *CircuitBreaker) shouldTransitionToHalfOpen() bool {
	return time.Since(cb.lastFailureTime) > cb.config.ResetTimeout
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxSucc {
			cb.transitionToClosed()
		}
	} else if cb.state == StateClosed {
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) transitionToClosed() {
	cb.setState(StateClosed)
	cb.failures = 0
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	if cb.state == StateHalfOpen {
		cb.transitionToOpen()
	} else if cb.state == StateClosed {
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.transitionToOpen()
		}
	}
}

func (cb *CircuitBreaker) transitionToOpen() {
	cb.setState(StateOpen)
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) setState(to CircuitBreakerState) {
	from := cb.state
	cb.state = to
	if from != to && cb.onStateChange != nil {
		cb.onStateChange(from, to)
	}
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.halfOpenSuccesses = 0
}

func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures
}
