package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour, HalfOpenMaxSucc: 1})

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	assert.Equal(t, 2, cb.GetFailureCount())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour, HalfOpenMaxSucc: 1})

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	assert.False(t, cb.IsOpen())
	assert.Equal(t, 1, cb.GetFailureCount())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxSucc: 2})

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMaxSucc: 2})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour, HalfOpenMaxSucc: 1}).
		OnStateChange(func(from, to CircuitBreakerState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		})

	cb.RecordFailure()
	cb.Reset()
	cb.Reset()

	assert.Equal(t, []string{"closed->open", "open->closed"}, transitions)
}
