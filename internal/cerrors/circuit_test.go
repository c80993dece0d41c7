package cerrors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("vector-store", WithMaxFailures(2), WithResetTimeout(time.Minute))

	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(func() error {
		t.Fatal("fn must not run while circuit is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("x", WithMaxFailures(1), WithResetTimeout(10*time.Millisecond))

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, CircuitOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteWithFallback_UsesFallbackWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("x", WithMaxFailures(1), WithResetTimeout(time.Minute))
	_ = cb.Execute(func() error { return errors.New("boom") })

	v, err := ExecuteWithFallback(cb, func() (int, error) {
		t.Fatal("fn must not run while circuit is open")
		return 0, nil
	}, func() (int, error) {
		return -1, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, -1, v)
}
