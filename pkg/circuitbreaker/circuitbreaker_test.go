package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", ConsecutiveFailures: 2, Timeout: time.Minute})
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	assert.Equal(t, "open", cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerIgnoresSuccessfulErrors(t *testing.T) {
	clientErr := errors.New("bad request")
	cb := NewCircuitBreaker(Settings{
		Name:                "test",
		ConsecutiveFailures: 1,
		IsSuccessful:        func(err error) bool { return err == nil || errors.Is(err, clientErr) },
	})

	assert.ErrorIs(t, cb.Execute(func() error { return clientErr }), clientErr)
	assert.Equal(t, "closed", cb.State())
}
