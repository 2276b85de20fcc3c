package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("service unavailable")

const shortTimeout = 20 * time.Millisecond

func fail(context.Context) error    { return errUnavailable }
func succeed(context.Context) error { return nil }

// waitHalfOpen waits out the open timeout.
func waitHalfOpen(t *testing.T, b *Breaker) {
	t.Helper()
	require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, shortTimeout/4)
}

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	b := New("processor", Settings{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Execute(ctx, succeed))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(10), b.Counts().TotalSuccesses)
}

func TestBreaker_OpensAndFailsFast(t *testing.T) {
	b := New("processor", Settings{})
	ctx := context.Background()

	for i := 0; i < defaultConsecutiveFailures; i++ {
		assert.ErrorIs(t, b.Execute(ctx, fail), errUnavailable)
	}
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []string
	)
	b := New("processor", Settings{
		Timeout:     shortTimeout,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		OnStateChange: func(_ string, from, to State) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	waitHalfOpen(t, b)

	// a failed probe reopens
	_ = b.Execute(ctx, fail)
	assert.Equal(t, StateOpen, b.State())

	waitHalfOpen(t, b)
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"closed->open", "open->half-open", "half-open->open",
		"open->half-open", "half-open->closed",
	}, transitions)
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	b := New("processor", Settings{
		Timeout:     shortTimeout,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	waitHalfOpen(t, b)

	err := b.Execute(ctx, func(ctx context.Context) error {
		// a second caller while the probe is in flight
		assert.ErrorIs(t, b.Execute(ctx, succeed), ErrOpen)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_IgnoresClassifiedErrors(t *testing.T) {
	errNotFound := errors.New("not found")
	b := New("processor", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return !errors.Is(err, errNotFound) },
	})

	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(context.Context) error { return errNotFound })
		assert.ErrorIs(t, err, errNotFound)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Counts().TotalFailures)
}

func TestBreaker_CancelledCallsDoNotCount(t *testing.T) {
	b := New("processor", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Zero(t, b.Counts().TotalFailures)
}
