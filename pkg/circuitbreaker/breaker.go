// Package circuitbreaker stops calling a failing dependency for a while.
//
// It wraps sony/gobreaker with the service defaults and a context-aware
// Execute. A Breaker starts closed. When Settings.ReadyToTrip accepts the
// failure counts it opens, and every call fails fast with ErrOpen until
// Settings.Timeout has passed. It then lets up to Settings.MaxRequests
// probe calls through (half-open): enough successes close it, one failure
// opens it again.
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State is the breaker position: closed, half-open or open.
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Counts are the request tallies for the current generation.
type Counts = gobreaker.Counts

// ErrOpen is returned without calling the dependency.
var ErrOpen = gobreaker.ErrOpenState

// Settings configure a Breaker. Zero values fall back to the defaults below.
type Settings struct {
	// MaxRequests is the number of probe calls allowed while half-open.
	MaxRequests uint32
	// Interval is the window after which closed-state counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// ReadyToTrip decides from the counts whether to open.
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies a call error. Errors it rejects, such as a
	// not-found answer, count as successes.
	IsFailure func(err error) bool
	// OnStateChange runs under the breaker lock; keep it short.
	OnStateChange func(name string, from, to State)
}

const (
	defaultMaxRequests         = 1
	defaultInterval            = time.Minute
	defaultTimeout             = 30 * time.Second
	defaultConsecutiveFailures = 5
)

// callerGone marks an error returned after the caller's ctx ended.
type callerGone struct{ err error }

func (e callerGone) Error() string { return e.err.Error() }

// Breaker guards calls to one dependency.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[struct{}]
}

// New creates a closed Breaker named name.
func New(name string, s Settings) *Breaker {
	if s.MaxRequests == 0 {
		s.MaxRequests = defaultMaxRequests
	}
	if s.Interval <= 0 {
		s.Interval = defaultInterval
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.ReadyToTrip == nil {
		s.ReadyToTrip = func(c Counts) bool { return c.ConsecutiveFailures >= defaultConsecutiveFailures }
	}
	isFailure := s.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:          name,
		MaxRequests:   s.MaxRequests,
		Interval:      s.Interval,
		Timeout:       s.Timeout,
		ReadyToTrip:   s.ReadyToTrip,
		OnStateChange: s.OnStateChange,
		IsSuccessful: func(err error) bool {
			var gone callerGone
			if err == nil || errors.As(err, &gone) {
				return true
			}
			return !isFailure(err)
		},
	})}
}

// Execute runs fn unless the breaker is open. A cancelled ctx is not
// counted against the dependency.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, callerGone{err: err}
		}
		return struct{}{}, err
	})

	var gone callerGone
	switch {
	case errors.As(err, &gone):
		return gone.err
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrOpen
	}
	return err
}

// State returns the current position, moving open to half-open once the timeout passed.
func (b *Breaker) State() State {
	return b.cb.State()
}

// Counts returns the tallies of the current generation.
func (b *Breaker) Counts() Counts {
	return b.cb.Counts()
}
