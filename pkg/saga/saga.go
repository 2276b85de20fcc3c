// Package saga runs a sequence of dependent steps and undoes the completed
// ones, in reverse order, when a later step fails.
//
// The cart uses it for "reserve stock, then check the organization limit,
// then persist the cart line": the stock claim is the only step with side
// effects in the shared store, so it is the one carrying a compensation.
//
// Steps are not a transaction. Between a failed step and the end of its
// compensation the store is briefly over-reserved; callers accept that window.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one unit of a saga. Either function may be nil.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga holds the steps and the ones that have completed so far.
type Saga struct {
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *zap.Logger
}

// Option configures a Saga.
type Option func(*Saga)

// WithLogger reports compensation failures to l.
func WithLogger(l *zap.Logger) Option {
	return func(s *Saga) {
		s.logger = l
	}
}

// NewSaga creates an empty saga. A zero timeout disables the deadline.
func NewSaga(timeout time.Duration, opts ...Option) *Saga {
	s := &Saga{
		steps:   make([]Step, 0, 4),
		timeout: timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddStep appends a step. Steps run in the order they were added.
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// StepError reports which step failed. Cause is the error returned by the
// step's action, so errors.Is/As see through to domain errors.
type StepError struct {
	Index int
	Name  string
	Cause error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step [%d:%s] failed: %v", e.Index, e.Name, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// Execute runs every step. On the first failure (or deadline) it compensates
// the completed steps in reverse order and returns the failure.
// Compensation runs on a fresh context so it is not cut short by the deadline.
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(context.WithoutCancel(ctx))
			return fmt.Errorf("saga timed out before step %s: %w", step.Name, err)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(context.WithoutCancel(ctx))
				return &StepError{Index: i, Name: step.Name, Cause: err}
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// Executed returns the names of the steps that completed (and were not compensated).
func (s *Saga) Executed() []string {
	names := make([]string, len(s.executed))
	for i, step := range s.executed {
		names[i] = step.Name
	}
	return names
}

func (s *Saga) compensate(ctx context.Context) {
	var errs []error
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("saga compensation failed", zap.Error(err))
	}

	s.executed = nil
}
