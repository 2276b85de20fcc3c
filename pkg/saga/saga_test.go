package saga

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaga_Execute_Success(t *testing.T) {
	executed := make([]string, 0)

	s := NewSaga(5 * time.Second)
	s.AddStep("reserve",
		func(ctx context.Context) error {
			executed = append(executed, "reserve")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "release")
			return nil
		},
	)
	s.AddStep("persist",
		func(ctx context.Context) error {
			executed = append(executed, "persist")
			return nil
		},
		nil,
	)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"reserve", "persist"}, executed)
	assert.Equal(t, []string{"reserve", "persist"}, s.Executed())
}

func TestSaga_Execute_FailureCompensatesInReverse(t *testing.T) {
	executed := make([]string, 0)
	limitErr := errors.New("over limit")

	s := NewSaga(5 * time.Second)
	s.AddStep("reserve",
		func(ctx context.Context) error {
			executed = append(executed, "reserve")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "release")
			return nil
		},
	)
	s.AddStep("hold",
		func(ctx context.Context) error {
			executed = append(executed, "hold")
			return nil
		},
		func(ctx context.Context) error {
			executed = append(executed, "unhold")
			return nil
		},
	)
	s.AddStep("check limit",
		func(ctx context.Context) error {
			return limitErr
		},
		func(ctx context.Context) error {
			executed = append(executed, "should not run")
			return nil
		},
	)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, limitErr)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "check limit", stepErr.Name)
	assert.Equal(t, 2, stepErr.Index)

	assert.Equal(t, []string{"reserve", "hold", "unhold", "release"}, executed)
	assert.Empty(t, s.Executed())
}

func TestSaga_Execute_CompensationFailureDoesNotMaskCause(t *testing.T) {
	cause := errors.New("persist failed")

	s := NewSaga(0)
	s.AddStep("reserve",
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errors.New("release failed") },
	)
	s.AddStep("persist", func(ctx context.Context) error { return cause }, nil)

	err := s.Execute(context.Background())
	assert.ErrorIs(t, err, cause)
}

func TestSaga_Execute_Timeout(t *testing.T) {
	compensated := false

	s := NewSaga(10 * time.Millisecond)
	s.AddStep("slow",
		func(ctx context.Context) error {
			time.Sleep(30 * time.Millisecond)
			return nil
		},
		func(ctx context.Context) error {
			compensated = true
			assert.NoError(t, ctx.Err())
			return nil
		},
	)
	s.AddStep("never", func(ctx context.Context) error { return nil }, nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, compensated)
}
