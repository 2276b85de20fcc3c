package tent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTeamCount(t *testing.T) {
	assert.Equal(t, 0, ComputeTeamCount(0, 0))
	assert.Equal(t, 3, ComputeTeamCount(2, 1))
	assert.Equal(t, 2, ComputeTeamCount(2, -4))
	assert.Equal(t, 1, ComputeTeamCount(-1, 1))
}

func TestMaxAllowed(t *testing.T) {
	assert.Equal(t, 0, MaxAllowed(0))
	assert.Equal(t, 0, MaxAllowed(-2))
	assert.Equal(t, 2, MaxAllowed(1))
	assert.Equal(t, 8, MaxAllowed(4))
}

func TestRemainingAllowed(t *testing.T) {
	assert.Equal(t, 1, RemainingAllowed(4, 3))
	assert.Equal(t, 0, RemainingAllowed(4, 4))
	assert.Equal(t, 0, RemainingAllowed(2, 5))
}

func TestExceedsQuota(t *testing.T) {
	// teamCount 2 -> 4 tents, 3 already bought
	assert.True(t, ExceedsQuota(3, 2, MaxAllowed(2)))
	assert.False(t, ExceedsQuota(3, 1, MaxAllowed(2)))
}
