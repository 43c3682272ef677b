package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewController(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 64})

	require.NoError(t, c.AcquireMemory(64))
	assert.ErrorIs(t, c.AcquireMemory(1), ErrMemoryLimitExceeded)
	c.ReleaseMemory(64)
	assert.Equal(t, int64(0), c.MemoryUsage())
}
