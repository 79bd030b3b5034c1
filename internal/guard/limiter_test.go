package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptiveLimiter_Bounds(t *testing.T) {
	a := NewAdaptiveLimiter(10, 1)
	assert.InDelta(t, 10, a.Limit(), 0.001)

	for range 20 {
		a.OnSuccess()
	}
	assert.InDelta(t, 20, a.Limit(), 0.001)

	for range 20 {
		a.OnThrottled("test")
	}
	assert.InDelta(t, 2.5, a.Limit(), 0.001)
}

func TestAdaptiveLimiter_Wait(t *testing.T) {
	a := NewAdaptiveLimiter(1000, 0)
	require.NoError(t, a.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, a.Wait(ctx))
}
