package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDelayDoublesUpToCap(t *testing.T) {
	g := NewGate(time.Second, 2*time.Second, 30*time.Second, zap.NewNop())

	assert.Equal(t, 2*time.Second, g.Delay(0))
	assert.Equal(t, 4*time.Second, g.Delay(1))
	assert.Equal(t, 8*time.Second, g.Delay(2))
	assert.Equal(t, 16*time.Second, g.Delay(3))
	assert.Equal(t, 30*time.Second, g.Delay(4), "delay is capped at the maximum")
	assert.Equal(t, 30*time.Second, g.Delay(10))
}

func TestDelayClampsNegativeRetry(t *testing.T) {
	g := NewGate(time.Second, 2*time.Second, 30*time.Second, zap.NewNop())

	assert.Equal(t, 2*time.Second, g.Delay(-1))
}

func TestNewGateAppliesDefaults(t *testing.T) {
	g := NewGate(0, 0, 0, zap.NewNop())

	assert.Equal(t, 2*time.Second, g.Delay(0))
	assert.Equal(t, 2*time.Second, g.Delay(5), "max defaults to the base when unset")
}

func TestAcquireFirstCallIsImmediate(t *testing.T) {
	g := NewGate(time.Hour, 2*time.Second, 30*time.Second, zap.NewNop())

	start := time.Now()
	err := g.Acquire(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second, "the first slot must be available immediately")
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	g := NewGate(time.Hour, 2*time.Second, 30*time.Second, zap.NewNop())

	// Burn the immediate slot so the next acquire would block.
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Acquire(ctx)
	assert.Error(t, err)
}

func TestBackoffReturnsEarlyWhenContextCancelled(t *testing.T) {
	g := NewGate(time.Second, time.Hour, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := g.Backoff(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoffSleepsForTheConfiguredDelay(t *testing.T) {
	g := NewGate(time.Second, 10*time.Millisecond, 100*time.Millisecond, zap.NewNop())

	start := time.Now()
	err := g.Backoff(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
