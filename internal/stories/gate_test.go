package stories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateCapacity(t *testing.T) {
	require.Equal(t, 1, NewGate(0).Capacity())
	require.Equal(t, 10, NewGate(10).Capacity())
}

func TestGateBlocksWhenFull(t *testing.T) {
	gate := NewGate(2)
	ctx := context.Background()

	require.NoError(t, gate.Acquire(ctx))
	require.NoError(t, gate.Acquire(ctx))
	require.Equal(t, 2, gate.InFlight())

	// Full: a third acquire waits until its context gives up.
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, gate.Acquire(tctx), context.DeadlineExceeded)
	require.Equal(t, 2, gate.InFlight())

	gate.Release()
	require.NoError(t, gate.Acquire(ctx))

	gate.Release()
	gate.Release()
	require.Equal(t, 0, gate.InFlight())
}
