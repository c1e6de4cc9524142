package taker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPositionForHop(t *testing.T) {
	require.Equal(t, FirstPeer, PositionForHop(0, 3))
	require.Equal(t, WatchOnly, PositionForHop(1, 3))
	require.Equal(t, WatchOnly, PositionForHop(2, 3))
	require.Equal(t, LastPeer, PositionForHop(3, 3))

	// maker_count=2: hop 0 is first (Taker funds M0), hop 1 is the
	// only intermediate step (M0 funds M1), hop 2 is last (M1 funds
	// the Taker).
	require.Equal(t, FirstPeer, PositionForHop(0, 2))
	require.Equal(t, WatchOnly, PositionForHop(1, 2))
	require.Equal(t, LastPeer, PositionForHop(2, 2))
}

func TestLocktimeForHopDecreasesTowardLastHop(t *testing.T) {
	makerCount := 3
	l1 := LocktimeForHop(1, makerCount)
	l2 := LocktimeForHop(2, makerCount)
	l3 := LocktimeForHop(3, makerCount)

	require.Greater(t, l1, l2)
	require.Greater(t, l2, l3)
	require.Equal(t, uint32(RefundLocktime), l3)
}

func TestSwapLocktimeHopZeroExceedsEveryHop(t *testing.T) {
	makerCount := 4
	zero := SwapLocktimeHopZero(makerCount)
	for h := 1; h <= makerCount; h++ {
		require.Greater(t, zero, LocktimeForHop(h, makerCount))
	}
}
