package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyRecorderSnapshotEmpty(t *testing.T) {
	r := NewLatencyRecorder()
	snap, err := r.Snapshot()
	require.NoError(t, err)
	require.Zero(t, snap.Count)
}

func TestLatencyRecorderComputesPercentiles(t *testing.T) {
	r := NewLatencyRecorder()
	for i := 1; i <= 100; i++ {
		r.Observe(time.Duration(i) * time.Millisecond)
	}
	snap, err := r.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 100, snap.Count)
	require.InDelta(t, 50, snap.P50, 1.5)
	require.InDelta(t, 95, snap.P95, 1.5)
	require.InDelta(t, 99, snap.P99, 1.5)
}
