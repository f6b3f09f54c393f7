package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRollingCounter(t *testing.T) {
	c := NewRollingCounter()
	base := time.Unix(1000, 0)

	c.Add(100, base)
	c.Add(50, base.Add(200*time.Millisecond))
	require.Equal(t, uint64(0), c.PerSecond())

	c.Add(10, base.Add(1100*time.Millisecond))
	require.Equal(t, uint64(150), c.PerSecond())
}

func TestSlowLinkTracker(t *testing.T) {
	tr := NewSlowLinkTracker(SlowLinkConfig{NACKThreshold: 3, Interval: time.Second})
	base := time.Unix(2000, 0)

	require.False(t, tr.RecordNACK(Uplink, base))
	require.False(t, tr.RecordNACK(Uplink, base.Add(10*time.Millisecond)))
	require.True(t, tr.RecordNACK(Uplink, base.Add(20*time.Millisecond)))

	require.False(t, tr.RecordNACK(Uplink, base.Add(30*time.Millisecond)))

	require.False(t, tr.RecordNACK(Downlink, base))
}

func TestComponentStats(t *testing.T) {
	cs := NewComponentStats(SlowLinkConfig{NACKThreshold: 1, Interval: time.Second})
	now := time.Unix(3000, 0)

	cs.RecordSent(1200, now)
	cs.RecordReceived(800, now)
	require.Equal(t, uint64(1200), cs.BytesSent.Load())
	require.Equal(t, uint64(800), cs.BytesReceived.Load())

	require.True(t, cs.RecordNACKReceived(now))
	require.Equal(t, uint64(1), cs.NACKsReceived.Load())
}
