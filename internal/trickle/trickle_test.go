package trickle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBufferDrainOnce(t *testing.T) {
	b := New()
	b.Add(Candidate{Mid: "0", Candidate: "candidate:1 1 udp 1 1.1.1.1 1 typ host", ReceivedAt: time.Now()})
	b.Add(Candidate{Mid: "0", Candidate: "candidate:2 1 udp 1 2.2.2.2 2 typ host", ReceivedAt: time.Now()})

	require.Equal(t, 2, b.Len())

	drained := b.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, 0, b.Len())
	require.Empty(t, b.Drain())
}
