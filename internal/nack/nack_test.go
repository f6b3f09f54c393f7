package nack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindowTracksGapsAndCaps(t *testing.T) {
	w := NewWindow()
	now := time.Now()

	for _, seq := range []uint16{100, 101, 102} {
		w.Add(seq, now)
	}
	// Skip 103..108, then receive 109 and late-arriving 103, 105.
	w.Add(109, now)
	require.True(t, w.Contains(104))
	require.False(t, w.Contains(200))

	missing := w.PendingNACKs(now.Add(100*time.Millisecond), 10*time.Millisecond, time.Hour)
	require.NotEmpty(t, missing)

	w.Add(103, now.Add(150*time.Millisecond))
	w.Add(105, now.Add(150*time.Millisecond))

	require.LessOrEqual(t, w.Len(), WindowSize)
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	w := NewWindow()
	now := time.Now()
	for i := 0; i < 1000; i++ {
		w.Add(uint16(i), now)
	}
	require.LessOrEqual(t, w.Len(), WindowSize)
}

func TestRetransmitBufferFIFOEviction(t *testing.T) {
	buf := NewRetransmitBuffer(4)
	now := time.Now()

	for seq := uint16(0); seq < 4; seq++ {
		buf.Put(seq, []byte{byte(seq)}, now)
	}
	require.Equal(t, 4, buf.Len())

	// Inserting seq 4 evicts the slot originally held by seq 0
	// (4 % 4 == 0 % 4).
	buf.Put(4, []byte{4}, now)
	_, ok := buf.Get(0)
	require.False(t, ok)
	entry, ok := buf.Get(4)
	require.True(t, ok)
	require.Equal(t, []byte{4}, entry.Data)
}

func TestRetransmitBufferDebounce(t *testing.T) {
	buf := NewRetransmitBuffer(16)
	now := time.Now()
	buf.Put(10, []byte{0xAA}, now)

	_, ok := buf.ShouldResend(10, now, 50*time.Millisecond)
	require.True(t, ok)

	// Within the debounce interval, a second NACK for the same seq
	// must not trigger another resend.
	_, ok = buf.ShouldResend(10, now.Add(10*time.Millisecond), 50*time.Millisecond)
	require.False(t, ok)

	_, ok = buf.ShouldResend(10, now.Add(60*time.Millisecond), 50*time.Millisecond)
	require.True(t, ok)
}

func TestEncodeDecodePairsRoundTrip(t *testing.T) {
	missing := []uint16{103, 105, 120}
	pairs := EncodePairs(missing)
	decoded := DecodePairs(pairs)

	for _, seq := range missing {
		require.Contains(t, decoded, seq)
	}
}

func TestBuildNACKEmpty(t *testing.T) {
	require.Nil(t, BuildNACK(1, 2, nil))
}
