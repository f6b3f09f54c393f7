package switching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRewriteMonotonicAcrossSSRCChange(t *testing.T) {
	ctx := New()
	now := time.Now()

	seq, ts := ctx.Rewrite(1000, 10, 90000, 3000, now)
	require.Equal(t, uint16(10), seq)
	require.Equal(t, uint32(90000), ts)

	seq, ts = ctx.Rewrite(1000, 11, 93000, 3000, now.Add(33*time.Millisecond))
	require.Equal(t, uint16(11), seq)
	require.Equal(t, uint32(93000), ts)

	// Source swaps to a new SSRC with an unrelated seq/ts base; output
	// must continue past what was already emitted.
	seq, ts = ctx.Rewrite(2000, 500, 1_000_000, 3000, now.Add(66*time.Millisecond))
	require.Equal(t, uint16(12), seq)
	require.GreaterOrEqual(t, ts, uint32(93000))

	seq, ts = ctx.Rewrite(2000, 501, 1_003_000, 3000, now.Add(99*time.Millisecond))
	require.Equal(t, uint16(13), seq)
	require.Greater(t, ts, uint32(93000))
}

func TestSkewCompensatorNoDriftWithinWarmup(t *testing.T) {
	c := NewCompensator(KindAudio, 48000)
	c.SetTunables(DefaultThreshold, 1*time.Second)

	now := time.Now()
	require.Equal(t, 0, c.Observe(0, now))
	// Still inside the 1s warm-up window.
	require.Equal(t, 0, c.Observe(48000/2, now.Add(400*time.Millisecond)))
}

func TestSkewCompensatorDetectsDrift(t *testing.T) {
	// 48kHz timestamps advancing at a 44.1kHz wallclock rate: after
	// warm-up the apparent RTP-tick advance falls behind real time.
	c := NewCompensator(KindAudio, 48000)
	c.SetTunables(20*time.Millisecond, 0)

	now := time.Now()
	c.Observe(0, now)

	// 15s of real time at 44.1kHz would have produced 661500 ticks at
	// the true rate; labeled as 48kHz ticks that's reported as drift.
	adjust := c.Observe(661500, now.Add(15*time.Second))
	require.NotZero(t, adjust)
}
