package switching

import (
	"sync"
	"time"
)

// Kind distinguishes the audio and video skew-compensation profiles.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

// Default tunables, exposed as overridable knobs since the thresholds
// below are heuristics rather than protocol constants.
const (
	DefaultThreshold = 40 * time.Millisecond
	DefaultWarmup    = 15 * time.Second
)

// Compensator tracks the relationship between RTP-timestamp advance and
// wallclock advance for one (stream, kind) pair and decides when a
// sequence jump or packet drop is needed to realign them.
type Compensator struct {
	mu sync.Mutex

	kind      Kind
	clockRate uint32
	threshold time.Duration
	warmup    time.Duration

	referenceTime time.Time
	referenceTS   uint32
	started       bool
}

// NewCompensator builds a compensator for clockRate (e.g. 48000 for
// Opus, 90000 for video) using the default threshold/warmup, which
// callers may override via SetTunables.
func NewCompensator(kind Kind, clockRate uint32) *Compensator {
	return &Compensator{
		kind:      kind,
		clockRate: clockRate,
		threshold: DefaultThreshold,
		warmup:    DefaultWarmup,
	}
}

// SetTunables overrides the default threshold/warmup.
func (c *Compensator) SetTunables(threshold, warmup time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = threshold
	c.warmup = warmup
}

// Observe feeds one inbound packet's RTP timestamp and arrival
// wallclock time into the compensator. Once past warm-up, if the
// RTP-timestamp advance per wallclock second has drifted past the
// threshold, it returns a non-zero signed count: positive means the
// caller should synthesize a sequence jump (the far side is running
// fast and packets will appear to arrive early), negative means the
// caller should drop that many packets to re-align (the far side is
// running slow). The caller consumes the count to log or adjust
// jitter buffers; Observe itself only detects, it does not mutate
// packets.
func (c *Compensator) Observe(ts uint32, arrival time.Time) (adjust int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.started = true
		c.referenceTime = arrival
		c.referenceTS = ts
		return 0
	}

	elapsed := arrival.Sub(c.referenceTime)
	if elapsed < c.warmup {
		return 0
	}

	tsAdvance := ts - c.referenceTS // wraps correctly for uint32 deltas within range

	// Compare in the timestamp domain: how many RTP ticks would we
	// expect for elapsed wallclock time, versus how many we actually saw.
	expectedTicks := uint32(elapsed.Seconds() * float64(c.clockRate))
	driftTicks := int64(tsAdvance) - int64(expectedTicks)
	driftDuration := time.Duration(float64(driftTicks) / float64(c.clockRate) * float64(time.Second))

	if driftDuration > -c.threshold && driftDuration < c.threshold {
		return 0
	}

	// Resynchronize the baseline so we don't keep reporting the same
	// drift every packet, then report how many packet-equivalents need
	// dropping (negative) or skipping (positive) to realign.
	packetDuration := 20 * time.Millisecond // typical ptime; caller may rescale
	adjust = int(driftDuration / packetDuration)
	c.referenceTime = arrival
	c.referenceTS = ts

	return adjust
}
