// Package switching implements the per-kind switching context that
// preserves sequence-number and timestamp monotonicity across SSRC
// substitutions (simulcast layer switches, renegotiated sources,
// publisher swaps), and the clock-skew compensator.
package switching

import (
	"sync"
	"time"
)

// Context holds the rewrite state for one kind (audio or video) of one
// stream. Its zero value is ready to use.
type Context struct {
	mu sync.Mutex

	started  bool
	lastSSRC uint32

	baseSeq   uint16
	lastSeq   uint16
	seqOffset uint16

	baseTS   uint32
	lastTS   uint32
	targetTS uint32
	tsOffset uint32

	startTime     time.Time
	referenceTime time.Time

	skewActiveDelay time.Duration
	skewPrevDelay   time.Duration
}

// New returns a ready-to-use switching context.
func New() *Context {
	return &Context{}
}

// Rewrite adjusts seq/ts in place so that, across an SSRC change, the
// emitted sequence stays strictly monotonic (mod 2^16) and the emitted
// timestamp progresses by at least tsStep past the last value emitted.
// Returns the rewritten seq/ts to hand to the RTP marshaller.
func (c *Context) Rewrite(ssrc uint32, seq uint16, ts uint32, tsStep uint32, now time.Time) (outSeq uint16, outTS uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		c.started = true
		c.lastSSRC = ssrc
		c.baseSeq = 0
		c.baseTS = 0
		c.lastSeq = seq
		c.lastTS = ts
		c.startTime = now
		c.referenceTime = now
		return seq, ts
	}

	if ssrc != c.lastSSRC {
		// Source changed: the new stream's seq/ts are unrelated to what
		// we were emitting, so compute fresh offsets that continue
		// where we left off.
		c.lastSSRC = ssrc
		c.baseSeq = seq - c.lastSeq - 1
		c.targetTS = c.lastTS + tsStep
		c.baseTS = ts - c.targetTS
	}

	rewrittenSeq := seq - c.baseSeq
	rewrittenTS := ts - c.baseTS

	// Hold the monotonicity invariant even within one SSRC run: never
	// emit a timestamp that doesn't advance.
	if rewrittenTS < c.lastTS {
		rewrittenTS = c.lastTS + 1
	}

	c.lastSeq = rewrittenSeq
	c.lastTS = rewrittenTS

	return rewrittenSeq, rewrittenTS
}

// Reset clears all rewrite state, used when a handle is torn down or a
// stream is explicitly reset (e.g. ICE restart renegotiating fresh
// SSRCs end to end, so no continuity needs to be preserved).
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c = Context{}
}
