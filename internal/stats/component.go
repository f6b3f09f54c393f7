package stats

import (
	"sync/atomic"
	"time"
)

// ComponentStats aggregates the counters one ICE component (audio,
// video, or the data channel) accumulates over its lifetime: total
// bytes/packets in each direction, lost/NACKed packet counts, and the
// per-second rolling rates used for slow-link detection.
type ComponentStats struct {
	BytesSent     atomic.Uint64
	BytesReceived atomic.Uint64
	PacketsSent   atomic.Uint64
	PacketsReceived atomic.Uint64
	NACKsSent     atomic.Uint64
	NACKsReceived atomic.Uint64
	PacketsLost   atomic.Uint64

	sentRate     *RollingCounter
	receivedRate *RollingCounter

	slowLink *SlowLinkTracker
}

// NewComponentStats builds a zeroed stats block with slow-link
// detection configured per cfg.
func NewComponentStats(cfg SlowLinkConfig) *ComponentStats {
	return &ComponentStats{
		sentRate:     NewRollingCounter(),
		receivedRate: NewRollingCounter(),
		slowLink:     NewSlowLinkTracker(cfg),
	}
}

// RecordSent accounts for an outbound packet of n bytes at time now.
func (c *ComponentStats) RecordSent(n int, now time.Time) {
	c.BytesSent.Add(uint64(n))
	c.PacketsSent.Add(1)
	c.sentRate.Add(uint64(n), now)
}

// RecordReceived accounts for an inbound packet of n bytes at time now.
func (c *ComponentStats) RecordReceived(n int, now time.Time) {
	c.BytesReceived.Add(uint64(n))
	c.PacketsReceived.Add(1)
	c.receivedRate.Add(uint64(n), now)
}

// SentBytesPerSec returns the last completed second's outbound byte rate.
func (c *ComponentStats) SentBytesPerSec() uint64 { return c.sentRate.PerSecond() }

// ReceivedBytesPerSec returns the last completed second's inbound byte rate.
func (c *ComponentStats) ReceivedBytesPerSec() uint64 { return c.receivedRate.PerSecond() }

// RecordNACKReceived accounts for a NACK this side received (meaning
// our outbound stream is suffering loss reported by the peer) and
// reports whether a slow-link-uplink event should fire.
func (c *ComponentStats) RecordNACKReceived(now time.Time) bool {
	c.NACKsReceived.Add(1)
	return c.slowLink.RecordNACK(Uplink, now)
}

// RecordNACKSent accounts for a NACK we sent (meaning the inbound
// stream from the peer is suffering loss) and reports whether a
// slow-link-downlink event should fire.
func (c *ComponentStats) RecordNACKSent(now time.Time) bool {
	c.NACKsSent.Add(1)
	return c.slowLink.RecordNACK(Downlink, now)
}
