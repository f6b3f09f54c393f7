package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/webrtcgw/gwcore/internal/nack"
	"github.com/webrtcgw/gwcore/internal/stats"
	"github.com/webrtcgw/gwcore/internal/switching"
)

var nextComponentID atomic.Int64

// simulcastLayers is the maximum number of simultaneous encodings a
// single video stream tracks, matching the original video_ssrc_peer[3]
// fixed-size arrays.
const simulcastLayers = 3

// Default clock rates used to seed skew compensators before the
// negotiated codec's actual rate is known; ApplyMediaSection-driven
// callers should override these once rtpmap parsing resolves it.
const (
	audioClockRate = 48000
	videoClockRate = 90000
)

// Component is the ICE component belonging to a Stream: its
// NACK/retransmit state, RTP switching contexts, clock-skew
// compensators, and traffic counters, one set per simulcast layer for
// video and a single set for audio, mirroring janus_ice_component.
type Component struct {
	mu sync.Mutex

	id int64

	stream *Stream

	audioWindow    *nack.Window
	audioRetransmit *nack.RetransmitBuffer
	audioSwitch    *switching.Context
	audioSkew      *switching.Compensator

	videoWindow     [simulcastLayers]*nack.Window
	videoRetransmit [simulcastLayers]*nack.RetransmitBuffer
	videoSwitch     [simulcastLayers]*switching.Context
	videoSkew       [simulcastLayers]*switching.Compensator

	InStats  *stats.ComponentStats
	OutStats *stats.ComponentStats

	rtxSeqNumber uint16

	connectedAt time.Time

	retransmitLogAt  time.Time
	retransmitRecent uint

	nackSentLogAt  time.Time
	nackSentRecent uint
}

func newComponent(s *Stream) *Component {
	slCfg := stats.SlowLinkConfig{NACKThreshold: 3, Interval: time.Second}
	c := &Component{
		id:              nextComponentID.Add(1),
		stream:          s,
		audioWindow:     nack.NewWindow(),
		audioRetransmit: nack.NewRetransmitBuffer(256),
		audioSwitch:     switching.New(),
		audioSkew:       switching.NewCompensator(switching.KindAudio, audioClockRate),
		InStats:         stats.NewComponentStats(slCfg),
		OutStats:        stats.NewComponentStats(slCfg),
	}
	for i := 0; i < simulcastLayers; i++ {
		c.videoWindow[i] = nack.NewWindow()
		c.videoRetransmit[i] = nack.NewRetransmitBuffer(256)
		c.videoSwitch[i] = switching.New()
		c.videoSkew[i] = switching.NewCompensator(switching.KindVideo, videoClockRate)
	}
	return c
}

// ID returns a process-unique identifier for this component, stamped
// onto queued OutboundPackets so the send worker and retransmit path
// can trace a packet back to the component that produced it.
func (c *Component) ID() int64 { return c.id }

// MarkConnected records the time the component's selected pair first
// became usable.
func (c *Component) MarkConnected(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectedAt = now
}

// ConnectedAt returns the time recorded by MarkConnected, or the zero
// time if the component hasn't connected yet.
func (c *Component) ConnectedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedAt
}

// AudioWindow returns the NACK tracking window for the audio stream.
func (c *Component) AudioWindow() *nack.Window { return c.audioWindow }

// AudioRetransmitBuffer returns the recently-sent-packet buffer used
// to answer audio NACKs.
func (c *Component) AudioRetransmitBuffer() *nack.RetransmitBuffer { return c.audioRetransmit }

// AudioSwitchContext returns the RTP continuity context for the audio
// stream, used across renegotiations that change the outbound SSRC.
func (c *Component) AudioSwitchContext() *switching.Context { return c.audioSwitch }

// AudioSkew returns the audio clock-skew compensator.
func (c *Component) AudioSkew() *switching.Compensator { return c.audioSkew }

// VideoWindow returns the NACK tracking window for simulcast layer i.
func (c *Component) VideoWindow(i int) *nack.Window { return c.videoWindow[layerIndex(i)] }

// VideoRetransmitBuffer returns the recently-sent buffer for layer i.
func (c *Component) VideoRetransmitBuffer(i int) *nack.RetransmitBuffer {
	return c.videoRetransmit[layerIndex(i)]
}

// VideoSwitchContext returns the RTP continuity context for layer i.
func (c *Component) VideoSwitchContext(i int) *switching.Context {
	return c.videoSwitch[layerIndex(i)]
}

// VideoSkew returns the clock-skew compensator for layer i.
func (c *Component) VideoSkew(i int) *switching.Compensator {
	return c.videoSkew[layerIndex(i)]
}

func layerIndex(i int) int {
	if i < 0 || i >= simulcastLayers {
		return 0
	}
	return i
}

// NextRTXSeq returns the next sequence number to stamp on an RFC 4588
// retransmission packet, wrapping at 16 bits.
func (c *Component) NextRTXSeq() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.rtxSeqNumber
	c.rtxSeqNumber++
	return seq
}

// RecordRetransmit accounts for a retransmitted packet, coalescing
// repeated log lines the way the original retransmit_log_ts/
// retransmit_recent_cnt pair throttles "sending retransmits" logging.
func (c *Component) RecordRetransmit(now time.Time, logInterval time.Duration) (shouldLog bool, count uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retransmitRecent++
	if now.Sub(c.retransmitLogAt) < logInterval {
		return false, 0
	}
	count = c.retransmitRecent
	c.retransmitRecent = 0
	c.retransmitLogAt = now
	return true, count
}

// RecordNACKSent accounts for a NACK this side sent to the peer,
// throttled the same way as RecordRetransmit.
func (c *Component) RecordNACKSent(now time.Time, logInterval time.Duration) (shouldLog bool, count uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nackSentRecent++
	if now.Sub(c.nackSentLogAt) < logInterval {
		return false, 0
	}
	count = c.nackSentRecent
	c.nackSentRecent = 0
	c.nackSentLogAt = now
	return true, count
}
