// Package session implements the per-peer handle that ties a
// signaling exchange to its ICE agent, DTLS-SRTP transport, media
// streams, and attached application module, grounded on the original
// Janus janus_ice_handle/janus_ice_stream/janus_ice_component model
// (original_source/ice.h).
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/webrtcgw/gwcore/internal/gatewayerr"
	"github.com/webrtcgw/gwcore/internal/trickle"
)

// Flag is a bit in a Handle's WebRTC state bitmap, mirroring the
// JANUS_ICE_HANDLE_WEBRTC_* flag set.
type Flag uint32

const (
	FlagProcessingOffer Flag = 1 << iota
	FlagStarted
	FlagReady
	FlagStop
	FlagAlert
	_ // reserved, unused in the original bitmap between ALERT and TRICKLE
	_
	FlagTrickle
	FlagAllTrickles
	FlagTrickleSynced
	FlagDataChannels
	FlagCleaning
	FlagHasAudio
	FlagHasVideo
	FlagGotOffer
	FlagGotAnswer
	FlagHasAgent
	FlagICERestart
	FlagResendTrickles
	FlagRFC4588RTX
)

var (
	// ErrClosed is returned by operations attempted on a freed Handle.
	ErrClosed = errors.New("session: handle is closed")
	// ErrAlreadyAttached is returned by Attach when a module is already bound.
	ErrAlreadyAttached = errors.New("session: module already attached")
)

// flags is an atomic bitmap of Flag values.
type flags struct {
	bits atomic.Uint32
}

func (f *flags) set(fl Flag)           { f.bits.Or(uint32(fl)) }
func (f *flags) clear(fl Flag)         { f.bits.And(^uint32(fl)) }
func (f *flags) has(fl Flag) bool      { return f.bits.Load()&uint32(fl) != 0 }

// TrickleCandidate is a remote candidate received before the local
// description was ready to accept it, held until ApplyRemoteSDP runs.
type TrickleCandidate struct {
	Mid        string
	MLineIndex int
	Candidate  string
	ReceivedAt time.Time
}

// OutboundPacket is a unit of media queued for a Handle's send worker.
type OutboundPacket struct {
	ComponentID int
	Data        []byte
	IsRTCP      bool
}

// ModuleSink is the subset of an attached application module's
// callback surface a Handle drives directly, implemented by
// internal/appmodule's adapter over a Module/SessionHandle pair. A
// separate interface (rather than importing internal/appmodule here)
// avoids a session<->appmodule import cycle, since appmodule already
// imports session for Gateway.
type ModuleSink interface {
	CreateSession() error
	DestroySession() error
	SetupMedia()
	HangupMedia()
	IncomingRTP(mid string, video bool, buf []byte)
	IncomingRTCP(mid string, video bool, buf []byte)
	SlowLink(uplink, video bool)
}

// ModuleBinding is the attached application module's identity and its
// callback sink, matching the original app/app_handle pair.
type ModuleBinding struct {
	Name string
	Sink ModuleSink
}

// Handle is a single peer's session: one signaling conversation, one
// ICE agent, one or more media Streams, and (once negotiation
// completes) one attached module.
type Handle struct {
	mu sync.RWMutex

	id        uint64
	opaqueID  string
	created   time.Time
	flags     flags

	module *ModuleBinding

	localSDP  string
	remoteSDP string

	hangupReason string

	trickles *trickle.Buffer

	outbound chan OutboundPacket

	streams map[string]*Stream

	cname string

	closed bool
}

// NewHandle allocates a Handle with the given numeric id. opaqueID, if
// non-empty, is carried through for external correlation; otherwise a
// fresh UUID is generated.
func NewHandle(id uint64, opaqueID string) *Handle {
	if opaqueID == "" {
		opaqueID = uuid.NewString()
	}
	cname, err := generateCNAME()
	if err != nil {
		cname = opaqueID
	}
	return &Handle{
		id:       id,
		opaqueID: opaqueID,
		created:  time.Now(),
		trickles: trickle.New(),
		outbound: make(chan OutboundPacket, 256),
		streams:  make(map[string]*Stream),
		cname:    cname,
	}
}

// CNAME returns the RTCP SDES CNAME this handle's outbound streams
// share.
func (h *Handle) CNAME() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cname
}

// ID returns the handle's numeric identifier.
func (h *Handle) ID() uint64 { return h.id }

// OpaqueID returns the external correlation identifier.
func (h *Handle) OpaqueID() string { return h.opaqueID }

// Created returns when the handle was allocated.
func (h *Handle) Created() time.Time { return h.created }

// SetFlag and HasFlag manipulate the WebRTC state bitmap without
// holding the handle's mutex, since they're read from multiple
// goroutines (the send worker, the ICE callbacks, the signaling
// transport) independently of the larger handle state.
func (h *Handle) SetFlag(f Flag)   { h.flags.set(f) }
func (h *Handle) ClearFlag(f Flag) { h.flags.clear(f) }
func (h *Handle) HasFlag(f Flag) bool { return h.flags.has(f) }

// Attach binds an application module to the handle, invoking the
// sink's CreateSession hook before the binding becomes visible so a
// module that rejects the session (invalid room, full plugin, etc.)
// never gets wired into IncomingRTP/IncomingRTCP/SlowLink delivery. It
// fails if a module is already attached, the handle has been freed, or
// CreateSession itself errors.
func (h *Handle) Attach(name string, sink ModuleSink) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrClosed
	}
	if h.module != nil {
		h.mu.Unlock()
		return ErrAlreadyAttached
	}
	h.mu.Unlock()

	if err := sink.CreateSession(); err != nil {
		return &gatewayerr.ModuleError{Err: err}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.module != nil {
		return ErrAlreadyAttached
	}
	h.module = &ModuleBinding{Name: name, Sink: sink}
	return nil
}

// Module returns the attached module binding, or nil if none.
func (h *Handle) Module() *ModuleBinding {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.module
}

// SetupMedia notifies the attached module, if any, that at least one
// of the handle's streams has finished its DTLS handshake and is
// ready to relay media, matching janus_plugin's setup_media hook.
// A no-op when no module is attached.
func (h *Handle) SetupMedia() {
	h.mu.RLock()
	binding := h.module
	h.mu.RUnlock()
	if binding != nil && binding.Sink != nil {
		binding.Sink.SetupMedia()
	}
}

// SetLocalSDP records the locally generated description, kept for
// diagnostics and renegotiation.
func (h *Handle) SetLocalSDP(sdp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localSDP = sdp
}

// SetRemoteSDP records the most recently applied remote description.
func (h *Handle) SetRemoteSDP(sdp string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remoteSDP = sdp
}

// LocalSDP and RemoteSDP return the last recorded descriptions.
func (h *Handle) LocalSDP() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.localSDP
}

func (h *Handle) RemoteSDP() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.remoteSDP
}

// AddTrickle queues a remote candidate received before the handle was
// ready to process it (no offer/answer exchanged yet).
func (h *Handle) AddTrickle(c TrickleCandidate) {
	h.trickles.Add(trickle.Candidate{
		Mid:        c.Mid,
		MLineIndex: c.MLineIndex,
		Candidate:  c.Candidate,
		ReceivedAt: c.ReceivedAt,
	})
}

// DrainTrickles returns and clears every pending candidate, called
// once the remote description has been applied and ICE credentials
// are known.
func (h *Handle) DrainTrickles() []TrickleCandidate {
	drained := h.trickles.Drain()
	out := make([]TrickleCandidate, len(drained))
	for i, c := range drained {
		out[i] = TrickleCandidate{
			Mid:        c.Mid,
			MLineIndex: c.MLineIndex,
			Candidate:  c.Candidate,
			ReceivedAt: c.ReceivedAt,
		}
	}
	return out
}

// Stream returns the named media stream (by mid), creating it if
// this is the first reference.
func (h *Handle) Stream(mid string) *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streams[mid]; ok {
		return s
	}
	s := newStream(mid)
	h.streams[mid] = s
	return s
}

// Streams returns every media stream currently known to the handle.
func (h *Handle) Streams() []*Stream {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Stream, 0, len(h.streams))
	for _, s := range h.streams {
		out = append(out, s)
	}
	return out
}

// Enqueue queues an outbound packet for the send worker. It drops the
// packet rather than blocking if the queue is full, matching the
// original bounded GAsyncQueue's producer never blocking on a full
// send queue — an overloaded send path should shed load, not stall
// the RTCP/ICE callback goroutines feeding it.
func (h *Handle) Enqueue(p OutboundPacket) bool {
	select {
	case h.outbound <- p:
		return true
	default:
		return false
	}
}

// Outbound returns the channel a send worker should drain.
func (h *Handle) Outbound() <-chan OutboundPacket { return h.outbound }

// Restart sets FlagICERestart and FlagResendTrickles. It does not
// itself restart any stream's ICE agent, generate new credentials,
// re-gather, or resend candidates, and nothing in this package acts on
// the two flags.
func (h *Handle) Restart() {
	h.SetFlag(FlagICERestart)
	h.SetFlag(FlagResendTrickles)
}

// Hangup marks the handle as stopped and alerted and records why,
// matching janus_ice_webrtc_hangup's role of setting hangup_reason
// before tearing the PeerConnection down. Idempotent: once the handle
// has already been marked stopped, a second call (e.g. a racing
// module-initiated and peer-initiated hangup) neither overwrites the
// original reason nor re-raises the alert.
func (h *Handle) Hangup(reason string) {
	h.mu.Lock()
	if h.HasFlag(FlagStop) {
		h.mu.Unlock()
		return
	}
	h.hangupReason = reason
	h.SetFlag(FlagStop)
	h.SetFlag(FlagAlert)
	binding := h.module
	h.mu.Unlock()

	if binding != nil && binding.Sink != nil {
		binding.Sink.HangupMedia()
	}
}

// HangupReason returns the reason passed to the most recent Hangup.
func (h *Handle) HangupReason() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hangupReason
}

// Free releases the handle's resources: every stream's DTLS transport
// and ICE agent are closed, the attached module (if any) is notified
// via DestroySession, and the outbound queue is closed so the send
// worker exits. Idempotent.
func (h *Handle) Free() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	binding := h.module
	h.module = nil
	streams := make([]*Stream, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	close(h.outbound)
	h.mu.Unlock()

	for _, s := range streams {
		s.close()
	}
	if binding != nil && binding.Sink != nil {
		_ = binding.Sink.DestroySession()
	}
}

// Closed reports whether Free has been called.
func (h *Handle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}
