package appmodule

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/pion/rtp"

	"github.com/webrtcgw/gwcore/internal/auth"
	"github.com/webrtcgw/gwcore/internal/gatewayerr"
	"github.com/webrtcgw/gwcore/internal/session"
)

// EventSink delivers a pushed event or notification to wherever
// signaling messages actually go out (a websocket, long-poll queue,
// admin event handler); it's the one piece of Callbacks this package
// doesn't implement itself, since message transport is a concern of
// its own layer.
type EventSink interface {
	Push(handleID uint64, transaction string, message, jsep json.RawMessage) error
	Notify(handleID uint64, event json.RawMessage)
	HandlersAttached() bool
}

// Gateway implements Callbacks against a live set of session handles,
// an auth store, and an EventSink for outbound signaling delivery.
type Gateway struct {
	handles func(id uint64) (*session.Handle, bool)
	sink    EventSink
	authStore auth.Store
}

// NewGateway builds a Callbacks implementation. handles resolves a
// SessionHandle (expected to be a uint64 handle id, boxed as
// SessionHandle) back to the live *session.Handle; authStore may be
// auth.AlwaysValid{} when authentication is disabled.
func NewGateway(handles func(id uint64) (*session.Handle, bool), sink EventSink, authStore auth.Store) *Gateway {
	return &Gateway{handles: handles, sink: sink, authStore: authStore}
}

func handleID(h SessionHandle) (uint64, bool) {
	id, ok := h.(uint64)
	return id, ok
}

func (g *Gateway) PushEvent(h SessionHandle, transaction string, message, jsep json.RawMessage) error {
	id, ok := handleID(h)
	if !ok {
		return errInvalidHandle
	}
	return g.sink.Push(id, transaction, message, jsep)
}

// Typical RTP-timestamp advance per relayed packet, used only to seed
// switching.Context.Rewrite's monotonicity floor across an SSRC
// change; the real advance is whatever the source stamped, and
// Rewrite never lets the emitted timestamp fall behind this anyway.
const (
	audioTSStep = 960  // 48kHz * 20ms
	videoTSStep = 3000 // 90kHz / 30fps
)

// errNoStream is returned when a module relays media for a kind the
// handle never negotiated a stream for.
var errNoStream = errors.New("appmodule: no negotiated stream for relayed media")

// resolveStream finds the handle's negotiated audio or video stream.
// A gateway that bundles multiple m-sections of the same kind onto
// one handle would need a mid argument here; this module negotiates
// at most one of each.
func resolveStream(handle *session.Handle, video bool) *session.Stream {
	want := "audio"
	if video {
		want = "video"
	}
	for _, s := range handle.Streams() {
		if s.Kind == want {
			return s
		}
	}
	return nil
}

// RelayRTP accepts one RTP packet a module wants forwarded to this
// handle's peer: it resolves the negotiated stream for video/audio,
// rewrites SSRC/sequence/timestamp through the stream's switching
// context so continuity survives the source changing underneath it
// (simulcast layer switch, publisher swap), retains the rewritten
// packet in the stream's retransmit buffer for NACK answering, and
// updates its outbound RTCP/stats bookkeeping before queuing delivery.
//
// Simulcast sources forward through layer 0's switching/retransmit
// state: RelayRTP's video bool carries no layer index, so which
// simulcast encoding is currently selected is a decision the calling
// module already made before forwarding.
func (g *Gateway) RelayRTP(h SessionHandle, video bool, buf []byte) error {
	handle, ok := g.resolve(h)
	if !ok {
		return errInvalidHandle
	}
	stream := resolveStream(handle, video)
	if stream == nil {
		return errNoStream
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf); err != nil {
		return &gatewayerr.ProtocolError{Err: err}
	}

	comp := stream.Component()
	now := time.Now()

	var ssrc uint32
	var rtcpState *session.RTCPState
	var switchCtx = comp.AudioSwitchContext()
	var retransmit = comp.AudioRetransmitBuffer()
	tsStep := uint32(audioTSStep)
	if video {
		ssrc = stream.VideoSSRC[0]
		rtcpState = stream.VideoRTCP[0]
		switchCtx = comp.VideoSwitchContext(0)
		retransmit = comp.VideoRetransmitBuffer(0)
		tsStep = videoTSStep
	} else {
		ssrc = stream.AudioSSRC
		rtcpState = stream.AudioRTCP
	}
	if ssrc == 0 {
		ssrc = pkt.SSRC
	}

	seq, ts := switchCtx.Rewrite(pkt.SSRC, pkt.SequenceNumber, pkt.Timestamp, tsStep, now)
	pkt.SequenceNumber = seq
	pkt.Timestamp = ts
	pkt.SSRC = ssrc

	raw, err := pkt.Marshal()
	if err != nil {
		return &gatewayerr.ProtocolError{Err: err}
	}

	retransmit.Put(pkt.SequenceNumber, raw, now)
	if rtcpState != nil {
		rtcpState.ObserveSend(pkt.SequenceNumber, pkt.Timestamp, len(pkt.Payload), now)
	}
	comp.OutStats.RecordSent(len(raw), now)

	handle.Enqueue(session.OutboundPacket{ComponentID: int(comp.ID()), Data: raw})
	return nil
}

// RelayRTCP accepts one compound RTCP packet a module wants forwarded
// to this handle's peer (PLI/FIR requests, REMB, app-specific
// feedback), attributing it to the negotiated stream's component so
// the send worker and stats can trace it.
func (g *Gateway) RelayRTCP(h SessionHandle, video bool, buf []byte) error {
	handle, ok := g.resolve(h)
	if !ok {
		return errInvalidHandle
	}
	stream := resolveStream(handle, video)
	if stream == nil {
		return errNoStream
	}
	comp := stream.Component()
	comp.OutStats.RecordSent(len(buf), time.Now())
	handle.Enqueue(session.OutboundPacket{
		ComponentID: int(comp.ID()),
		Data:        append([]byte(nil), buf...),
		IsRTCP:      true,
	})
	return nil
}

func (g *Gateway) RelayData(h SessionHandle, buf []byte) error {
	handle, ok := g.resolve(h)
	if !ok {
		return errInvalidHandle
	}
	handle.Enqueue(session.OutboundPacket{Data: append([]byte(nil), buf...)})
	return nil
}

// ClosePC hangs the handle up (Handle.Hangup, which notifies the
// module's HangupMedia); the streams' ICE agents and DTLS transports
// are not closed here and stay open until EndSession frees the handle.
func (g *Gateway) ClosePC(h SessionHandle) {
	if handle, ok := g.resolve(h); ok {
		handle.Hangup("closed by module")
	}
}

func (g *Gateway) EndSession(h SessionHandle) {
	if handle, ok := g.resolve(h); ok {
		handle.Hangup("ended by module")
		handle.Free()
	}
}

func (g *Gateway) EventsIsEnabled() bool { return g.sink.HandlersAttached() }

func (g *Gateway) NotifyEvent(h SessionHandle, event json.RawMessage) {
	if id, ok := handleID(h); ok {
		g.sink.Notify(id, event)
	}
}

func (g *Gateway) AuthIsSignatureValid(token, realm string) bool {
	return g.authStore.IsValid(token, realm)
}

func (g *Gateway) AuthSignatureContains(token, realm, desc string) bool {
	return g.authStore.SignatureContains(token, realm, desc)
}

func (g *Gateway) resolve(h SessionHandle) (*session.Handle, bool) {
	id, ok := handleID(h)
	if !ok {
		return nil, false
	}
	return g.handles(id)
}

var errInvalidHandle = &invalidHandleError{}

type invalidHandleError struct{}

func (*invalidHandleError) Error() string { return "appmodule: invalid session handle" }
