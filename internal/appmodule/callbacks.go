package appmodule

import "encoding/json"

// Callbacks is the gateway-side interface a Module uses to push
// events, relay media, and query authentication state, matching
// janus_callbacks: push_event/relay_rtp/relay_rtcp/relay_data/
// close_pc/end_session/events_is_enabled/notify_event plus the two
// auth queries the original exposes through a separate header.
type Callbacks interface {
	// PushEvent sends a JSON message, optionally with a JSEP SDP
	// payload to negotiate, to the peer attached to h.
	PushEvent(h SessionHandle, transaction string, message, jsep json.RawMessage) error

	// RelayRTP forwards an RTP packet to the peer.
	RelayRTP(h SessionHandle, video bool, buf []byte) error
	// RelayRTCP forwards an RTCP packet to the peer.
	RelayRTCP(h SessionHandle, video bool, buf []byte) error
	// RelayData forwards a data-channel message to the peer.
	RelayData(h SessionHandle, buf []byte) error

	// ClosePC tears down the PeerConnection (ICE/DTLS/SRTP) for h
	// without destroying the signaling session, so a module can end
	// media early while the session outlives it.
	ClosePC(h SessionHandle)
	// EndSession destroys h entirely.
	EndSession(h SessionHandle)

	// EventsIsEnabled reports whether any event handler is attached,
	// so a module can skip building an event payload it knows will be
	// discarded.
	EventsIsEnabled() bool
	// NotifyEvent reports an application-defined event for h to
	// whatever event handlers are attached, independent of PushEvent's
	// signaling-channel delivery.
	NotifyEvent(h SessionHandle, event json.RawMessage)

	// AuthIsSignatureValid reports whether token is currently valid.
	AuthIsSignatureValid(token, realm string) bool
	// AuthSignatureContains additionally requires token's descriptor
	// set to contain desc.
	AuthSignatureContains(token, realm, desc string) bool
}
