// Package rtputil provides RTP header parsing, rewriting, RTX
// encapsulation and payload-boundary/keyframe classification, grounded
// on github.com/pion/rtp and the commonly negotiated header-extension
// URIs.
package rtputil

// ExtensionURI identifies one RTP header extension by its registered URI.
type ExtensionURI string

const (
	ExtSSRCAudioLevel    ExtensionURI = "urn:ietf:params:rtp-hdrext:ssrc-audio-level"
	ExtTOffset           ExtensionURI = "urn:ietf:params:rtp-hdrext:toffset"
	ExtAbsSendTime       ExtensionURI = "http://www.webrtc.org/experiments/rtp-hdrext/abs-send-time"
	ExtVideoOrientation  ExtensionURI = "urn:3gpp:video-orientation"
	ExtTransportWideCC   ExtensionURI = "http://www.ietf.org/id/draft-holmer-rmcat-transport-wide-cc-extensions-01"
	ExtPlayoutDelay      ExtensionURI = "http://www.webrtc.org/experiments/rtp-hdrext/playout-delay"
	ExtRTPStreamID       ExtensionURI = "urn:ietf:params:rtp-hdrext:sdes:rtp-stream-id"
)

// ExtensionMap resolves negotiated extension ids to URIs for one
// m-line, built when applying a remote description from its offered
// a=extmap lines.
type ExtensionMap struct {
	byID  map[uint8]ExtensionURI
	byURI map[ExtensionURI]uint8
}

// NewExtensionMap builds an empty map ready for Register calls.
func NewExtensionMap() *ExtensionMap {
	return &ExtensionMap{
		byID:  make(map[uint8]ExtensionURI),
		byURI: make(map[ExtensionURI]uint8),
	}
}

// Register records that id carries uri on this m-line, overwriting any
// prior registration for either key (renegotiation may reassign ids).
func (m *ExtensionMap) Register(id uint8, uri ExtensionURI) {
	if old, ok := m.byID[id]; ok {
		delete(m.byURI, old)
	}
	m.byID[id] = uri
	m.byURI[uri] = id
}

// ID returns the negotiated id for uri, and whether it was negotiated.
func (m *ExtensionMap) ID(uri ExtensionURI) (uint8, bool) {
	id, ok := m.byURI[uri]
	return id, ok
}

// URI returns the extension registered at id, and whether one was.
func (m *ExtensionMap) URI(id uint8) (ExtensionURI, bool) {
	uri, ok := m.byID[id]
	return uri, ok
}

// TransportWideCCID is a convenience accessor used by the transport-wide
// congestion-control bookkeeping in internal/session.
func (m *ExtensionMap) TransportWideCCID() (uint8, bool) {
	return m.ID(ExtTransportWideCC)
}
