package rtputil

import (
	"encoding/binary"
	"errors"

	"github.com/pion/rtp"
)

// ErrShortRTXPayload is returned by StripRTX when the payload is too
// short to contain the 2-byte OSN prefix RFC 4588 requires.
var ErrShortRTXPayload = errors.New("rtputil: rtx payload shorter than osn prefix")

// WrapRTX builds the RFC 4588 retransmission packet for original, to be
// sent on rtxSSRC/rtxPT with rtxSeq as its own sequence number. The
// original sequence number is prepended to the payload as the OSN.
func WrapRTX(original *rtp.Packet, rtxSSRC uint32, rtxPT uint8, rtxSeq uint16) *rtp.Packet {
	payload := make([]byte, 2+len(original.Payload))
	binary.BigEndian.PutUint16(payload, original.SequenceNumber)
	copy(payload[2:], original.Payload)

	hdr := original.Header
	hdr.PayloadType = rtxPT
	hdr.SequenceNumber = rtxSeq
	hdr.SSRC = rtxSSRC

	return &rtp.Packet{Header: hdr, Payload: payload}
}

// StripRTX recovers the original sequence number and payload from an
// inbound RTX packet, and rewrites the header back onto the original
// media SSRC/PT so it can be delivered as the primary layer.
func StripRTX(pkt *rtp.Packet, mediaSSRC uint32, mediaPT uint8) (osn uint16, err error) {
	if len(pkt.Payload) < 2 {
		return 0, ErrShortRTXPayload
	}
	osn = binary.BigEndian.Uint16(pkt.Payload)
	pkt.Payload = pkt.Payload[2:]
	pkt.SequenceNumber = osn
	pkt.SSRC = mediaSSRC
	pkt.PayloadType = mediaPT
	return osn, nil
}

// RTXPayloadTypeMap resolves an RTX payload type back to the media
// payload type it retransmits, built from the negotiated a=fmtp
// apt= parameter.
type RTXPayloadTypeMap struct {
	rtxToMedia map[uint8]uint8
	mediaToRtx map[uint8]uint8
}

// NewRTXPayloadTypeMap builds an empty map.
func NewRTXPayloadTypeMap() *RTXPayloadTypeMap {
	return &RTXPayloadTypeMap{
		rtxToMedia: make(map[uint8]uint8),
		mediaToRtx: make(map[uint8]uint8),
	}
}

// Register records that rtxPT retransmits mediaPT.
func (m *RTXPayloadTypeMap) Register(rtxPT, mediaPT uint8) {
	m.rtxToMedia[rtxPT] = mediaPT
	m.mediaToRtx[mediaPT] = rtxPT
}

// MediaPT returns the media payload type an RTX payload type
// retransmits, and whether rtxPT was registered.
func (m *RTXPayloadTypeMap) MediaPT(rtxPT uint8) (uint8, bool) {
	pt, ok := m.rtxToMedia[rtxPT]
	return pt, ok
}

// RTXPT returns the RTX payload type to use when retransmitting a
// packet that was originally sent with mediaPT, the inverse of
// MediaPT. The gateway's NACK-response path does not call it: resends
// go out on the original SSRC and payload type.
func (m *RTXPayloadTypeMap) RTXPT(mediaPT uint8) (uint8, bool) {
	pt, ok := m.mediaToRtx[mediaPT]
	return pt, ok
}
