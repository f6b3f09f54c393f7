package rtputil

import "strings"

// KeyframeClassifier reports whether an RTP payload for a negotiated
// video codec starts a keyframe, bound when applying a remote
// description from the negotiated codec name.
type KeyframeClassifier func(payload []byte) bool

// ClassifierForCodec returns the keyframe classifier for a negotiated
// video codec name (case-insensitive, as it appears in a=rtpmap).
// Unknown codecs get a classifier that always reports true, so
// simulcast/NACK bookkeeping degrades to "every packet might start a
// layer" rather than silently never recovering.
func ClassifierForCodec(codecName string) KeyframeClassifier {
	switch strings.ToUpper(codecName) {
	case "H264":
		return isH264Keyframe
	case "VP8":
		return isVP8Keyframe
	case "VP9":
		return isVP9Keyframe
	case "AV1":
		return isAV1Keyframe
	default:
		return func([]byte) bool { return true }
	}
}

const (
	h264NALUTypeMask  = 0x1F
	h264NALUTypeIDR   = 5
	h264NALUTypeSPS   = 7
	h264NALUTypeSTAPA = 24
	h264NALUTypeFUA   = 28
)

// isH264Keyframe inspects the leading NAL unit(s) of an H.264 RTP
// payload for an IDR or SPS, including through STAP-A aggregation and
// the first fragment of a FU-A (grounded on the NAL-type switch in
// pkg/rtp H264Processor.ProcessPacket).
func isH264Keyframe(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	naluType := payload[0] & h264NALUTypeMask
	switch naluType {
	case h264NALUTypeIDR, h264NALUTypeSPS:
		return true
	case h264NALUTypeSTAPA:
		offset := 1
		for offset+2 <= len(payload) {
			size := int(payload[offset])<<8 | int(payload[offset+1])
			offset += 2
			if offset >= len(payload) {
				break
			}
			if t := payload[offset] & h264NALUTypeMask; t == h264NALUTypeIDR || t == h264NALUTypeSPS {
				return true
			}
			offset += size
		}
		return false
	case h264NALUTypeFUA:
		if len(payload) < 2 {
			return false
		}
		fuHeader := payload[1]
		start := fuHeader&0x80 != 0
		return start && fuHeader&h264NALUTypeMask == h264NALUTypeIDR
	default:
		return false
	}
}

// isVP8Keyframe inspects the VP8 payload descriptor + first payload
// byte for the non-inter-coded frame indicator (RFC 7741 §4.3, P bit
// of the first VP8 payload byte after skipping the descriptor).
func isVP8Keyframe(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	offset := 1
	if payload[0]&0x80 != 0 { // X bit: extended control bits present
		if len(payload) < 2 {
			return false
		}
		ext := payload[1]
		offset = 2
		if ext&0x80 != 0 { // I: PictureID present
			if offset >= len(payload) {
				return false
			}
			if payload[offset]&0x80 != 0 {
				offset++ // 15-bit PictureID
			}
			offset++
		}
		if ext&0x40 != 0 { // L: TL0PICIDX present
			offset++
		}
		if ext&0x20 != 0 || ext&0x10 != 0 { // T or K present
			offset++
		}
	}
	if offset >= len(payload) {
		return false
	}
	return payload[offset]&0x01 == 0 // P bit 0 => key frame
}

// isVP9Keyframe checks the VP9 payload descriptor's frame-type bit
// when a scalability structure isn't obscuring it (RFC draft
// vp9-rtp §4.2).
func isVP9Keyframe(payload []byte) bool {
	if len(payload) < 1 {
		return false
	}
	hasPictureID := payload[0]&0x80 != 0
	offset := 1
	if hasPictureID {
		if offset >= len(payload) {
			return false
		}
		if payload[offset]&0x80 != 0 {
			offset++
		}
		offset++
	}
	if offset >= len(payload) {
		return false
	}
	// B bit (start of frame) must be set on the descriptor's first
	// byte for the frame-type bit below to describe this frame.
	if payload[0]&0x08 == 0 {
		return false
	}
	return payload[0]&0x40 == 0 // P bit 0 => key frame
}

// isAV1Keyframe treats a payload whose first OBU, right after the
// one-byte aggregation header, is a sequence header (type 1) as a
// keyframe marker; later OBUs in the packet are not inspected.
func isAV1Keyframe(payload []byte) bool {
	if len(payload) < 2 {
		return false
	}
	obuHeader := payload[1]
	obuType := (obuHeader >> 3) & 0x0F
	const obuTypeSequenceHeader = 1
	return obuType == obuTypeSequenceHeader
}
