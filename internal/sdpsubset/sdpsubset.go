// Package sdpsubset extracts and produces the narrow subset of SDP
// attributes a media gateway needs (BUNDLE, mid, ICE credentials,
// DTLS fingerprint/setup, candidates, codecs, RTCP feedback, header
// extensions, SSRC grouping, and simulcast rid), grounded on
// pion/webrtc's sdp.go session/media description walkers but without
// its PeerConnection-level track/transceiver bookkeeping.
package sdpsubset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pion/sdp/v3"
)

var (
	ErrMissingICECredentials  = errors.New("sdpsubset: missing ice-ufrag/ice-pwd")
	ErrMissingFingerprint     = errors.New("sdpsubset: missing a=fingerprint")
	ErrConflictingFingerprint = errors.New("sdpsubset: conflicting a=fingerprint across sections")
	ErrMalformedFingerprint   = errors.New("sdpsubset: malformed a=fingerprint")
)

// Fingerprint is one parsed a=fingerprint attribute.
type Fingerprint struct {
	Algorithm string
	Value     string
}

// RTPCodec is one negotiated a=rtpmap/a=fmtp/a=rtcp-fb group.
type RTPCodec struct {
	PayloadType uint8
	Name        string
	ClockRate   uint32
	Channels    uint16
	FmtpLine    string
	RTCPFeedback []string
}

// ExtMap is one negotiated a=extmap line.
type ExtMap struct {
	ID  uint8
	URI string
}

// SSRCGroup is one a=ssrc-group line (FID pairs a media SSRC with its
// RTX SSRC; SIM lists simulcast layers by SSRC).
type SSRCGroup struct {
	Semantics string
	SSRCs     []uint32
}

// MediaSection is the subset of one m= section the gateway consumes.
type MediaSection struct {
	Mid         string
	Kind        string // "audio" or "video"
	Direction   string // sendrecv/sendonly/recvonly/inactive
	ICEUfrag    string
	ICEPwd      string
	Fingerprint *Fingerprint
	Setup       string // active/passive/actpass
	Candidates  []string
	Codecs      []RTPCodec
	ExtMaps     []ExtMap
	SSRCs       []uint32
	SSRCGroups  []SSRCGroup
	Rids        []string // simulcast layer ids, from a=rid
	EndOfCands  bool
}

// Description is the subset of one whole SDP the gateway consumes.
type Description struct {
	BundleMids []string
	ICELite    bool
	Sections   []MediaSection
}

// Parse extracts Description from raw SDP bytes.
func Parse(raw []byte) (*Description, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal(raw); err != nil {
		return nil, fmt.Errorf("sdpsubset: unmarshal: %w", err)
	}

	desc := &Description{}

	if group, ok := parsed.Attribute("group"); ok {
		fields := strings.Fields(group)
		if len(fields) > 1 && fields[0] == "BUNDLE" {
			desc.BundleMids = fields[1:]
		}
	}
	if _, ok := parsed.Attribute("ice-lite"); ok {
		desc.ICELite = true
	}

	sessionUfrag, _ := parsed.Attribute("ice-ufrag")
	sessionPwd, _ := parsed.Attribute("ice-pwd")
	var sessionFP Fingerprint
	var hasSessionFP bool
	if raw, ok := parsed.Attribute("fingerprint"); ok {
		sessionFP, hasSessionFP = parseFingerprintValue(raw)
	}

	for _, m := range parsed.MediaDescriptions {
		section := MediaSection{
			Kind:     m.MediaName.Media,
			ICEUfrag: sessionUfrag,
			ICEPwd:   sessionPwd,
		}
		if hasSessionFP {
			fp := sessionFP
			section.Fingerprint = &fp
		}

		for _, attr := range m.Attributes {
			switch attr.Key {
			case "mid":
				section.Mid = attr.Value
			case "ice-ufrag":
				section.ICEUfrag = attr.Value
			case "ice-pwd":
				section.ICEPwd = attr.Value
			case "setup":
				section.Setup = attr.Value
			case "fingerprint":
				if fp, ok := parseFingerprintValue(attr.Value); ok {
					section.Fingerprint = &fp
				}
			case "candidate":
				section.Candidates = append(section.Candidates, attr.Value)
			case "end-of-candidates":
				section.EndOfCands = true
			case "rtpmap":
				if codec, ok := parseRtpmap(attr.Value); ok {
					section.Codecs = append(section.Codecs, codec)
				}
			case "fmtp":
				applyFmtp(section.Codecs, attr.Value)
			case "rtcp-fb":
				applyRTCPFeedback(section.Codecs, attr.Value)
			case "extmap":
				if em, ok := parseExtmap(attr.Value); ok {
					section.ExtMaps = append(section.ExtMaps, em)
				}
			case "ssrc":
				if ssrc, ok := parseSSRCAttr(attr.Value); ok {
					section.SSRCs = appendUnique(section.SSRCs, ssrc)
				}
			case "ssrc-group":
				if g, ok := parseSSRCGroup(attr.Value); ok {
					section.SSRCGroups = append(section.SSRCGroups, g)
				}
			case "rid":
				fields := strings.Fields(attr.Value)
				if len(fields) > 0 {
					section.Rids = append(section.Rids, fields[0])
				}
			case sdp.AttrKeySendOnly, sdp.AttrKeyRecvOnly, sdp.AttrKeySendRecv, sdp.AttrKeyInactive:
				section.Direction = attr.Key
			}
		}

		desc.Sections = append(desc.Sections, section)
	}

	return desc, nil
}

// Fingerprint returns the single fingerprint governing the whole
// description, erroring if sections disagree (mirrors
// pion/webrtc's extractFingerprint conflict check).
func (d *Description) Fingerprint() (Fingerprint, error) {
	var found *Fingerprint
	for _, s := range d.Sections {
		if s.Fingerprint == nil {
			continue
		}
		if found == nil {
			found = s.Fingerprint
			continue
		}
		if *found != *s.Fingerprint {
			return Fingerprint{}, ErrConflictingFingerprint
		}
	}
	if found == nil {
		return Fingerprint{}, ErrMissingFingerprint
	}
	return *found, nil
}

func parseFingerprintValue(raw string) (Fingerprint, bool) {
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return Fingerprint{}, false
	}
	return Fingerprint{Algorithm: parts[0], Value: parts[1]}, true
}

func parseRtpmap(value string) (RTPCodec, bool) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return RTPCodec{}, false
	}
	pt, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return RTPCodec{}, false
	}
	parts := strings.Split(fields[1], "/")
	codec := RTPCodec{PayloadType: uint8(pt), Name: parts[0]}
	if len(parts) > 1 {
		if rate, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
			codec.ClockRate = uint32(rate)
		}
	}
	if len(parts) > 2 {
		if ch, err := strconv.ParseUint(parts[2], 10, 16); err == nil {
			codec.Channels = uint16(ch)
		}
	}
	return codec, true
}

func applyFmtp(codecs []RTPCodec, value string) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return
	}
	pt, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return
	}
	for i := range codecs {
		if codecs[i].PayloadType == uint8(pt) {
			codecs[i].FmtpLine = fields[1]
			return
		}
	}
}

func applyRTCPFeedback(codecs []RTPCodec, value string) {
	fields := strings.SplitN(value, " ", 2)
	if len(fields) != 2 {
		return
	}
	if fields[0] == "*" {
		for i := range codecs {
			codecs[i].RTCPFeedback = append(codecs[i].RTCPFeedback, fields[1])
		}
		return
	}
	pt, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return
	}
	for i := range codecs {
		if codecs[i].PayloadType == uint8(pt) {
			codecs[i].RTCPFeedback = append(codecs[i].RTCPFeedback, fields[1])
			return
		}
	}
}

func parseExtmap(value string) (ExtMap, bool) {
	em := &sdp.ExtMap{}
	if err := em.Unmarshal("extmap:" + value); err != nil {
		return ExtMap{}, false
	}
	return ExtMap{ID: uint8(em.Value), URI: em.URI.String()}, true
}

func parseSSRCAttr(value string) (uint32, bool) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0, false
	}
	ssrc, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(ssrc), true
}

func parseSSRCGroup(value string) (SSRCGroup, bool) {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return SSRCGroup{}, false
	}
	g := SSRCGroup{Semantics: fields[0]}
	for _, f := range fields[1:] {
		ssrc, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			continue
		}
		g.SSRCs = append(g.SSRCs, uint32(ssrc))
	}
	return g, true
}

func appendUnique(ssrcs []uint32, ssrc uint32) []uint32 {
	for _, s := range ssrcs {
		if s == ssrc {
			return ssrcs
		}
	}
	return append(ssrcs, ssrc)
}
