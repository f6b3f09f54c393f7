package session

import (
	"crypto/tls"
	"sync"
	"time"

	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
	"github.com/webrtcgw/gwcore/internal/iceagent"
	"github.com/webrtcgw/gwcore/internal/rtputil"
	"github.com/webrtcgw/gwcore/internal/sdpsubset"
)

// RTCPState tracks the bookkeeping one sender-report/receiver-report
// generator needs for a single SSRC: the RTP/wallclock anchor pair a
// sender report's NTP/RTP timestamp fields are derived from, and the
// running totals an SR's packet/octet counts report.
type RTCPState struct {
	mu sync.Mutex

	haveFirst         bool
	FirstRTPTimestamp uint32
	FirstArrival      time.Time

	LastSentSeq uint16
	LastSentTS  uint32

	PacketsSent uint64
	OctetsSent  uint64
}

// ObserveSend records one outbound packet against this SSRC's running
// totals and, on the first call, anchors the RTP-timestamp-to-wallclock
// mapping a sender report's NTP timestamp is derived from.
func (r *RTCPState) ObserveSend(seq uint16, ts uint32, payloadLen int, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.haveFirst {
		r.haveFirst = true
		r.FirstRTPTimestamp = ts
		r.FirstArrival = now
	}
	r.LastSentSeq = seq
	r.LastSentTS = ts
	r.PacketsSent++
	r.OctetsSent += uint64(payloadLen)
}

// Snapshot returns a copy of the counters under lock, for building an
// outbound RTCP sender report without racing ObserveSend.
func (r *RTCPState) Snapshot() RTCPState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RTCPState{
		haveFirst:         r.haveFirst,
		FirstRTPTimestamp: r.FirstRTPTimestamp,
		FirstArrival:      r.FirstArrival,
		LastSentSeq:       r.LastSentSeq,
		LastSentTS:        r.LastSentTS,
		PacketsSent:       r.PacketsSent,
		OctetsSent:        r.OctetsSent,
	}
}

// Stream is one negotiated media line (audio, video, or the data
// channel), holding the ICE agent and DTLS-SRTP transport it shares
// across its component(s) and the per-SSRC switching/NACK state kept
// in Component, mirroring janus_ice_stream.
type Stream struct {
	mu sync.RWMutex

	Mid  string
	Kind string // "audio", "video", or "application"

	ICE  *iceagent.Agent
	DTLS *dtlssrtp.Transport

	// Cert is the certificate the local DTLS transport advertises;
	// minted before ICE connects so its fingerprint can go into the
	// local SDP offer/answer ahead of Transport construction.
	Cert *tls.Certificate

	LocalICEUfrag   string
	LocalICEPwd     string
	LocalCandidates []iceagent.Candidate

	RemoteFingerprint *dtlssrtp.Fingerprints
	DTLSRole          dtlssrtp.Role

	RemoteICEUfrag string
	RemoteICEPwd   string

	Send bool
	Recv bool

	// AudioSSRC/AudioRTXSSRC are the negotiated SSRCs for the single
	// audio encoding, if Kind == "audio".
	AudioSSRC    uint32
	AudioRTXSSRC uint32
	AudioRTCP    *RTCPState

	// VideoSSRC/VideoRTXSSRC/Rids are indexed by simulcast layer
	// (0 = highest-priority layer, matching the a=rid/a=ssrc-group
	// SIM-group ordering), if Kind == "video".
	VideoSSRC    [simulcastLayers]uint32
	VideoRTXSSRC [simulcastLayers]uint32
	Rids         [simulcastLayers]string
	VideoRTCP    [simulcastLayers]*RTCPState

	Codecs []sdpsubset.RTPCodec
	RTX    *rtputil.RTXPayloadTypeMap

	Keyframe rtputil.KeyframeClassifier

	Extensions        *rtputil.ExtensionMap
	TransportWideCCID uint8
	HasTransportCC    bool

	component *Component

	noErrorLog bool
}

func newStream(mid string) *Stream {
	return &Stream{
		Mid:       mid,
		AudioRTCP: &RTCPState{},
		RTX:       rtputil.NewRTXPayloadTypeMap(),
		Extensions: rtputil.NewExtensionMap(),
	}
}

// Component returns the stream's single ICE component, creating it on
// first use. A gateway that doesn't mux RTP/RTCP on the same 5-tuple
// would extend this to index by component id; the muxed case this
// module targets always has exactly one.
func (s *Stream) Component() *Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.component == nil {
		s.component = newComponent(s)
	}
	return s.component
}

// ApplyMediaSection updates the stream's negotiated state from a
// parsed SDP media section: direction, ICE credentials, fingerprint,
// DTLS role, codecs, RTX payload-type mapping, header extensions,
// the transport-wide-cc extension id, a keyframe classifier for the
// negotiated primary video codec, and the SSRC/rid layout (FID groups
// pairing a media SSRC with its RTX SSRC, SIM groups or a=rid entries
// ordering simulcast layers).
func (s *Stream) ApplyMediaSection(sec sdpsubset.MediaSection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Kind = sec.Kind
	s.RemoteICEUfrag = sec.ICEUfrag
	s.RemoteICEPwd = sec.ICEPwd
	s.DTLSRole = dtlssrtp.RoleFromSetup(sec.Setup)
	s.Codecs = sec.Codecs

	if sec.Fingerprint != nil {
		s.RemoteFingerprint = &dtlssrtp.Fingerprints{
			Algorithm: sec.Fingerprint.Algorithm,
			Value:     sec.Fingerprint.Value,
		}
	}

	switch sec.Direction {
	case "sendrecv", "":
		s.Send, s.Recv = true, true
	case "sendonly":
		s.Send, s.Recv = true, false
	case "recvonly":
		s.Send, s.Recv = false, true
	case "inactive":
		s.Send, s.Recv = false, false
	}

	if s.Extensions == nil {
		s.Extensions = rtputil.NewExtensionMap()
	}
	for _, em := range sec.ExtMaps {
		s.Extensions.Register(em.ID, rtputil.ExtensionURI(em.URI))
	}
	if id, ok := s.Extensions.TransportWideCCID(); ok {
		s.TransportWideCCID = id
		s.HasTransportCC = true
	}

	if s.RTX == nil {
		s.RTX = rtputil.NewRTXPayloadTypeMap()
	}
	mediaByName := make(map[string]sdpsubset.RTPCodec)
	for _, c := range sec.Codecs {
		if c.Name == "" {
			continue
		}
		if _, exists := mediaByName[c.Name]; !exists {
			mediaByName[c.Name] = c
		}
	}
	for _, c := range sec.Codecs {
		if c.Name != "rtx" {
			continue
		}
		aptPT, ok := rtxApt(c.FmtpLine)
		if !ok {
			continue
		}
		s.RTX.Register(c.PayloadType, aptPT)
	}

	if sec.Kind == "video" {
		primary := primaryVideoCodec(sec.Codecs)
		s.Keyframe = rtputil.ClassifierForCodec(primary)
		s.applyVideoSSRCs(sec)
	} else if sec.Kind == "audio" {
		s.applyAudioSSRCs(sec)
	}

	return nil
}

// applyAudioSSRCs assigns the single negotiated audio SSRC and its
// RTX SSRC (the second member of an FID group containing it), if any.
func (s *Stream) applyAudioSSRCs(sec sdpsubset.MediaSection) {
	if len(sec.SSRCs) > 0 {
		s.AudioSSRC = sec.SSRCs[0]
	}
	if s.AudioRTCP == nil {
		s.AudioRTCP = &RTCPState{}
	}
	for _, g := range sec.SSRCGroups {
		if g.Semantics != "FID" || len(g.SSRCs) < 2 {
			continue
		}
		if g.SSRCs[0] == s.AudioSSRC {
			s.AudioRTXSSRC = g.SSRCs[1]
		}
	}
}

// applyVideoSSRCs assigns simulcast layers to VideoSSRC/VideoRTXSSRC
// slots. SSRC layer order follows a SIM ssrc-group's member order, or
// bare a=ssrc order when no SIM group is present; Rids is filled in
// a=rid order and paired with the SSRC slots by index only.
func (s *Stream) applyVideoSSRCs(sec sdpsubset.MediaSection) {
	for i := range s.VideoRTCP {
		if s.VideoRTCP[i] == nil {
			s.VideoRTCP[i] = &RTCPState{}
		}
	}
	for i, rid := range sec.Rids {
		if i >= simulcastLayers {
			break
		}
		s.Rids[i] = rid
	}

	fid := make(map[uint32]uint32)
	for _, g := range sec.SSRCGroups {
		if g.Semantics == "FID" && len(g.SSRCs) >= 2 {
			fid[g.SSRCs[0]] = g.SSRCs[1]
		}
	}

	var order []uint32
	for _, g := range sec.SSRCGroups {
		if g.Semantics == "SIM" {
			order = g.SSRCs
			break
		}
	}
	if len(order) == 0 {
		order = sec.SSRCs
	}

	layer := 0
	for _, ssrc := range order {
		if layer >= simulcastLayers {
			break
		}
		if _, isRTX := rtxOf(fid, ssrc); isRTX {
			continue
		}
		s.VideoSSRC[layer] = ssrc
		if rtx, ok := fid[ssrc]; ok {
			s.VideoRTXSSRC[layer] = rtx
		}
		layer++
	}
}

// rtxOf reports whether ssrc appears as some other SSRC's RTX member
// in fid, so the caller can skip it while walking the primary-SSRC
// order.
func rtxOf(fid map[uint32]uint32, ssrc uint32) (uint32, bool) {
	for media, rtx := range fid {
		if rtx == ssrc {
			return media, true
		}
	}
	return 0, false
}

// primaryVideoCodec returns the name of the first non-RTX, non-FEC
// video codec in codecs, used to pick a keyframe classifier.
func primaryVideoCodec(codecs []sdpsubset.RTPCodec) string {
	for _, c := range codecs {
		switch c.Name {
		case "rtx", "red", "ulpfec", "flexfec-03":
			continue
		}
		return c.Name
	}
	return ""
}

// rtxApt extracts the apt= payload type an rtx codec's fmtp line
// names as the media payload type it retransmits.
func rtxApt(fmtpLine string) (uint8, bool) {
	const prefix = "apt="
	idx := -1
	for i := 0; i+len(prefix) <= len(fmtpLine); i++ {
		if fmtpLine[i:i+len(prefix)] == prefix {
			idx = i + len(prefix)
			break
		}
	}
	if idx < 0 {
		return 0, false
	}
	end := idx
	for end < len(fmtpLine) && fmtpLine[end] >= '0' && fmtpLine[end] <= '9' {
		end++
	}
	if end == idx {
		return 0, false
	}
	var v uint16
	for _, c := range fmtpLine[idx:end] {
		v = v*10 + uint16(c-'0')
	}
	if v > 255 {
		return 0, false
	}
	return uint8(v), true
}

// NoErrorLog reports whether a recurring error has already been
// logged once for this stream, matching janus_ice_stream's
// flood-guard flag.
func (s *Stream) NoErrorLog() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.noErrorLog
}

// SetNoErrorLog flips the flood-guard flag, normally after the first
// occurrence of a repeating error has been logged.
func (s *Stream) SetNoErrorLog(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noErrorLog = v
}

// close tears down the stream's DTLS transport and ICE agent, if
// constructed. Safe to call on a stream that never got past
// negotiation (both fields nil).
func (s *Stream) close() {
	s.mu.Lock()
	dtlsTransport := s.DTLS
	iceAgent := s.ICE
	s.DTLS = nil
	s.ICE = nil
	s.mu.Unlock()

	if dtlsTransport != nil {
		_ = dtlsTransport.Close()
	}
	if iceAgent != nil {
		_ = iceAgent.Close()
	}
}
