package negotiate

import (
	"context"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
	"github.com/webrtcgw/gwcore/internal/gatewaylog"
	"github.com/webrtcgw/gwcore/internal/nack"
	"github.com/webrtcgw/gwcore/internal/rtputil"
	"github.com/webrtcgw/gwcore/internal/session"
)

// acceptRTPLoop blocks on Transport.AcceptRTP, spawning one reader
// goroutine per inbound SSRC the peer opens (the primary encoding of
// each simulcast layer plus its RTX companion), until the stream's
// connection closes or ctx is canceled.
func acceptRTPLoop(ctx context.Context, h *session.Handle, s *session.Stream, flood *gatewaylog.Flood) {
	for {
		if ctx.Err() != nil {
			return
		}
		rs, ssrc, err := s.DTLS.AcceptRTP()
		if err != nil {
			if ctx.Err() == nil {
				flood.Warnf("rtp-accept-"+s.Mid, "negotiate: accept rtp stream failed mid=%s: %v", s.Mid, err)
			}
			return
		}
		video, layer, isRTX := classifySSRC(s, ssrc)
		go readRTPStream(ctx, h, s, rs, ssrc, video, layer, isRTX, flood)
	}
}

// acceptRTCPLoop mirrors acceptRTPLoop for the SRTCP session; unlike
// RTP, a muxed stream typically opens exactly one RTCP SSRC per
// direction, but the loop structure is the same.
func acceptRTCPLoop(ctx context.Context, h *session.Handle, s *session.Stream, flood *gatewaylog.Flood) {
	for {
		if ctx.Err() != nil {
			return
		}
		rs, ssrc, err := s.DTLS.AcceptRTCP()
		if err != nil {
			if ctx.Err() == nil {
				flood.Warnf("rtcp-accept-"+s.Mid, "negotiate: accept rtcp stream failed mid=%s: %v", s.Mid, err)
			}
			return
		}
		go readRTCPStream(ctx, h, s, rs, ssrc, flood)
	}
}

// classifySSRC maps an inbound SSRC to the negotiated (video, layer,
// isRTX) triple a Stream's ApplyMediaSection recorded, so packet
// processing can route it to the right NACK window, switching
// context, and retransmit buffer.
func classifySSRC(s *session.Stream, ssrc uint32) (video bool, layer int, isRTX bool) {
	if s.Kind == "audio" {
		if s.AudioRTXSSRC != 0 && ssrc == s.AudioRTXSSRC {
			return false, 0, true
		}
		return false, 0, false
	}
	for i := range s.VideoSSRC {
		if s.VideoSSRC[i] != 0 && s.VideoSSRC[i] == ssrc {
			return true, i, false
		}
		if s.VideoRTXSSRC[i] != 0 && s.VideoRTXSSRC[i] == ssrc {
			return true, i, true
		}
	}
	return true, 0, false
}

// readRTPStream drains one inbound SSRC's RTP reader: RTX packets are
// unwrapped back onto their media SSRC/PT, every packet updates its
// layer's NACK window and clock-skew compensator and the component's
// received-traffic counters, and the (possibly rewritten) packet is
// handed to the attached module's IncomingRTP, if one is attached.
func readRTPStream(ctx context.Context, h *session.Handle, s *session.Stream, rs dtlssrtp.RTPReadStream, ssrc uint32, video bool, layer int, isRTX bool, flood *gatewaylog.Flood) {
	defer rs.Close()

	comp := s.Component()
	window := comp.AudioWindow()
	skew := comp.AudioSkew()
	mediaSSRC := s.AudioSSRC
	if video {
		window = comp.VideoWindow(layer)
		skew = comp.VideoSkew(layer)
		mediaSSRC = s.VideoSSRC[layer]
	}

	buf := make([]byte, 1500)
	for {
		if ctx.Err() != nil {
			return
		}
		n, hdr, err := rs.ReadRTP(buf)
		if err != nil {
			if ctx.Err() == nil {
				flood.Warnf("rtp-read-"+s.Mid, "negotiate: rtp read failed mid=%s ssrc=%d: %v", s.Mid, ssrc, err)
			}
			return
		}
		now := time.Now()

		pkt := &rtp.Packet{Header: *hdr, Payload: append([]byte(nil), buf[:n]...)}
		if isRTX {
			mediaPT, ok := s.RTX.MediaPT(pkt.PayloadType)
			if !ok {
				continue
			}
			if _, err := rtputil.StripRTX(pkt, mediaSSRC, mediaPT); err != nil {
				flood.Warnf("rtx-strip-"+s.Mid, "negotiate: rtx strip failed mid=%s: %v", s.Mid, err)
				continue
			}
		}

		window.Add(pkt.SequenceNumber, now)
		skew.Observe(pkt.Timestamp, now)
		comp.InStats.RecordReceived(len(pkt.Payload), now)

		if video && s.Keyframe != nil {
			// The keyframe classification is computed and discarded;
			// nothing on this path acts on it.
			_ = s.Keyframe(pkt.Payload)
		}

		raw, err := pkt.Marshal()
		if err != nil {
			continue
		}
		if module := h.Module(); module != nil {
			module.Sink.IncomingRTP(s.Mid, video, raw)
		}
	}
}

// readRTCPStream drains one inbound SRTCP SSRC's reader, accounting
// inbound NACKs against the matching retransmit buffer (triggering
// resends onto the outbound queue) and forwarding the raw compound
// packet to the attached module.
func readRTCPStream(ctx context.Context, h *session.Handle, s *session.Stream, rs dtlssrtp.RTCPReadStream, ssrc uint32, flood *gatewaylog.Flood) {
	defer rs.Close()

	comp := s.Component()
	video := s.Kind == "video"
	buf := make([]byte, 1500)

	for {
		if ctx.Err() != nil {
			return
		}
		n, err := rs.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				flood.Warnf("rtcp-read-"+s.Mid, "negotiate: rtcp read failed mid=%s ssrc=%d: %v", s.Mid, ssrc, err)
			}
			return
		}
		now := time.Now()
		comp.InStats.RecordReceived(n, now)

		raw := append([]byte(nil), buf[:n]...)
		packets, err := rtcp.Unmarshal(raw)
		if err != nil {
			flood.Warnf("rtcp-parse-"+s.Mid, "negotiate: rtcp unmarshal failed mid=%s: %v", s.Mid, err)
			continue
		}
		for _, p := range packets {
			if nackPkt, ok := p.(*rtcp.TransportLayerNack); ok {
				handleInboundNACK(h, s, comp, nackPkt, video, now)
			}
		}

		if module := h.Module(); module != nil {
			module.Sink.IncomingRTCP(s.Mid, video, raw)
		}
	}
}

// handleInboundNACK answers a peer-reported loss of our outbound
// traffic: every named sequence number still held in the matching
// retransmit buffer is requeued, throttled per-entry so a repeated
// NACK for the same packet within minRetransmitInterval (20ms) doesn't
// resend it twice, and a sustained run trips SlowLink(uplink=true).
// A resend is the stored packet as first sent, on its media SSRC and
// payload type; no RFC 4588 RTX wrapping is applied here.
func handleInboundNACK(h *session.Handle, s *session.Stream, comp *session.Component, pkt *rtcp.TransportLayerNack, video bool, now time.Time) {
	missing := nack.DecodePairs(pkt.Nacks)
	if len(missing) == 0 {
		return
	}

	retransmit := comp.AudioRetransmitBuffer()
	layer := 0
	if video {
		for i := range s.VideoSSRC {
			if s.VideoSSRC[i] == pkt.MediaSSRC {
				layer = i
				break
			}
		}
		retransmit = comp.VideoRetransmitBuffer(layer)
	}

	const minRetransmitInterval = 20 * time.Millisecond
	for _, seq := range missing {
		entry, ok := retransmit.ShouldResend(seq, now, minRetransmitInterval)
		if !ok {
			continue
		}
		h.Enqueue(session.OutboundPacket{ComponentID: int(comp.ID()), Data: entry.Data})
	}
	comp.RecordRetransmit(now, time.Second)

	if comp.OutStats.RecordNACKReceived(now) {
		if module := h.Module(); module != nil {
			module.Sink.SlowLink(true, video)
		}
	}
}
