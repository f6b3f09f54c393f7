package negotiate

import (
	"context"
	"strings"
	"time"

	"github.com/pion/ice/v4"

	"github.com/webrtcgw/gwcore/internal/gatewayerr"
	"github.com/webrtcgw/gwcore/internal/gatewaylog"
	"github.com/webrtcgw/gwcore/internal/sdpsubset"
	"github.com/webrtcgw/gwcore/internal/session"
)

// ApplyRemoteSDP applies a parsed remote description to h: each
// section's codecs are narrowed to the ones fmtp-compatible with what
// this gateway offered for that kind, the stream's negotiated state
// is updated, any bundled or previously trickled remote candidates are
// fed to its ICE agent, and ICE/DTLS connection is kicked off in the
// background so ApplyRemoteSDP itself never blocks on network I/O.
// localCodecs supplies, per kind, the codecs this gateway advertised
// in its own local description — the set CodecsCompatible checks
// remote payload types against.
func ApplyRemoteSDP(ctx context.Context, h *session.Handle, desc *sdpsubset.Description, localCodecs map[string][]sdpsubset.RTPCodec, cfg Config, log gatewaylog.Logger) error {
	h.SetFlag(session.FlagGotOffer)

	for i := range desc.Sections {
		sec := desc.Sections[i]
		if sec.Mid == "" {
			continue
		}
		filterCompatibleCodecs(&sec, localCodecs[sec.Kind])

		stream := h.Stream(sec.Mid)
		if err := stream.ApplyMediaSection(sec); err != nil {
			return &gatewayerr.ProtocolError{Err: err}
		}

		if stream.ICE == nil {
			// SetupLocal hasn't run for this mid yet (no local answer
			// offered for it); nothing to connect until it does.
			continue
		}

		for _, c := range sec.Candidates {
			addRemoteCandidate(stream, c, log)
		}

		go connectStream(ctx, h, stream, cfg, log)
	}

	for _, t := range h.DrainTrickles() {
		if t.Candidate == "" {
			continue // end-of-candidates marker, nothing to add
		}
		stream := h.Stream(t.Mid)
		addRemoteCandidate(stream, t.Candidate, log)
	}

	return nil
}

// filterCompatibleCodecs drops any remote codec whose payload type
// collides with a local one this gateway didn't actually offer as
// compatible (mismatched clock rate, channel count, or profile-level
// fmtp parameters), matching the negotiation step that must run before
// any payload type coming off the wire is trusted.
func filterCompatibleCodecs(sec *sdpsubset.MediaSection, local []sdpsubset.RTPCodec) {
	if len(local) == 0 {
		return
	}
	byPT := make(map[uint8]sdpsubset.RTPCodec, len(local))
	for _, c := range local {
		byPT[c.PayloadType] = c
	}

	kept := sec.Codecs[:0]
	for _, remote := range sec.Codecs {
		localCodec, ok := byPT[remote.PayloadType]
		if !ok {
			// Not one of our own payload types (e.g. rtx/red/fec entries
			// this gateway doesn't independently offer by PT): keep it,
			// ApplyMediaSection's rtx/fec handling deals with those.
			kept = append(kept, remote)
			continue
		}
		if !sdpsubset.CodecsCompatible(sec.Kind, localCodec, remote) {
			continue
		}
		kept = append(kept, remote)
	}
	sec.Codecs = kept
}

// AddTrickle applies one trickled remote candidate to mid's stream. If
// the stream's ICE agent already exists it's added immediately;
// otherwise (the offer/answer exchange for that mid hasn't reached
// SetupLocal yet) it's buffered on the handle until the next
// ApplyRemoteSDP drains it, matching janus_ice_add_ice_candidate's
// "don't have the agent yet, queue it" branch.
func AddTrickle(h *session.Handle, mid, candidate string, log gatewaylog.Logger) {
	stream := h.Stream(mid)
	if stream.ICE != nil {
		addRemoteCandidate(stream, candidate, log)
		return
	}
	h.AddTrickle(session.TrickleCandidate{Mid: mid, Candidate: candidate, ReceivedAt: time.Now()})
}

// addRemoteCandidate parses one SDP candidate-attribute value (with or
// without the leading "candidate:" JSEP wraps trickled candidates in)
// and hands it to the stream's ICE agent.
func addRemoteCandidate(s *session.Stream, raw string, log gatewaylog.Logger) {
	if s.ICE == nil {
		return
	}
	raw = strings.TrimPrefix(raw, "candidate:")
	cand, err := ice.UnmarshalCandidate(raw)
	if err != nil {
		log.Warnf("negotiate: malformed remote candidate mid=%s: %v", s.Mid, err)
		return
	}
	if err := s.ICE.AddRemoteCandidate(cand); err != nil {
		log.Warnf("negotiate: failed to add remote candidate mid=%s: %v", s.Mid, err)
	}
}
