package negotiate

import (
	"context"
	"errors"

	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
	"github.com/webrtcgw/gwcore/internal/gatewaylog"
	"github.com/webrtcgw/gwcore/internal/gatewayerr"
	"github.com/webrtcgw/gwcore/internal/iceagent"
	"github.com/webrtcgw/gwcore/internal/session"
)

// SetupLocal allocates the local half of one media line before any
// remote description exists: a fresh DTLS certificate (so its
// fingerprint can be placed in the local offer/answer), an ICE agent,
// and a best-effort wait for candidate gathering to settle, mirroring
// janus_ice_setup_local_sdp's ordering of cert/agent/gather ahead of
// SDP generation. The returned Stream carries everything a Builder
// needs: LocalICEUfrag/LocalICEPwd/LocalCandidates and the
// certificate's fingerprint via Stream.Cert.
func SetupLocal(h *session.Handle, mid, kind string, cfg Config, log gatewaylog.Logger) (*session.Stream, error) {
	stream := h.Stream(mid)
	stream.Kind = kind

	cert, err := dtlssrtp.GenerateSelfSigned()
	if err != nil {
		return nil, &gatewayerr.DTLSError{Err: err}
	}
	stream.Cert = cert

	agent, err := iceagent.New(cfg.ICE, log)
	if err != nil {
		return nil, err
	}
	stream.ICE = agent

	if err := agent.GatherCandidates(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GatherTimeout)
	defer cancel()
	if err := agent.WaitGatherComplete(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, &gatewayerr.ICEError{Err: err}
	}
	// A gather timeout is not fatal: proceed with whatever candidates
	// were found so far (half-trickle), the same tradeoff
	// iceagent.GatherTimeout documents.

	ufrag, pwd, err := agent.LocalUserCredentials()
	if err != nil {
		return nil, err
	}
	stream.LocalICEUfrag = ufrag
	stream.LocalICEPwd = pwd
	stream.LocalCandidates = agent.GatheredCandidates()

	h.SetFlag(session.FlagHasAgent)
	switch kind {
	case "audio":
		h.SetFlag(session.FlagHasAudio)
	case "video":
		h.SetFlag(session.FlagHasVideo)
	}

	return stream, nil
}
