package negotiate

import (
	"context"
	"time"

	"github.com/webrtcgw/gwcore/internal/demux"
	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
	"github.com/webrtcgw/gwcore/internal/gatewaylog"
	"github.com/webrtcgw/gwcore/internal/iceagent"
	"github.com/webrtcgw/gwcore/internal/sendqueue"
	"github.com/webrtcgw/gwcore/internal/session"
)

// connectStream drives one stream from "remote description applied"
// to "relaying media": ICE connectivity checks select a pair, the
// resulting net.Conn is demultiplexed into DTLS/SRTP/SRTCP classes,
// the DTLS handshake runs and derives the SRTP keys, and finally the
// send worker and inbound accept loops start. Meant to run in its own
// goroutine; every failure path ends in Hangup rather than a returned
// error, since nothing is left to receive one.
func connectStream(ctx context.Context, h *session.Handle, s *session.Stream, cfg Config, log gatewaylog.Logger) {
	flood := gatewaylog.NewFlood(log, cfg.LogFloodWindow)

	role := iceagent.RoleControlled
	if s.DTLSRole == dtlssrtp.RoleClient {
		// We'll answer the DTLS handshake as client, which mirrors being
		// the ICE-controlling side in this gateway's pairing convention.
		role = iceagent.RoleControlling
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.ICE.Connect(connectCtx, role, s.RemoteICEUfrag, s.RemoteICEPwd)
	if err != nil {
		if !s.NoErrorLog() {
			log.Errorf("negotiate: ice connect failed mid=%s: %v", s.Mid, err)
			s.SetNoErrorLog(true)
		}
		h.Hangup("ice connection failed")
		return
	}
	s.Component().MarkConnected(time.Now())

	mux := demux.NewMux(ctx, conn, log)
	transport, err := dtlssrtp.New(mux, dtlssrtp.Config{
		Certificate:        s.Cert,
		InsecureSkipVerify: cfg.DTLSInsecureSkipVerify,
	}, log)
	if err != nil {
		log.Errorf("negotiate: dtls transport setup failed mid=%s: %v", s.Mid, err)
		h.Hangup("dtls setup failed")
		return
	}
	s.DTLS = transport

	dtlsRole := s.DTLSRole
	if dtlsRole == dtlssrtp.RoleAuto {
		dtlsRole = dtlssrtp.RoleClient
	}
	var remoteFP []dtlssrtp.Fingerprints
	if s.RemoteFingerprint != nil {
		remoteFP = []dtlssrtp.Fingerprints{*s.RemoteFingerprint}
	}

	if err := transport.Start(ctx, dtlsRole, remoteFP, cfg.DTLSInsecureSkipVerify); err != nil {
		if !s.NoErrorLog() {
			log.Errorf("negotiate: dtls handshake failed mid=%s: %v", s.Mid, err)
			s.SetNoErrorLog(true)
		}
		h.Hangup("dtls handshake failed")
		return
	}
	s.SetNoErrorLog(false)
	h.SetFlag(session.FlagReady)
	h.SetupMedia()

	worker := sendqueue.NewWorker(h, sendqueue.TransportWriter{Transport: transport}, log)
	worker.OnError(func(err error) {
		flood.Warnf("send-"+s.Mid, "negotiate: send worker write failed mid=%s: %v", s.Mid, err)
	})
	go func() { _ = worker.Run(ctx) }()

	go acceptRTPLoop(ctx, h, s, flood)
	go acceptRTCPLoop(ctx, h, s, flood)
	go nackLoop(ctx, h, s, cfg)
}
