package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pion/logging"

	"github.com/webrtcgw/gwcore/internal/appmodule"
	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
	"github.com/webrtcgw/gwcore/internal/negotiate"
	"github.com/webrtcgw/gwcore/internal/sdpsubset"
	"github.com/webrtcgw/gwcore/internal/session"
)

// signalingServer is the HTTP entry point that actually drives a
// Handle through negotiate.SetupLocal/ApplyRemoteSDP: everything
// those two operations need (a handle table, a module registry, and
// the negotiation tunables) but nothing about transport beyond plain
// JSON-over-HTTP, mirroring gtfodev-camsRelay's pkg/api.Server
// (mux.HandleFunc routes, withCORS/withLogging middleware, an
// *http.Server with fixed timeouts) rather than reaching for a router
// framework the example corpus never actually wires up.
type signalingServer struct {
	manager  *handleManager
	registry *appmodule.Registry
	negCfg   negotiate.Config
	log      logging.LeveledLogger

	httpServer *http.Server
	nextSDPVer atomic.Uint64
}

func newSignalingServer(manager *handleManager, registry *appmodule.Registry, negCfg negotiate.Config, log logging.LeveledLogger) *signalingServer {
	return &signalingServer{manager: manager, registry: registry, negCfg: negCfg, log: log}
}

// Start begins serving on addr; it returns once the listener is up or
// the server fails immediately (port already bound, etc).
func (s *signalingServer) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/handles", s.handleCreateHandle)
	mux.HandleFunc("/handles/", s.handleHandleOperation)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withLogging(s.withCORS(mux)),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully drains in-flight requests before closing the
// listener.
func (s *signalingServer) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *signalingServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *signalingServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Infof("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

type createHandleRequest struct {
	OpaqueID string `json:"opaque_id"`
	Module   string `json:"module"`
}

type createHandleResponse struct {
	HandleID uint64 `json:"handle_id"`
	OpaqueID string `json:"opaque_id"`
}

// handleCreateHandle allocates a Handle and, if a module name was
// given, attaches it immediately, exercising Handle.Attach -> the
// sink's CreateSession hook from a real request instead of only from
// a test.
func (s *signalingServer) handleCreateHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createHandleRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h := s.manager.create(req.OpaqueID)

	if req.Module != "" {
		mod, ok := s.registry.Lookup(req.Module)
		if !ok {
			s.manager.remove(h.ID())
			http.Error(w, fmt.Sprintf("unknown module %q", req.Module), http.StatusBadRequest)
			return
		}
		sink := appmodule.NewModuleSink(mod, h.ID())
		if err := h.Attach(req.Module, sink); err != nil {
			s.manager.remove(h.ID())
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
	}

	writeJSON(w, http.StatusCreated, createHandleResponse{HandleID: h.ID(), OpaqueID: h.OpaqueID()})
}

// handleHandleOperation routes /handles/{id}/{op}, following
// gtfodev-camsRelay's handleSessionOperation pattern of trimming the
// prefix and switching on the trailing path segment rather than
// reaching for a router package.
func (s *signalingServer) handleHandleOperation(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/handles/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.Error(w, "invalid handle path", http.StatusBadRequest)
		return
	}

	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "invalid handle id", http.StatusBadRequest)
		return
	}
	h, ok := s.manager.lookup(id)
	if !ok {
		http.Error(w, "unknown handle", http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "offer":
		s.handleOffer(w, r, h)
	case "candidate":
		s.handleCandidate(w, r, h)
	case "hangup":
		s.handleHangup(w, r, h)
	default:
		http.Error(w, "unknown operation", http.StatusNotFound)
	}
}

type offerRequest struct {
	SDP string `json:"sdp"`
}

type offerResponse struct {
	SDP string `json:"sdp"`
}

// handleOffer is the production call site for both
// negotiate.SetupLocal and negotiate.ApplyRemoteSDP: it allocates the
// local half of every offered media line that doesn't have one yet,
// applies the parsed remote description (which kicks off ICE/DTLS
// connection in the background), and answers with the local
// description Builder assembles from the now-negotiated streams.
func (s *signalingServer) handleOffer(w http.ResponseWriter, r *http.Request, h *session.Handle) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req offerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	desc, err := sdpsubset.Parse([]byte(req.SDP))
	if err != nil {
		http.Error(w, "malformed sdp: "+err.Error(), http.StatusBadRequest)
		return
	}
	h.SetRemoteSDP(req.SDP)

	localCodecs := map[string][]sdpsubset.RTPCodec{
		"audio": defaultLocalCodecs("audio"),
		"video": defaultLocalCodecs("video"),
	}

	for _, sec := range desc.Sections {
		if sec.Mid == "" {
			continue
		}
		if existing := h.Stream(sec.Mid); existing.ICE == nil {
			if _, err := negotiate.SetupLocal(h, sec.Mid, sec.Kind, s.negCfg, s.log); err != nil {
				s.log.Errorf("setup local failed handle=%d mid=%s: %v", h.ID(), sec.Mid, err)
				http.Error(w, "local setup failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
		}
	}

	if err := negotiate.ApplyRemoteSDP(r.Context(), h, desc, localCodecs, s.negCfg, s.log); err != nil {
		http.Error(w, "apply remote sdp failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	answer, err := s.buildAnswer(h, desc)
	if err != nil {
		s.log.Errorf("build answer failed handle=%d: %v", h.ID(), err)
		http.Error(w, "failed to build answer", http.StatusInternalServerError)
		return
	}
	h.SetLocalSDP(string(answer))

	writeJSON(w, http.StatusOK, offerResponse{SDP: string(answer)})
}

// buildAnswer renders every stream the handle has negotiated so far
// into an SDP answer, mirroring janus_ice_setup_local_sdp's use of
// the per-stream ICE/DTLS state it just finished assembling.
func (s *signalingServer) buildAnswer(h *session.Handle, remote *sdpsubset.Description) ([]byte, error) {
	answer := &sdpsubset.Description{
		BundleMids: remote.BundleMids,
		ICELite:    s.negCfg.ICE.Lite,
	}

	for _, stream := range h.Streams() {
		if stream.Cert == nil {
			continue
		}
		cert, err := x509.ParseCertificate(stream.Cert.Certificate[0])
		if err != nil {
			return nil, err
		}
		fp, err := dtlssrtp.Fingerprint(cert, "sha-256")
		if err != nil {
			return nil, err
		}

		candidates := make([]string, 0, len(stream.LocalCandidates))
		for _, c := range stream.LocalCandidates {
			candidates = append(candidates, c.Raw)
		}

		sec := sdpsubset.MediaSection{
			Mid:         stream.Mid,
			Kind:        stream.Kind,
			Direction:   directionOf(stream),
			ICEUfrag:    stream.LocalICEUfrag,
			ICEPwd:      stream.LocalICEPwd,
			Setup:       localSetupFor(stream.DTLSRole),
			Fingerprint: &sdpsubset.Fingerprint{Algorithm: "sha-256", Value: fp},
			Candidates:  candidates,
			Codecs:      stream.Codecs,
		}

		switch stream.Kind {
		case "audio":
			if stream.AudioSSRC != 0 {
				sec.SSRCs = append(sec.SSRCs, stream.AudioSSRC)
			}
			if stream.AudioRTXSSRC != 0 {
				sec.SSRCs = append(sec.SSRCs, stream.AudioRTXSSRC)
				sec.SSRCGroups = append(sec.SSRCGroups, sdpsubset.SSRCGroup{
					Semantics: "FID", SSRCs: []uint32{stream.AudioSSRC, stream.AudioRTXSSRC},
				})
			}
		case "video":
			for i, ssrc := range stream.VideoSSRC {
				if ssrc == 0 {
					continue
				}
				sec.SSRCs = append(sec.SSRCs, ssrc)
				if rtx := stream.VideoRTXSSRC[i]; rtx != 0 {
					sec.SSRCs = append(sec.SSRCs, rtx)
					sec.SSRCGroups = append(sec.SSRCGroups, sdpsubset.SSRCGroup{
						Semantics: "FID", SSRCs: []uint32{ssrc, rtx},
					})
				}
				if rid := stream.Rids[i]; rid != "" {
					sec.Rids = append(sec.Rids, rid)
				}
			}
		}

		answer.Sections = append(answer.Sections, sec)
	}

	return sdpsubset.Builder{
		SessionID:      h.ID(),
		SessionVersion: s.nextSDPVer.Add(1),
		ICELite:        s.negCfg.ICE.Lite,
	}.Build(answer)
}

// directionOf reports the a=sendrecv/sendonly/recvonly/inactive
// attribute this gateway should answer with for stream, from the
// gateway's own Send/Recv perspective (the mirror of what
// ApplyMediaSection recorded from the peer's offered direction).
func directionOf(s *session.Stream) string {
	switch {
	case s.Send && s.Recv:
		return "sendrecv"
	case s.Send:
		return "recvonly"
	case s.Recv:
		return "sendonly"
	default:
		return "inactive"
	}
}

// localSetupFor picks this gateway's own a=setup attribute from the
// DTLS role ApplyMediaSection derived from the peer's: a peer that
// offered active made us the server (answer passive), and one that
// offered passive or actpass made us the client (answer active). Only
// a role not decided yet (RoleAuto) answers actpass.
func localSetupFor(role dtlssrtp.Role) string {
	switch role {
	case dtlssrtp.RoleServer:
		return "passive"
	case dtlssrtp.RoleClient:
		return "active"
	default:
		return "actpass"
	}
}

type candidateRequest struct {
	Mid       string `json:"mid"`
	Candidate string `json:"candidate"`
}

// handleCandidate is the production call site for negotiate.AddTrickle.
func (s *signalingServer) handleCandidate(w http.ResponseWriter, r *http.Request, h *session.Handle) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Candidate == "" {
		// End-of-candidates marker: nothing further to add for this mid.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	negotiate.AddTrickle(h, req.Mid, req.Candidate, s.log)
	w.WriteHeader(http.StatusNoContent)
}

// handleHangup tears the handle's media down and removes it from the
// process-wide table.
func (s *signalingServer) handleHangup(w http.ResponseWriter, r *http.Request, h *session.Handle) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.Hangup("requested over signaling api")
	h.Free()
	s.manager.remove(h.ID())
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
