// Package iceagent wraps github.com/pion/ice/v4 into the subset of
// behavior one gateway component needs: gather, trickle emit/receive,
// connect, and report the selected pair, generalized from
// pion/webrtc's icetransport.go/icegatherer.go (a PeerConnection-scoped
// ORTC transport) down to a single component's lifecycle.
package iceagent

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/ice/v4"
	"github.com/pion/logging"

	"github.com/webrtcgw/gwcore/internal/gatewayerr"
)

// Role mirrors ICE's controlling/controlled distinction.
type Role int

const (
	RoleControlled Role = iota
	RoleControlling
)

// Config carries the subset of ICE tunables the gateway core exposes;
// internal/config.Options maps onto this.
type Config struct {
	Lite               bool
	TCPMux             ice.TCPMux
	UDPMux             ice.UDPMux
	StunServers        []*ice.URL
	TurnServers        []*ice.URL
	PortMin, PortMax   uint16
	InterfaceFilter    func(string) bool
	NetworkTypes       []ice.NetworkType
	InsecureSkipVerify bool
}

// Candidate is a local or remote ICE candidate in the SDP form the
// rest of the gateway exchanges (a=candidate lines), decoupled from
// pion/ice's in-process Candidate type so trickle messages can be
// buffered and replayed without holding a live *ice.Agent reference.
type Candidate struct {
	Raw       string
	SDPMid    string
	SDPMLineI int
}

// Agent wraps one pion/ice Agent bound to a single ICE component.
type Agent struct {
	mu sync.RWMutex

	agent *ice.Agent
	role  Role
	conn  *ice.Conn

	gatheredCandidates []Candidate

	gatherDone     chan struct{}
	gatherDoneOnce sync.Once

	log logging.LeveledLogger

	onCandidate             func(Candidate)
	onConnectionStateChange func(ice.ConnectionState)
	onSelectedPairChange    func(local, remote ice.CandidatePairStat)
}

// New constructs a pion/ice Agent from cfg and wraps it.
func New(cfg Config, log logging.LeveledLogger) (*Agent, error) {
	agentConfig := &ice.AgentConfig{
		Lite:             cfg.Lite,
		TCPMux:           cfg.TCPMux,
		UDPMux:           cfg.UDPMux,
		Urls:             append(append([]*ice.URL{}, cfg.StunServers...), cfg.TurnServers...),
		NetworkTypes:     cfg.NetworkTypes,
		PortMin:          cfg.PortMin,
		PortMax:          cfg.PortMax,
		LoggerFactory:    singleLoggerFactory{log},
		InterfaceFilter:  cfg.InterfaceFilter,
	}

	iceAgent, err := ice.NewAgent(agentConfig)
	if err != nil {
		return nil, &gatewayerr.ICEError{Err: err}
	}

	a := &Agent{agent: iceAgent, log: log, gatherDone: make(chan struct{})}

	if err := iceAgent.OnCandidate(func(c ice.Candidate) {
		if c == nil {
			// nil is pion/ice's sentinel for "gathering complete".
			a.gatherDoneOnce.Do(func() { close(a.gatherDone) })
			return
		}
		a.handleLocalCandidate(c)
	}); err != nil {
		return nil, &gatewayerr.ICEError{Err: err}
	}

	if err := iceAgent.OnConnectionStateChange(func(s ice.ConnectionState) {
		a.mu.RLock()
		hdlr := a.onConnectionStateChange
		a.mu.RUnlock()
		if hdlr != nil {
			hdlr(s)
		}
	}); err != nil {
		return nil, &gatewayerr.ICEError{Err: err}
	}

	return a, nil
}

func (a *Agent) handleLocalCandidate(c ice.Candidate) {
	cand := Candidate{Raw: "candidate:" + c.Marshal()}

	a.mu.Lock()
	a.gatheredCandidates = append(a.gatheredCandidates, cand)
	hdlr := a.onCandidate
	a.mu.Unlock()

	if hdlr != nil {
		hdlr(cand)
	}
}

// OnCandidate registers the trickle-emit callback fired for each
// locally gathered candidate.
func (a *Agent) OnCandidate(f func(Candidate)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onCandidate = f
}

// OnConnectionStateChange registers the callback fired on ICE state
// transitions (checking, connected, disconnected, failed, closed).
func (a *Agent) OnConnectionStateChange(f func(ice.ConnectionState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onConnectionStateChange = f
}

// GatherCandidates begins asynchronous host/srflx/relay candidate
// gathering; completion and individual candidates surface via
// OnCandidate.
func (a *Agent) GatherCandidates() error {
	if err := a.agent.GatherCandidates(); err != nil {
		return &gatewayerr.ICEError{Err: err}
	}
	return nil
}

// WaitGatherComplete blocks until pion/ice signals that candidate
// gathering has finished (its nil-candidate convention) or ctx is
// canceled.
func (a *Agent) WaitGatherComplete(ctx context.Context) error {
	a.mu.RLock()
	done := a.gatherDone
	a.mu.RUnlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GatheredCandidates returns every local candidate gathered so far, in
// gathering order, for building the initial local SDP once gathering
// completes (or a subset of it, for half-trickle answers).
func (a *Agent) GatheredCandidates() []Candidate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Candidate{}, a.gatheredCandidates...)
}

// LocalUserCredentials returns this agent's ufrag/pwd for the local
// SDP's a=ice-ufrag/a=ice-pwd lines.
func (a *Agent) LocalUserCredentials() (frag, pwd string, err error) {
	frag, pwd, err = a.agent.GetLocalUserCredentials()
	if err != nil {
		return "", "", &gatewayerr.ICEError{Err: err}
	}
	return frag, pwd, nil
}

// AddRemoteCandidate injects one trickled or bundled remote candidate.
func (a *Agent) AddRemoteCandidate(c ice.Candidate) error {
	if err := a.agent.AddRemoteCandidate(c); err != nil {
		return &gatewayerr.ICEError{Err: err}
	}
	return nil
}

// Connect blocks until connectivity checks establish a pair, dialing
// as controlling or accepting as controlled depending on role.
func (a *Agent) Connect(ctx context.Context, role Role, remoteUfrag, remotePwd string) (net.Conn, error) {
	a.mu.Lock()
	a.role = role
	a.mu.Unlock()

	var conn *ice.Conn
	var err error
	if role == RoleControlling {
		conn, err = a.agent.Dial(ctx, remoteUfrag, remotePwd)
	} else {
		conn, err = a.agent.Accept(ctx, remoteUfrag, remotePwd)
	}
	if err != nil {
		return nil, &gatewayerr.ICEError{Err: err}
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	return conn, nil
}

// Restart generates a fresh local ufrag/pwd for an ICE restart, and
// per ResendTrickles, the caller should then re-emit every candidate
// already gathered under the new credentials.
func (a *Agent) Restart(ufrag, pwd string) error {
	if err := a.agent.Restart(ufrag, pwd); err != nil {
		return &gatewayerr.ICEError{Err: err}
	}
	a.mu.Lock()
	a.gatherDone = make(chan struct{})
	a.gatherDoneOnce = sync.Once{}
	a.mu.Unlock()
	return nil
}

// ResendTrickles re-emits every candidate gathered so far through
// OnCandidate, for use immediately after Restart so a peer that only
// tracks newly-trickled candidates still learns about all of them
// under the refreshed credentials.
func (a *Agent) ResendTrickles() {
	a.mu.RLock()
	hdlr := a.onCandidate
	candidates := append([]Candidate{}, a.gatheredCandidates...)
	a.mu.RUnlock()

	if hdlr == nil {
		return
	}
	for _, c := range candidates {
		hdlr(c)
	}
}

// SelectedPair returns the currently selected local/remote candidate
// pair, if connectivity checks have completed.
func (a *Agent) SelectedPair() (*ice.CandidatePair, error) {
	pair, err := a.agent.GetSelectedCandidatePair()
	if err != nil {
		return nil, &gatewayerr.ICEError{Err: err}
	}
	if pair == nil {
		return nil, errors.New("iceagent: no candidate pair selected yet")
	}
	return pair, nil
}

// Close releases the agent and any established connection.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.agent.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &gatewayerr.ICEError{Err: errs[0]}
	}
	return nil
}

type singleLoggerFactory struct{ log logging.LeveledLogger }

func (f singleLoggerFactory) NewLogger(string) logging.LeveledLogger { return f.log }

// GatherTimeout is the default for negotiate's Config.GatherTimeout:
// the maximum time negotiate.SetupLocal waits for candidate gathering
// to settle before proceeding with whatever candidates were found.
const GatherTimeout = 5 * time.Second
