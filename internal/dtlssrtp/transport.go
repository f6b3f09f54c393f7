// Package dtlssrtp drives the DTLS handshake over a muxed ICE
// connection and derives the SRTP/SRTCP sessions that relay RTP/RTCP,
// grounded on pion/webrtc's dtlstransport.go generalized from a
// PeerConnection-scoped transport into one bound to a single
// component's ICE connection.
package dtlssrtp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"
	"github.com/pion/rtp"
	"github.com/pion/srtp/v3"

	"github.com/webrtcgw/gwcore/internal/demux"
	"github.com/webrtcgw/gwcore/internal/gatewayerr"
)

// State is the lifecycle of one Transport.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "new"
	}
}

// Transport owns the DTLS handshake and the SRTP/SRTCP sessions keyed
// from it, for one ICE component's muxed connection.
type Transport struct {
	mu sync.RWMutex

	cert *tls.Certificate

	mux            *demux.Mux
	dtlsEndpoint   *demux.Endpoint
	srtpEndpoint   *demux.Endpoint
	srtcpEndpoint  *demux.Endpoint

	conn *dtls.Conn

	srtpSession  *srtp.SessionSRTP
	srtcpSession *srtp.SessionSRTCP

	state             State
	remoteFingerprint []Fingerprints
	remoteCert        *x509.Certificate

	log logging.LeveledLogger

	onStateChange func(State)
}

// Config configures a Transport's DTLS handshake.
type Config struct {
	// Certificate, if nil, is generated fresh (ECDSA P-256).
	Certificate *tls.Certificate
	// InsecureSkipVerify disables fingerprint verification, for testing
	// against peers that don't support DTLS-SRTP fingerprinting.
	InsecureSkipVerify bool
}

// New builds a Transport over mux, which must already be demultiplexing
// the STUN/RTP classes elsewhere; this constructor claims the DTLS,
// SRTP and SRTCP match classes for itself.
func New(m *demux.Mux, cfg Config, log logging.LeveledLogger) (*Transport, error) {
	cert := cfg.Certificate
	if cert == nil {
		generated, err := GenerateSelfSigned()
		if err != nil {
			return nil, &gatewayerr.DTLSError{Err: err}
		}
		cert = generated
	}

	t := &Transport{
		cert:          cert,
		mux:           m,
		dtlsEndpoint:  m.NewEndpoint(demux.MatchClass(demux.ClassDTLS)),
		srtpEndpoint:  m.NewEndpoint(srtpMatch),
		srtcpEndpoint: m.NewEndpoint(srtcpMatch),
		state:         StateNew,
		log:           log,
	}
	return t, nil
}

// srtpMatch and srtcpMatch split RFC 5761 muxed RTP-class traffic
// between the two sessions pion/srtp expects as distinct endpoints.
func srtpMatch(buf []byte) bool {
	return demux.Classify(buf) == demux.ClassRTP && !demux.IsRTCP(buf)
}

func srtcpMatch(buf []byte) bool {
	return demux.Classify(buf) == demux.ClassRTP && demux.IsRTCP(buf)
}

// GenerateSelfSigned builds a fresh ECDSA P-256 certificate suitable
// for a Transport's Config.Certificate. Exported so a caller can mint
// a certificate (and read its fingerprint) before the ICE connection
// that will carry the DTLS handshake exists, for placing the
// fingerprint into a local SDP offer/answer.
func GenerateSelfSigned() (*tls.Certificate, error) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber(),
		Subject:      x509PKIXName(),
		NotBefore:    time.Now().Add(-24 * time.Hour),
		NotAfter:     time.Now().Add(10 * 365 * 24 * time.Hour),
	}

	raw, err := x509.CreateCertificate(rand.Reader, template, template, &sk.PublicKey, sk)
	if err != nil {
		return nil, err
	}

	return &tls.Certificate{
		Certificate: [][]byte{raw},
		PrivateKey:  sk,
	}, nil
}

// OnStateChange registers a handler fired whenever the transport's
// State changes.
func (t *Transport) OnStateChange(f func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStateChange = f
}

func (t *Transport) setState(s State) {
	t.state = s
	if t.onStateChange != nil {
		t.onStateChange(s)
	}
}

// State returns the transport's current lifecycle state.
func (t *Transport) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// LocalFingerprint returns this transport's certificate fingerprint
// under algo, to be placed in the local SDP's a=fingerprint line.
func (t *Transport) LocalFingerprint(algo string) (string, error) {
	x509Cert, err := x509.ParseCertificate(t.cert.Certificate[0])
	if err != nil {
		return "", &gatewayerr.DTLSError{Err: err}
	}
	return Fingerprint(x509Cert, algo)
}

// Start performs the blocking DTLS handshake as role, verifies the
// resulting certificate against remoteFingerprints unless
// InsecureSkipVerify was set, and derives the SRTP/SRTCP sessions.
// Callers must not hold locks while invoking this, since the handshake
// blocks on network I/O.
func (t *Transport) Start(ctx context.Context, role Role, remoteFingerprints []Fingerprints, insecureSkipVerify bool) error {
	t.mu.Lock()
	t.remoteFingerprint = remoteFingerprints
	t.setState(StateConnecting)
	t.mu.Unlock()

	cfg := &dtls.Config{
		Certificates:           []tls.Certificate{*t.cert},
		SRTPProtectionProfiles: []dtls.SRTPProtectionProfile{dtls.SRTP_AES128_CM_HMAC_SHA1_80},
		ClientAuth:             dtls.RequireAnyClientCert,
		LoggerFactory:          loggerFactory{t.log},
		InsecureSkipVerify:     true, // we verify the fingerprint ourselves below
	}

	var conn *dtls.Conn
	var err error
	switch role {
	case RoleServer:
		conn, err = dtls.ServerWithContext(ctx, t.dtlsEndpoint, cfg)
	default:
		conn, err = dtls.ClientWithContext(ctx, t.dtlsEndpoint, cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.setState(StateFailed)
		return &gatewayerr.DTLSError{Err: err}
	}
	t.conn = conn

	if !insecureSkipVerify {
		state := conn.ConnectionState()
		if len(state.PeerCertificates) == 0 {
			t.setState(StateFailed)
			return &gatewayerr.DTLSError{Err: errors.New("peer presented no certificate")}
		}
		remoteCert, parseErr := x509.ParseCertificate(state.PeerCertificates[0])
		if parseErr != nil {
			t.setState(StateFailed)
			return &gatewayerr.DTLSError{Err: parseErr}
		}
		t.remoteCert = remoteCert

		if verifyErr := Verify(remoteCert, remoteFingerprints); verifyErr != nil {
			t.setState(StateFailed)
			return &gatewayerr.DTLSError{Err: verifyErr}
		}
	}

	if err := t.startSRTPLocked(role == RoleClient); err != nil {
		t.setState(StateFailed)
		return err
	}

	t.setState(StateConnected)
	return nil
}

func (t *Transport) startSRTPLocked(isClient bool) error {
	srtpConfig := &srtp.Config{
		Profile:       srtp.ProtectionProfileAes128CmHmacSha1_80,
		LoggerFactory: loggerFactory{t.log},
	}

	if err := srtpConfig.ExtractSessionKeysFromDTLS(t.conn, isClient); err != nil {
		return &gatewayerr.SRTPError{Err: fmt.Errorf("extract session keys: %w", err)}
	}

	srtpSession, err := srtp.NewSessionSRTP(t.srtpEndpoint, srtpConfig)
	if err != nil {
		return &gatewayerr.SRTPError{Err: fmt.Errorf("start srtp: %w", err)}
	}

	srtcpSession, err := srtp.NewSessionSRTCP(t.srtcpEndpoint, srtpConfig)
	if err != nil {
		return &gatewayerr.SRTPError{Err: fmt.Errorf("start srtcp: %w", err)}
	}

	t.srtpSession = srtpSession
	t.srtcpSession = srtcpSession
	return nil
}

// WriteRTP protects and sends an RTP packet on its write stream.
func (t *Transport) WriteRTP(header *rtp.Header, payload []byte) (int, error) {
	t.mu.RLock()
	session := t.srtpSession
	t.mu.RUnlock()
	if session == nil {
		return 0, &gatewayerr.SRTPError{Err: errors.New("srtp session not established")}
	}
	stream, err := session.OpenWriteStream()
	if err != nil {
		return 0, &gatewayerr.SRTPError{Err: err}
	}
	return stream.WriteRTP(header, payload)
}

// WriteRTCP protects and sends a raw RTCP packet.
func (t *Transport) WriteRTCP(payload []byte) (int, error) {
	t.mu.RLock()
	session := t.srtcpSession
	t.mu.RUnlock()
	if session == nil {
		return 0, &gatewayerr.SRTPError{Err: errors.New("srtcp session not established")}
	}
	stream, err := session.OpenWriteStream()
	if err != nil {
		return 0, &gatewayerr.SRTPError{Err: err}
	}
	return stream.Write(payload)
}

// RTPReadStream is the read half of one inbound SRTP stream, narrowed
// from srtp.ReadStreamSRTP so callers outside this package don't need
// to import pion/srtp.
type RTPReadStream interface {
	ReadRTP([]byte) (int, *rtp.Header, error)
	Close() error
}

// RTCPReadStream is the read half of one inbound SRTCP stream.
type RTCPReadStream interface {
	Read([]byte) (int, error)
	Close() error
}

// AcceptRTP blocks until the peer opens a new inbound SRTP stream
// (identified by its SSRC) and returns a reader for it. Each SSRC the
// peer sends gets exactly one stream; callers loop on AcceptRTP to
// learn about new SSRCs as simulcast layers or renegotiated sources
// start sending.
func (t *Transport) AcceptRTP() (RTPReadStream, uint32, error) {
	t.mu.RLock()
	session := t.srtpSession
	t.mu.RUnlock()
	if session == nil {
		return nil, 0, &gatewayerr.SRTPError{Err: errors.New("srtp session not established")}
	}
	stream, err := session.AcceptStream()
	if err != nil {
		return nil, 0, &gatewayerr.SRTPError{Err: err}
	}
	return stream, stream.GetSSRC(), nil
}

// AcceptRTCP blocks until the peer opens a new inbound SRTCP stream
// and returns a reader for it.
func (t *Transport) AcceptRTCP() (RTCPReadStream, uint32, error) {
	t.mu.RLock()
	session := t.srtcpSession
	t.mu.RUnlock()
	if session == nil {
		return nil, 0, &gatewayerr.SRTPError{Err: errors.New("srtcp session not established")}
	}
	stream, err := session.AcceptStream()
	if err != nil {
		return nil, 0, &gatewayerr.SRTPError{Err: err}
	}
	return stream, stream.GetSSRC(), nil
}

// Close tears down the SRTP/SRTCP sessions and the DTLS connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	if t.srtpSession != nil {
		if err := t.srtpSession.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.srtcpSession != nil {
		if err := t.srtcpSession.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.setState(StateClosed)

	if len(errs) > 0 {
		return &gatewayerr.DTLSError{Err: errs[0]}
	}
	return nil
}
