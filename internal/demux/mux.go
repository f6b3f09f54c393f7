package demux

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v4/packetio"
)

// maxBufferSize bounds how much unread data accumulates per endpoint;
// once it is reached, writes into that endpoint's buffer fail and the
// mux's read loop stops.
const maxBufferSize = 1_000_000

// MatchFunc decides whether a datagram belongs to one logical endpoint.
// Classify/IsRTCP above are the two matchers the DTLS-SRTP transport
// registers to demultiplex inbound UDP payloads by first-byte range
// into STUN, DTLS, and RTP/RTCP.
type MatchFunc func([]byte) bool

// MatchClass builds a MatchFunc for one RFC 7983 class.
func MatchClass(class Class) MatchFunc {
	return func(buf []byte) bool { return Classify(buf) == class }
}

// Mux reads datagrams off a single ICE component connection and
// fans them out to the endpoint whose MatchFunc first accepts them.
type Mux struct {
	mu        sync.RWMutex
	conn      net.Conn
	endpoints map[*Endpoint]MatchFunc
	closed    chan struct{}
	log       logging.LeveledLogger
}

// NewMux starts reading from conn (the single selected ICE pair's
// connection) and dispatching until ctx is done or conn closes.
func NewMux(ctx context.Context, conn net.Conn, log logging.LeveledLogger) *Mux {
	m := &Mux{
		conn:      conn,
		endpoints: make(map[*Endpoint]MatchFunc),
		closed:    make(chan struct{}),
		log:       log,
	}
	go m.readLoop(ctx)
	return m
}

// NewEndpoint registers a new virtual connection fed by datagrams
// matching f.
func (m *Mux) NewEndpoint(f MatchFunc) *Endpoint {
	e := &Endpoint{mux: m, buffer: packetio.NewBuffer()}
	e.buffer.SetLimitSize(maxBufferSize)

	m.mu.Lock()
	m.endpoints[e] = f
	m.mu.Unlock()
	return e
}

// RemoveEndpoint stops routing datagrams to e.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, e)
}

// Close closes every endpoint and the underlying connection.
func (m *Mux) Close() error {
	m.mu.Lock()
	for e := range m.endpoints {
		_ = e.buffer.Close()
		delete(m.endpoints, e)
	}
	m.mu.Unlock()

	err := m.conn.Close()
	<-m.closed
	return err
}

func (m *Mux) readLoop(ctx context.Context) {
	defer close(m.closed)

	buf := make([]byte, 1500)
	for {
		_ = m.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, err := m.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			return
		}
		if err := m.dispatch(ctx, buf[:n]); err != nil {
			return
		}
	}
}

func (m *Mux) dispatch(ctx context.Context, buf []byte) error {
	var endpoint *Endpoint
	m.mu.RLock()
	for e, f := range m.endpoints {
		if f(buf) {
			endpoint = e
			break
		}
	}
	m.mu.RUnlock()

	if endpoint == nil {
		if len(buf) > 0 {
			m.log.Warnf("demux: no endpoint for packet starting with %d", buf[0])
		}
		return nil
	}

	_, err := endpoint.buffer.Write(buf)
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
