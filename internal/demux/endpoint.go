package demux

import (
	"net"
	"time"

	"github.com/pion/transport/v4/packetio"
)

// Endpoint is a net.Conn backed by one Mux match class: reads drain
// the datagrams the Mux routed here, writes pass straight through to
// the shared underlying connection.
type Endpoint struct {
	mux    *Mux
	buffer *packetio.Buffer
}

// Read returns the next datagram the Mux routed to this endpoint.
func (e *Endpoint) Read(p []byte) (int, error) { return e.buffer.Read(p) }

// Write sends p on the shared underlying connection.
func (e *Endpoint) Write(p []byte) (int, error) { return e.mux.conn.Write(p) }

// Close unregisters the endpoint from its Mux.
func (e *Endpoint) Close() error {
	err := e.buffer.Close()
	e.mux.RemoveEndpoint(e)
	return err
}

func (e *Endpoint) LocalAddr() net.Addr  { return e.mux.conn.LocalAddr() }
func (e *Endpoint) RemoteAddr() net.Addr { return e.mux.conn.RemoteAddr() }

func (e *Endpoint) SetDeadline(time.Time) error      { return nil }
func (e *Endpoint) SetReadDeadline(time.Time) error  { return nil }
func (e *Endpoint) SetWriteDeadline(time.Time) error { return nil }

var _ net.Conn = (*Endpoint)(nil)
