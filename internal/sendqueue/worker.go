// Package sendqueue runs the per-handle outbound worker that drains
// queued packets and hands them to a handle's DTLS-SRTP transport,
// grounded on Janus's send_thread/queued_packets pair (ice.h) and on
// the pion-webrtc port's sendRTP serializing all writes for a port
// through one lock before touching the wire.
package sendqueue

import (
	"context"
	"errors"

	"github.com/pion/logging"

	"github.com/webrtcgw/gwcore/internal/session"
)

// ErrNoWriter is returned when a worker is started before a Writer
// has been supplied for its handle.
var ErrNoWriter = errors.New("sendqueue: no writer configured")

// Writer is the minimal transport surface a worker needs: encrypt
// and put a packet on the wire. internal/dtlssrtp.Transport satisfies
// this with its WriteRTP/WriteRTCP methods via the adapter in
// writer.go.
type Writer interface {
	WriteRTP(payload []byte) error
	WriteRTCP(payload []byte) error
}

// Worker drains one handle's outbound channel and writes every packet
// through its Writer, single-threaded per handle so SRTP sequence
// state and the underlying socket never see concurrent writers.
type Worker struct {
	handle *session.Handle
	writer Writer
	log    logging.LeveledLogger

	onError func(error)
}

// NewWorker builds a worker for handle, writing through w. log may be
// nil, in which case errors are only surfaced via onError if set.
func NewWorker(handle *session.Handle, w Writer, log logging.LeveledLogger) *Worker {
	return &Worker{handle: handle, writer: w, log: log}
}

// OnError installs a callback invoked whenever a write fails; absent
// a callback, write errors are only logged.
func (w *Worker) OnError(f func(error)) { w.onError = f }

// Run drains the handle's outbound channel until it's closed (via
// Handle.Free) or ctx is canceled. It returns nil in both cases; it
// is meant to run in its own goroutine, started once per handle the
// first time a packet is queued, mirroring send_thread_created's
// create-once guard.
func (w *Worker) Run(ctx context.Context) error {
	if w.writer == nil {
		return ErrNoWriter
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-w.handle.Outbound():
			if !ok {
				return nil
			}
			w.deliver(pkt)
		}
	}
}

func (w *Worker) deliver(pkt session.OutboundPacket) {
	var err error
	if pkt.IsRTCP {
		err = w.writer.WriteRTCP(pkt.Data)
	} else {
		err = w.writer.WriteRTP(pkt.Data)
	}
	if err == nil {
		return
	}
	if w.onError != nil {
		w.onError(err)
	}
	if w.log != nil {
		w.log.Warnf("sendqueue: write failed: %v", err)
	}
}
