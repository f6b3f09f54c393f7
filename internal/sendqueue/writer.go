package sendqueue

import (
	"github.com/pion/rtp"

	"github.com/webrtcgw/gwcore/internal/dtlssrtp"
)

// TransportWriter adapts a *dtlssrtp.Transport, whose WriteRTP wants a
// parsed header and payload separately, to the Writer interface, which
// deals in already-marshaled wire packets as queued by a Handle.
type TransportWriter struct {
	Transport *dtlssrtp.Transport
}

// WriteRTP unmarshals a wire-format RTP packet and forwards it to the
// underlying transport for encryption and transmission.
func (tw TransportWriter) WriteRTP(payload []byte) error {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(payload); err != nil {
		return err
	}
	_, err := tw.Transport.WriteRTP(&pkt.Header, pkt.Payload)
	return err
}

// WriteRTCP forwards an already-compound RTCP packet to the
// underlying transport.
func (tw TransportWriter) WriteRTCP(payload []byte) error {
	_, err := tw.Transport.WriteRTCP(payload)
	return err
}
