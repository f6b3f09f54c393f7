package rtputil

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestWrapStripRTXRoundTrip(t *testing.T) {
	original := &rtp.Packet{
		Header: rtp.Header{
			SequenceNumber: 103,
			Timestamp:      90000,
			SSRC:           1000,
			PayloadType:    100,
		},
		Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}

	wrapped := WrapRTX(original, 2000, 101, 0)
	require.Equal(t, uint32(2000), wrapped.SSRC)
	require.Equal(t, uint8(101), wrapped.PayloadType)
	require.Equal(t, uint16(0), wrapped.SequenceNumber)

	osn, err := StripRTX(wrapped, 1000, 100)
	require.NoError(t, err)
	require.Equal(t, uint16(103), osn)
	require.Equal(t, uint32(1000), wrapped.SSRC)
	require.Equal(t, uint8(100), wrapped.PayloadType)
	require.Equal(t, uint16(103), wrapped.SequenceNumber)
	require.Equal(t, original.Payload, wrapped.Payload)
}

func TestStripRTXShortPayload(t *testing.T) {
	pkt := &rtp.Packet{Payload: []byte{0x01}}
	_, err := StripRTX(pkt, 1000, 100)
	require.ErrorIs(t, err, ErrShortRTXPayload)
}

func TestRTXPayloadTypeMap(t *testing.T) {
	m := NewRTXPayloadTypeMap()
	m.Register(101, 100)

	media, ok := m.MediaPT(101)
	require.True(t, ok)
	require.Equal(t, uint8(100), media)

	_, ok = m.MediaPT(102)
	require.False(t, ok)
}

func TestExtensionMapOverwrite(t *testing.T) {
	m := NewExtensionMap()
	m.Register(3, ExtTransportWideCC)
	id, ok := m.TransportWideCCID()
	require.True(t, ok)
	require.Equal(t, uint8(3), id)

	// Renegotiation reassigns the id; old uri lookup must not dangle.
	m.Register(5, ExtTransportWideCC)
	_, stillAt3 := m.URI(3)
	require.False(t, stillAt3)
	id, ok = m.TransportWideCCID()
	require.True(t, ok)
	require.Equal(t, uint8(5), id)
}

func TestKeyframeClassifiers(t *testing.T) {
	h264 := ClassifierForCodec("h264")
	require.True(t, h264([]byte{0x65, 0x01, 0x02})) // NALU type 5 = IDR
	require.False(t, h264([]byte{0x41, 0x01, 0x02})) // NALU type 1 = P-frame

	vp8 := ClassifierForCodec("VP8")
	require.True(t, vp8([]byte{0x00, 0x00})) // no descriptor ext, P=0
	require.False(t, vp8([]byte{0x00, 0x01}))

	unknown := ClassifierForCodec("opus")
	require.True(t, unknown([]byte{0xFF}))
}
