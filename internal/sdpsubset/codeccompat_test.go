package sdpsubset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecsCompatible(t *testing.T) {
	h264Local := RTPCodec{Name: "H264", ClockRate: 90000, FmtpLine: "packetization-mode=1;profile-level-id=42e01f"}
	h264RemoteSame := RTPCodec{Name: "H264", ClockRate: 90000, FmtpLine: "packetization-mode=1;profile-level-id=42e01f"}
	h264RemoteDiff := RTPCodec{Name: "H264", ClockRate: 90000, FmtpLine: "packetization-mode=0;profile-level-id=42e01f"}

	require.True(t, CodecsCompatible("video", h264Local, h264RemoteSame))
	require.False(t, CodecsCompatible("video", h264Local, h264RemoteDiff))

	opus := RTPCodec{Name: "opus", ClockRate: 48000, Channels: 2}
	pcmu := RTPCodec{Name: "PCMU", ClockRate: 8000, Channels: 1}
	require.False(t, CodecsCompatible("audio", opus, pcmu))
}
