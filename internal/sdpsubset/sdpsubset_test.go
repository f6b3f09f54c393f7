package sdpsubset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleOffer = `v=0
o=- 1 1 IN IP4 0.0.0.0
s=-
t=0 0
a=group:BUNDLE 0
m=audio 9 UDP/TLS/RTP/SAVPF 111
c=IN IP4 0.0.0.0
a=mid:0
a=ice-ufrag:abcd
a=ice-pwd:abcdefghijklmnopqrstuvwx
a=fingerprint:sha-256 AA:BB:CC
a=setup:actpass
a=sendrecv
a=rtpmap:111 opus/48000/2
a=fmtp:111 minptime=10
a=rtcp-fb:111 transport-cc
a=extmap:1 urn:ietf:params:rtp-hdrext:ssrc-audio-level
a=ssrc:1234 cname:stream0
a=candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host
`

func TestParseExtractsMediaSection(t *testing.T) {
	desc, err := Parse([]byte(sampleOffer))
	require.NoError(t, err)
	require.Len(t, desc.Sections, 1)

	s := desc.Sections[0]
	require.Equal(t, "0", s.Mid)
	require.Equal(t, "audio", s.Kind)
	require.Equal(t, "abcd", s.ICEUfrag)
	require.Equal(t, "actpass", s.Setup)
	require.Equal(t, "sendrecv", s.Direction)
	require.Len(t, s.Codecs, 1)
	require.Equal(t, "opus", s.Codecs[0].Name)
	require.Equal(t, "minptime=10", s.Codecs[0].FmtpLine)
	require.Contains(t, s.Codecs[0].RTCPFeedback, "transport-cc")
	require.Len(t, s.ExtMaps, 1)
	require.Contains(t, s.SSRCs, uint32(1234))
	require.Len(t, s.Candidates, 1)

	fp, err := desc.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, "sha-256", fp.Algorithm)
}

func TestBuildRoundTripsMid(t *testing.T) {
	desc := &Description{
		BundleMids: []string{"0"},
		Sections: []MediaSection{
			{
				Mid:      "0",
				Kind:     "audio",
				ICEUfrag: "abcd",
				ICEPwd:   "abcdefghijklmnopqrstuvwx",
				Setup:    "actpass",
				Fingerprint: &Fingerprint{Algorithm: "sha-256", Value: "AA:BB:CC"},
				Codecs: []RTPCodec{{PayloadType: 111, Name: "opus", ClockRate: 48000, Channels: 2}},
			},
		},
	}

	raw, err := Builder{SessionID: 1, SessionVersion: 1}.Build(desc)
	require.NoError(t, err)

	reparsed, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, reparsed.Sections, 1)
	require.Equal(t, "0", reparsed.Sections[0].Mid)
	require.Equal(t, "opus", reparsed.Sections[0].Codecs[0].Name)
}
