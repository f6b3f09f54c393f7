package main

import "github.com/webrtcgw/gwcore/internal/sdpsubset"

// defaultLocalCodecs is the fixed codec preference list this daemon
// offers for each media kind. A gateway with per-module codec policy
// would source this from config.Options instead; this module offers
// one fixed set, mirroring how most Janus deployments run with a
// single compiled-in codec preference rather than per-room tuning.
func defaultLocalCodecs(kind string) []sdpsubset.RTPCodec {
	switch kind {
	case "audio":
		return []sdpsubset.RTPCodec{
			{PayloadType: 111, Name: "opus", ClockRate: 48000, Channels: 2},
		}
	case "video":
		return []sdpsubset.RTPCodec{
			{PayloadType: 96, Name: "vp8", ClockRate: 90000,
				RTCPFeedback: []string{"nack", "nack pli", "goog-remb", "ccm fir"}},
			{PayloadType: 97, Name: "rtx", ClockRate: 90000, FmtpLine: "apt=96"},
		}
	default:
		return nil
	}
}
