// Package negotiate drives one Handle's media streams from signaling
// to a live RTP/RTCP relay: SetupLocal allocates the ICE agent and
// gathers local candidates for a new mid, ApplyRemoteSDP applies the
// peer's description and connects ICE/DTLS-SRTP, and the accept loops
// started once DTLS completes classify inbound SSRCs, answer NACKs,
// and hand payloads to the attached application module. Grounded on
// Janus's janus_ice_handle_webrtc_ready/janus_ice_process_* sequencing
// (original_source/ice.h) generalized across pion's agent/transport
// seams instead of libnice/OpenSSL.
package negotiate

import (
	"time"

	"github.com/pion/ice/v4"

	"github.com/webrtcgw/gwcore/internal/config"
	"github.com/webrtcgw/gwcore/internal/iceagent"
)

// Config carries every tunable SetupLocal, ApplyRemoteSDP, and the
// accept loops need, assembled from config.Options by FromOptions.
type Config struct {
	ICE iceagent.Config

	DTLSInsecureSkipVerify bool

	GatherTimeout  time.Duration
	ConnectTimeout time.Duration

	NACKHoldTime     time.Duration
	NACKGiveupAge    time.Duration
	NACKLoopInterval time.Duration

	RetransmitMinInterval time.Duration

	LogFloodWindow time.Duration
}

// FromOptions maps the process-wide Options struct onto the narrower
// Config this package consumes, resolving STUN/TURN URLs and skipping
// any that fail to parse rather than failing startup over one bad
// entry in an operator's configuration file.
func FromOptions(o config.Options) Config {
	return Config{
		ICE: iceagent.Config{
			Lite:        o.ICELite,
			StunServers: parseURLs(o.STUNServers),
			TurnServers: parseURLs(o.TURNServers),
			PortMin:     o.PortRangeMin,
			PortMax:     o.PortRangeMax,
		},
		GatherTimeout:         iceagent.GatherTimeout,
		ConnectTimeout:        30 * time.Second,
		NACKHoldTime:          60 * time.Millisecond,
		NACKGiveupAge:         500 * time.Millisecond,
		NACKLoopInterval:      50 * time.Millisecond,
		RetransmitMinInterval: 20 * time.Millisecond,
		LogFloodWindow:        10 * time.Second,
	}
}

func parseURLs(raw []string) []*ice.URL {
	var out []*ice.URL
	for _, r := range raw {
		u, err := ice.ParseURL(r)
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	return out
}
