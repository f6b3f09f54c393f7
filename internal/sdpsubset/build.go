package sdpsubset

import (
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"
)

// Builder assembles a local Description into an SDP offer/answer,
// mirroring pion/webrtc's populateSDP/addTransceiverSDP but limited
// to the attributes this gateway negotiates.
type Builder struct {
	SessionID      uint64
	SessionVersion uint64
	ICELite        bool
}

// Build renders desc as an SDP body, in Unified-Plan-style one
// m-section per mid with its own ICE/DTLS attributes.
func (b Builder) Build(desc *Description) ([]byte, error) {
	s := &sdp.SessionDescription{
		Version: 0,
		Origin: sdp.Origin{
			Username:       "-",
			SessionID:      b.SessionID,
			SessionVersion: b.SessionVersion,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "0.0.0.0",
		},
		SessionName: "-",
		TimeDescriptions: []sdp.TimeDescription{
			{Timing: sdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}

	if len(desc.BundleMids) > 0 {
		s.WithValueAttribute("group", "BUNDLE "+strings.Join(desc.BundleMids, " "))
	}
	if b.ICELite {
		s.WithValueAttribute("ice-lite", "")
	}

	for _, section := range desc.Sections {
		media := &sdp.MediaDescription{
			MediaName: sdp.MediaName{
				Media:   section.Kind,
				Port:    sdp.RangedPort{Value: 9},
				Protos:  []string{"UDP", "TLS", "RTP", "SAVPF"},
				Formats: formatsFromCodecs(section.Codecs),
			},
			ConnectionInformation: &sdp.ConnectionInformation{
				NetworkType: "IN",
				AddressType: "IP4",
				Address:     &sdp.Address{Address: "0.0.0.0"},
			},
		}

		media.WithValueAttribute("mid", section.Mid)
		media.WithICECredentials(section.ICEUfrag, section.ICEPwd)
		if section.Setup != "" {
			media.WithValueAttribute("setup", section.Setup)
		}
		if section.Fingerprint != nil {
			media.WithFingerprint(section.Fingerprint.Algorithm, section.Fingerprint.Value)
		}
		if section.Direction != "" {
			media.WithPropertyAttribute(section.Direction)
		}
		media.WithPropertyAttribute("rtcp-mux")

		for _, codec := range section.Codecs {
			media.WithCodec(codec.PayloadType, codec.Name, codec.ClockRate, codec.Channels, codec.FmtpLine)
			for _, fb := range codec.RTCPFeedback {
				media.WithValueAttribute("rtcp-fb", fmt.Sprintf("%d %s", codec.PayloadType, fb))
			}
		}

		for _, em := range section.ExtMaps {
			media.WithValueAttribute("extmap", fmt.Sprintf("%d %s", em.ID, em.URI))
		}

		for _, ssrc := range section.SSRCs {
			media.WithValueAttribute("ssrc", fmt.Sprintf("%d", ssrc))
		}
		for _, g := range section.SSRCGroups {
			parts := []string{g.Semantics}
			for _, ssrc := range g.SSRCs {
				parts = append(parts, fmt.Sprintf("%d", ssrc))
			}
			media.WithValueAttribute("ssrc-group", strings.Join(parts, " "))
		}
		for _, rid := range section.Rids {
			media.WithValueAttribute("rid", rid+" recv")
		}

		for _, c := range section.Candidates {
			media.WithValueAttribute("candidate", c)
		}
		if section.EndOfCands {
			media.WithPropertyAttribute("end-of-candidates")
		}

		s.WithMedia(media)
	}

	return s.Marshal()
}

func formatsFromCodecs(codecs []RTPCodec) []string {
	if len(codecs) == 0 {
		return []string{"0"}
	}
	formats := make([]string, len(codecs))
	for i, c := range codecs {
		formats[i] = fmt.Sprintf("%d", c.PayloadType)
	}
	return formats
}
