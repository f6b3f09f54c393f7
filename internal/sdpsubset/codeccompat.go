package sdpsubset

import (
	"fmt"
	"strings"

	"github.com/webrtcgw/gwcore/internal/fmtp"
)

// MimeType reconstructs the "type/subtype" form fmtp.Parse expects
// from an RTPCodec's bare encoding name and the media kind it was
// negotiated under.
func (c RTPCodec) MimeType(kind string) string {
	return fmt.Sprintf("%s/%s", kind, strings.ToLower(c.Name))
}

// CodecsCompatible reports whether a locally offered codec and a
// remotely answered codec for the same kind are fmtp-compatible: the
// names must match; H.264 then compares packetization-mode and
// profile-level-id, VP9/AV1 compare their profile, and every other
// codec compares clock rate, channel count and all fmtp parameters
// (the H.264/VP9/AV1 checks ignore clock rate and channels). This is the
// check a gateway runs before accepting an answer's payload-type
// mapping for a codec it offered multiple profiles of.
func CodecsCompatible(kind string, local, remote RTPCodec) bool {
	if !strings.EqualFold(local.Name, remote.Name) {
		return false
	}
	mime := local.MimeType(kind)
	a := fmtp.Parse(mime, local.ClockRate, local.Channels, local.FmtpLine)
	b := fmtp.Parse(mime, remote.ClockRate, remote.Channels, remote.FmtpLine)
	return a.Match(b)
}
