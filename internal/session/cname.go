package session

import "github.com/pion/randutil"

const cnameLength = 24

// generateCNAME produces the locally-generated RTCP SDES CNAME a
// Handle's streams share, grounded on the original SDP/RTCP session
// association needing one stable per-source identifier, the same
// random-string need pion/webrtc covers internally with pion/randutil.
func generateCNAME() (string, error) {
	return randutil.NewMathRandomGenerator().GenerateString(cnameLength, randutil.CharsetAlpha)
}
