// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package fmtp

type h264FMTP struct {
	parameters map[string]string
}

func (h *h264FMTP) MimeType() string {
	return "video/h264"
}

// Match compares two H.264 fmtp descriptions for compatibility per
// RFC 6184: packetization-mode must match exactly, and profile-level-id
// must agree on profile_idc and profile_iop (the constraint bits); the
// level byte is not compared, since level negotiation falls to the
// lower of the two.
func (h *h264FMTP) Match(b FMTP) bool {
	c, ok := b.(*h264FMTP)
	if !ok {
		return false
	}

	if h.parameter("packetization-mode") != c.parameter("packetization-mode") {
		return false
	}

	hProfile, hOK := h264ProfileIOP(h.parameters["profile-level-id"])
	cProfile, cOK := h264ProfileIOP(c.parameters["profile-level-id"])
	if hOK != cOK {
		return false
	}
	if hOK && hProfile != cProfile {
		return false
	}

	return true
}

func (h *h264FMTP) Parameter(key string) (string, bool) {
	v, ok := h.parameters[key]
	return v, ok
}

func (h *h264FMTP) parameter(key string) string {
	return h.parameters[key]
}

// h264ProfileIOP returns the first four hex characters of a
// profile-level-id (profile_idc plus profile-iop constraint bits),
// ignoring the trailing level_idc byte.
func h264ProfileIOP(profileLevelID string) (string, bool) {
	if len(profileLevelID) < 4 {
		return "", false
	}
	return profileLevelID[:4], true
}
