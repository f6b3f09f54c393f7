package dtlssrtp

import (
	"crypto/sha1" //nolint:gosec // fingerprint algorithm negotiated by the peer, not chosen by us
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// ErrUnknownFingerprintAlgorithm is returned by Fingerprint for an
// algorithm name not present in digesters.
var ErrUnknownFingerprintAlgorithm = errors.New("dtlssrtp: unknown fingerprint algorithm")

// ErrNoMatchingFingerprint is returned when none of the fingerprints a
// remote description offered match the certificate a DTLS handshake
// actually presented.
var ErrNoMatchingFingerprint = errors.New("dtlssrtp: no matching fingerprint")

var digesters = map[string]func() hash.Hash{
	"sha-1":   sha1.New,
	"sha-256": sha256.New,
	"sha-384": sha512.New384,
	"sha-512": sha512.New,
}

// Fingerprint computes the colon-separated hex fingerprint of cert
// under algo, in the form SDP's a=fingerprint line carries it
// ("AB:CD:EF:...").
func Fingerprint(cert *x509.Certificate, algo string) (string, error) {
	newHash, ok := digesters[strings.ToLower(algo)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFingerprintAlgorithm, algo)
	}

	h := newHash()
	h.Write(cert.Raw)
	sum := h.Sum(nil)

	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":"), nil
}

// Fingerprints pairs a fingerprint value with the algorithm it was
// computed under, mirroring one a=fingerprint attribute.
type Fingerprints struct {
	Algorithm string
	Value     string
}

// Verify reports whether cert matches any of the offered fingerprints.
func Verify(cert *x509.Certificate, offered []Fingerprints) error {
	for _, fp := range offered {
		actual, err := Fingerprint(cert, fp.Algorithm)
		if err != nil {
			continue
		}
		if strings.EqualFold(actual, fp.Value) {
			return nil
		}
	}
	return ErrNoMatchingFingerprint
}
