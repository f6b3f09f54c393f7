package dtlssrtp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleFromSetup(t *testing.T) {
	require.Equal(t, RoleServer, RoleFromSetup("active"))
	require.Equal(t, RoleClient, RoleFromSetup("passive"))
	require.Equal(t, RoleClient, RoleFromSetup("actpass"))
	require.Equal(t, RoleAuto, RoleFromSetup("garbage"))
}

func TestFingerprintAndVerify(t *testing.T) {
	cert, err := GenerateSelfSigned()
	require.NoError(t, err)

	x509Cert, err := parseLeaf(cert)
	require.NoError(t, err)

	fp, err := Fingerprint(x509Cert, "sha-256")
	require.NoError(t, err)
	require.NotEmpty(t, fp)

	require.NoError(t, Verify(x509Cert, []Fingerprints{{Algorithm: "sha-256", Value: fp}}))
	require.ErrorIs(t, Verify(x509Cert, []Fingerprints{{Algorithm: "sha-256", Value: "00:00"}}), ErrNoMatchingFingerprint)
}

func TestFingerprintUnknownAlgorithm(t *testing.T) {
	cert, err := GenerateSelfSigned()
	require.NoError(t, err)
	x509Cert, err := parseLeaf(cert)
	require.NoError(t, err)

	_, err = Fingerprint(x509Cert, "md5")
	require.ErrorIs(t, err, ErrUnknownFingerprintAlgorithm)
}
