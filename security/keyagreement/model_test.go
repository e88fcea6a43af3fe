package keyagreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

func runDHRoundTrip(t *testing.T, name string) {
	t.Helper()
	alice, err := Select(name)
	require.NoError(t, err)
	bob, err := Select(name)
	require.NoError(t, err)

	alicePub, err := alice.SetupKeyExchange(security.CipherSuite{})
	require.NoError(t, err)
	bobPub, err := bob.SetupKeyExchange(security.CipherSuite{})
	require.NoError(t, err)

	aliceShared, aliceSupp, err := alice.ComputeSharedSecretFromPeerKey(bobPub)
	require.NoError(t, err)
	assert.True(t, aliceSupp.IsEmpty())

	bobShared, bobSupp, err := bob.ComputeSharedSecretFromPeerKey(alicePub)
	require.NoError(t, err)
	assert.True(t, bobSupp.IsEmpty())

	assert.Equal(t, aliceShared.Bytes(), bobShared.Bytes())
	assert.False(t, alice.HasSupplementalData())
}

func TestFiniteFieldDHRoundTrip(t *testing.T) {
	runDHRoundTrip(t, "ffdhe-2048")
}

func TestEllipticCurveX25519RoundTrip(t *testing.T) {
	runDHRoundTrip(t, "ecdh-x25519")
}

func TestEllipticCurveP256RoundTrip(t *testing.T) {
	runDHRoundTrip(t, "ecdh-p-256")
}

func TestEllipticCurveSecp256k1RoundTrip(t *testing.T) {
	runDHRoundTrip(t, "ecdh-secp256k1")
}

func TestKEMRoundTrip(t *testing.T) {
	acceptor, err := Select("kem-kyber768")
	require.NoError(t, err)
	initiator, err := Select("kem-kyber768")
	require.NoError(t, err)

	assert.True(t, acceptor.HasSupplementalData())
	size, err := acceptor.SupplementalDataSize()
	require.NoError(t, err)
	assert.Greater(t, size, 0)

	acceptorPub, err := acceptor.SetupKeyExchange(security.CipherSuite{})
	require.NoError(t, err)

	initiatorShared, ciphertext, err := initiator.ComputeSharedSecretFromPeerKey(acceptorPub)
	require.NoError(t, err)
	require.False(t, ciphertext.IsEmpty())

	acceptorShared, err := acceptor.ComputeSharedSecretFromSupplementalData(ciphertext)
	require.NoError(t, err)

	assert.Equal(t, initiatorShared.Bytes(), acceptorShared.Bytes())
}

func TestSelectUnknownPrefix(t *testing.T) {
	_, err := Select("rsa-4096")
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.AlgorithmUnknown, code)
}

func TestSelectUnwiredCurvesAndKEMs(t *testing.T) {
	for _, name := range []string{"ecdh-b-233", "ecdh-brainpool-p256r1", "kem-bike-l1", "kem-classic-mceliece-348864"} {
		_, err := Select(name)
		require.Error(t, err)
		code, ok := security.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, security.AlgorithmUnknown, code)
	}
}
