package security

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCipherSuiteKnownAead(t *testing.T) {
	suite, err := NewCipherSuite(LevelHigh, "ecdh-x25519", "aes-256-gcm", "sha256")
	require.NoError(t, err)
	assert.Equal(t, 32, suite.EncryptionKeySize)
	assert.Equal(t, 12, suite.IVSize)
	assert.True(t, suite.IsAuthenticated)
	assert.Equal(t, 16, suite.TagSize)
	assert.Equal(t, 32, suite.SignatureSize)
}

func TestNewCipherSuiteKnownCBC(t *testing.T) {
	suite, err := NewCipherSuite(LevelMedium, "ffdhe-2048", "aes-128-cbc", "sha1")
	require.NoError(t, err)
	assert.True(t, suite.PadsInput)
	assert.False(t, suite.IsAuthenticated)
	assert.Equal(t, 0, suite.TagSize)
}

func TestNewCipherSuiteRejectsUnknown(t *testing.T) {
	_, err := NewCipherSuite(LevelLow, "rsa-2048", "aes-256-gcm", "sha256")
	requireCode(t, err, AlgorithmUnknown)

	_, err = NewCipherSuite(LevelLow, "ecdh-x25519", "des-cbc", "sha256")
	requireCode(t, err, AlgorithmUnknown)

	_, err = NewCipherSuite(LevelLow, "ecdh-x25519", "aes-256-gcm", "md5")
	requireCode(t, err, AlgorithmUnknown)

	_, err = NewCipherSuite(LevelLow, "", "aes-256-gcm", "sha256")
	requireCode(t, err, AlgorithmUnknown)
}

func TestEncryptedSize(t *testing.T) {
	aeadSuite, err := NewCipherSuite(LevelHigh, "kem-kyber768", "chacha20-poly1305", "sha512")
	require.NoError(t, err)
	assert.Equal(t, 0, aeadSuite.EncryptedSize(0))
	assert.Equal(t, 10+aeadSuite.IVSize+aeadSuite.TagSize, aeadSuite.EncryptedSize(10))

	cbcSuite, err := NewCipherSuite(LevelMedium, "ffdhe-2048", "aes-256-cbc", "sha256")
	require.NoError(t, err)
	sized := cbcSuite.EncryptedSize(20)
	assert.Greater(t, sized, 20+cbcSuite.IVSize)
}

func TestCipherSuitesSortByLevelThenNames(t *testing.T) {
	high, _ := NewCipherSuite(LevelHigh, "kem-kyber768", "aes-256-gcm", "sha512")
	low, _ := NewCipherSuite(LevelLow, "ffdhe-2048", "aes-128-cbc", "sha1")
	mid, _ := NewCipherSuite(LevelMedium, "ecdh-x25519", "aes-256-gcm", "sha256")

	suites := CipherSuites{high, low, mid}
	sort.Sort(suites)
	assert.Equal(t, LevelLow, suites[0].Level)
	assert.Equal(t, LevelMedium, suites[1].Level)
	assert.Equal(t, LevelHigh, suites[2].Level)
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	got, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, code, got)
}
