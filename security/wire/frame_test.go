package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalRoundTrip(t *testing.T) {
	p := Proposal{
		Agreements: []string{"ffdhe-2048", "ecdh-x25519", "kem-kyber768"},
		Ciphers:    []string{"aes-256-gcm", "chacha20-poly1305"},
		Hashes:     []string{"sha256"},
	}
	encoded, err := EncodeProposal(p)
	require.NoError(t, err)

	decoded, err := DecodeProposal(encoded)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestSelectionRoundTrip(t *testing.T) {
	s := Selection{
		Agreement: "ecdh-x25519",
		Cipher:    "aes-256-gcm",
		Hash:      "sha256",
		PublicKey: []byte{1, 2, 3, 4, 5},
		Salt:      []byte("0123456789abcdef0123456789abcdef"),
	}
	encoded, err := EncodeSelection(s)
	require.NoError(t, err)

	decoded, rest, err := DecodeSelection(encoded)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, s, decoded)
}

func TestKeyExchangeRoundTripWithSupplemental(t *testing.T) {
	k := KeyExchange{
		Agreement:        "kem-kyber768",
		Cipher:           "chacha20-poly1305",
		Hash:             "sha512",
		PublicKey:        []byte{9, 9, 9},
		Salt:             []byte("saltsaltsaltsaltsaltsaltsaltsalt"),
		SupplementalData: []byte{1, 2, 3, 4},
		Verification:     []byte("encrypted-verification-blob"),
		Signature:         []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"),
	}
	encoded, err := EncodeKeyExchange(k)
	require.NoError(t, err)

	head, tail, err := DecodeKeyExchangeHead(encoded)
	require.NoError(t, err)
	assert.Equal(t, k.Agreement, head.Agreement)
	assert.Equal(t, k.Cipher, head.Cipher)
	assert.Equal(t, k.Hash, head.Hash)
	assert.Equal(t, k.PublicKey, head.PublicKey)
	assert.Equal(t, k.Salt, head.Salt)

	supplemental, verification, signature, err := SplitKeyExchangeTail(tail, len(k.SupplementalData), len(k.Signature))
	require.NoError(t, err)
	assert.Equal(t, k.SupplementalData, supplemental)
	assert.Equal(t, k.Verification, verification)
	assert.Equal(t, k.Signature, signature)
}

func TestVerificationRoundTrip(t *testing.T) {
	v := Verification{
		Verification: []byte("ciphertext-blob"),
		Signature:    []byte("0123456789abcdef"),
	}
	encoded := EncodeVerification(v)

	verification, signature, err := SplitVerificationTail(encoded, len(v.Signature))
	require.NoError(t, err)
	assert.Equal(t, v.Verification, verification)
	assert.Equal(t, v.Signature, signature)
}

func TestWriteStringRejectsOverlongName(t *testing.T) {
	_, err := WriteString(nil, strings.Repeat("x", MaxAlgorithmNameLen+1))
	assert.Error(t, err)
}

func TestEncodeNameListRejectsTooManyNames(t *testing.T) {
	names := make([]string, MaxAlgorithmsPerCategory+1)
	for i := range names {
		names[i] = "x"
	}
	_, err := EncodeNameList(names)
	assert.Error(t, err)
}

func TestReadLenPrefixed32RejectsOversizedDeclaration(t *testing.T) {
	buf := putU32(nil, uint32(MaxPublicKeySize+1))
	_, _, err := ReadLenPrefixed32(buf, MaxPublicKeySize)
	assert.Error(t, err)
}

func TestDecodeNameListRejectsTruncatedBuffer(t *testing.T) {
	buf := putU16(nil, 2)
	buf = putU16(buf, 100)
	_, _, err := DecodeNameList(buf)
	assert.Error(t, err)
}
