package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyStoreRoleMirroredDerivation(t *testing.T) {
	initiatorPub := NewPublicKey([]byte("initiator-public-key"))
	acceptorPub := NewPublicKey([]byte("acceptor-public-key"))

	initiatorStore, err := NewKeyStore(initiatorPub)
	require.NoError(t, err)
	acceptorStore, err := NewKeyStore(acceptorPub)
	require.NoError(t, err)

	initiatorOwnSalt := initiatorStore.Salt()
	acceptorOwnSalt := acceptorStore.Salt()

	initiatorStore.SetPeerPublicKey(acceptorPub)
	initiatorStore.PrependSessionSalt(acceptorOwnSalt)

	acceptorStore.SetPeerPublicKey(initiatorPub)
	acceptorStore.AppendSessionSalt(initiatorOwnSalt)

	assert.Equal(t, initiatorStore.Salt().Bytes(), acceptorStore.Salt().Bytes())

	suite, err := NewCipherSuite(LevelMedium, "ecdh-x25519", "aes-256-gcm", "sha256")
	require.NoError(t, err)

	shared := NewSharedSecret([]byte("a shared secret both sides agree on, 32+ bytes"))

	initVerify, err := initiatorStore.GenerateSessionKeys(RoleInitiator, suite, shared)
	require.NoError(t, err)
	acceptVerify, err := acceptorStore.GenerateSessionKeys(RoleAcceptor, suite, shared)
	require.NoError(t, err)

	assert.Equal(t, initVerify.Bytes(), acceptVerify.Bytes())

	// Each side's own content/signature key must equal the peer's mirrored view.
	assert.Equal(t, initiatorStore.ContentKey(), acceptorStore.PeerContentKey())
	assert.Equal(t, acceptorStore.ContentKey(), initiatorStore.PeerContentKey())
	assert.Equal(t, initiatorStore.SignatureKey(), acceptorStore.PeerSignatureKey())
	assert.Equal(t, acceptorStore.SignatureKey(), initiatorStore.PeerSignatureKey())
}

func TestKeyStoreRejectsUndersizedKeys(t *testing.T) {
	store, err := NewKeyStore(NewPublicKey([]byte("pub")))
	require.NoError(t, err)

	tinySuite := CipherSuite{EncryptionKeySize: 4, SignatureSize: 32}
	_, err = store.GenerateSessionKeys(RoleInitiator, tinySuite, NewSharedSecret([]byte("shared")))
	requireCode(t, err, CryptoBackend)
}

func TestNewKeyStoreRejectsEmptyPublicKey(t *testing.T) {
	_, err := NewKeyStore(PublicKey{})
	requireCode(t, err, CryptoBackend)
}
