package security

import (
	"golang.org/x/crypto/sha3"
)

// PrincipalRandomSize is both the size of each participant's salt half and
// the size of the verification plaintext derived at the end of key
// generation.
const PrincipalRandomSize = 32

const minContentKeySize = 16
const minSignatureKeySize = 16

// KeyStore is the secret-material custodian for one handshake: it owns the
// local public key, the peer's public key once known, the composed salt, the
// derived principal key, and the four cordons naming content/signature keys
// for both participants.
type KeyStore struct {
	publicKey     PublicKey
	peerPublicKey PublicKey
	havePeerKey   bool

	salt Salt

	principal        PrincipalKey
	ownContent       EncryptionKey
	peerContent      EncryptionKey
	ownSignature     SignatureKey
	peerSignature    SignatureKey
	hasGeneratedKeys bool
}

// NewKeyStore consumes a mandatory local public key and generates a fresh
// PrincipalRandomSize-byte salt.
func NewKeyStore(publicKey PublicKey) (*KeyStore, error) {
	if publicKey.IsEmpty() {
		return nil, Errf(CryptoBackend, "keystore requires a non-empty public key")
	}
	salt, err := GenerateSalt(PrincipalRandomSize)
	if err != nil {
		return nil, err
	}
	return &KeyStore{publicKey: publicKey, salt: salt}, nil
}

func (ks *KeyStore) PublicKey() PublicKey         { return ks.publicKey }
func (ks *KeyStore) PeerPublicKey() (PublicKey, bool) { return ks.peerPublicKey, ks.havePeerKey }
func (ks *KeyStore) Salt() Salt                   { return ks.salt }
func (ks *KeyStore) HasGeneratedKeys() bool       { return ks.hasGeneratedKeys }

// SetPeerPublicKey stores the peer's key-agreement public key.
func (ks *KeyStore) SetPeerPublicKey(key PublicKey) {
	ks.peerPublicKey = key
	ks.havePeerKey = true
}

// PrependSessionSalt sets salt = peer || salt. Used by the initiator.
func (ks *KeyStore) PrependSessionSalt(peer Salt) {
	ks.salt = ks.salt.Prepend(peer)
}

// AppendSessionSalt sets salt = salt || peer. Used by the acceptor.
func (ks *KeyStore) AppendSessionSalt(peer Salt) {
	ks.salt = ks.salt.Append(peer)
}

// GenerateSessionKeys derives the principal key from sharedSecret and the
// composed salt via SHAKE-256, partitions it into role-mirrored cordons, and
// returns the verification plaintext (encrypted by the caller under the
// freshly-minted keys to prove derivation agreement).
func (ks *KeyStore) GenerateSessionKeys(role ExchangeRole, suite CipherSuite, sharedSecret SharedSecret) (SharedSecret, error) {
	contentSize := suite.EncryptionKeySize
	signatureSize := suite.SignatureSize
	if contentSize < minContentKeySize {
		return SharedSecret{}, Errf(CryptoBackend, "content key size %d below floor %d", contentSize, minContentKeySize)
	}
	if signatureSize < minSignatureKeySize {
		return SharedSecret{}, Errf(CryptoBackend, "signature key size %d below floor %d", signatureSize, minSignatureKeySize)
	}

	total := 2*contentSize + 2*signatureSize + PrincipalRandomSize

	input := make([]byte, 0, sharedSecret.Size()+ks.salt.Size())
	input = append(input, sharedSecret.Bytes()...)
	input = append(input, ks.salt.Bytes()...)

	derived := make([]byte, total)
	xof := sha3.NewShake256()
	if _, err := xof.Write(input); err != nil {
		zeroize(derived)
		return SharedSecret{}, Errf(CryptoBackend, "shake256 write: %v", err)
	}
	if _, err := xof.Read(derived); err != nil {
		zeroize(derived)
		return SharedSecret{}, Errf(CryptoBackend, "shake256 read: %v", err)
	}

	ks.principal = newPrincipalKey(derived)

	firstContent := newCordon(0, contentSize)
	secondContent := newCordon(contentSize, contentSize)
	firstSignature := newCordon(2*contentSize, signatureSize)
	secondSignature := newCordon(2*contentSize+signatureSize, signatureSize)

	switch role {
	case RoleInitiator:
		ks.ownContent = EncryptionKey{firstContent}
		ks.peerContent = EncryptionKey{secondContent}
		ks.ownSignature = SignatureKey{firstSignature}
		ks.peerSignature = SignatureKey{secondSignature}
	case RoleAcceptor:
		ks.peerContent = EncryptionKey{firstContent}
		ks.ownContent = EncryptionKey{secondContent}
		ks.peerSignature = SignatureKey{firstSignature}
		ks.ownSignature = SignatureKey{secondSignature}
	}

	verifySeedOffset := 2*contentSize + 2*signatureSize
	verifySeed := ks.principal.Cordon(verifySeedOffset, PrincipalRandomSize)

	verifyInput := append(append([]byte(nil), verifySeed...), []byte("verify")...)
	verifyOut := make([]byte, PrincipalRandomSize)
	vxof := sha3.NewShake256()
	if _, err := vxof.Write(verifyInput); err != nil {
		return SharedSecret{}, Errf(CryptoBackend, "verification derive: %v", err)
	}
	if _, err := vxof.Read(verifyOut); err != nil {
		return SharedSecret{}, Errf(CryptoBackend, "verification derive: %v", err)
	}
	zeroize(verifyInput)

	ks.hasGeneratedKeys = true
	return NewSharedSecret(verifyOut), nil
}

// ContentKey returns the local content (encryption) key cordon resolved
// against the live principal key. Valid only after GenerateSessionKeys.
func (ks *KeyStore) ContentKey() []byte { return ks.ownContent.Resolve(ks.principal) }

// PeerContentKey returns the peer's content key cordon.
func (ks *KeyStore) PeerContentKey() []byte { return ks.peerContent.Resolve(ks.principal) }

// SignatureKey returns the local signature (HMAC) key cordon.
func (ks *KeyStore) SignatureKey() []byte { return ks.ownSignature.Resolve(ks.principal) }

// PeerSignatureKey returns the peer's signature key cordon.
func (ks *KeyStore) PeerSignatureKey() []byte { return ks.peerSignature.Resolve(ks.principal) }

// Erase zeroizes the salt, principal key, and resets every cordon and flag.
func (ks *KeyStore) Erase() {
	ks.salt.Erase()
	ks.principal.Erase()
	ks.ownContent.Erase()
	ks.peerContent.Erase()
	ks.ownSignature.Erase()
	ks.peerSignature.Erase()
	ks.publicKey.Erase()
	ks.peerPublicKey.Erase()
	ks.hasGeneratedKeys = false
}
