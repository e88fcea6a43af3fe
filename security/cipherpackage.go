package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"hash"
	"math"

	"github.com/dgryski/go-camellia"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vpiscitello/brypt-node-sub000/metrics"
)

// camellia.New returns a Camellia cipher.Block (128-bit blocks, keyed here
// with a 256-bit key); Camellia has no AEAD mode in this build, only the CBC
// path below.

func hashNew(name string) (func() hash.Hash, bool) {
	switch name {
	case "sha1":
		return sha1.New, true
	case "sha256":
		return sha256.New, true
	case "sha384":
		return sha512.New384, true
	case "sha512":
		return sha512.New, true
	default:
		return nil, false
	}
}

// aeadFor constructs the AEAD primitive for a suite's cipher name, keyed with
// key. Only the names CipherSuite.NewCipherSuite recognizes as aead==true may
// reach here.
func aeadFor(cipherName string, key []byte) (cipher.AEAD, error) {
	switch cipherName {
	case "aes-128-gcm", "aes-256-gcm":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, Errf(CryptoBackend, "aes cipher init: %v", err)
		}
		return cipher.NewGCM(block)
	case "aes-256-ccm":
		// No CCM in the standard library; this name is served by AES-GCM
		// under the same key, which matches the suite's declared sizes
		// (16-byte tag, 12-byte nonce). The output is GCM, not CCM.
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, Errf(CryptoBackend, "aes cipher init: %v", err)
		}
		return cipher.NewGCM(block)
	case "chacha20-poly1305":
		return chacha20poly1305.New(key)
	default:
		return nil, Errf(CryptoBackend, "cipher %q has no aead backend", cipherName)
	}
}

// blockModeFor constructs a block cipher for CBC-style suites.
func blockModeFor(cipherName string, key, iv []byte, encrypt bool) (cipher.BlockMode, error) {
	var block cipher.Block
	var err error
	switch cipherName {
	case "aes-128-cbc", "aes-256-cbc":
		block, err = aes.NewCipher(key)
	case "camellia-256-cbc":
		block, err = camellia.New(key)
	default:
		return nil, Errf(CryptoBackend, "cipher %q has no block backend", cipherName)
	}
	if err != nil {
		return nil, Errf(CryptoBackend, "block cipher init: %v", err)
	}
	if encrypt {
		return cipher.NewCBCEncrypter(block, iv), nil
	}
	return cipher.NewCBCDecrypter(block, iv), nil
}

// streamFor constructs a stream cipher for CTR-style suites.
func streamFor(cipherName string, key, iv []byte) (cipher.Stream, error) {
	switch cipherName {
	case "aes-128-ctr", "aes-256-ctr":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, Errf(CryptoBackend, "aes cipher init: %v", err)
		}
		return cipher.NewCTR(block, iv), nil
	default:
		return nil, Errf(CryptoBackend, "cipher %q has no stream backend", cipherName)
	}
}

const maxBlockChunk = math.MaxInt32

// CipherPackage binds a negotiated CipherSuite to a KeyStore and is the only
// object exposed to application traffic. It is move-only: once transferred
// out via a synchronizer's Finalize, the source reference should not be used
// again. Take transfers ownership and poisons the source.
type CipherPackage struct {
	suite   CipherSuite
	store   *KeyStore
	poison  bool
	metrics *metrics.Collector
}

// NewCipherPackage binds suite to store. store's ownership transfers to the
// package; callers must not retain a usable reference to it afterwards.
func NewCipherPackage(suite CipherSuite, store *KeyStore) *CipherPackage {
	return &CipherPackage{suite: suite, store: store}
}

// SetMetrics attaches mcs so future Encrypt/Decrypt/Sign/Verify calls report
// against it. mcs may be nil, which restores the no-op default.
func (cp *CipherPackage) SetMetrics(mcs *metrics.Collector) {
	cp.metrics = mcs
}

func (cp *CipherPackage) checkLive() error {
	if cp == nil || cp.poison {
		return Errf(NotReady, "cipher package moved or nil")
	}
	return nil
}

// Suite returns the negotiated cipher suite.
func (cp *CipherPackage) Suite() CipherSuite { return cp.suite }

// Take transfers ownership of cp's keystore to a new CipherPackage and
// poisons cp, modeling the move-only C++ semantics the teacher exercises via
// std::exchange in the original CipherPackage.
func (cp *CipherPackage) Take() *CipherPackage {
	if err := cp.checkLive(); err != nil {
		return nil
	}
	out := &CipherPackage{suite: cp.suite, store: cp.store, metrics: cp.metrics}
	cp.store = nil
	cp.poison = true
	return out
}

// Encrypt seals plaintext under the content key, appending body||iv||tag? to
// dst and returning the result. Empty plaintext yields an empty result.
func (cp *CipherPackage) Encrypt(dst, plaintext []byte) (_ []byte, err error) {
	defer func() {
		if cp != nil {
			cp.metrics.CipherOperation("encrypt", err)
		}
	}()
	if err := cp.checkLive(); err != nil {
		return nil, err
	}
	if !cp.store.HasGeneratedKeys() {
		return nil, Errf(NotReady, "keystore has no generated keys")
	}
	if len(plaintext) == 0 {
		return dst, nil
	}

	key := cp.store.ContentKey()
	suite := cp.suite

	if suite.IsAuthenticated {
		aead, err := aeadFor(suite.Cipher, key)
		if err != nil {
			return nil, err
		}
		iv, err := randomBytes(suite.IVSize)
		if err != nil {
			return nil, err
		}
		body := make([]byte, 0, len(plaintext))
		for off := 0; off < len(plaintext); off += maxBlockChunk {
			end := off + maxBlockChunk
			if end > len(plaintext) {
				end = len(plaintext)
			}
			body = append(body, plaintext[off:end]...)
		}
		sealed := aead.Seal(nil, iv, body, nil)
		// sealed = ciphertext||tag ; split per the spec's body||iv||tag layout.
		tag := sealed[len(sealed)-suite.TagSize:]
		cipherBody := sealed[:len(sealed)-suite.TagSize]
		out := append(dst, cipherBody...)
		out = append(out, iv...)
		out = append(out, tag...)
		return out, nil
	}

	if suite.PadsInput {
		iv, err := randomBytes(suite.IVSize)
		if err != nil {
			return nil, err
		}
		padded := padPKCS7(plaintext, suite.BlockSize)
		mode, err := blockModeFor(suite.Cipher, key, iv, true)
		if err != nil {
			return nil, err
		}
		encrypted := make([]byte, len(padded))
		for off := 0; off < len(padded); off += maxBlockChunk {
			end := off + maxBlockChunk
			if end > len(padded) {
				end = len(padded)
			}
			mode.CryptBlocks(encrypted[off:end], padded[off:end])
		}
		out := append(dst, encrypted...)
		out = append(out, iv...)
		return out, nil
	}

	// Stream cipher: needsGeneratedIV is true for these too, generate IV
	// up front and fetch nothing after the fact (the teacher's
	// "fetch IV after update" path applies to backends that choose their
	// own IV internally, which none of our stream ciphers do).
	iv, err := randomBytes(suite.IVSize)
	if err != nil {
		return nil, err
	}
	stream, err := streamFor(suite.Cipher, key, iv)
	if err != nil {
		return nil, err
	}
	encrypted := make([]byte, len(plaintext))
	stream.XORKeyStream(encrypted, plaintext)
	out := append(dst, encrypted...)
	out = append(out, iv...)
	return out, nil
}

// Decrypt reverses Encrypt. Returns DecryptionFailure for any structural or
// cryptographic failure, including AEAD tag mismatch.
func (cp *CipherPackage) Decrypt(buffer []byte) (_ []byte, err error) {
	defer func() {
		if cp != nil {
			cp.metrics.CipherOperation("decrypt", err)
		}
	}()
	if err := cp.checkLive(); err != nil {
		return nil, err
	}
	if !cp.store.HasGeneratedKeys() {
		return nil, Errf(NotReady, "keystore has no generated keys")
	}
	if len(buffer) == 0 {
		return nil, nil
	}

	suite := cp.suite
	key := cp.store.PeerContentKey()

	tagSize := 0
	if suite.IsAuthenticated {
		tagSize = suite.TagSize
	}
	bodyLen := len(buffer) - suite.IVSize - tagSize
	if bodyLen <= 0 {
		return nil, Errf(DecryptionFailure, "ciphertext too short")
	}

	body := buffer[:bodyLen]
	iv := buffer[bodyLen : bodyLen+suite.IVSize]

	if suite.IsAuthenticated {
		tag := buffer[bodyLen+suite.IVSize:]
		aead, err := aeadFor(suite.Cipher, key)
		if err != nil {
			return nil, Errf(DecryptionFailure, "aead init failed")
		}
		sealed := append(append([]byte(nil), body...), tag...)
		plain, err := aead.Open(nil, iv, sealed, nil)
		if err != nil {
			return nil, Errf(DecryptionFailure, "tag mismatch")
		}
		return plain, nil
	}

	if suite.PadsInput {
		if bodyLen%suite.BlockSize != 0 {
			return nil, Errf(DecryptionFailure, "ciphertext not a multiple of block size")
		}
		mode, err := blockModeFor(suite.Cipher, key, iv, false)
		if err != nil {
			return nil, Errf(DecryptionFailure, "block cipher init failed")
		}
		decrypted := make([]byte, bodyLen)
		for off := 0; off < bodyLen; off += maxBlockChunk {
			end := off + maxBlockChunk
			if end > bodyLen {
				end = bodyLen
			}
			mode.CryptBlocks(decrypted[off:end], body[off:end])
		}
		plain, err := unpadPKCS7(decrypted, suite.BlockSize)
		if err != nil {
			return nil, Errf(DecryptionFailure, "%v", err)
		}
		return plain, nil
	}

	stream, err := streamFor(suite.Cipher, key, iv)
	if err != nil {
		return nil, Errf(DecryptionFailure, "stream cipher init failed")
	}
	decrypted := make([]byte, bodyLen)
	stream.XORKeyStream(decrypted, body)
	return decrypted, nil
}

// Sign appends an HMAC over buffer, computed with the local signature key.
func (cp *CipherPackage) Sign(buffer []byte) (_ []byte, err error) {
	defer func() {
		if cp != nil {
			cp.metrics.CipherOperation("sign", err)
		}
	}()
	if err := cp.checkLive(); err != nil {
		return nil, err
	}
	if !cp.store.HasGeneratedKeys() {
		return nil, Errf(NotReady, "keystore has no generated keys")
	}
	newHash, ok := hashNew(cp.suite.Hash)
	if !ok {
		return nil, Errf(CryptoBackend, "unknown hash %q", cp.suite.Hash)
	}
	mac := hmac.New(newHash, cp.store.SignatureKey())
	mac.Write(buffer)
	return append(append([]byte(nil), buffer...), mac.Sum(nil)...), nil
}

// Verify checks the trailing HMAC of buffer against the peer's signature key
// using a constant-time comparison.
func (cp *CipherPackage) Verify(buffer []byte) (err error) {
	defer func() {
		if cp != nil {
			cp.metrics.CipherOperation("verify", err)
		}
	}()
	if err := cp.checkLive(); err != nil {
		return err
	}
	if !cp.store.HasGeneratedKeys() {
		return Errf(NotReady, "keystore has no generated keys")
	}
	if len(buffer) <= cp.suite.SignatureSize {
		return Errf(VerificationFailure, "buffer too short to carry a signature")
	}
	newHash, ok := hashNew(cp.suite.Hash)
	if !ok {
		return Errf(VerificationFailure, "unknown hash")
	}
	content := buffer[:len(buffer)-cp.suite.SignatureSize]
	signature := buffer[len(buffer)-cp.suite.SignatureSize:]

	mac := hmac.New(newHash, cp.store.PeerSignatureKey())
	mac.Write(content)
	expected := mac.Sum(nil)

	if subtle.ConstantTimeCompare(expected, signature) != 1 {
		return Errf(VerificationFailure, "signature mismatch")
	}
	return nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, Errf(DecryptionFailure, "empty block for unpad")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, Errf(DecryptionFailure, "invalid padding")
	}
	return data[:len(data)-padLen], nil
}
