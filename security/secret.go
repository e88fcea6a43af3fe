package security

import (
	"crypto/rand"
	"crypto/subtle"
)

// zeroize overwrites b in place. It is the single point every secret-bearing
// type routes through on Erase, mirroring SecureBuffer::Erase in the original
// C++ implementation.
func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// randomBytes fills a freshly allocated slice of n bytes from crypto/rand.
func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, Errf(CryptoBackend, "read random bytes: %v", err)
	}
	return b, nil
}

// PublicKey is a copyable, zeroize-on-erase view over a key-agreement public
// key. It is distinct from Salt and SupplementalData only by name -- all
// three share the same storage discipline.
type PublicKey struct{ data []byte }

func NewPublicKey(data []byte) PublicKey {
	cp := append([]byte(nil), data...)
	return PublicKey{data: cp}
}

func (k PublicKey) Bytes() []byte { return k.data }
func (k PublicKey) Size() int     { return len(k.data) }
func (k PublicKey) IsEmpty() bool { return len(k.data) == 0 }
func (k *PublicKey) Erase()       { zeroize(k.data); k.data = nil }

// Equal performs a constant-time comparison, since public keys can appear in
// the handshake transcript alongside secret material and should not leak
// timing about partial matches during testing/fuzzing harnesses.
func (k PublicKey) Equal(other PublicKey) bool {
	return len(k.data) == len(other.data) && subtle.ConstantTimeCompare(k.data, other.data) == 1
}

// Salt is the concatenation of two 32-byte halves, one per participant.
type Salt struct{ data []byte }

func NewSalt(data []byte) Salt {
	cp := append([]byte(nil), data...)
	return Salt{data: cp}
}

// GenerateSalt produces size fresh random bytes for the local half of the
// salt (NewKeyStore passes PrincipalRandomSize).
func GenerateSalt(size int) (Salt, error) {
	b, err := randomBytes(size)
	if err != nil {
		return Salt{}, err
	}
	return Salt{data: b}, nil
}

func (s Salt) Bytes() []byte { return s.data }
func (s Salt) Size() int     { return len(s.data) }
func (s Salt) IsEmpty() bool { return len(s.data) == 0 }
func (s *Salt) Erase()       { zeroize(s.data); s.data = nil }

// Prepend returns a new Salt of peer||s -- used by the initiator.
func (s Salt) Prepend(peer Salt) Salt {
	out := make([]byte, 0, len(peer.data)+len(s.data))
	out = append(out, peer.data...)
	out = append(out, s.data...)
	return Salt{data: out}
}

// Append returns a new Salt of s||peer -- used by the acceptor.
func (s Salt) Append(peer Salt) Salt {
	out := make([]byte, 0, len(s.data)+len(peer.data))
	out = append(out, s.data...)
	out = append(out, peer.data...)
	return Salt{data: out}
}

// SupplementalData is the KEM ciphertext carried initiator->acceptor; absent
// for DH variants.
type SupplementalData struct{ data []byte }

func NewSupplementalData(data []byte) SupplementalData {
	cp := append([]byte(nil), data...)
	return SupplementalData{data: cp}
}

func (d SupplementalData) Bytes() []byte { return d.data }
func (d SupplementalData) Size() int     { return len(d.data) }
func (d SupplementalData) IsEmpty() bool { return len(d.data) == 0 }
func (d *SupplementalData) Erase()       { zeroize(d.data); d.data = nil }

// SharedSecret is move-only in spirit: callers should not retain a copy after
// handing it to KeyStore.GenerateSessionKeys, and should Erase it promptly.
type SharedSecret struct{ data []byte }

func NewSharedSecret(data []byte) SharedSecret {
	cp := append([]byte(nil), data...)
	return SharedSecret{data: cp}
}

func (s SharedSecret) Bytes() []byte { return s.data }
func (s SharedSecret) Size() int     { return len(s.data) }
func (s *SharedSecret) Erase()       { zeroize(s.data); s.data = nil }

// PrincipalKey is the monolithic derived secret from which cordons name
// content and signature keys. Move-only in spirit.
type PrincipalKey struct{ data []byte }

func newPrincipalKey(data []byte) PrincipalKey { return PrincipalKey{data: data} }

func (p PrincipalKey) Size() int { return len(p.data) }
func (p *PrincipalKey) Erase()   { zeroize(p.data); p.data = nil }

// Cordon returns a read-only view [offset, offset+size) into the principal
// key. It panics on out-of-range offsets since cordon placement is computed
// internally by KeyStore and is never attacker controlled.
func (p PrincipalKey) Cordon(offset, size int) []byte {
	return p.data[offset : offset+size]
}

// Cordon is a borrowed (offset, length) view into a live PrincipalKey. It
// owns no bytes of its own; Erase only clears the indices, never the backing
// PrincipalKey (which is erased independently).
type Cordon struct {
	offset, length int
	valid          bool
}

func newCordon(offset, length int) Cordon { return Cordon{offset: offset, length: length, valid: true} }

func (c Cordon) IsValid() bool { return c.valid }
func (c Cordon) Len() int      { return c.length }

// Resolve reads the cordon's bytes out of key.
func (c Cordon) Resolve(key PrincipalKey) []byte {
	if !c.valid {
		return nil
	}
	return key.Cordon(c.offset, c.length)
}

func (c *Cordon) Erase() { c.offset, c.length, c.valid = 0, 0, false }

// EncryptionKey names a cordon used for content encryption.
type EncryptionKey struct{ Cordon }

// SignatureKey names a cordon used for HMAC transcript signing.
type SignatureKey struct{ Cordon }
