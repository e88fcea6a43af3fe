package keyagreement

import (
	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/hqc/hqc192"
	"github.com/cloudflare/circl/kem/kyber/kyber768"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

// postQuantumKEM backs the kem-* family. Unlike FFDH/ECDH, the initiator's
// ComputeSharedSecretFromPeerKey produces supplemental data (the
// encapsulated ciphertext) that must reach the acceptor, which decapsulates
// it via ComputeSharedSecretFromSupplementalData.
type postQuantumKEM struct {
	name   string
	scheme kem.Scheme

	pub  kem.PublicKey
	priv kem.PrivateKey
}

var kemSchemes = map[string]kem.Scheme{
	"kem-kyber768": kyber768.Scheme(),
	"kem-hqc-192":  hqc192.Scheme(),
}

// kemUnwired lists names the spec describes that have no concrete backend in
// this build; they fail cleanly with AlgorithmUnknown instead of being
// silently absent from the registry, see DESIGN.md.
var kemUnwired = map[string]bool{
	"kem-bike-l1":                 true,
	"kem-classic-mceliece-348864": true,
	"kem-frodokem-640":            true,
	"kem-sntruprime-653":          true,
}

func newKEM(name string) (Model, error) {
	if scheme, ok := kemSchemes[name]; ok {
		return &postQuantumKEM{name: name, scheme: scheme}, nil
	}
	if kemUnwired[name] {
		return nil, security.Errf(security.AlgorithmUnknown, "kem %q has no wired backend", name)
	}
	return nil, security.Errf(security.AlgorithmUnknown, "unknown kem %q", name)
}

func (k *postQuantumKEM) SetupKeyExchange(_ security.CipherSuite) (security.PublicKey, error) {
	pub, priv, err := k.scheme.GenerateKeyPair()
	if err != nil {
		return security.PublicKey{}, security.Errf(security.CryptoBackend, "kem keygen: %v", err)
	}
	k.pub = pub
	k.priv = priv
	encoded, err := pub.MarshalBinary()
	if err != nil {
		return security.PublicKey{}, security.Errf(security.CryptoBackend, "kem marshal public key: %v", err)
	}
	return security.NewPublicKey(encoded), nil
}

// ComputeSharedSecretFromPeerKey is the initiator's encapsulation path: it
// encapsulates against the acceptor's public key and returns the ciphertext
// as supplemental data for the acceptor to decapsulate.
func (k *postQuantumKEM) ComputeSharedSecretFromPeerKey(peerPublicKey security.PublicKey) (security.SharedSecret, security.SupplementalData, error) {
	if peerPublicKey.Size() != k.scheme.PublicKeySize() {
		return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.Malformed, "peer kem public key has wrong size")
	}
	peerPub, err := k.scheme.UnmarshalBinaryPublicKey(peerPublicKey.Bytes())
	if err != nil {
		return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.Malformed, "unmarshal peer kem public key: %v", err)
	}
	ct, ss, err := k.scheme.Encapsulate(peerPub)
	if err != nil {
		return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.CryptoBackend, "kem encapsulate: %v", err)
	}
	return security.NewSharedSecret(ss), security.NewSupplementalData(ct), nil
}

// ComputeSharedSecretFromSupplementalData is the acceptor's decapsulation
// path.
func (k *postQuantumKEM) ComputeSharedSecretFromSupplementalData(data security.SupplementalData) (security.SharedSecret, error) {
	if data.Size() != k.scheme.CiphertextSize() {
		return security.SharedSecret{}, security.Errf(security.Malformed, "kem ciphertext has wrong size")
	}
	if k.priv == nil {
		return security.SharedSecret{}, security.Errf(security.CryptoBackend, "setup not called")
	}
	ss, err := k.scheme.Decapsulate(k.priv, data.Bytes())
	if err != nil {
		return security.SharedSecret{}, security.Errf(security.CryptoBackend, "kem decapsulate: %v", err)
	}
	return security.NewSharedSecret(ss), nil
}

func (k *postQuantumKEM) HasSupplementalData() bool { return true }

func (k *postQuantumKEM) SupplementalDataSize() (int, error) {
	return k.scheme.CiphertextSize(), nil
}
