// Package keyagreement implements the three pluggable key-agreement model
// families the synchronizer drives: finite-field Diffie-Hellman, elliptic
// curve Diffie-Hellman, and post-quantum key encapsulation. Dispatch is by
// splitting the negotiated name at its first '-' and matching the prefix,
// mirroring the teacher's transform-id switch in cipher_suites.go.
package keyagreement

import (
	"strings"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

// Model is the capability set every key-agreement family implements.
type Model interface {
	// SetupKeyExchange generates a local keypair (or KEM keypair) sized for
	// suite and returns the local public key.
	SetupKeyExchange(suite security.CipherSuite) (security.PublicKey, error)

	// ComputeSharedSecretFromPeerKey derives a shared secret from the peer's
	// public key. For KEM models this is the initiator's encapsulation path
	// and also returns supplemental data (the ciphertext) to send the peer.
	ComputeSharedSecretFromPeerKey(peerPublicKey security.PublicKey) (security.SharedSecret, security.SupplementalData, error)

	// ComputeSharedSecretFromSupplementalData derives a shared secret from
	// supplemental data alone (the KEM acceptor's decapsulation path). Only
	// valid for models with HasSupplementalData() == true.
	ComputeSharedSecretFromSupplementalData(data security.SupplementalData) (security.SharedSecret, error)

	// HasSupplementalData reports whether this model family carries
	// ciphertext alongside the public key (true only for KEM).
	HasSupplementalData() bool

	// SupplementalDataSize reports the size of the supplemental data this
	// model will produce or expect. Invalid to call before SetupKeyExchange
	// for families whose size depends on negotiated parameters.
	SupplementalDataSize() (int, error)
}

// Select picks the model family that claims support for a key-agreement
// name, by splitting at the first '-' and dispatching on the prefix. Returns
// AlgorithmUnknown if no family claims the prefix.
func Select(name string) (Model, error) {
	idx := strings.IndexByte(name, '-')
	prefix := name
	if idx >= 0 {
		prefix = name[:idx]
	}
	switch prefix {
	case "ffdhe":
		return newFiniteFieldDH(name)
	case "ecdh":
		return newEllipticCurveDH(name)
	case "kem":
		return newKEM(name)
	default:
		return nil, security.Errf(security.AlgorithmUnknown, "no model family claims prefix %q", prefix)
	}
}
