package keyagreement

import (
	stdecdh "crypto/ecdh"
	"crypto/rand"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/curve25519"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

// ellipticCurveDH backs the ecdh-* family. Named-curve dispatch happens once
// at construction; unsupported curves (the binary and brainpool entries the
// original OpenSSL-backed implementation could reach generically) fail with
// AlgorithmUnknown rather than silently downgrading -- see DESIGN.md.
type ellipticCurveDH struct {
	name string

	// one of the following backends is populated, selected by name
	std     *stdECDHBackend
	x25519  *x25519Backend
	secp256 *secp256k1Backend
}

type stdECDHBackend struct {
	curve stdecdh.Curve
	priv  *stdecdh.PrivateKey
}

type x25519Backend struct {
	priv [32]byte
	pub  [32]byte
}

type secp256k1Backend struct {
	priv *secp256k1.PrivateKey
}

func newEllipticCurveDH(name string) (Model, error) {
	switch name {
	case "ecdh-p-256":
		return &ellipticCurveDH{name: name, std: &stdECDHBackend{curve: stdecdh.P256()}}, nil
	case "ecdh-p-384":
		return &ellipticCurveDH{name: name, std: &stdECDHBackend{curve: stdecdh.P384()}}, nil
	case "ecdh-p-521":
		return &ellipticCurveDH{name: name, std: &stdECDHBackend{curve: stdecdh.P521()}}, nil
	case "ecdh-x25519":
		return &ellipticCurveDH{name: name, x25519: &x25519Backend{}}, nil
	case "ecdh-secp256k1":
		return &ellipticCurveDH{name: name, secp256: &secp256k1Backend{}}, nil
	case "ecdh-b-233", "ecdh-brainpool-p256r1", "ecdh-brainpool-p384r1", "ecdh-brainpool-p512r1":
		return nil, security.Errf(security.AlgorithmUnknown, "curve %q has no wired backend", name)
	default:
		return nil, security.Errf(security.AlgorithmUnknown, "unknown ecdh curve %q", name)
	}
}

func (e *ellipticCurveDH) SetupKeyExchange(_ security.CipherSuite) (security.PublicKey, error) {
	switch {
	case e.std != nil:
		priv, err := e.std.curve.GenerateKey(rand.Reader)
		if err != nil {
			return security.PublicKey{}, security.Errf(security.CryptoBackend, "ecdh keygen: %v", err)
		}
		e.std.priv = priv
		return security.NewPublicKey(priv.PublicKey().Bytes()), nil

	case e.x25519 != nil:
		if _, err := rand.Read(e.x25519.priv[:]); err != nil {
			return security.PublicKey{}, security.Errf(security.CryptoBackend, "x25519 keygen: %v", err)
		}
		pub, err := curve25519.X25519(e.x25519.priv[:], curve25519.Basepoint)
		if err != nil {
			return security.PublicKey{}, security.Errf(security.CryptoBackend, "x25519 basepoint mult: %v", err)
		}
		copy(e.x25519.pub[:], pub)
		return security.NewPublicKey(pub), nil

	case e.secp256 != nil:
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return security.PublicKey{}, security.Errf(security.CryptoBackend, "secp256k1 keygen: %v", err)
		}
		e.secp256.priv = priv
		return security.NewPublicKey(priv.PubKey().SerializeCompressed()), nil
	}
	return security.PublicKey{}, security.Errf(security.CryptoBackend, "model not initialized")
}

func (e *ellipticCurveDH) ComputeSharedSecretFromPeerKey(peerPublicKey security.PublicKey) (security.SharedSecret, security.SupplementalData, error) {
	switch {
	case e.std != nil:
		peerKey, err := e.std.curve.NewPublicKey(peerPublicKey.Bytes())
		if err != nil {
			return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.Malformed, "invalid peer public key: %v", err)
		}
		shared, err := e.std.priv.ECDH(peerKey)
		if err != nil {
			return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.CryptoBackend, "ecdh: %v", err)
		}
		return security.NewSharedSecret(shared), security.SupplementalData{}, nil

	case e.x25519 != nil:
		if peerPublicKey.Size() != 32 {
			return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.Malformed, "x25519 public key must be 32 bytes")
		}
		shared, err := curve25519.X25519(e.x25519.priv[:], peerPublicKey.Bytes())
		if err != nil {
			return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.CryptoBackend, "x25519: %v", err)
		}
		return security.NewSharedSecret(shared), security.SupplementalData{}, nil

	case e.secp256 != nil:
		peerKey, err := secp256k1.ParsePubKey(peerPublicKey.Bytes())
		if err != nil {
			return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.Malformed, "invalid secp256k1 public key: %v", err)
		}
		var result secp256k1.JacobianPoint
		peerKey.AsJacobian(&result)
		var scalar secp256k1.ModNScalar
		scalar.SetByteSlice(e.secp256.priv.Serialize())
		var shared secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(&scalar, &result, &shared)
		shared.ToAffine()
		xBytes := shared.X.Bytes()
		return security.NewSharedSecret(xBytes[:]), security.SupplementalData{}, nil
	}
	return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.CryptoBackend, "model not initialized")
}

func (e *ellipticCurveDH) ComputeSharedSecretFromSupplementalData(_ security.SupplementalData) (security.SharedSecret, error) {
	return security.SharedSecret{}, security.Errf(security.CryptoBackend, "ecdh has no supplemental data")
}

func (e *ellipticCurveDH) HasSupplementalData() bool { return false }

func (e *ellipticCurveDH) SupplementalDataSize() (int, error) { return 0, nil }
