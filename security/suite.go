package security

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"strings"
)

// Level is the confidentiality level a cipher suite offers. Levels are
// totally ordered Low < Medium < High, matching the catalog's declared order.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "Low"
	case LevelMedium:
		return "Medium"
	case LevelHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// cipherMeta describes everything the CipherSuite constructor needs to know
// about a named symmetric cipher, in lieu of a real backend registry (the
// teacher's cipher_suites.go plays the same role for IKE transform IDs).
type cipherMeta struct {
	keySize   int
	ivSize    int
	blockSize int
	padded    bool // CBC/ECB-style block padding
	aead      bool
}

var knownCiphers = map[string]cipherMeta{
	"aes-128-cbc":       {keySize: 16, ivSize: 16, blockSize: 16, padded: true},
	"aes-256-cbc":       {keySize: 32, ivSize: 16, blockSize: 16, padded: true},
	"aes-128-ctr":       {keySize: 16, ivSize: 16, blockSize: 16, padded: false},
	"aes-256-ctr":       {keySize: 32, ivSize: 16, blockSize: 16, padded: false},
	"aes-128-gcm":       {keySize: 16, ivSize: 12, blockSize: 16, padded: false, aead: true},
	"aes-256-gcm":       {keySize: 32, ivSize: 12, blockSize: 16, padded: false, aead: true},
	"aes-256-ccm":       {keySize: 32, ivSize: 12, blockSize: 16, padded: false, aead: true},
	"chacha20-poly1305": {keySize: 32, ivSize: 12, blockSize: 64, padded: false, aead: true},
	"camellia-256-cbc":  {keySize: 32, ivSize: 16, blockSize: 16, padded: true},
}

// knownHashSizes maps a hash name to its digest output size, used both for
// the suite's signature size and for transcript/HMAC signing (see hashNew in
// cipherpackage.go for the corresponding constructor lookup).
var knownHashSizes = map[string]int{
	"sha1":   sha1.Size,
	"sha256": sha256.Size,
	"sha384": sha512.Size384,
	"sha512": sha512.Size,
}

// knownKeyAgreementPrefixes lists the key-agreement family prefixes the
// keyagreement package dispatches on; used only to validate that
// CipherSuite construction isn't handed a name whose prefix no family claims.
var knownKeyAgreementPrefixes = []string{"ffdhe", "ecdh", "kem"}

func keyAgreementKnown(name string) bool {
	idx := strings.IndexByte(name, '-')
	prefix := name
	if idx >= 0 {
		prefix = name[:idx]
	}
	for _, p := range knownKeyAgreementPrefixes {
		if p == prefix {
			return true
		}
	}
	return false
}

const aeadTagSize = 16

// CipherSuite is an immutable description of a negotiated (level,
// key-agreement, cipher, hash) tuple plus the sizes derived from it.
type CipherSuite struct {
	Level           Level
	KeyAgreement    string
	Cipher          string
	Hash            string
	EncryptionKeySize int
	IVSize            int
	BlockSize         int
	PadsInput         bool
	IsAuthenticated   bool
	NeedsGeneratedIV  bool
	TagSize           int
	SignatureSize     int
}

// NewCipherSuite validates and describes the three chosen algorithm names,
// failing with AlgorithmUnknown if any is empty or unknown. The cipher and
// hash must be known by full name; the key agreement is checked by family
// prefix only, so a name that keyagreement.Select rejects can still pass.
func NewCipherSuite(level Level, keyAgreement, cipherName, hashName string) (CipherSuite, error) {
	if keyAgreement == "" || cipherName == "" || hashName == "" {
		return CipherSuite{}, Errf(AlgorithmUnknown, "empty algorithm name in suite")
	}
	if !keyAgreementKnown(keyAgreement) {
		return CipherSuite{}, Errf(AlgorithmUnknown, "unknown key agreement %q", keyAgreement)
	}
	cm, ok := knownCiphers[cipherName]
	if !ok {
		return CipherSuite{}, Errf(AlgorithmUnknown, "unknown cipher %q", cipherName)
	}
	hashSize, ok := knownHashSizes[hashName]
	if !ok {
		return CipherSuite{}, Errf(AlgorithmUnknown, "unknown hash %q", hashName)
	}

	needsGeneratedIV := !cm.aead
	lower := strings.ToLower(cipherName)
	if strings.Contains(lower, "ccm") || strings.Contains(lower, "ocb") || strings.Contains(lower, "chacha") {
		needsGeneratedIV = true
	}

	tagSize := 0
	if cm.aead {
		tagSize = aeadTagSize
	}

	return CipherSuite{
		Level:             level,
		KeyAgreement:      keyAgreement,
		Cipher:            cipherName,
		Hash:              hashName,
		EncryptionKeySize: cm.keySize,
		IVSize:            cm.ivSize,
		BlockSize:         cm.blockSize,
		PadsInput:         cm.padded,
		IsAuthenticated:   cm.aead,
		NeedsGeneratedIV:  needsGeneratedIV,
		TagSize:           tagSize,
		SignatureSize:     hashSize,
	}, nil
}

// EncryptedSize returns the ciphertext length for a plaintext of n bytes,
// zero for n == 0.
func (s CipherSuite) EncryptedSize(n int) int {
	if n == 0 {
		return 0
	}
	total := n + s.IVSize
	if s.PadsInput {
		total += s.BlockSize - (n % s.BlockSize)
	}
	if s.IsAuthenticated {
		total += s.TagSize
	}
	return total
}

// Compare totally orders suites by (level, key-agreement, cipher, hash).
func (s CipherSuite) Compare(other CipherSuite) int {
	if s.Level != other.Level {
		return int(s.Level) - int(other.Level)
	}
	if c := strings.Compare(s.KeyAgreement, other.KeyAgreement); c != 0 {
		return c
	}
	if c := strings.Compare(s.Cipher, other.Cipher); c != 0 {
		return c
	}
	return strings.Compare(s.Hash, other.Hash)
}

// CipherSuites is a sortable collection, the way the teacher's Transforms
// type bundles related comparisons.
type CipherSuites []CipherSuite

func (c CipherSuites) Len() int           { return len(c) }
func (c CipherSuites) Less(i, j int) bool { return c[i].Compare(c[j]) < 0 }
func (c CipherSuites) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
