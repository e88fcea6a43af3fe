// Package wire encodes and decodes the little-endian handshake frames
// exchanged between an initiator and acceptor synchronizer, per spec.md
// section 6.1. All multi-byte integers are little-endian; strings are
// u16-length-prefixed; the remaining blobs use the width noted at each call
// site.
package wire

import (
	"encoding/binary"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

const (
	MaxAlgorithmNameLen = 64
	MaxAlgorithmsPerCategory = 16
	MaxPublicKeySize = 65536
	MaxSaltSize = 64
)

func putU16(dst []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(dst, v) }
func putU32(dst []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(dst, v) }

func getU16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, security.Errf(security.Malformed, "buffer too short for u16")
	}
	return binary.LittleEndian.Uint16(b), b[2:], nil
}

func getU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, security.Errf(security.Malformed, "buffer too short for u32")
	}
	return binary.LittleEndian.Uint32(b), b[4:], nil
}

// WriteString appends u16 length || bytes. Fails if s exceeds
// MaxAlgorithmNameLen, the only strings this wire format carries.
func WriteString(dst []byte, s string) ([]byte, error) {
	if len(s) > MaxAlgorithmNameLen {
		return nil, security.Errf(security.Malformed, "name %q exceeds max length %d", s, MaxAlgorithmNameLen)
	}
	dst = putU16(dst, uint16(len(s)))
	dst = append(dst, s...)
	return dst, nil
}

// ReadString parses a u16-length-prefixed string, rejecting lengths above
// MaxAlgorithmNameLen without consuming the body.
func ReadString(b []byte) (string, []byte, error) {
	n, rest, err := getU16(b)
	if err != nil {
		return "", nil, err
	}
	if int(n) > MaxAlgorithmNameLen {
		return "", nil, security.Errf(security.Malformed, "name length %d exceeds max %d", n, MaxAlgorithmNameLen)
	}
	if len(rest) < int(n) {
		return "", nil, security.Errf(security.Malformed, "buffer too short for name")
	}
	return string(rest[:n]), rest[n:], nil
}

// WriteLenPrefixed32 appends u32 length || data.
func WriteLenPrefixed32(dst, data []byte) []byte {
	dst = putU32(dst, uint32(len(data)))
	return append(dst, data...)
}

// ReadLenPrefixed32 parses a u32-length-prefixed blob, rejecting a declared
// length above max.
func ReadLenPrefixed32(b []byte, max int) ([]byte, []byte, error) {
	n, rest, err := getU32(b)
	if err != nil {
		return nil, nil, err
	}
	if int(n) > max {
		return nil, nil, security.Errf(security.Malformed, "length %d exceeds max %d", n, max)
	}
	if len(rest) < int(n) {
		return nil, nil, security.Errf(security.Malformed, "buffer too short for blob")
	}
	return rest[:n], rest[n:], nil
}

// WriteLenPrefixed16 appends u16 length || data.
func WriteLenPrefixed16(dst, data []byte) []byte {
	dst = putU16(dst, uint16(len(data)))
	return append(dst, data...)
}

// ReadLenPrefixed16 parses a u16-length-prefixed blob, rejecting a declared
// length above max.
func ReadLenPrefixed16(b []byte, max int) ([]byte, []byte, error) {
	n, rest, err := getU16(b)
	if err != nil {
		return nil, nil, err
	}
	if int(n) > max {
		return nil, nil, security.Errf(security.Malformed, "length %d exceeds max %d", n, max)
	}
	if len(rest) < int(n) {
		return nil, nil, security.Errf(security.Malformed, "buffer too short for blob")
	}
	return rest[:n], rest[n:], nil
}

// EncodeNameList writes u16 count || u16 total_bytes || {u16 name_len ||
// name_bytes}*count, failing if count or any name exceeds the protocol max.
func EncodeNameList(names []string) ([]byte, error) {
	if len(names) > MaxAlgorithmsPerCategory {
		return nil, security.Errf(security.Malformed, "%d names exceeds max %d per category", len(names), MaxAlgorithmsPerCategory)
	}
	var body []byte
	for _, n := range names {
		var err error
		body, err = WriteString(body, n)
		if err != nil {
			return nil, err
		}
	}
	out := putU16(nil, uint16(len(names)))
	out = putU16(out, uint16(len(body)))
	out = append(out, body...)
	return out, nil
}

// DecodeNameList parses the inverse of EncodeNameList, validating both the
// declared count and total byte length against protocol maxima before
// touching the name bodies.
func DecodeNameList(b []byte) ([]string, []byte, error) {
	count, rest, err := getU16(b)
	if err != nil {
		return nil, nil, err
	}
	if int(count) > MaxAlgorithmsPerCategory {
		return nil, nil, security.Errf(security.Malformed, "declared count %d exceeds max %d", count, MaxAlgorithmsPerCategory)
	}
	totalBytes, rest, err := getU16(rest)
	if err != nil {
		return nil, nil, err
	}
	if maxListBytes := MaxAlgorithmsPerCategory * (2 + MaxAlgorithmNameLen); int(totalBytes) > maxListBytes {
		return nil, nil, security.Errf(security.Malformed, "declared list size %d exceeds max %d", totalBytes, maxListBytes)
	}
	if len(rest) < int(totalBytes) {
		return nil, nil, security.Errf(security.Malformed, "buffer shorter than declared list size")
	}
	listBuf := rest[:totalBytes]
	remainder := rest[totalBytes:]

	names := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		var name string
		var err error
		name, listBuf, err = ReadString(listBuf)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
	}
	return names, remainder, nil
}

// Proposal is the initiator's opening frame: the three supported-algorithm
// lists.
type Proposal struct {
	Agreements, Ciphers, Hashes []string
}

func EncodeProposal(p Proposal) ([]byte, error) {
	var out []byte
	for _, list := range [][]string{p.Agreements, p.Ciphers, p.Hashes} {
		enc, err := EncodeNameList(list)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

func DecodeProposal(b []byte) (Proposal, error) {
	var p Proposal
	var err error
	p.Agreements, b, err = DecodeNameList(b)
	if err != nil {
		return Proposal{}, err
	}
	p.Ciphers, b, err = DecodeNameList(b)
	if err != nil {
		return Proposal{}, err
	}
	p.Hashes, _, err = DecodeNameList(b)
	if err != nil {
		return Proposal{}, err
	}
	return p, nil
}

// Selection is the acceptor's response naming the chosen algorithms and
// carrying its public key and salt.
type Selection struct {
	Agreement, Cipher, Hash string
	PublicKey, Salt         []byte
}

func EncodeSelection(s Selection) ([]byte, error) {
	var out []byte
	var err error
	if out, err = WriteString(out, s.Agreement); err != nil {
		return nil, err
	}
	if out, err = WriteString(out, s.Cipher); err != nil {
		return nil, err
	}
	if out, err = WriteString(out, s.Hash); err != nil {
		return nil, err
	}
	out = WriteLenPrefixed32(out, s.PublicKey)
	out = WriteLenPrefixed16(out, s.Salt)
	return out, nil
}

func DecodeSelection(b []byte) (Selection, []byte, error) {
	var s Selection
	var err error
	if s.Agreement, b, err = ReadString(b); err != nil {
		return Selection{}, nil, err
	}
	if s.Cipher, b, err = ReadString(b); err != nil {
		return Selection{}, nil, err
	}
	if s.Hash, b, err = ReadString(b); err != nil {
		return Selection{}, nil, err
	}
	if s.PublicKey, b, err = ReadLenPrefixed32(b, MaxPublicKeySize); err != nil {
		return Selection{}, nil, err
	}
	if s.Salt, b, err = ReadLenPrefixed16(b, MaxSaltSize); err != nil {
		return Selection{}, nil, err
	}
	return s, b, nil
}

// KeyExchange is the initiator's second frame: its public key and salt
// (echoing the chosen algorithms for the acceptor's sanity check), an
// optional raw supplemental data blob (KEM ciphertext), and the encrypted
// verification blob plus transcript signature. SupplementalData,
// Verification and Signature are not length-prefixed on the wire: their
// lengths are implicit in the negotiated model and cipher suite, so callers
// slice the tail themselves via SplitKeyExchangeTail after decoding the head.
type KeyExchange struct {
	Agreement, Cipher, Hash string
	PublicKey, Salt         []byte
	SupplementalData        []byte
	Verification            []byte
	Signature                []byte
}

// EncodeKeyExchange writes the fixed-format head (names, public key, salt)
// followed by the raw, implicitly-sized tail in supplementalData ||
// verification || signature order. Callers pass already-sized slices; this
// function does not validate tail lengths against the suite, since it has no
// suite in scope.
func EncodeKeyExchange(k KeyExchange) ([]byte, error) {
	var out []byte
	var err error
	if out, err = WriteString(out, k.Agreement); err != nil {
		return nil, err
	}
	if out, err = WriteString(out, k.Cipher); err != nil {
		return nil, err
	}
	if out, err = WriteString(out, k.Hash); err != nil {
		return nil, err
	}
	out = WriteLenPrefixed32(out, k.PublicKey)
	out = WriteLenPrefixed16(out, k.Salt)
	out = append(out, k.SupplementalData...)
	out = append(out, k.Verification...)
	out = append(out, k.Signature...)
	return out, nil
}

// DecodeKeyExchangeHead parses the fixed-format head and returns the raw
// undifferentiated tail bytes (supplementalData || verification ||
// signature) for the caller to split once it knows the negotiated sizes.
func DecodeKeyExchangeHead(b []byte) (KeyExchange, []byte, error) {
	var k KeyExchange
	var err error
	if k.Agreement, b, err = ReadString(b); err != nil {
		return KeyExchange{}, nil, err
	}
	if k.Cipher, b, err = ReadString(b); err != nil {
		return KeyExchange{}, nil, err
	}
	if k.Hash, b, err = ReadString(b); err != nil {
		return KeyExchange{}, nil, err
	}
	if k.PublicKey, b, err = ReadLenPrefixed32(b, MaxPublicKeySize); err != nil {
		return KeyExchange{}, nil, err
	}
	if k.Salt, b, err = ReadLenPrefixed16(b, MaxSaltSize); err != nil {
		return KeyExchange{}, nil, err
	}
	return k, b, nil
}

// SplitKeyExchangeTail splits a KeyExchange frame's raw tail into its three
// implicitly-sized fields given the caller's knowledge of supplementalSize
// (0 for DH families) and signatureSize from the negotiated suite. Whatever
// remains after supplementalData and the trailing signature is the encrypted
// verification blob.
func SplitKeyExchangeTail(tail []byte, supplementalSize, signatureSize int) (supplemental, verification, signature []byte, err error) {
	if len(tail) < supplementalSize+signatureSize {
		return nil, nil, nil, security.Errf(security.Malformed, "key-exchange tail shorter than declared sizes")
	}
	supplemental = tail[:supplementalSize]
	rest := tail[supplementalSize:]
	verification = rest[:len(rest)-signatureSize]
	signature = rest[len(rest)-signatureSize:]
	return supplemental, verification, signature, nil
}

// Verification is the acceptor's closing frame: the encrypted verification
// blob plus a transcript signature, both implicitly sized.
type Verification struct {
	Verification []byte
	Signature    []byte
}

func EncodeVerification(v Verification) []byte {
	out := append([]byte(nil), v.Verification...)
	out = append(out, v.Signature...)
	return out
}

// SplitVerificationTail splits a Verification frame's raw body into its
// verification and signature fields given signatureSize from the negotiated
// suite.
func SplitVerificationTail(body []byte, signatureSize int) (verification, signature []byte, err error) {
	if len(body) < signatureSize {
		return nil, nil, security.Errf(security.Malformed, "verification frame shorter than signature size")
	}
	verification = body[:len(body)-signatureSize]
	signature = body[len(body)-signatureSize:]
	return verification, signature, nil
}
