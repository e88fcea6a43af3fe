// Package security implements the cryptographic core of the mesh node: cipher
// suite negotiation, the keystore, and the authenticated record layer built on
// top of it. Handshake orchestration lives in the synchronizer and mediator
// subpackages.
package security

import (
	"errors"
	"fmt"
)

// ErrorCode is a taxonomy of failure classes, not a set of distinct Go error
// types. Every failure the core can produce is one of these.
type ErrorCode int

const (
	AlgorithmUnknown ErrorCode = iota + 1
	AlgorithmRejected
	Malformed
	CryptoBackend
	DecryptionFailure
	VerificationFailure
	NotReady
	StageMisuse
	RecoverableState
)

func (c ErrorCode) String() string {
	switch c {
	case AlgorithmUnknown:
		return "AlgorithmUnknown"
	case AlgorithmRejected:
		return "AlgorithmRejected"
	case Malformed:
		return "Malformed"
	case CryptoBackend:
		return "CryptoBackend"
	case DecryptionFailure:
		return "DecryptionFailure"
	case VerificationFailure:
		return "VerificationFailure"
	case NotReady:
		return "NotReady"
	case StageMisuse:
		return "StageMisuse"
	case RecoverableState:
		return "RecoverableState"
	default:
		return "Unknown"
	}
}

// Error pairs an ErrorCode with a human-readable message. Verification and
// decryption failures deliberately carry no extra detail beyond the code so
// that callers cannot distinguish "bad signature" from "bad ciphertext" --
// see spec.md's no-oracle requirement.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code.String()
}

// Errf builds an Error with a formatted message, mirroring the teacher's
// protocol.ErrF constructor.
func Errf(code ErrorCode, format string, a ...interface{}) Error {
	return Error{Code: code, Message: fmt.Sprintf(format, a...)}
}

// CodeOf extracts the ErrorCode from err, if it is (or wraps) a security.Error.
func CodeOf(err error) (ErrorCode, bool) {
	var se Error
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
