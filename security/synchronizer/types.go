// Package synchronizer drives the two-role handshake state machine that
// negotiates a CipherSuite, runs its key-agreement model, and proves
// agreement via an encrypted, transcript-signed verification exchange. It is
// the synchronous counterpart to session.go/tkm.go in the teacher: the
// protocol state lives here, the wire shapes live in security/wire, and the
// primitives live in the security package itself.
package synchronizer

import "github.com/vpiscitello/brypt-node-sub000/security"

// Stage names where a synchronizer is within its role's sequence. The
// initiator and acceptor advance through different stage sequences; see
// Initiator and Acceptor for the concrete transitions.
type Stage int

const (
	StageCipherSuiteSelection Stage = iota
	StageKeyExchange                // acceptor only: awaiting the initiator's key-exchange frame
	StageKeyVerification             // initiator only: awaiting the acceptor's verification frame
	StageSynchronized
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageCipherSuiteSelection:
		return "CipherSuiteSelection"
	case StageKeyExchange:
		return "KeyExchange"
	case StageKeyVerification:
		return "KeyVerification"
	case StageSynchronized:
		return "Synchronized"
	case StageError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is the coarse outcome a mediator cares about: keep pumping frames,
// hand off the finished CipherPackage, or tear down.
type Status int

const (
	StatusProcessing Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusProcessing:
		return "Processing"
	case StatusReady:
		return "Ready"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Executor is the shape both Initiator and Acceptor satisfy; the mediator
// package drives a handshake through this interface without caring which
// role is underneath.
type Executor interface {
	Initialize() ([]byte, error)
	Synchronize(frame []byte) ([]byte, Status, error)
	Finalize() (*security.CipherPackage, error)
	Stage() Stage
	Status() Status
	Erase()
}

// minLevel returns the lowest of the three component levels, implementing
// the rule that a suite's confidentiality level is the minimum over its
// independently matched key-agreement, cipher, and hash.
func minLevel(a, b, c security.Level) security.Level {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
