// Package mediator owns one synchronizer per peer, routes handshake frames
// to it, and swaps the peer's message sink from the unauthorized exchange
// processor to the authorized cipher sink once the handshake reaches Ready.
// It is grounded on the teacher's Session/Fsm split (session.go owns the
// state machine, the connection layer just feeds it messages) generalized
// to a per-address registry, the way the original Resolver/Manager pairing
// in original_source/src/Components/Peer does.
package mediator

import (
	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/synchronizer"
)

// Sink is the message receiver a PeerProxy currently delegates to. Every
// inbound frame for a peer is handed to its current sink; the mediator is
// the only thing that ever swaps a proxy's sink.
type Sink interface {
	HandleFrame(frame []byte) ([]byte, error)
}

// PeerProxy is the minimal connection-side handle the mediator needs: an
// address to key its registry on, and a way to install the sink that should
// receive this peer's future frames.
type PeerProxy interface {
	Address() string
	SetSink(Sink)
}

// ExchangeProcessor is the unauthorized sink: it feeds inbound frames to the
// underlying synchronizer and reports Ready/Error back to the owning
// Mediator, mirroring ExchangeProcessor.cpp's relationship to Resolver in
// the original implementation.
type ExchangeProcessor struct {
	executor synchronizer.Executor
	mediator *Mediator
	proxy    PeerProxy
}

func (p *ExchangeProcessor) HandleFrame(frame []byte) ([]byte, error) {
	out, status, err := p.executor.Synchronize(frame)
	if err != nil {
		p.mediator.onExchangeFailed(p.proxy, err)
		return nil, err
	}
	if status == synchronizer.StatusReady {
		pkg, ferr := p.executor.Finalize()
		if ferr != nil {
			p.mediator.onExchangeFailed(p.proxy, ferr)
			return nil, ferr
		}
		p.mediator.onExchangeReady(p.proxy, pkg)
	}
	return out, nil
}

// AuthorizedSink is installed once a handshake reaches Ready: every inbound
// frame is application ciphertext decrypted under the negotiated package,
// and Seal is how the caller encrypts outbound traffic under the same
// package.
type AuthorizedSink struct {
	pkg *security.CipherPackage
}

func NewAuthorizedSink(pkg *security.CipherPackage) *AuthorizedSink {
	return &AuthorizedSink{pkg: pkg}
}

func (s *AuthorizedSink) HandleFrame(frame []byte) ([]byte, error) {
	return s.pkg.Decrypt(frame)
}

// Seal encrypts plaintext for sending to this peer.
func (s *AuthorizedSink) Seal(plaintext []byte) ([]byte, error) {
	return s.pkg.Encrypt(nil, plaintext)
}

// Package returns the underlying cipher package, e.g. for Suite() queries.
func (s *AuthorizedSink) Package() *security.CipherPackage { return s.pkg }
