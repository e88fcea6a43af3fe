package synchronizer

import (
	"time"

	"github.com/go-kit/kit/log/level"

	"github.com/vpiscitello/brypt-node-sub000/metrics"
	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/catalog"
	"github.com/vpiscitello/brypt-node-sub000/security/keyagreement"
	"github.com/vpiscitello/brypt-node-sub000/security/wire"

	"github.com/go-kit/kit/log"
)

// Initiator drives the two-stage initiator sequence: propose every algorithm
// the catalog offers, then react to the acceptor's selection by running key
// agreement and verifying the acceptor's proof of shared derivation.
type Initiator struct {
	ctx *context
}

// NewInitiator builds an Initiator bound to cat. logger and mcs may be nil.
func NewInitiator(cat *catalog.Catalog, logger log.Logger, mcs *metrics.Collector) *Initiator {
	return &Initiator{ctx: newContext(security.RoleInitiator, cat, logger, mcs)}
}

func (in *Initiator) Stage() Stage   { return in.ctx.Stage() }
func (in *Initiator) Status() Status { return in.ctx.Status() }

// Initialize produces the opening proposal frame. It may only be called
// once.
func (in *Initiator) Initialize() ([]byte, error) {
	ctx := in.ctx
	if ctx.initialized {
		return nil, ctx.fail(security.StageMisuse, "Initialize called more than once")
	}
	ctx.initialized = true
	ctx.startedAt = time.Now()
	if ctx.metrics != nil {
		ctx.metrics.HandshakeStarted(ctx.role.String())
	}

	proposal := wire.Proposal{
		Agreements: ctx.catalog.AllAgreements(),
		Ciphers:    ctx.catalog.AllCiphers(),
		Hashes:     ctx.catalog.AllHashes(),
	}
	frame, err := wire.EncodeProposal(proposal)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "encode proposal: %v", err)
	}
	ctx.transcript = append(ctx.transcript, frame...)
	level.Debug(ctx.logger).Log("msg", "sent proposal", "agreements", len(proposal.Agreements), "ciphers", len(proposal.Ciphers), "hashes", len(proposal.Hashes))
	return frame, nil
}

// Synchronize feeds in the next frame from the acceptor and returns the
// initiator's response frame, if any, along with the resulting status.
func (in *Initiator) Synchronize(frame []byte) ([]byte, Status, error) {
	ctx := in.ctx
	switch ctx.stage {
	case StageCipherSuiteSelection:
		out, err := in.handleSelection(frame)
		if err != nil {
			return nil, StatusError, err
		}
		return out, ctx.status, nil
	case StageKeyVerification:
		if err := in.handleVerification(frame); err != nil {
			return nil, StatusError, err
		}
		return nil, ctx.status, nil
	default:
		return nil, StatusError, ctx.fail(security.StageMisuse, "Synchronize called in stage %v", ctx.stage)
	}
}

func (in *Initiator) handleSelection(frame []byte) ([]byte, error) {
	ctx := in.ctx
	sel, _, err := wire.DecodeSelection(frame)
	if err != nil {
		return nil, ctx.fail(security.Malformed, "decode selection: %v", err)
	}
	ctx.transcript = append(ctx.transcript, frame...)

	// Each component is validated independently against the levels this
	// catalog actually offers it at; the suite's level is the minimum of the
	// three, so the acceptor's selection may legitimately span levels.
	aLvl, ok := ctx.catalog.LevelOfAgreement(sel.Agreement)
	if !ok {
		return nil, ctx.fail(security.AlgorithmRejected, "acceptor selected unoffered key agreement %q", sel.Agreement)
	}
	cLvl, ok := ctx.catalog.LevelOfCipher(sel.Cipher)
	if !ok {
		return nil, ctx.fail(security.AlgorithmRejected, "acceptor selected unoffered cipher %q", sel.Cipher)
	}
	hLvl, ok := ctx.catalog.LevelOfHash(sel.Hash)
	if !ok {
		return nil, ctx.fail(security.AlgorithmRejected, "acceptor selected unoffered hash %q", sel.Hash)
	}
	lvl := minLevel(aLvl, cLvl, hLvl)

	suite, err := security.NewCipherSuite(lvl, sel.Agreement, sel.Cipher, sel.Hash)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "build cipher suite: %v", err)
	}
	ctx.suite = suite

	model, err := keyagreement.Select(sel.Agreement)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "select model: %v", err)
	}
	ctx.model = model

	ownPub, err := model.SetupKeyExchange(suite)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "setup key exchange: %v", err)
	}
	store, err := security.NewKeyStore(ownPub)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "new keystore: %v", err)
	}
	ownSaltHalf := store.Salt()
	ctx.store = store

	peerPub := security.NewPublicKey(sel.PublicKey)
	peerSalt := security.NewSalt(sel.Salt)
	store.SetPeerPublicKey(peerPub)
	store.PrependSessionSalt(peerSalt)

	shared, supplemental, err := model.ComputeSharedSecretFromPeerKey(peerPub)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "compute shared secret: %v", err)
	}
	defer shared.Erase()

	verifyPlain, err := store.GenerateSessionKeys(security.RoleInitiator, suite, shared)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "generate session keys: %v", err)
	}
	ctx.pkg = security.NewCipherPackage(suite, store)
	ctx.pkg.SetMetrics(ctx.metrics)
	ctx.ownVerify = verifyPlain

	encVerify, err := ctx.pkg.Encrypt(nil, ctx.ownVerify.Bytes())
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "encrypt verification data: %v", err)
	}

	var supplementalBytes []byte
	if model.HasSupplementalData() {
		supplementalBytes = supplemental.Bytes()
	}
	defer supplemental.Erase()

	unsigned, err := wire.EncodeKeyExchange(wire.KeyExchange{
		Agreement:        sel.Agreement,
		Cipher:           sel.Cipher,
		Hash:             sel.Hash,
		PublicKey:        ownPub.Bytes(),
		Salt:             ownSaltHalf.Bytes(),
		SupplementalData: supplementalBytes,
		Verification:     encVerify,
	})
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "encode key exchange: %v", err)
	}

	sig, err := ctx.signTranscript(unsigned)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "sign transcript: %v", err)
	}
	ctx.stage = StageKeyVerification
	level.Debug(ctx.logger).Log("msg", "sent key exchange", "agreement", sel.Agreement, "cipher", sel.Cipher, "hash", sel.Hash)
	return append(unsigned, sig...), nil
}

func (in *Initiator) handleVerification(frame []byte) error {
	ctx := in.ctx
	verification, signature, err := wire.SplitVerificationTail(frame, ctx.suite.SignatureSize)
	if err != nil {
		return ctx.fail(security.Malformed, "split verification frame: %v", err)
	}
	signedContent := frame[:len(frame)-len(signature)]
	if err := ctx.verifyTranscript(signedContent, signature); err != nil {
		return ctx.fail(security.VerificationFailure, "transcript signature mismatch")
	}

	plain, err := ctx.pkg.Decrypt(verification)
	if err != nil {
		return ctx.fail(security.DecryptionFailure, "decrypt verification data")
	}
	if !verificationMatches(ctx.ownVerify, plain) {
		return ctx.fail(security.VerificationFailure, "verification data mismatch")
	}
	ctx.ownVerify.Erase()
	ctx.ready()
	return nil
}

// Finalize transfers ownership of the finished CipherPackage out of the
// synchronizer. Valid only once Status() reports StatusReady.
func (in *Initiator) Finalize() (*security.CipherPackage, error) {
	ctx := in.ctx
	if ctx.status != StatusReady {
		return nil, security.Errf(security.NotReady, "initiator not ready, status %v", ctx.status)
	}
	pkg := ctx.pkg.Take()
	ctx.pkg = nil
	return pkg, nil
}

// Erase zeroizes any secret material this synchronizer still holds. Safe to
// call after Finalize or at any point in an aborted handshake.
func (in *Initiator) Erase() { in.ctx.erase() }
