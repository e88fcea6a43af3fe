package synchronizer

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/vpiscitello/brypt-node-sub000/metrics"
	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/catalog"
	"github.com/vpiscitello/brypt-node-sub000/security/keyagreement"
	"github.com/vpiscitello/brypt-node-sub000/security/wire"
)

// Acceptor drives the three-stage acceptor sequence: react to a proposal
// with a deterministic selection, run key agreement against the initiator's
// key-exchange frame, and answer with its own proof of shared derivation.
type Acceptor struct {
	ctx *context
}

// NewAcceptor builds an Acceptor bound to cat. logger and mcs may be nil.
func NewAcceptor(cat *catalog.Catalog, logger log.Logger, mcs *metrics.Collector) *Acceptor {
	return &Acceptor{ctx: newContext(security.RoleAcceptor, cat, logger, mcs)}
}

func (ac *Acceptor) Stage() Stage   { return ac.ctx.Stage() }
func (ac *Acceptor) Status() Status { return ac.ctx.Status() }

// Initialize marks the handshake as started. The acceptor has nothing to
// send until it has seen a proposal, so it always returns a nil frame.
func (ac *Acceptor) Initialize() ([]byte, error) {
	ctx := ac.ctx
	if ctx.initialized {
		return nil, ctx.fail(security.StageMisuse, "Initialize called more than once")
	}
	ctx.initialized = true
	ctx.startedAt = time.Now()
	if ctx.metrics != nil {
		ctx.metrics.HandshakeStarted(ctx.role.String())
	}
	return nil, nil
}

// Synchronize feeds in the next frame from the initiator and returns the
// acceptor's response frame, if any, along with the resulting status.
func (ac *Acceptor) Synchronize(frame []byte) ([]byte, Status, error) {
	ctx := ac.ctx
	switch ctx.stage {
	case StageCipherSuiteSelection:
		out, err := ac.handleProposal(frame)
		if err != nil {
			return nil, StatusError, err
		}
		return out, ctx.status, nil
	case StageKeyExchange:
		out, err := ac.handleKeyExchange(frame)
		if err != nil {
			return nil, StatusError, err
		}
		return out, ctx.status, nil
	default:
		return nil, StatusError, ctx.fail(security.StageMisuse, "Synchronize called in stage %v", ctx.stage)
	}
}

func (ac *Acceptor) handleProposal(frame []byte) ([]byte, error) {
	ctx := ac.ctx
	proposal, err := wire.DecodeProposal(frame)
	if err != nil {
		return nil, ctx.fail(security.Malformed, "decode proposal: %v", err)
	}
	ctx.transcript = append(ctx.transcript, frame...)

	// Each category is matched independently in catalog order; the suite's
	// level is the minimum of the three matched components' levels, so a
	// selection can legitimately span catalog levels.
	agreement, okA := catalog.FirstMatch(ctx.catalog.AllAgreements(), proposal.Agreements)
	cipherName, okC := catalog.FirstMatch(ctx.catalog.AllCiphers(), proposal.Ciphers)
	hashName, okH := catalog.FirstMatch(ctx.catalog.AllHashes(), proposal.Hashes)
	if !okA || !okC || !okH {
		return nil, ctx.fail(security.AlgorithmRejected, "no mutually supported cipher suite in proposal")
	}

	aLvl, _ := ctx.catalog.LevelOfAgreement(agreement)
	cLvl, _ := ctx.catalog.LevelOfCipher(cipherName)
	hLvl, _ := ctx.catalog.LevelOfHash(hashName)
	chosenLevel := minLevel(aLvl, cLvl, hLvl)

	suite, err := security.NewCipherSuite(chosenLevel, agreement, cipherName, hashName)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "build cipher suite: %v", err)
	}
	ctx.suite = suite

	model, err := keyagreement.Select(agreement)
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
	ctx.store = store

	sel := wire.Selection{
		Agreement: agreement,
		Cipher:    cipherName,
		Hash:      hashName,
		PublicKey: ownPub.Bytes(),
		Salt:      store.Salt().Bytes(),
	}
	frameOut, err := wire.EncodeSelection(sel)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "encode selection: %v", err)
	}
	ctx.transcript = append(ctx.transcript, frameOut...)
	ctx.stage = StageKeyExchange
	level.Debug(ctx.logger).Log("msg", "sent selection", "level", chosenLevel, "agreement", agreement, "cipher", cipherName, "hash", hashName)
	return frameOut, nil
}

func (ac *Acceptor) handleKeyExchange(frame []byte) ([]byte, error) {
	ctx := ac.ctx
	head, tail, err := wire.DecodeKeyExchangeHead(frame)
	if err != nil {
		return nil, ctx.fail(security.Malformed, "decode key exchange: %v", err)
	}
	if head.Agreement != ctx.suite.KeyAgreement || head.Cipher != ctx.suite.Cipher || head.Hash != ctx.suite.Hash {
		return nil, ctx.fail(security.AlgorithmRejected, "initiator echoed different algorithms than selected")
	}

	supplementalSize := 0
	if ctx.model.HasSupplementalData() {
		supplementalSize, err = ctx.model.SupplementalDataSize()
		if err != nil {
			return nil, ctx.fail(security.CryptoBackend, "supplemental data size: %v", err)
		}
	}
	supplemental, verification, signature, err := wire.SplitKeyExchangeTail(tail, supplementalSize, ctx.suite.SignatureSize)
	if err != nil {
		return nil, ctx.fail(security.Malformed, "split key exchange tail: %v", err)
	}
	signedContent := frame[:len(frame)-len(signature)]

	peerPub := security.NewPublicKey(head.PublicKey)
	peerSalt := security.NewSalt(head.Salt)
	ctx.store.SetPeerPublicKey(peerPub)
	ctx.store.AppendSessionSalt(peerSalt)

	var shared security.SharedSecret
	if ctx.model.HasSupplementalData() {
		shared, err = ctx.model.ComputeSharedSecretFromSupplementalData(security.NewSupplementalData(supplemental))
	} else {
		shared, _, err = ctx.model.ComputeSharedSecretFromPeerKey(peerPub)
	}
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "compute shared secret: %v", err)
	}
	defer shared.Erase()

	verifyPlain, err := ctx.store.GenerateSessionKeys(security.RoleAcceptor, ctx.suite, shared)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "generate session keys: %v", err)
	}
	ctx.pkg = security.NewCipherPackage(ctx.suite, ctx.store)
	ctx.pkg.SetMetrics(ctx.metrics)
	ctx.ownVerify = verifyPlain

	if err := ctx.verifyTranscript(signedContent, signature); err != nil {
		return nil, ctx.fail(security.VerificationFailure, "transcript signature mismatch")
	}

	peerVerifyPlain, err := ctx.pkg.Decrypt(verification)
	if err != nil {
		return nil, ctx.fail(security.DecryptionFailure, "decrypt verification data")
	}
	if !verificationMatches(ctx.ownVerify, peerVerifyPlain) {
		return nil, ctx.fail(security.VerificationFailure, "verification data mismatch")
	}

	encVerify, err := ctx.pkg.Encrypt(nil, ctx.ownVerify.Bytes())
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "encrypt verification data: %v", err)
	}
	unsigned := wire.EncodeVerification(wire.Verification{Verification: encVerify})
	sig, err := ctx.signTranscript(unsigned)
	if err != nil {
		return nil, ctx.fail(security.CryptoBackend, "sign transcript: %v", err)
	}

	ctx.ownVerify.Erase()
	ctx.ready()
	return append(unsigned, sig...), nil
}

// Finalize transfers ownership of the finished CipherPackage out of the
// synchronizer. Valid only once Status() reports StatusReady.
func (ac *Acceptor) Finalize() (*security.CipherPackage, error) {
	ctx := ac.ctx
	if ctx.status != StatusReady {
		return nil, security.Errf(security.NotReady, "acceptor not ready, status %v", ctx.status)
	}
	pkg := ctx.pkg.Take()
	ctx.pkg = nil
	return pkg, nil
}

// Erase zeroizes any secret material this synchronizer still holds.
func (ac *Acceptor) Erase() { ac.ctx.erase() }
