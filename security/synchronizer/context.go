package synchronizer

import (
	"crypto/subtle"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/vpiscitello/brypt-node-sub000/metrics"
	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/catalog"
	"github.com/vpiscitello/brypt-node-sub000/security/keyagreement"
)

// context is the shared state both Initiator and Acceptor drive. It is
// unexported: callers only ever see it through the two role-specific
// executors, the way the teacher hides Tkm's fields behind Session.
type context struct {
	role    security.ExchangeRole
	catalog *catalog.Catalog
	logger  log.Logger
	metrics *metrics.Collector

	stage       Stage
	status      Status
	initialized bool
	startedAt   time.Time

	transcript []byte

	suite security.CipherSuite
	model keyagreement.Model
	store *security.KeyStore
	pkg   *security.CipherPackage

	// ownVerify is the verification plaintext this side derived from
	// GenerateSessionKeys; it's identical to the peer's if and only if both
	// sides agree on the shared secret and composed salt.
	ownVerify security.SharedSecret
}

func newContext(role security.ExchangeRole, cat *catalog.Catalog, logger log.Logger, mcs *metrics.Collector) *context {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &context{
		role:    role,
		catalog: cat,
		logger:  log.With(logger, "role", role.String()),
		metrics: mcs,
		stage:   StageCipherSuiteSelection,
		status:  StatusProcessing,
	}
}

func (c *context) fail(code security.ErrorCode, format string, a ...interface{}) error {
	err := security.Errf(code, format, a...)
	c.stage = StageError
	c.status = StatusError
	if c.metrics != nil {
		c.metrics.HandshakeErrored(c.role.String(), code.String())
	}
	level.Error(c.logger).Log("msg", "synchronizer failed", "stage", c.stage, "code", code, "err", err)
	return err
}

func (c *context) ready() {
	c.stage = StageSynchronized
	c.status = StatusReady
	if c.metrics != nil {
		c.metrics.HandshakeReady(c.role.String(), time.Since(c.startedAt))
	}
	level.Info(c.logger).Log("msg", "synchronizer ready")
}

// signTranscript appends newBytes to the running transcript, signs the whole
// thing with the package's local signature key, and returns only the
// trailing HMAC -- the caller appends that to the frame it is sending, it
// never resends the transcript itself.
func (c *context) signTranscript(newBytes []byte) ([]byte, error) {
	c.transcript = append(c.transcript, newBytes...)
	signed, err := c.pkg.Sign(c.transcript)
	if err != nil {
		return nil, err
	}
	return signed[len(c.transcript):], nil
}

// verifyTranscript appends newBytes to the running transcript and checks
// signature against it using the peer's signature key.
func (c *context) verifyTranscript(newBytes, signature []byte) error {
	c.transcript = append(c.transcript, newBytes...)
	combined := make([]byte, 0, len(c.transcript)+len(signature))
	combined = append(combined, c.transcript...)
	combined = append(combined, signature...)
	return c.pkg.Verify(combined)
}

func verificationMatches(local security.SharedSecret, remote []byte) bool {
	return subtle.ConstantTimeCompare(local.Bytes(), remote) == 1
}

// Stage reports the executor's current stage.
func (c *context) Stage() Stage { return c.stage }

// Status reports the executor's current status.
func (c *context) Status() Status { return c.status }

// erase zeroizes every secret this context still owns. Safe to call more
// than once and safe to call after Finalize: pkg is nil by then and the
// keystore belongs to the package Finalize returned, so it is left intact.
func (c *context) erase() {
	finalized := c.status == StatusReady && c.pkg == nil
	if c.store != nil && !finalized {
		c.store.Erase()
	}
	c.ownVerify.Erase()
	for i := range c.transcript {
		c.transcript[i] = 0
	}
	c.transcript = nil
}
