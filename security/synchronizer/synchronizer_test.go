package synchronizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/catalog"
)

func fullCatalog() *catalog.Catalog {
	return catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelLow: {
			Agreements: []string{"ffdhe-2048"},
			Ciphers:    []string{"aes-128-cbc"},
			Hashes:     []string{"sha1"},
		},
		security.LevelMedium: {
			Agreements: []string{"ecdh-x25519"},
			Ciphers:    []string{"aes-256-gcm"},
			Hashes:     []string{"sha256"},
		},
		security.LevelHigh: {
			Agreements: []string{"kem-kyber768"},
			Ciphers:    []string{"chacha20-poly1305"},
			Hashes:     []string{"sha512"},
		},
	})
}

// runHandshake drives a full Initiator/Acceptor exchange to completion and
// returns both finished cipher packages.
func runHandshake(t *testing.T, cat *catalog.Catalog) (*security.CipherPackage, *security.CipherPackage) {
	t.Helper()
	init := NewInitiator(cat, nil, nil)
	accept := NewAcceptor(cat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	_, err = accept.Initialize()
	require.NoError(t, err)

	selection, status, err := accept.Synchronize(proposal)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	keyExchange, status, err := init.Synchronize(selection)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	verification, status, err := accept.Synchronize(keyExchange)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, StatusReady, accept.Status())

	_, status, err = init.Synchronize(verification)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
	assert.Equal(t, StatusReady, init.Status())

	initPkg, err := init.Finalize()
	require.NoError(t, err)
	acceptPkg, err := accept.Finalize()
	require.NoError(t, err)
	return initPkg, acceptPkg
}

// TestAcceptorSelectsSuiteSpanningCatalogLevels exercises the independent
// per-category matching rule: the acceptor's catalog offers its
// key-agreement only at Low and its cipher/hash only at Medium, and the
// proposal asks for exactly that split. The negotiated suite must still
// form (agreement matched at Low, cipher and hash matched at Medium,
// suite level = min of the three = Low) rather than being rejected for
// not fitting a single LevelEntry.
func TestAcceptorSelectsSuiteSpanningCatalogLevels(t *testing.T) {
	acceptorCat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelLow: {
			Agreements: []string{"ffdhe-2048"},
			Ciphers:    []string{"aes-128-cbc"},
			Hashes:     []string{"sha1"},
		},
		security.LevelMedium: {
			Agreements: []string{"ecdh-x25519"},
			Ciphers:    []string{"aes-256-gcm"},
			Hashes:     []string{"sha256"},
		},
	})
	// The initiator's own catalog only matters for what it proposes and
	// for re-deriving a level for the acceptor's echoed selection; bundle
	// all three chosen names into one level so the initiator's own
	// min-level computation is trivially self-consistent.
	initiatorCat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelLow: {
			Agreements: []string{"ffdhe-2048"},
			Ciphers:    []string{"aes-256-gcm"},
			Hashes:     []string{"sha256"},
		},
	})

	init := NewInitiator(initiatorCat, nil, nil)
	accept := NewAcceptor(acceptorCat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	_, err = accept.Initialize()
	require.NoError(t, err)

	selection, status, err := accept.Synchronize(proposal)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	keyExchange, status, err := init.Synchronize(selection)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	verification, status, err := accept.Synchronize(keyExchange)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)

	_, status, err = init.Synchronize(verification)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)

	initPkg, err := init.Finalize()
	require.NoError(t, err)
	acceptPkg, err := accept.Finalize()
	require.NoError(t, err)

	for _, pkg := range []*security.CipherPackage{initPkg, acceptPkg} {
		suite := pkg.Suite()
		assert.Equal(t, security.LevelLow, suite.Level)
		assert.Equal(t, "ffdhe-2048", suite.KeyAgreement)
		assert.Equal(t, "aes-256-gcm", suite.Cipher)
		assert.Equal(t, "sha256", suite.Hash)
	}
}

func TestHandshakeEllipticCurveReachesReady(t *testing.T) {
	cat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelMedium: {
			Agreements: []string{"ecdh-x25519"},
			Ciphers:    []string{"aes-256-gcm"},
			Hashes:     []string{"sha256"},
		},
	})
	initPkg, acceptPkg := runHandshake(t, cat)
	assert.Equal(t, "ecdh-x25519", initPkg.Suite().KeyAgreement)

	plaintext := []byte("post-handshake application data")
	sealed, err := initPkg.Encrypt(nil, plaintext)
	require.NoError(t, err)
	opened, err := acceptPkg.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestHandshakeKEMSelectedWhenOnlyHighOffered(t *testing.T) {
	cat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelHigh: {
			Agreements: []string{"kem-kyber768"},
			Ciphers:    []string{"chacha20-poly1305"},
			Hashes:     []string{"sha512"},
		},
	})
	initPkg, acceptPkg := runHandshake(t, cat)
	assert.Equal(t, "kem-kyber768", initPkg.Suite().KeyAgreement)

	sealed, err := acceptPkg.Encrypt(nil, []byte("acceptor to initiator"))
	require.NoError(t, err)
	opened, err := initPkg.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("acceptor to initiator"), opened)
}

func TestAcceptorRejectsProposalWithNoOverlap(t *testing.T) {
	hostCat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelHigh: {
			Agreements: []string{"kem-kyber768"},
			Ciphers:    []string{"chacha20-poly1305"},
			Hashes:     []string{"sha512"},
		},
	})
	peerCat := catalog.New(map[security.Level]catalog.LevelEntry{
		security.LevelLow: {
			Agreements: []string{"ffdhe-2048"},
			Ciphers:    []string{"aes-128-cbc"},
			Hashes:     []string{"sha1"},
		},
	})

	init := NewInitiator(peerCat, nil, nil)
	accept := NewAcceptor(hostCat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)

	_, _, err = accept.Synchronize(proposal)
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.AlgorithmRejected, code)
	assert.Equal(t, StatusError, accept.Status())
}

func TestTamperedSelectionSaltFailsAtAcceptor(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	accept := NewAcceptor(cat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	selection, _, err := accept.Synchronize(proposal)
	require.NoError(t, err)

	// The last byte of the selection belongs to the acceptor's salt. The
	// initiator has nothing to check it against, but it derives different
	// session keys from it, so the acceptor's transcript check of the
	// key-exchange frame fails.
	selection[len(selection)-1] ^= 0xFF

	keyExchange, _, err := init.Synchronize(selection)
	require.NoError(t, err)

	_, _, err = accept.Synchronize(keyExchange)
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.VerificationFailure, code)
	assert.Equal(t, StatusError, accept.Status())
}

func TestInitiatorDoubleInitializeFails(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	_, err := init.Initialize()
	require.NoError(t, err)

	_, err = init.Initialize()
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.StageMisuse, code)
}

func TestAcceptorSynchronizeInWrongStageFails(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	accept := NewAcceptor(cat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	_, err = accept.Initialize()
	require.NoError(t, err)

	_, _, err = accept.Synchronize(proposal)
	require.NoError(t, err)
	assert.Equal(t, StageKeyExchange, accept.Stage())

	// Feeding the proposal again replays the KeyExchange-stage handler
	// against a frame it can't decode as a key exchange, which fails.
	_, _, err = accept.Synchronize(proposal)
	require.Error(t, err)
}

func TestFinalizeBeforeReadyFails(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	_, err := init.Initialize()
	require.NoError(t, err)

	_, err = init.Finalize()
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.NotReady, code)
}

func TestAcceptorRejectsTamperedKeyExchangeSignature(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	accept := NewAcceptor(cat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	_, err = accept.Initialize()
	require.NoError(t, err)

	selection, _, err := accept.Synchronize(proposal)
	require.NoError(t, err)
	keyExchange, _, err := init.Synchronize(selection)
	require.NoError(t, err)

	keyExchange[len(keyExchange)-1] ^= 0xFF

	_, _, err = accept.Synchronize(keyExchange)
	require.Error(t, err)
	code, ok := security.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, security.VerificationFailure, code)
	assert.Equal(t, StatusError, accept.Status())
}

func TestEraseIsIdempotentAfterFinalize(t *testing.T) {
	cat := fullCatalog()
	init := NewInitiator(cat, nil, nil)
	accept := NewAcceptor(cat, nil, nil)

	proposal, err := init.Initialize()
	require.NoError(t, err)
	selection, _, err := accept.Synchronize(proposal)
	require.NoError(t, err)
	keyExchange, _, err := init.Synchronize(selection)
	require.NoError(t, err)
	verification, _, err := accept.Synchronize(keyExchange)
	require.NoError(t, err)
	_, _, err = init.Synchronize(verification)
	require.NoError(t, err)

	initPkg, err := init.Finalize()
	require.NoError(t, err)
	require.NotNil(t, initPkg)

	init.Erase()
	init.Erase()

	// The finalized package owns the keystore; erasing the synchronizer
	// must not touch it.
	_, err = initPkg.Encrypt(nil, []byte("still usable after erase"))
	assert.NoError(t, err)
}
