package mediator

import (
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vpiscitello/brypt-node-sub000/metrics"
	"github.com/vpiscitello/brypt-node-sub000/security"
	"github.com/vpiscitello/brypt-node-sub000/security/catalog"
	"github.com/vpiscitello/brypt-node-sub000/security/synchronizer"
)

// peerState is the registry entry for one in-flight exchange. exchangeID
// is logged with the "declared resolving peer" line so a handshake attempt
// can be told apart from a later exchange that reuses the same address; the
// other log lines carry only the address.
type peerState struct {
	proxy      PeerProxy
	processor  *ExchangeProcessor
	exchangeID uuid.UUID
}

// Mediator owns at most one in-flight exchange per remote address: a
// redeclaration of an address already resolving is rejected, matching
// Peer::Manager::DeclareResolvingPeer's single m_resolving map in the
// original implementation. singleflight only closes the narrow race where
// two goroutines declare the same address in the same instant; the map
// itself is the steady-state guarantee.
type Mediator struct {
	mu      sync.Mutex
	peers   map[string]*peerState
	group   singleflight.Group
	catalog *catalog.Catalog
	logger  log.Logger
	metrics *metrics.Collector
}

// New builds a Mediator driving handshakes against cat. logger and mcs may
// be nil.
func New(cat *catalog.Catalog, logger log.Logger, mcs *metrics.Collector) *Mediator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Mediator{
		peers:   make(map[string]*peerState),
		catalog: cat,
		logger:  logger,
		metrics: mcs,
	}
}

// ResolvingCount reports how many addresses currently have an in-flight
// exchange, mirroring Peer::Manager::ResolvingCount.
func (m *Mediator) ResolvingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// DeclareResolvingPeer registers proxy as resolving and returns the first
// outbound frame to send it (the initiator's proposal, or nil for an
// acceptor who has nothing to send until it sees one). If knownIdentifier is
// non-empty, the mediator short-circuits to a heartbeat probe instead of
// running the full handshake, matching the original DeclareResolvingPeer's
// shortcut for peers whose identity already survived a prior session.
func (m *Mediator) DeclareResolvingPeer(proxy PeerProxy, role security.ExchangeRole, knownIdentifier string) ([]byte, error) {
	if knownIdentifier != "" {
		return heartbeatProbe(knownIdentifier), nil
	}

	addr := proxy.Address()
	v, err, _ := m.group.Do(addr, func() (interface{}, error) {
		return m.beginResolving(proxy, role)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (m *Mediator) beginResolving(proxy PeerProxy, role security.ExchangeRole) ([]byte, error) {
	addr := proxy.Address()

	m.mu.Lock()
	if _, exists := m.peers[addr]; exists {
		m.mu.Unlock()
		return nil, security.Errf(security.RecoverableState, "address %s already resolving", addr)
	}

	var executor synchronizer.Executor
	switch role {
	case security.RoleInitiator:
		executor = synchronizer.NewInitiator(m.catalog, m.logger, m.metrics)
	case security.RoleAcceptor:
		executor = synchronizer.NewAcceptor(m.catalog, m.logger, m.metrics)
	default:
		m.mu.Unlock()
		return nil, security.Errf(security.StageMisuse, "unknown exchange role %v", role)
	}

	processor := &ExchangeProcessor{executor: executor, mediator: m, proxy: proxy}
	exchangeID := uuid.New()
	m.peers[addr] = &peerState{proxy: proxy, processor: processor, exchangeID: exchangeID}
	m.mu.Unlock()

	proxy.SetSink(processor)

	frame, err := executor.Initialize()
	if err != nil {
		m.onExchangeFailed(proxy, err)
		return nil, err
	}
	level.Debug(m.logger).Log("msg", "declared resolving peer", "address", addr, "role", role, "exchange_id", exchangeID)
	return frame, nil
}

// RescindResolvingPeer removes address's in-flight exchange, if any, and
// unauthorizes its proxy. Unlike the original C++ implementation (which
// asserts the entry exists), this is idempotent: rescinding an address that
// isn't resolving is a no-op, since call sites here do not uniformly
// guarantee the precondition held.
func (m *Mediator) RescindResolvingPeer(address string) {
	m.mu.Lock()
	state, ok := m.peers[address]
	if ok {
		delete(m.peers, address)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	state.processor.executor.Erase()
	state.proxy.SetSink(nil)
	level.Debug(m.logger).Log("msg", "rescinded resolving peer", "address", address)
}

// onExchangeReady swaps address's proxy to the authorized sink and stops
// tracking it as resolving.
func (m *Mediator) onExchangeReady(proxy PeerProxy, pkg *security.CipherPackage) {
	addr := proxy.Address()
	m.mu.Lock()
	_, ok := m.peers[addr]
	delete(m.peers, addr)
	m.mu.Unlock()
	if !ok {
		return
	}
	proxy.SetSink(NewAuthorizedSink(pkg))
	level.Info(m.logger).Log("msg", "peer authorized", "address", addr)
}

// onExchangeFailed clears address's resolving state and unauthorizes its
// proxy.
func (m *Mediator) onExchangeFailed(proxy PeerProxy, err error) {
	addr := proxy.Address()
	m.mu.Lock()
	state, ok := m.peers[addr]
	delete(m.peers, addr)
	m.mu.Unlock()
	if !ok {
		return
	}
	state.processor.executor.Erase()
	proxy.SetSink(nil)
	level.Warn(m.logger).Log("msg", "peer exchange failed", "address", addr, "err", err)
}

// heartbeatProbe builds the lightweight request sent in place of a full
// handshake when the peer's identifier is already known. The original
// implementation's MakeHeartbeatRequest composes a full message-layer
// envelope this module has no equivalent of; here the probe is the bare
// identifier, which a transport-layer message builder (out of scope for
// this core) would wrap before sending.
func heartbeatProbe(knownIdentifier string) []byte {
	return []byte(knownIdentifier)
}
