package security

// ExchangeRole is which side of the handshake a synchronizer or keystore is
// playing. It governs cordon ordering in KeyStore.GenerateSessionKeys and
// which verification keys a CipherPackage.Sign/Verify call reaches for.
type ExchangeRole int

const (
	RoleInitiator ExchangeRole = iota
	RoleAcceptor
)

func (r ExchangeRole) String() string {
	if r == RoleInitiator {
		return "Initiator"
	}
	return "Acceptor"
}
