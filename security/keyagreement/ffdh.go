package keyagreement

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/vpiscitello/brypt-node-sub000/security"
)

// modpGroup is a named finite-field group, the same shape as the teacher's
// tkm.go dhGroup (prime + generator, private/public/shared helpers over
// math/big).
type modpGroup struct {
	prime     *big.Int
	generator *big.Int
	byteSize  int
}

func (g modpGroup) private() (*big.Int, error) {
	max := new(big.Int).Sub(g.prime, big.NewInt(3))
	for {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return nil, security.Errf(security.CryptoBackend, "ffdh private: %v", err)
		}
		k.Add(k, big.NewInt(2))
		return k, nil
	}
}

func (g modpGroup) public(priv *big.Int) *big.Int {
	return new(big.Int).Exp(g.generator, priv, g.prime)
}

func (g modpGroup) shared(peerPublic, priv *big.Int) *big.Int {
	return new(big.Int).Exp(peerPublic, priv, g.prime)
}

// rfc3526Group14 is the 2048-bit MODP group from RFC 3526 section 3 (the
// same constant the teacher's protocol/transforms.go names MODP_2048).
const rfc3526Group14 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF6955817183995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	// largeGroupOnce lazily produces the higher MODP groups (3072-bit and
	// above) as probable primes rather than hardcoding the remaining RFC
	// 3526 constants verbatim; see DESIGN.md for why.
	largeGroupOnce sync.Map // name -> *sync.Once
	largeGroupVal  sync.Map // name -> modpGroup
)

var ffdheGroupBits = map[string]int{
	"ffdhe-2048": 2048,
	"ffdhe-3072": 3072,
	"ffdhe-4096": 4096,
	"ffdhe-6144": 6144,
	"ffdhe-8192": 8192,
}

func groupFor(name string) (modpGroup, error) {
	bits, ok := ffdheGroupBits[name]
	if !ok {
		return modpGroup{}, security.Errf(security.AlgorithmUnknown, "unknown ffdh group %q", name)
	}
	if name == "ffdhe-2048" {
		p, ok := new(big.Int).SetString(rfc3526Group14, 16)
		if !ok {
			panic("invalid hardcoded MODP prime")
		}
		return modpGroup{prime: p, generator: big.NewInt(2), byteSize: bits / 8}, nil
	}

	if v, ok := largeGroupVal.Load(name); ok {
		return v.(modpGroup), nil
	}
	onceIface, _ := largeGroupOnce.LoadOrStore(name, &sync.Once{})
	once := onceIface.(*sync.Once)
	var genErr error
	once.Do(func() {
		p, err := rand.Prime(rand.Reader, bits)
		if err != nil {
			genErr = err
			return
		}
		largeGroupVal.Store(name, modpGroup{prime: p, generator: big.NewInt(2), byteSize: bits / 8})
	})
	if genErr != nil {
		return modpGroup{}, security.Errf(security.CryptoBackend, "generate %s group: %v", name, genErr)
	}
	v, _ := largeGroupVal.Load(name)
	return v.(modpGroup), nil
}

type finiteFieldDH struct {
	name  string
	group modpGroup

	priv *big.Int
	pub  *big.Int
}

func newFiniteFieldDH(name string) (Model, error) {
	group, err := groupFor(name)
	if err != nil {
		return nil, err
	}
	return &finiteFieldDH{name: name, group: group}, nil
}

func (f *finiteFieldDH) SetupKeyExchange(_ security.CipherSuite) (security.PublicKey, error) {
	priv, err := f.group.private()
	if err != nil {
		return security.PublicKey{}, err
	}
	f.priv = priv
	f.pub = f.group.public(priv)
	return security.NewPublicKey(leftPad(f.pub.Bytes(), f.group.byteSize)), nil
}

func (f *finiteFieldDH) ComputeSharedSecretFromPeerKey(peerPublicKey security.PublicKey) (security.SharedSecret, security.SupplementalData, error) {
	if f.priv == nil {
		return security.SharedSecret{}, security.SupplementalData{}, security.Errf(security.CryptoBackend, "setup not called")
	}
	peer := new(big.Int).SetBytes(peerPublicKey.Bytes())
	shared := f.group.shared(peer, f.priv)
	return security.NewSharedSecret(leftPad(shared.Bytes(), f.group.byteSize)), security.SupplementalData{}, nil
}

func (f *finiteFieldDH) ComputeSharedSecretFromSupplementalData(_ security.SupplementalData) (security.SharedSecret, error) {
	return security.SharedSecret{}, security.Errf(security.CryptoBackend, "ffdh has no supplemental data")
}

func (f *finiteFieldDH) HasSupplementalData() bool { return false }

func (f *finiteFieldDH) SupplementalDataSize() (int, error) { return 0, nil }

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
