package crypto

import (
	"math/big"

	"github.com/cofhe-project/cofhe/group"
)

// SecretKey is a big integer in the encryption-randomness-bound range
// (spec.md §3).
type SecretKey struct {
	Value *big.Int
}

// PublicKey is a single class-group element, g^sk.
type PublicKey struct {
	Value group.Elem
}

// Keygen samples a fresh secret key uniformly from the Arith's encryption
// randomness bound.
func (cs *CryptoSystem) Keygen() SecretKey {
	return SecretKey{Value: cs.prng.Int(cs.params.arith.RandomExponentBound())}
}

// DerivePublic computes the public key g^sk corresponding to sk.
func (cs *CryptoSystem) DerivePublic(sk SecretKey) PublicKey {
	return PublicKey{Value: cs.params.arith.Exp(cs.params.arith.Generator(), sk.Value)}
}
