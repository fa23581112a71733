// Package beaver implements BeaverGenerator (spec.md §4.4): batches of
// encrypted multiplication triples (a, b, a*b) produced on the setup node,
// which CipherMultiplier later consumes one at a time to evaluate a
// ciphertext*ciphertext product in one decryption round. Grounded on the
// commodity-server trusted-dealer model in
// other_examples/5f88de36_roterdam-smpcc__runtime-gmw-commodity.go.go (a
// single party samples triples outright rather than distributing them via
// oblivious transfer, which fits BeaverGenerator running on the trusted
// setup node that already holds the public key).
package beaver

import (
	"fmt"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/tensor"
)

// Generator produces Beaver triples under a fixed CryptoSystem and public
// key.
type Generator struct {
	cs *crypto.CryptoSystem
	pk crypto.PublicKey
}

// NewGenerator constructs a Generator bound to cs and pk.
func NewGenerator(cs *crypto.CryptoSystem, pk crypto.PublicKey) *Generator {
	return &Generator{cs: cs, pk: pk}
}

// Generate samples n triples and returns them as a [n,3] ciphertext tensor:
// column 0 is Enc(a), column 1 is Enc(b), column 2 is Enc(a*b). All 3n
// values are encrypted as a single batch under one shared randomness
// (spec.md §4.4).
func (g *Generator) Generate(n int) (*tensor.Tensor[crypto.Ciphertext], error) {
	if n <= 0 {
		return nil, fmt.Errorf("beaver: n must be positive, got %d", n)
	}

	flat := make([]crypto.Plaintext, 0, 3*n)
	for i := 0; i < n; i++ {
		a, b, ab := g.cs.RandomBeaverTriple()
		flat = append(flat, a, b, ab)
	}

	cts := g.cs.EncryptBatch(g.pk, flat)
	return tensor.FromSlice([]int{n, 3}, cts)
}
