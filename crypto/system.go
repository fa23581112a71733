package crypto

import (
	"fmt"
	"math/big"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/threshold"
)

// CryptoSystem bundles a validated Parameters set with a PRNG, the way
// lattigo pairs an rlwe.Parameters with an Encryptor/Decryptor instance, but
// as a single stateless-except-PRNG value type per spec.md §3
// ("CryptoSystem is a value type ... freely cloneable").
type CryptoSystem struct {
	params Parameters
	prng   *PRNG
}

// New constructs a CryptoSystem from validated parameters and an optional
// PRNG (a fresh one is allocated from OS randomness if nil).
func New(params Parameters, prng *PRNG) (*CryptoSystem, error) {
	if prng == nil {
		var err error
		prng, err = NewPRNG()
		if err != nil {
			return nil, err
		}
	}
	return &CryptoSystem{params: params, prng: prng}, nil
}

// Params returns the CryptoSystem's Parameters.
func (cs *CryptoSystem) Params() Parameters { return cs.params }

// Clone returns a CryptoSystem sharing Parameters but with an independent,
// thread-local PRNG forked from cs's stream (spec.md §5: "calls that sample
// randomness ... must serialize on it or use thread-local PRNGs seeded from
// it"). Safe to call concurrently with other uses of cs so long as cs's own
// PRNG access is itself serialized by the caller.
func (cs *CryptoSystem) Clone() *CryptoSystem {
	return &CryptoSystem{params: cs.params, prng: cs.prng.ForkThreadLocal()}
}

// Encrypt returns Enc(pk, p) using a freshly drawn randomness r.
func (cs *CryptoSystem) Encrypt(pk PublicKey, p Plaintext) Ciphertext {
	r := cs.prng.Int(cs.params.arith.RandomExponentBound())
	return cs.encryptWithR(pk, p, r)
}

func (cs *CryptoSystem) encryptWithR(pk PublicKey, p Plaintext, r *big.Int) Ciphertext {
	a := cs.params.arith
	c1 := a.Exp(a.Generator(), r)
	encoded := cs.mapToPositive(p.Value)
	c2 := a.Compose(a.Exp(a.FGenerator(), encoded), a.Exp(pk.Value, r))
	return Ciphertext{C1: c1, C2: c2}
}

// Decrypt returns the plaintext encrypted in ct under sk. This is the
// single-party decryption path (used for testing/round-trip checks); the
// production threshold path is PartDecrypt + Combine.
func (cs *CryptoSystem) Decrypt(sk SecretKey, ct Ciphertext) (Plaintext, error) {
	a := cs.params.arith
	mask := a.Exp(ct.C1, sk.Value)
	if cs.params.compact {
		mask = a.Embed(mask)
	}
	return cs.finishDecrypt(ct, mask)
}

func (cs *CryptoSystem) finishDecrypt(ct Ciphertext, mask group.Elem) (Plaintext, error) {
	a := cs.params.arith
	// Compact mode embeds the mask where it is computed (each party's
	// contribution in PartDecrypt, the whole mask in Decrypt), so mask
	// arrives pre-embedded here; non-compact mode defers the (single) embed
	// to this shared step instead of paying it once per party.
	if !cs.params.compact {
		mask = a.Embed(mask)
	}
	fPow := a.Compose(ct.C2, a.Inverse(mask))
	m, err := a.DlogF(fPow, cs.params.cleartextBound)
	if err != nil {
		return Plaintext{}, fmt.Errorf("crypto: recovering plaintext from F: %w: %w", cofheerr.ErrCryptoFailure, err)
	}
	return Plaintext{Value: cs.mapBack(m)}, nil
}

// Add returns ct1 ⊕ ct2, homomorphically summing the encrypted plaintexts.
// A fresh re-randomization exponent is drawn and folded in, per spec.md
// §4.2's add() contract (re-randomization keeps the result's distribution
// independent of which summands produced it).
func (cs *CryptoSystem) Add(pk PublicKey, ct1, ct2 Ciphertext) Ciphertext {
	return cs.addWithR(pk, ct1, ct2, cs.prng.Int(cs.params.arith.RandomExponentBound()))
}

func (cs *CryptoSystem) addWithR(pk PublicKey, ct1, ct2 Ciphertext, r *big.Int) Ciphertext {
	a := cs.params.arith
	c1 := a.Compose(a.Compose(ct1.C1, ct2.C1), a.Exp(a.Generator(), r))
	c2 := a.Compose(a.Compose(ct1.C2, ct2.C2), a.Exp(pk.Value, r))
	return Ciphertext{C1: c1, C2: c2}
}

// Scal returns p ⊙ ct: the ciphertext encrypting p*m where m is ct's
// plaintext.
func (cs *CryptoSystem) Scal(pk PublicKey, p Plaintext, ct Ciphertext) Ciphertext {
	return cs.scalWithR(pk, p, ct, cs.prng.Int(cs.params.arith.RandomExponentBound()))
}

func (cs *CryptoSystem) scalWithR(pk PublicKey, p Plaintext, ct Ciphertext, r *big.Int) Ciphertext {
	a := cs.params.arith
	scalar := cs.mapToPositive(p.Value)
	c1 := a.Compose(a.Exp(ct.C1, scalar), a.Exp(a.Generator(), r))
	c2 := a.Compose(a.Exp(ct.C2, scalar), a.Exp(pk.Value, r))
	return Ciphertext{C1: c1, C2: c2}
}

// Negate returns ⊖ct: the ciphertext encrypting -m.
func (cs *CryptoSystem) Negate(pk PublicKey, ct Ciphertext) Ciphertext {
	a := cs.params.arith
	return Ciphertext{C1: a.Inverse(ct.C1), C2: a.Inverse(ct.C2)}
}

// PartDecrypt computes this party's contribution D = C1^share to a joint
// threshold decryption of ct (spec.md §4.2/§4.3). In compact mode
// (Parameters.Compact), D is embedded into Cl_Δ here, one Embed per party;
// non-compact mode leaves that to the single post-combine Embed in
// finishDecrypt.
func (cs *CryptoSystem) PartDecrypt(share *big.Int, ct Ciphertext) group.Elem {
	a := cs.params.arith
	d := a.Exp(ct.C1, share)
	if cs.params.compact {
		d = a.Embed(d)
	}
	return d
}

// Combine reconstructs the plaintext of ct from t partial decryptions,
// delegating the Σ/Π-with-reconstruction-coefficients step to threshold
// (which owns the access-structure's reconstruction vector, spec.md §4.3)
// and finishing the Cl_Δ.inv_compose + dlog-in-F steps itself.
func (cs *CryptoSystem) Combine(ct Ciphertext, partials []group.Elem) (Plaintext, error) {
	combined, err := threshold.CombineGroupElements(partials, cs.params.arith)
	if err != nil {
		return Plaintext{}, err
	}
	return cs.finishDecrypt(ct, combined)
}

// RandomBigInt draws a uniform value in [0, bound) from cs's PRNG. Exposed
// so callers outside this package (node's Setup, building a
// threshold.Sharing) can supply a threshold.Sampler without reaching into
// CryptoSystem's internals.
func (cs *CryptoSystem) RandomBigInt(bound *big.Int) *big.Int {
	return cs.prng.Int(bound)
}

// EncryptBatch encrypts values under one freshly drawn randomness shared
// across the whole batch, regardless of Parameters.ReuseBatchRandomness
// (spec.md §4.4: BeaverGenerator always batches its 3N values under a single
// r, independently of the general Add/Scal batching knob).
func (cs *CryptoSystem) EncryptBatch(pk PublicKey, values []Plaintext) []Ciphertext {
	r := cs.prng.Int(cs.params.arith.RandomExponentBound())
	out := make([]Ciphertext, len(values))
	for i, v := range values {
		out[i] = cs.encryptWithR(pk, v, r)
	}
	return out
}

// ---- vector / tensor fan-outs ----

// EncryptTensor encrypts every leaf of p independently. When
// Parameters.ReuseBatchRandomness is true (the default), one randomness r is
// drawn for the whole batch; otherwise each leaf draws its own r
// ("strict mode", spec.md §4.2).
func (cs *CryptoSystem) EncryptTensor(pk PublicKey, p *tensor.Tensor[Plaintext]) *tensor.Tensor[Ciphertext] {
	out := tensor.New(p.Shape(), Ciphertext{})
	var sharedR *big.Int
	if cs.params.reuseBatchRandomness {
		sharedR = cs.prng.Int(cs.params.arith.RandomExponentBound())
	}
	shape := p.Shape()
	idx := make([]int, p.Rank())
	flatAt := func(pos int) []int {
		for a := len(idx) - 1; a >= 0; a-- {
			idx[a] = pos % shape[a]
			pos /= shape[a]
		}
		return idx
	}
	out.Walk(func(i int, _ Ciphertext) Ciphertext {
		at := flatAt(i)
		leaf, _ := p.At(at...)
		r := sharedR
		if r == nil {
			r = cs.prng.Int(cs.params.arith.RandomExponentBound())
		}
		return cs.encryptWithR(pk, leaf, r)
	})
	return out
}

// DecryptTensor decrypts every leaf of ct independently under sk.
func (cs *CryptoSystem) DecryptTensor(sk SecretKey, ct *tensor.Tensor[Ciphertext]) (*tensor.Tensor[Plaintext], error) {
	out := tensor.New(ct.Shape(), Plaintext{})
	idx := make([]int, ct.Rank())
	flatAt := func(pos int) []int {
		for a := len(idx) - 1; a >= 0; a-- {
			idx[a] = pos % ct.Shape()[a]
			pos /= ct.Shape()[a]
		}
		return idx
	}
	var outerErr error
	out.Walk(func(i int, _ Plaintext) Plaintext {
		if outerErr != nil {
			return Plaintext{}
		}
		at := flatAt(i)
		leaf, _ := ct.At(at...)
		p, err := cs.Decrypt(sk, leaf)
		if err != nil {
			outerErr = err
			return Plaintext{}
		}
		return p
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return out, nil
}

// AddTensor adds two ciphertext tensors of identical shape leaf-wise.
func (cs *CryptoSystem) AddTensor(pk PublicKey, a, b *tensor.Tensor[Ciphertext]) (*tensor.Tensor[Ciphertext], error) {
	shapeA, shapeB := a.Shape(), b.Shape()
	if len(shapeA) != len(shapeB) {
		return nil, tensorShapeMismatch(shapeA, shapeB)
	}
	for i := range shapeA {
		if shapeA[i] != shapeB[i] {
			return nil, tensorShapeMismatch(shapeA, shapeB)
		}
	}
	out := tensor.New(shapeA, Ciphertext{})
	var sharedR *big.Int
	if cs.params.reuseBatchRandomness {
		sharedR = cs.prng.Int(cs.params.arith.RandomExponentBound())
	}
	idx := make([]int, a.Rank())
	flatAt := func(pos int) []int {
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax] = pos % shapeA[ax]
			pos /= shapeA[ax]
		}
		return idx
	}
	out.Walk(func(i int, _ Ciphertext) Ciphertext {
		at := flatAt(i)
		la, _ := a.At(at...)
		lb, _ := b.At(at...)
		r := sharedR
		if r == nil {
			r = cs.prng.Int(cs.params.arith.RandomExponentBound())
		}
		return cs.addWithR(pk, la, lb, r)
	})
	return out, nil
}

// ScalTensor multiplies every leaf of ct by plaintext p.
func (cs *CryptoSystem) ScalTensor(pk PublicKey, p Plaintext, ct *tensor.Tensor[Ciphertext]) *tensor.Tensor[Ciphertext] {
	out := tensor.New(ct.Shape(), Ciphertext{})
	var sharedR *big.Int
	if cs.params.reuseBatchRandomness {
		sharedR = cs.prng.Int(cs.params.arith.RandomExponentBound())
	}
	idx := make([]int, ct.Rank())
	shape := ct.Shape()
	flatAt := func(pos int) []int {
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax] = pos % shape[ax]
			pos /= shape[ax]
		}
		return idx
	}
	out.Walk(func(i int, _ Ciphertext) Ciphertext {
		at := flatAt(i)
		leaf, _ := ct.At(at...)
		r := sharedR
		if r == nil {
			r = cs.prng.Int(cs.params.arith.RandomExponentBound())
		}
		return cs.scalWithR(pk, p, leaf, r)
	})
	return out
}
