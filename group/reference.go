package group

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Reference is a non-production stand-in for a real class-group Arith. It is
// grounded on the Paillier "(1+N)^x ≡ 1+xN (mod N^2)" identity (the same
// easy-discrete-log trick the CL cryptosystem's F subgroup relies on), which
// lets DlogF be computed exactly with one subtraction and one exact division
// instead of a generic (hard) discrete-log search. It exists purely so the
// crypto, threshold, beaver, smpc and mul packages have something concrete to
// exercise and test against; real deployments must supply an Arith backed by
// an actual imaginary-quadratic class group (spec.md §1).
//
// Only the A component of Elem is meaningful for Reference; B and C are kept
// zero so the (a,b,c) wire shape required by spec.md §3/§4.10 is still
// populated uniformly across every Arith implementation.
type Reference struct {
	n      *big.Int // base modulus, N
	nSq    *big.Int // N^2, the working modulus
	order  *big.Int // N*(N-1), the order Exp reduces exponents modulo
	gen    Elem     // g
	fGen   Elem     // f = 1+N
	rBound *big.Int // R, the encryption randomness bound
}

// NewReference builds a Reference Arith whose modulus N has the given bit
// length. bits must comfortably exceed the plaintext bit-width k that will be
// used with it (N must exceed the cleartext bound 2^k for DlogF to recover
// plaintexts unambiguously).
func NewReference(bits int, rnd io.Reader) (*Reference, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	n, err := rand.Prime(rnd, bits)
	if err != nil {
		return nil, fmt.Errorf("group: generating reference modulus: %w", err)
	}
	nSq := new(big.Int).Mul(n, n)
	order := new(big.Int).Mul(n, new(big.Int).Sub(n, big.NewInt(1)))

	g, err := randomUnit(rnd, nSq)
	if err != nil {
		return nil, fmt.Errorf("group: sampling generator: %w", err)
	}

	f := new(big.Int).Add(n, big.NewInt(1))
	f.Mod(f, nSq)

	return &Reference{
		n:      n,
		nSq:    nSq,
		order:  order,
		gen:    Elem{A: g, B: big.NewInt(0), C: big.NewInt(0)},
		fGen:   Elem{A: f, B: big.NewInt(0), C: big.NewInt(0)},
		rBound: order,
	}, nil
}

func randomUnit(rnd io.Reader, modulus *big.Int) (*big.Int, error) {
	for {
		x, err := rand.Int(rnd, modulus)
		if err != nil {
			return nil, err
		}
		if x.Sign() == 0 {
			continue
		}
		if new(big.Int).GCD(nil, nil, x, modulus).Cmp(big.NewInt(1)) == 0 {
			return x, nil
		}
	}
}

func (r *Reference) Identity() Elem {
	return Elem{A: big.NewInt(1), B: big.NewInt(0), C: big.NewInt(0)}
}

func (r *Reference) Generator() Elem  { return r.gen.Clone() }
func (r *Reference) FGenerator() Elem { return r.fGen.Clone() }

func (r *Reference) RandomExponentBound() *big.Int {
	return new(big.Int).Set(r.rBound)
}

func (r *Reference) Compose(x, y Elem) Elem {
	a := new(big.Int).Mul(x.A, y.A)
	a.Mod(a, r.nSq)
	return Elem{A: a, B: big.NewInt(0), C: big.NewInt(0)}
}

func (r *Reference) Inverse(x Elem) Elem {
	a := new(big.Int).ModInverse(x.A, r.nSq)
	if a == nil {
		// x.A shares a factor with nSq: in a prime-squared modulus this can
		// only happen if x.A is a multiple of n, which never occurs for
		// elements produced by this Arith's own operations.
		panic("group: reference element is not invertible mod N^2")
	}
	return Elem{A: a, B: big.NewInt(0), C: big.NewInt(0)}
}

func (r *Reference) Exp(x Elem, exp *big.Int) Elem {
	e := new(big.Int).Mod(exp, r.order)
	a := new(big.Int).Exp(x.A, e, r.nSq)
	return Elem{A: a, B: big.NewInt(0), C: big.NewInt(0)}
}

func (r *Reference) Equal(x, y Elem) bool {
	return x.A.Cmp(y.A) == 0
}

// Embed is the identity map: Reference collapses Cl_G and Cl_Δ into one
// group, so no lifting is required.
func (r *Reference) Embed(x Elem) Elem { return x.Clone() }

// DlogF recovers m in [0, N) with f^m = x. When bound is non-nil, a log at or
// above bound is read as a signed integer (values above N/2 stand for m-N)
// and reduced into [0, bound), so negated and wrapped plaintexts come back
// modulo the cleartext bound.
func (r *Reference) DlogF(x Elem, bound *big.Int) (*big.Int, error) {
	y := new(big.Int).Mod(x.A, r.nSq)
	y.Sub(y, big.NewInt(1))
	if y.Sign() < 0 {
		y.Add(y, r.nSq)
	}
	m := new(big.Int).Div(y, r.n)
	// Verify round-trip: f^m must equal x exactly, which both rejects
	// elements outside F and rejects a combine() result assembled from a
	// wrong or incomplete set of partial decryptions (spec.md §8 scenario 4).
	if !r.Equal(r.Exp(r.fGen, m), x) {
		return nil, ErrNotInF
	}
	if bound != nil && m.Cmp(bound) >= 0 {
		if m.Cmp(new(big.Int).Rsh(r.n, 1)) > 0 {
			m.Sub(m, r.n)
		}
		m.Mod(m, bound)
	}
	return m, nil
}

var _ Arith = (*Reference)(nil)
