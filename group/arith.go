// Package group defines the opaque class-group arithmetic contract consumed
// by crypto and threshold. The real class-group implementation (composition,
// exponentiation and "dlog in F" over an imaginary-quadratic class group) is
// deliberately out of scope for this module (spec.md §1 names it an external
// collaborator's concern); this package only fixes the interface and ships a
// single reference implementation used by the test suite and by CryptoSystem
// when no production Arith is supplied.
package group

import (
	"fmt"
	"math/big"
)

// Elem is an opaque group element, structurally the (a,b,c) coefficients of
// a binary quadratic form (spec.md §3's ciphertext invariant): c1 ∈ Cl_G and
// c2 ∈ Cl_Δ are each represented this way regardless of which concrete Arith
// backs a CryptoSystem, so the wire format (tensorfmt) never needs to know
// which Arith produced the bytes it is shuttling.
type Elem struct {
	A, B, C *big.Int
}

// Clone returns a deep copy of x.
func (x Elem) Clone() Elem {
	clone := Elem{A: new(big.Int), B: new(big.Int), C: new(big.Int)}
	if x.A != nil {
		clone.A.Set(x.A)
	}
	if x.B != nil {
		clone.B.Set(x.B)
	}
	if x.C != nil {
		clone.C.Set(x.C)
	}
	return clone
}

// Arith is the contract a class-group backend must satisfy. Cl_G and Cl_Δ are
// modeled as a single Arith exposing two generators (Generator for the "hard"
// component and FGenerator for the easy-discrete-log subgroup F used to
// encode plaintexts), following the Castagnos-Laguillaumie-style split
// described in spec.md §3-§4.2. A production Arith backs Cl_G and Cl_Δ by two
// genuinely distinct class groups connected through Embed; the reference
// Arith in this package collapses them into one group for simplicity.
type Arith interface {
	// Identity returns the group identity element.
	Identity() Elem
	// Generator returns the "hard" generator g used for key generation and
	// the random-mask component c1 = g^r of a ciphertext.
	Generator() Elem
	// FGenerator returns the generator f of the order-M subgroup F ⊂ Cl_Δ
	// used to encode plaintexts multiplicatively (f^m).
	FGenerator() Elem
	// RandomExponentBound returns the "encryption randomness bound" R: the
	// half-open range [0, R) that secret keys, encryption randomness r and
	// MSP blinding values are sampled from.
	RandomExponentBound() *big.Int
	// Compose returns x∘y (the group operation).
	Compose(x, y Elem) Elem
	// Inverse returns x^-1.
	Inverse(x Elem) Elem
	// Exp returns x^n for an arbitrary (possibly negative) big.Int exponent.
	Exp(x Elem, n *big.Int) Elem
	// Equal reports whether x and y denote the same group element.
	Equal(x, y Elem) bool
	// Embed maps a Cl_ΔK element (as produced by Generator-based
	// exponentiation) into Cl_Δ, so it can be composed with F-encoded
	// elements. The reference Arith implements this as the identity map.
	Embed(x Elem) Elem
	// DlogF computes the discrete log of x with respect to FGenerator,
	// assuming x ∈ F and the log lies in [0, M), and returns it reduced into
	// [0, bound) when bound is non-nil. It returns ErrNotInF if x is
	// not a valid element of F; crypto.finishDecrypt wraps that as
	// cofheerr.ErrCryptoFailure for callers checking with errors.Is.
	DlogF(x Elem, bound *big.Int) (*big.Int, error)
}

// ErrNotInF is returned by DlogF implementations when x is not a member of
// the F subgroup, which is exactly the failure mode spec.md §8 scenario 4 requires an
// implementation to reject on (a threshold combine with a mismatched or
// insufficient set of partial decryptions).
var ErrNotInF = fmt.Errorf("group: element is not a valid member of F")
