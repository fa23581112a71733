package crypto

import "math/big"

// Plaintext is a scalar value in Z/2^K Z (spec.md §3). Arithmetic on
// Plaintexts is always performed modulo the CryptoSystem's cleartext bound.
type Plaintext struct {
	Value *big.Int
}

// NewPlaintext wraps v, reducing it modulo the cleartext bound.
func (cs *CryptoSystem) NewPlaintext(v *big.Int) Plaintext {
	return Plaintext{Value: cs.reduce(v)}
}

func (cs *CryptoSystem) reduce(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, cs.params.cleartextBound)
	if r.Sign() < 0 {
		r.Add(r, cs.params.cleartextBound)
	}
	return r
}

// AddPlain returns p1+p2 mod the cleartext bound.
func (cs *CryptoSystem) AddPlain(p1, p2 Plaintext) Plaintext {
	return Plaintext{Value: cs.reduce(new(big.Int).Add(p1.Value, p2.Value))}
}

// MulPlain returns p1*p2 mod the cleartext bound.
func (cs *CryptoSystem) MulPlain(p1, p2 Plaintext) Plaintext {
	return Plaintext{Value: cs.reduce(new(big.Int).Mul(p1.Value, p2.Value))}
}

// NegatePlain returns -p mod the cleartext bound.
func (cs *CryptoSystem) NegatePlain(p Plaintext) Plaintext {
	return Plaintext{Value: cs.reduce(new(big.Int).Neg(p.Value))}
}

// RandomPlaintext draws a uniform plaintext in [0, 2^K).
func (cs *CryptoSystem) RandomPlaintext() Plaintext {
	return Plaintext{Value: cs.prng.Int(cs.params.cleartextBound)}
}

// RandomBeaverTriple draws (a, b, a*b) with a, b uniform in a sub-bound tight
// enough that a*b stays below the cleartext bound (spec.md §4.2, §4.4): each
// of a, b is drawn from [0, sqrt(2^K)), so their product never exceeds 2^K.
func (cs *CryptoSystem) RandomBeaverTriple() (a, b, ab Plaintext) {
	subBound := new(big.Int).Sqrt(cs.params.cleartextBound)
	if subBound.Sign() == 0 {
		subBound = big.NewInt(1)
	}
	av := cs.prng.Int(subBound)
	bv := cs.prng.Int(subBound)
	return Plaintext{Value: av}, Plaintext{Value: bv}, cs.NewPlaintext(new(big.Int).Mul(av, bv))
}
