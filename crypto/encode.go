package crypto

import "math/big"

// mapToPositive and mapBack implement the signed-integer encoding of
// plaintext scalars described in spec.md §4.2/§9. The original source wires
// a scaling exponent into this mapping but ships it disabled (set to 0);
// this implementation exposes the same exponent as Parameters.ScaleExponent
// so both behaviors are reachable: with ScaleExponent==0 a value v in
// [0, 2^K) round-trips unchanged (the observed/default behavior, storing the
// raw unsigned bit pattern); with ScaleExponent==e>0, v is interpreted as a
// two's-complement signed integer scaled by 2^e before encoding, recovering
// a fixed-point signed semantics.
func (cs *CryptoSystem) mapToPositive(signed *big.Int) *big.Int {
	if cs.params.scaleExponent == 0 {
		return cs.reduce(signed)
	}
	scaled := new(big.Int).Lsh(signed, cs.params.scaleExponent)
	return cs.reduce(scaled)
}

func (cs *CryptoSystem) mapBack(positive *big.Int) *big.Int {
	if cs.params.scaleExponent == 0 {
		return new(big.Int).Set(positive)
	}
	// Two's-complement: values at or above half the cleartext bound are
	// negative once the scale is undone.
	half := new(big.Int).Rsh(cs.params.cleartextBound, 1)
	v := new(big.Int).Set(positive)
	if v.Cmp(half) >= 0 {
		v.Sub(v, cs.params.cleartextBound)
	}
	return v.Rsh(v, cs.params.scaleExponent)
}
