// Package crypto implements the linearly-homomorphic CryptoSystem (spec.md
// §4.2): key generation, plaintext/ciphertext types and their local
// arithmetic (single, vector and tensor fan-outs), and binary serialization.
// It is grounded on lattigo's core/rlwe package: Parameters/ParametersLiteral
// mirrors rlwe.Parameters/rlwe.ParametersLiteral, and Ciphertext's
// WriteTo/ReadFrom/MarshalBinary quartet mirrors core/rlwe/ciphertext.go.
package crypto

import (
	"fmt"
	"math/big"

	"github.com/cofhe-project/cofhe/group"
)

// SecurityLevel is one of the three supported levels named in spec.md §4.2.
type SecurityLevel int

const (
	Security80 SecurityLevel = 80
	Security128 SecurityLevel = 128
	Security256 SecurityLevel = 256
)

// referenceModulusBits maps a security level to the bit length of the
// reference Arith's modulus. Production Arith implementations ignore this;
// it is only consulted by NewParameters when no Arith is supplied.
func (s SecurityLevel) referenceModulusBits() int {
	switch s {
	case Security80:
		return 512
	case Security128:
		return 1024
	case Security256:
		return 3072
	default:
		return 1024
	}
}

// ParametersLiteral is the unchecked, user-facing configuration for a
// CryptoSystem, in the style of rlwe.ParametersLiteral: a plain struct with
// public fields, validated by NewParameters into an immutable Parameters.
type ParametersLiteral struct {
	// SecurityLevel selects the reference Arith's modulus size when Arith is
	// nil. Ignored when Arith is supplied.
	SecurityLevel SecurityLevel
	// K is the plaintext bit-width: the cleartext space is Z/2^K Z.
	K int
	// Compact, when true, applies Embed to each decryption mask where it is
	// computed (per party in PartDecrypt, and in Decrypt) instead of once in
	// the shared finishing step after Combine. It does not affect
	// randomness or the wire encoding.
	Compact bool
	// ScaleExponent configures the signed/scaled plaintext encoding
	// (spec.md §4.2, §9). 0 (the default) reproduces the disabled mapping
	// observed in the original source: plaintexts are stored as the raw
	// unsigned bit pattern of their K-bit representation.
	ScaleExponent uint
	// ReuseBatchRandomness selects whether batched Add/Scal re-randomization
	// draws one randomness per batch (true, default) or one per element
	// (false, "strict mode"). See spec.md §4.2.
	ReuseBatchRandomness *bool
	// Arith supplies the class-group backend. If nil, NewParameters
	// allocates a group.Reference sized from SecurityLevel.
	Arith group.Arith
}

// Parameters is the immutable, validated configuration of a CryptoSystem.
type Parameters struct {
	securityLevel        SecurityLevel
	k                     int
	compact               bool
	scaleExponent         uint
	reuseBatchRandomness  bool
	arith                 group.Arith
	cleartextBound        *big.Int // 2^K
}

// NewParameters validates lit and returns the corresponding Parameters,
// allocating a reference Arith when lit.Arith is nil.
func NewParameters(lit ParametersLiteral) (Parameters, error) {
	if lit.K <= 0 {
		return Parameters{}, fmt.Errorf("crypto: K must be positive, got %d", lit.K)
	}

	arith := lit.Arith
	if arith == nil {
		ref, err := group.NewReference(lit.SecurityLevel.referenceModulusBits(), nil)
		if err != nil {
			return Parameters{}, fmt.Errorf("crypto: allocating reference group: %w", err)
		}
		arith = ref
	}

	reuse := true
	if lit.ReuseBatchRandomness != nil {
		reuse = *lit.ReuseBatchRandomness
	}

	return Parameters{
		securityLevel:        lit.SecurityLevel,
		k:                    lit.K,
		compact:              lit.Compact,
		scaleExponent:        lit.ScaleExponent,
		reuseBatchRandomness: reuse,
		arith:                arith,
		cleartextBound:       new(big.Int).Lsh(big.NewInt(1), uint(lit.K)),
	}, nil
}

// K returns the plaintext bit-width.
func (p Parameters) K() int { return p.k }

// CleartextBound returns 2^K as a big.Int (never mutate the result).
func (p Parameters) CleartextBound() *big.Int { return p.cleartextBound }

// Arith returns the class-group backend.
func (p Parameters) Arith() group.Arith { return p.arith }

// ReuseBatchRandomness reports the configured batching mode for Add/Scal.
func (p Parameters) ReuseBatchRandomness() bool { return p.reuseBatchRandomness }

// ScaleExponent returns the configured scaling exponent (0 = disabled).
func (p Parameters) ScaleExponent() uint { return p.scaleExponent }
