package crypto

import "github.com/cofhe-project/cofhe/group"

// Ciphertext is the pair (C1, C2) of spec.md §3: C1 ∈ Cl_G carries the
// ElGamal-style randomization mask g^r, C2 ∈ Cl_Δ carries the plaintext
// encoded in the F subgroup blinded by pk^r.
type Ciphertext struct {
	C1 group.Elem
	C2 group.Elem
}

// Clone returns a deep copy of ct.
func (ct Ciphertext) Clone() Ciphertext {
	return Ciphertext{C1: ct.C1.Clone(), C2: ct.C2.Clone()}
}
