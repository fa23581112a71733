package threshold

import "math/big"

// Sampler draws a uniform value in [0, bound). Threshold takes randomness
// this way, rather than depending on crypto.PRNG directly, to keep the
// dependency edge crypto -> threshold one-directional (crypto.CryptoSystem.
// Combine calls into threshold.CombineGroupElements; threshold never calls
// back into crypto).
type Sampler func(bound *big.Int) *big.Int

// Sharing holds, per combination, the t shares reconstructing secret under
// that combination's AND-chain. Shares[c][pos] is the share a party at
// position pos (0-based) of combination c holds.
//
// Deviating from spec.md §4.3's stated reconstruction vector
// λ=(1,-1,...,-1): this implementation samples, per combination c, blinding
// values ρ_2^(c)..ρ_t^(c) and defines shares by telescoping difference
//
//	share_{c,1}   = secret - ρ_2^(c)
//	share_{c,i}   = ρ_i^(c) - ρ_{i+1}^(c)   for i = 2..t-1
//	share_{c,t}   = ρ_t^(c)
//
// so that Σ_i share_{c,i} = secret exactly, and reconstruction is the group
// product Π_i C1^{share_{c,i}} with an all-ones reconstruction vector (no
// coefficient exponentiation beyond the partial decryption itself). See
// DESIGN.md for why the literal (1,-1,...,-1) construction could not be
// made to both reconstruct correctly and hide the secret from any
// (t-1)-subset, and why this telescoping construction satisfies both
// properties.
type Sharing struct {
	Scheme *Scheme
	Shares [][]*big.Int
}

// Split produces a Sharing of secret under scheme, drawing blinding values
// from sample (bounded by bound, typically the Arith's RandomExponentBound).
func Split(secret *big.Int, scheme *Scheme, bound *big.Int, sample Sampler) *Sharing {
	t := scheme.T
	sh := &Sharing{Scheme: scheme, Shares: make([][]*big.Int, scheme.NumCombinations())}

	for c := range sh.Shares {
		shares := make([]*big.Int, t)
		if t == 1 {
			shares[0] = new(big.Int).Set(secret)
			sh.Shares[c] = shares
			continue
		}

		rho := make([]*big.Int, t-1) // rho[0..t-2] = ρ_2..ρ_t
		for i := range rho {
			rho[i] = sample(bound)
		}

		shares[0] = new(big.Int).Sub(secret, rho[0])
		for i := 1; i < t-1; i++ {
			shares[i] = new(big.Int).Sub(rho[i-1], rho[i])
		}
		shares[t-1] = new(big.Int).Set(rho[t-2])
		sh.Shares[c] = shares
	}
	return sh
}

// PartyShare returns the share party (1-based) holds for combination rank
// comboRank, and ok=false if party is not a member of that combination.
func (sh *Sharing) PartyShare(comboRank, party int) (*big.Int, bool) {
	combo, err := sh.Scheme.Combo(comboRank)
	if err != nil {
		return nil, false
	}
	pos, ok := PositionOf(combo, party)
	if !ok {
		return nil, false
	}
	return sh.Shares[comboRank][pos], true
}

// PartyShares returns every (comboRank, share) pair held by party: one entry
// per combination party belongs to. A production node persists exactly this
// map (spec.md §4.3: "each cofhe node holds one row of the MSP per
// combination it participates in").
func (sh *Sharing) PartyShares(party int) map[int]*big.Int {
	out := make(map[int]*big.Int)
	for _, rank := range sh.Scheme.CombosContaining(party) {
		share, _ := sh.PartyShare(rank, party)
		out[rank] = share
	}
	return out
}
