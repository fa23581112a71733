// Package threshold implements the (t,n) monotone span program access
// structure of spec.md §4.3: one AND-chain-of-length-t per t-subset of the n
// parties, concatenated (OR'd) across every subset so that any t-subset's
// shares alone reconstruct the secret while any (t-1)-subset's shares carry
// no information about it. It is grounded on tuneinsight-lattigo's
// core/drlwe/threshold.go (the only pack package implementing genuine t-of-n
// threshold secret sharing and reconstruction).
package threshold

import (
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
)

// Scheme fixes a (t,n) access structure: the set of party indices (1..n) and
// the enumeration of its C(n,t) t-element subsets ("combinations"), each
// combination backing one AND-chain of the MSP per spec.md §4.3.
type Scheme struct {
	T, N   int
	combos [][]int // lexicographically ordered, 1-based party indices
}

// NewScheme validates (t,n) and enumerates all C(n,t) combinations.
func NewScheme(t, n int) (*Scheme, error) {
	if t <= 0 || n <= 0 || t > n {
		return nil, fmt.Errorf("threshold: invalid (t=%d, n=%d)", t, n)
	}
	s := &Scheme{T: t, N: n}
	combo := make([]int, t)
	for i := range combo {
		combo[i] = i + 1
	}
	for {
		s.combos = append(s.combos, append([]int(nil), combo...))
		if !nextCombination(combo, n) {
			break
		}
	}
	return s, nil
}

// nextCombination advances combo (1-based, strictly increasing, values in
// [1,n]) to its lexicographic successor, returning false once combo is the
// last one.
func nextCombination(combo []int, n int) bool {
	t := len(combo)
	i := t - 1
	for i >= 0 && combo[i] == n-t+1+i {
		i--
	}
	if i < 0 {
		return false
	}
	combo[i]++
	for j := i + 1; j < t; j++ {
		combo[j] = combo[j-1] + 1
	}
	return true
}

// NumCombinations returns C(n,t).
func (s *Scheme) NumCombinations() int { return len(s.combos) }

// Combo returns the rank-th combination (a sorted slice of t party indices).
// The caller must not mutate the returned slice.
func (s *Scheme) Combo(rank int) ([]int, error) {
	if rank < 0 || rank >= len(s.combos) {
		return nil, fmt.Errorf("threshold: combination rank %d out of range [0,%d)", rank, len(s.combos))
	}
	return s.combos[rank], nil
}

// Rank returns the lexicographic rank of parties among all C(n,t)
// combinations, via the standard combinatorial-number-system formula,
// without scanning the enumeration. parties must be 1-based, strictly
// increasing and of length t; its caller, smpc.Client.Reinit, passes the
// 1-based party indices reported by the peer directory.
func Rank(parties []int, n, t int) (int, error) {
	if len(parties) != t {
		return 0, fmt.Errorf("threshold: rank needs %d parties, got %d: %w", t, len(parties), cofheerr.ErrProtocolError)
	}
	prev := 0
	for _, v := range parties {
		if v <= prev || v > n {
			return 0, fmt.Errorf("threshold: party indices must be 1-based, strictly increasing and <= n=%d, got %v: %w", n, parties, cofheerr.ErrProtocolError)
		}
		prev = v
	}

	rank := 0
	prev = 0
	for i, v := range parties {
		// Number of combinations skipped by choosing a value at position i
		// smaller than v, given the previous pick.
		for skip := prev + 1; skip < v; skip++ {
			rank += binomial(n-skip, t-i-1)
		}
		prev = v
	}
	return rank, nil
}

func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	res := 1
	for i := 0; i < k; i++ {
		res = res * (n - i) / (i + 1)
	}
	return res
}

// PositionOf returns the 0-based position of party within combo, and
// ok=false if party is not a member of combo.
func PositionOf(combo []int, party int) (pos int, ok bool) {
	for i, p := range combo {
		if p == party {
			return i, true
		}
	}
	return 0, false
}

// CombosContaining returns the ranks of every combination that includes
// party.
func (s *Scheme) CombosContaining(party int) []int {
	var ranks []int
	for r, c := range s.combos {
		if _, ok := PositionOf(c, party); ok {
			ranks = append(ranks, r)
		}
	}
	return ranks
}
