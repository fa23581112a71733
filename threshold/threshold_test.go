package threshold

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/cofhe-project/cofhe/group"
	"github.com/stretchr/testify/require"
)

func testSampler(r *rand.Rand) Sampler {
	return func(bound *big.Int) *big.Int {
		return new(big.Int).Rand(r, bound)
	}
}

func TestSchemeEnumeratesAllCombinations(t *testing.T) {
	s, err := NewScheme(2, 4)
	require.NoError(t, err)
	require.Equal(t, 6, s.NumCombinations())

	seen := make(map[string]bool)
	for r := 0; r < s.NumCombinations(); r++ {
		combo, err := s.Combo(r)
		require.NoError(t, err)
		require.Len(t, combo, 2)
		seen[comboKey(combo)] = true
		got, err := Rank(combo, 4, 2)
		require.NoError(t, err)
		require.Equal(t, r, got)
	}
	require.Len(t, seen, 6)
}

func comboKey(c []int) string {
	k := ""
	for _, v := range c {
		k += string(rune('0' + v))
	}
	return k
}

func TestSplitSharesTelescopeToSecret(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	scheme, err := NewScheme(3, 5)
	require.NoError(t, err)

	secret := big.NewInt(424242)
	bound := big.NewInt(1 << 30)
	sh := Split(secret, scheme, bound, testSampler(r))

	for c, shares := range sh.Shares {
		require.Len(t, shares, scheme.T)
		sum := big.NewInt(0)
		for _, s := range shares {
			sum.Add(sum, s)
		}
		require.Zerof(t, sum.Cmp(secret), "combination %d: shares summed to %s, want %s", c, sum, secret)
	}
}

func TestPartyShareMembership(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	scheme, err := NewScheme(2, 3)
	require.NoError(t, err)
	sh := Split(big.NewInt(7), scheme, big.NewInt(1<<20), testSampler(r))

	combo, err := scheme.Combo(0)
	require.NoError(t, err)

	for _, party := range combo {
		share, ok := sh.PartyShare(0, party)
		require.True(t, ok)
		require.NotNil(t, share)
	}
	_, ok := sh.PartyShare(0, 99)
	require.False(t, ok)

	shares := sh.PartyShares(combo[0])
	require.NotEmpty(t, shares)
	for rank := range shares {
		c, err := scheme.Combo(rank)
		require.NoError(t, err)
		_, belongs := PositionOf(c, combo[0])
		require.True(t, belongs)
	}
}

func TestCombineGroupElementsReconstructsSecretExponent(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	ref, err := group.NewReference(256, rnd)
	require.NoError(t, err)

	scheme, err := NewScheme(3, 4)
	require.NoError(t, err)

	secret := new(big.Int).Mod(big.NewInt(123456789), ref.RandomExponentBound())
	sh := Split(secret, scheme, ref.RandomExponentBound(), testSampler(rnd))

	base := ref.Generator()
	want := ref.Exp(base, secret)

	combo, err := scheme.Combo(0)
	require.NoError(t, err)
	var partials []group.Elem
	for _, party := range combo {
		share, ok := sh.PartyShare(0, party)
		require.True(t, ok)
		partials = append(partials, ref.Exp(base, share))
	}

	got, err := CombineGroupElements(partials, ref)
	require.NoError(t, err)
	require.True(t, ref.Equal(want, got))
}

func TestRankRejectsZeroBasedOrUnsortedInput(t *testing.T) {
	_, err := Rank([]int{0, 1}, 4, 2)
	require.Error(t, err)

	_, err = Rank([]int{2, 1}, 4, 2)
	require.Error(t, err)

	_, err = Rank([]int{1, 2, 3}, 4, 2)
	require.Error(t, err)
}

func TestCombineGroupElementsRejectsEmpty(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	ref, err := group.NewReference(128, rnd)
	require.NoError(t, err)
	_, err = CombineGroupElements(nil, ref)
	require.Error(t, err)
}
