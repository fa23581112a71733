package beaver

import (
	"math/big"
	"testing"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) (*crypto.CryptoSystem, crypto.SecretKey, crypto.PublicKey) {
	t.Helper()
	params, err := crypto.NewParameters(crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 24})
	require.NoError(t, err)
	cs, err := crypto.New(params, nil)
	require.NoError(t, err)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	return cs, sk, pk
}

func TestGenerateProducesConsistentTriples(t *testing.T) {
	cs, sk, pk := newTestSystem(t)
	gen := NewGenerator(cs, pk)

	const n = 5
	triples, err := gen.Generate(n)
	require.NoError(t, err)
	require.Equal(t, []int{n, 3}, triples.Shape())

	for i := 0; i < n; i++ {
		encA, err := triples.At(i, 0)
		require.NoError(t, err)
		encB, err := triples.At(i, 1)
		require.NoError(t, err)
		encAB, err := triples.At(i, 2)
		require.NoError(t, err)

		a, err := cs.Decrypt(sk, encA)
		require.NoError(t, err)
		b, err := cs.Decrypt(sk, encB)
		require.NoError(t, err)
		ab, err := cs.Decrypt(sk, encAB)
		require.NoError(t, err)

		want := new(big.Int).Mul(a.Value, b.Value)
		want.Mod(want, cs.Params().CleartextBound())
		require.Zerof(t, ab.Value.Cmp(want), "triple %d: a*b=%s, want %s", i, ab.Value, want)
	}
}

func TestGenerateRejectsNonPositiveN(t *testing.T) {
	cs, _, pk := newTestSystem(t)
	gen := NewGenerator(cs, pk)
	_, err := gen.Generate(0)
	require.Error(t, err)
}
