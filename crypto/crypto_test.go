package crypto

import (
	"math/big"
	"testing"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/threshold"
	"github.com/stretchr/testify/require"
)

func newTestSystem(t *testing.T) *CryptoSystem {
	t.Helper()
	params, err := NewParameters(ParametersLiteral{SecurityLevel: Security80, K: 16})
	require.NoError(t, err)
	cs, err := New(params, nil)
	require.NoError(t, err)
	return cs
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	p := cs.NewPlaintext(big.NewInt(1234))
	ct := cs.Encrypt(pk, p)

	got, err := cs.Decrypt(sk, ct)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(p.Value))
}

func TestAddIsHomomorphic(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	p1 := cs.NewPlaintext(big.NewInt(111))
	p2 := cs.NewPlaintext(big.NewInt(222))
	ct1 := cs.Encrypt(pk, p1)
	ct2 := cs.Encrypt(pk, p2)

	sum := cs.Add(pk, ct1, ct2)
	got, err := cs.Decrypt(sk, sum)
	require.NoError(t, err)

	want := cs.AddPlain(p1, p2)
	require.Zero(t, got.Value.Cmp(want.Value))
}

func TestScalIsHomomorphic(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	p := cs.NewPlaintext(big.NewInt(17))
	scalar := cs.NewPlaintext(big.NewInt(5))
	ct := cs.Encrypt(pk, p)

	scaled := cs.Scal(pk, scalar, ct)
	got, err := cs.Decrypt(sk, scaled)
	require.NoError(t, err)

	want := cs.MulPlain(scalar, p)
	require.Zero(t, got.Value.Cmp(want.Value))
}

func TestNegateIsHomomorphic(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	p := cs.NewPlaintext(big.NewInt(42))
	ct := cs.Encrypt(pk, p)

	neg := cs.Negate(pk, ct)
	got, err := cs.Decrypt(sk, neg)
	require.NoError(t, err)

	want := cs.NegatePlain(p)
	require.Zero(t, got.Value.Cmp(want.Value))
}

func TestThresholdDecryptionReconstructsPlaintext(t *testing.T) {
	cs := newTestSystem(t)
	const n, thr = 4, 3

	scheme, err := threshold.NewScheme(thr, n)
	require.NoError(t, err)

	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	bound := cs.Params().Arith().RandomExponentBound()
	sampler := func(b *big.Int) *big.Int { return cs.prng.Int(b) }
	sharing := threshold.Split(sk.Value, scheme, bound, sampler)

	p := cs.NewPlaintext(big.NewInt(999))
	ct := cs.Encrypt(pk, p)

	combo, err := scheme.Combo(0)
	require.NoError(t, err)

	var partials []group.Elem
	for _, party := range combo {
		share, ok := sharing.PartyShare(0, party)
		require.True(t, ok)
		partials = append(partials, cs.PartDecrypt(share, ct))
	}

	got, err := cs.Combine(ct, partials)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(p.Value))
}

func TestThresholdDecryptionFailsWithWrongShares(t *testing.T) {
	cs := newTestSystem(t)
	const n, thr = 4, 3

	scheme, err := threshold.NewScheme(thr, n)
	require.NoError(t, err)

	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	bound := cs.Params().Arith().RandomExponentBound()
	sampler := func(b *big.Int) *big.Int { return cs.prng.Int(b) }
	sharing := threshold.Split(sk.Value, scheme, bound, sampler)

	p := cs.NewPlaintext(big.NewInt(999))
	ct := cs.Encrypt(pk, p)

	combo0, err := scheme.Combo(0)
	require.NoError(t, err)
	combo1, err := scheme.Combo(1)
	require.NoError(t, err)

	// Mix shares from two different combinations: a nonsensical combine, not
	// a valid threshold set.
	var partials []group.Elem
	s0, _ := sharing.PartyShare(0, combo0[0])
	partials = append(partials, cs.PartDecrypt(s0, ct))
	s1, _ := sharing.PartyShare(1, combo1[0])
	partials = append(partials, cs.PartDecrypt(s1, ct))

	_, err = cs.Combine(ct, partials)
	require.Error(t, err)
	require.ErrorIs(t, err, cofheerr.ErrCryptoFailure)
}

func TestCompactPartDecryptCombinesToSamePlaintext(t *testing.T) {
	params, err := NewParameters(ParametersLiteral{SecurityLevel: Security80, K: 16, Compact: true})
	require.NoError(t, err)
	cs, err := New(params, nil)
	require.NoError(t, err)

	const n, thr = 3, 2
	scheme, err := threshold.NewScheme(thr, n)
	require.NoError(t, err)

	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	bound := cs.Params().Arith().RandomExponentBound()
	sampler := func(b *big.Int) *big.Int { return cs.prng.Int(b) }
	sharing := threshold.Split(sk.Value, scheme, bound, sampler)

	p := cs.NewPlaintext(big.NewInt(4242))
	ct := cs.Encrypt(pk, p)

	combo, err := scheme.Combo(0)
	require.NoError(t, err)

	var partials []group.Elem
	for _, party := range combo {
		share, ok := sharing.PartyShare(0, party)
		require.True(t, ok)
		partials = append(partials, cs.PartDecrypt(share, ct))
	}

	got, err := cs.Combine(ct, partials)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(p.Value))
}

func TestEncryptTensorAndDecryptTensorRoundTrip(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	values := []Plaintext{cs.NewPlaintext(big.NewInt(1)), cs.NewPlaintext(big.NewInt(2)), cs.NewPlaintext(big.NewInt(3)), cs.NewPlaintext(big.NewInt(4))}
	pt, err := tensor.FromSlice([]int{2, 2}, values)
	require.NoError(t, err)

	ct := cs.EncryptTensor(pk, pt)
	got, err := cs.DecryptTensor(sk, ct)
	require.NoError(t, err)

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			want, _ := pt.At(r, c)
			have, _ := got.At(r, c)
			require.Zero(t, want.Value.Cmp(have.Value))
		}
	}
}

func TestBinarySerializationRoundTrip(t *testing.T) {
	cs := newTestSystem(t)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	p := cs.NewPlaintext(big.NewInt(555))
	ct := cs.Encrypt(pk, p)

	wire, err := ct.MarshalBinary()
	require.NoError(t, err)

	var back Ciphertext
	require.NoError(t, back.UnmarshalBinary(wire))

	got, err := cs.Decrypt(sk, back)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(p.Value))
}
