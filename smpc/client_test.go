package smpc

import (
	"context"
	"math/big"
	"testing"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/threshold"
	"github.com/stretchr/testify/require"
)

// fakeSetupClient answers RequestTriples with freshly generated Beaver
// triples, counting calls so tests can assert on cache-refill behavior.
type fakeSetupClient struct {
	cs   *crypto.CryptoSystem
	pk   crypto.PublicKey
	sk   crypto.SecretKey
	reqs int
}

func (f *fakeSetupClient) RequestTriples(ctx context.Context, n int) (*tensor.Tensor[crypto.Ciphertext], error) {
	f.reqs++
	out := tensor.New([]int{n, 3}, crypto.Ciphertext{})
	bound := f.cs.Params().CleartextBound()
	for i := 0; i < n; i++ {
		a := randMod(bound)
		b := randMod(bound)
		ab := new(big.Int).Mod(new(big.Int).Mul(a, b), bound)
		_ = out.Set(f.cs.Encrypt(f.pk, crypto.Plaintext{Value: a}), i, 0)
		_ = out.Set(f.cs.Encrypt(f.pk, crypto.Plaintext{Value: b}), i, 1)
		_ = out.Set(f.cs.Encrypt(f.pk, crypto.Plaintext{Value: ab}), i, 2)
	}
	return out, nil
}

func randMod(bound *big.Int) *big.Int {
	n, err := crypto.NewPRNG()
	if err != nil {
		panic(err)
	}
	return n.Int(bound)
}

// fakePartyNode holds one party's share of a threshold.Sharing and answers
// PartDecrypt directly, without any networking.
type fakePartyNode struct {
	party  int
	cs     *crypto.CryptoSystem
	sharing *threshold.Sharing
}

func (n *fakePartyNode) Party() int { return n.party }

func (n *fakePartyNode) PartDecrypt(ctx context.Context, comboRank int, ct crypto.Ciphertext) (group.Elem, error) {
	share, ok := n.sharing.PartyShare(comboRank, n.party)
	if !ok {
		return group.Elem{}, errNotInCombo
	}
	return n.cs.PartDecrypt(share, ct), nil
}

func (n *fakePartyNode) Close() error { return nil }

var errNotInCombo = &notInComboError{}

type notInComboError struct{}

func (*notInComboError) Error() string { return "smpc: party not a member of requested combination" }

// fakePeerDirectory exposes a fixed, always-reachable set of fakePartyNodes.
type fakePeerDirectory struct {
	nodes map[int]*fakePartyNode
	order []int
}

func (d *fakePeerDirectory) ReachableParties(ctx context.Context) ([]int, error) {
	return append([]int(nil), d.order...), nil
}

func (d *fakePeerDirectory) Dial(ctx context.Context, party int) (PartialDecryptClient, error) {
	return d.nodes[party], nil
}

func newTestEnv(t *testing.T, n, tt int) (*crypto.CryptoSystem, crypto.PublicKey, *threshold.Scheme, *fakeSetupClient, *fakePeerDirectory) {
	t.Helper()
	params, err := crypto.NewParameters(crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 24})
	require.NoError(t, err)
	cs, err := crypto.New(params, nil)
	require.NoError(t, err)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	scheme, err := threshold.NewScheme(tt, n)
	require.NoError(t, err)
	sharing := threshold.Split(sk.Value, scheme, params.Arith().RandomExponentBound(), func(bound *big.Int) *big.Int {
		return randMod(bound)
	})

	nodes := make(map[int]*fakePartyNode, n)
	order := make([]int, n)
	for p := 1; p <= n; p++ {
		nodes[p] = &fakePartyNode{party: p, cs: cs, sharing: sharing}
		order[p-1] = p
	}

	setup := &fakeSetupClient{cs: cs, pk: pk, sk: sk}
	dir := &fakePeerDirectory{nodes: nodes, order: order}
	return cs, pk, scheme, setup, dir
}

func TestGetBeaverTriplesRefillsOnceForManySubsequentPops(t *testing.T) {
	cs, pk, scheme, setup, dir := newTestEnv(t, 4, 3)
	client := NewClient(cs, scheme, setup, dir, 100)
	_ = pk

	_, err := client.GetBeaverTriples(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, setup.reqs)

	for i := 0; i < 99; i++ {
		_, err := client.GetBeaverTriples(context.Background(), 1)
		require.NoError(t, err)
	}
	require.Equal(t, 1, setup.reqs, "99 pops from a 100-sized cache must not trigger another refill")

	// The first refill fetched 1+100 triples, so one is still cached; asking
	// for two exceeds it.
	_, err = client.GetBeaverTriples(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, setup.reqs, "cache short of the request, a second refill is expected")
}

func TestGetBeaverTriplesReturnsConsistentTriples(t *testing.T) {
	cs, pk, scheme, setup, dir := newTestEnv(t, 4, 3)
	client := NewClient(cs, scheme, setup, dir, 8)
	sk := setup.sk

	triples, err := client.GetBeaverTriples(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, triples, 3)

	_ = pk
	for _, tr := range triples {
		a, err := cs.Decrypt(sk, tr.A)
		require.NoError(t, err)
		b, err := cs.Decrypt(sk, tr.B)
		require.NoError(t, err)
		ab, err := cs.Decrypt(sk, tr.AB)
		require.NoError(t, err)

		want := new(big.Int).Mod(new(big.Int).Mul(a.Value, b.Value), cs.Params().CleartextBound())
		require.Zero(t, ab.Value.Cmp(want))
	}
}

func TestDecryptReconstructsViaFanOut(t *testing.T) {
	cs, pk, scheme, setup, dir := newTestEnv(t, 5, 3)
	client := NewClient(cs, scheme, setup, dir, 4)

	plain := crypto.Plaintext{Value: big.NewInt(4242)}
	ct := cs.Encrypt(pk, plain)

	got, err := client.Decrypt(context.Background(), ct)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(plain.Value))
}

func TestDecryptFailsWhenFewerThanTPeersReachable(t *testing.T) {
	cs, pk, scheme, setup, dir := newTestEnv(t, 5, 3)
	dir.order = dir.order[:2] // only 2 of 5 nodes reachable, need t=3

	client := NewClient(cs, scheme, setup, dir, 4)
	ct := cs.Encrypt(pk, crypto.Plaintext{Value: big.NewInt(7)})

	_, err := client.Decrypt(context.Background(), ct)
	require.Error(t, err)
}

func TestReinitRecomputesComboRankOnChurn(t *testing.T) {
	cs, pk, scheme, setup, dir := newTestEnv(t, 5, 3)
	client := NewClient(cs, scheme, setup, dir, 4)

	require.NoError(t, client.Reinit(context.Background()))
	firstRank := client.comboRank

	// Simulate churn: party 1 drops, a different 3-subset becomes the
	// reachable set.
	dir.order = []int{2, 3, 4}
	require.NoError(t, client.Reinit(context.Background()))
	require.NotEqual(t, firstRank, client.comboRank)

	ct := cs.Encrypt(pk, crypto.Plaintext{Value: big.NewInt(99)})
	got, err := client.Decrypt(context.Background(), ct)
	require.NoError(t, err)
	require.Zero(t, got.Value.Cmp(big.NewInt(99)))
}
