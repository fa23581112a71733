package node

import (
	"testing"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/wire"
	"github.com/stretchr/testify/require"
)

func newTestSetup(t *testing.T, tVal, n int) *Setup {
	t.Helper()
	s, err := NewSetup(SetupConfig{
		Params: crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 16},
		T:      tVal, N: n,
	})
	require.NoError(t, err)
	return s
}

func TestSetupInfoReportsPublicKeyAndAccessStructure(t *testing.T) {
	s := newTestSetup(t, 2, 3)

	_, body := s.handle(wire.ServicePayload{Subtype: int(wire.SubtypeSetupInfo)})
	resp, err := wire.DecodeSetupInfoResponse(body)
	require.NoError(t, err)
	require.Equal(t, 2, resp.T)
	require.Equal(t, 3, resp.N)

	got, err := crypto.DecodeGroupElem(resp.PublicKey)
	require.NoError(t, err)
	require.Zero(t, got.A.Cmp(s.pk.Value.A))
	require.Zero(t, got.B.Cmp(s.pk.Value.B))
	require.Zero(t, got.C.Cmp(s.pk.Value.C))
}

func TestJoinAsNodeAssignsIncrementingCoFHEParties(t *testing.T) {
	s := newTestSetup(t, 2, 3)

	_, b1 := s.handle(wire.ServicePayload{
		Subtype: int(wire.SubtypeJoinAsNode),
		Body:    wire.JoinAsNodeRequest{Role: wire.RoleCoFHE, SelfAddr: "127.0.0.1:9101"}.Encode(),
	})
	r1, err := wire.DecodeJoinAsNodeResponse(b1)
	require.NoError(t, err)
	require.Equal(t, 1, r1.Party)
	require.NotEmpty(t, r1.Shares)

	_, b2 := s.handle(wire.ServicePayload{
		Subtype: int(wire.SubtypeJoinAsNode),
		Body:    wire.JoinAsNodeRequest{Role: wire.RoleCoFHE, SelfAddr: "127.0.0.1:9102"}.Encode(),
	})
	r2, err := wire.DecodeJoinAsNodeResponse(b2)
	require.NoError(t, err)
	require.Equal(t, 2, r2.Party)

	_, ndBody := s.handle(wire.ServicePayload{Subtype: int(wire.SubtypeNetworkDetails)})
	nd, err := wire.DecodeNetworkDetailsResponse(ndBody)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9101", nd.Peers[0].Address)
	require.Equal(t, "127.0.0.1:9102", nd.Peers[1].Address)
	require.NotEqual(t, [32]byte{}, nd.JoinCommit)
}

func TestBeaverTripletRequestReturnsRequestedCount(t *testing.T) {
	s := newTestSetup(t, 1, 1)

	_, body := s.handle(wire.ServicePayload{
		Subtype: int(wire.SubtypeBeaverTriplet),
		Body:    wire.BeaverTripletRequest{N: 5}.Encode(),
	})
	resp, err := wire.DecodeBeaverTripletResponse(body)
	require.NoError(t, err)
	triples, err := s.cs.DecodeCiphertextTensor(resp.Triples)
	require.NoError(t, err)
	require.Equal(t, []int{5, 3}, triples.Shape())
}
