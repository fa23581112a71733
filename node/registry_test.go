package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/wire"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistrySeedsSetupPeers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.yaml")
	contents := `
peers:
  - party: 1
    role: cofhe
    address: 127.0.0.1:9001
  - party: 2
    role: compute
    address: 127.0.0.1:9002
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Peers, 2)

	setup, err := NewSetup(SetupConfig{
		Params: crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 16},
		T:      1, N: 2,
	})
	require.NoError(t, err)
	reg.Seed(setup)

	_, body := setup.handle(wire.ServicePayload{Subtype: int(wire.SubtypeNetworkDetails)})
	resp, err := wire.DecodeNetworkDetailsResponse(body)
	require.NoError(t, err)
	require.Len(t, resp.Peers, 2)
	require.Equal(t, "127.0.0.1:9001", resp.Peers[0].Address)
	require.Equal(t, wire.RoleCoFHE, resp.Peers[0].Role)
	require.Equal(t, "127.0.0.1:9002", resp.Peers[1].Address)
	require.Equal(t, wire.RoleCompute, resp.Peers[1].Role)

	wantCommit, err := CommitJoinOrder(resp.Peers)
	require.NoError(t, err)
	require.Equal(t, wantCommit, resp.JoinCommit)
	require.NotEqual(t, [32]byte{}, resp.JoinCommit)
}

func TestCommitJoinOrderIsDeterministicAndOrderSensitive(t *testing.T) {
	a := []wire.PeerInfo{
		{Party: 1, Role: wire.RoleCoFHE, Address: "h1"},
		{Party: 2, Role: wire.RoleCompute, Address: "h2"},
	}
	b := []wire.PeerInfo{a[1], a[0]}

	ha, err := CommitJoinOrder(a)
	require.NoError(t, err)
	ha2, err := CommitJoinOrder(a)
	require.NoError(t, err)
	require.Equal(t, ha, ha2)

	hb, err := CommitJoinOrder(b)
	require.NoError(t, err)
	require.NotEqual(t, ha, hb)
}
