package node

import (
	"math/big"
	"net"
	"testing"

	"github.com/cofhe-project/cofhe/compute"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/stretchr/testify/require"
)

// listenLocal opens a loopback TCP listener on an OS-assigned port.
func listenLocal(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

func TestEndToEndComputeOverTCP(t *testing.T) {
	lit := crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 16}

	setup, err := NewSetup(SetupConfig{Params: lit, T: 1, N: 1})
	require.NoError(t, err)
	setupLn := listenLocal(t)
	go func() { _ = setup.Serve(setupLn) }()
	setupAddr := setupLn.Addr().String()

	cofheParams, err := crypto.NewParameters(lit)
	require.NoError(t, err)
	cofheCS, err := crypto.New(cofheParams, nil)
	require.NoError(t, err)
	cofheLn := listenLocal(t)
	cofheNode, err := JoinSetup(setupAddr, cofheLn.Addr().String(), cofheCS)
	require.NoError(t, err)
	go func() { _ = cofheNode.Serve(cofheLn) }()

	computeParams, err := crypto.NewParameters(lit)
	require.NoError(t, err)
	computeCS, err := crypto.New(computeParams, nil)
	require.NoError(t, err)
	computeLn := listenLocal(t)
	computeNode, err := JoinSetupAsCompute(ComputeConfig{SetupAddr: setupAddr, SelfAddr: computeLn.Addr().String(), BeaverCacheSize: 4}, computeCS)
	require.NoError(t, err)
	go func() { _ = computeNode.Serve(computeLn) }()

	clientCS, err := crypto.New(computeParams, nil)
	require.NoError(t, err)
	client := NewClient(clientCS, setupAddr)
	pk := setup.PublicKey()

	ctA := clientCS.Encrypt(pk, clientCS.NewPlaintext(big.NewInt(11)))
	ctB := clientCS.Encrypt(pk, clientCS.NewPlaintext(big.NewInt(31)))

	sum, err := client.Add(
		compute.Operand{Kind: compute.KindCipherSingle, Cipher: ctA},
		compute.Operand{Kind: compute.KindCipherSingle, Cipher: ctB},
	)
	require.NoError(t, err)

	plain, err := client.Decrypt(sum.Cipher)
	require.NoError(t, err)
	require.Zero(t, plain.Value.Cmp(big.NewInt(42)))
}
