package node

import (
	"math/big"
	"testing"

	"github.com/cofhe-project/cofhe/compute"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/stretchr/testify/require"
)

func newCodecTestSystem(t *testing.T) (*crypto.CryptoSystem, crypto.SecretKey, crypto.PublicKey) {
	t.Helper()
	params, err := crypto.NewParameters(crypto.ParametersLiteral{SecurityLevel: crypto.Security80, K: 16})
	require.NoError(t, err)
	cs, err := crypto.New(params, nil)
	require.NoError(t, err)
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)
	return cs, sk, pk
}

func TestOperandCodecRoundTripsPlainSingle(t *testing.T) {
	cs, _, _ := newCodecTestSystem(t)
	op := compute.Operand{Kind: compute.KindPlainSingle, Plain: cs.NewPlaintext(big.NewInt(42))}

	blob, err := encodeOperand(cs, op)
	require.NoError(t, err)
	got, err := decodeOperand(cs, blob)
	require.NoError(t, err)

	require.Equal(t, compute.KindPlainSingle, got.Kind)
	require.Zero(t, got.Plain.Value.Cmp(big.NewInt(42)))
}

func TestOperandCodecRoundTripsCipherSingle(t *testing.T) {
	cs, sk, pk := newCodecTestSystem(t)
	ct := cs.Encrypt(pk, cs.NewPlaintext(big.NewInt(7)))
	op := compute.Operand{Kind: compute.KindCipherSingle, Cipher: ct}

	blob, err := encodeOperand(cs, op)
	require.NoError(t, err)
	got, err := decodeOperand(cs, blob)
	require.NoError(t, err)

	require.Equal(t, compute.KindCipherSingle, got.Kind)
	plain, err := cs.Decrypt(sk, got.Cipher)
	require.NoError(t, err)
	require.Zero(t, plain.Value.Cmp(big.NewInt(7)))
}

func TestOperandCodecRoundTripsCipherTensor(t *testing.T) {
	cs, sk, pk := newCodecTestSystem(t)
	pt := tensor.New([]int{2}, crypto.Plaintext{})
	require.NoError(t, pt.Set(cs.NewPlaintext(big.NewInt(1)), 0))
	require.NoError(t, pt.Set(cs.NewPlaintext(big.NewInt(2)), 1))
	ct := cs.EncryptTensor(pk, pt)

	op := compute.Operand{Kind: compute.KindCipherTensor, CipherTensor: ct}
	blob, err := encodeOperand(cs, op)
	require.NoError(t, err)
	got, err := decodeOperand(cs, blob)
	require.NoError(t, err)

	require.Equal(t, compute.KindCipherTensor, got.Kind)
	decoded, err := cs.DecryptTensor(sk, got.CipherTensor)
	require.NoError(t, err)
	v0, err := decoded.At(0)
	require.NoError(t, err)
	require.Zero(t, v0.Value.Cmp(big.NewInt(1)))
}

func TestOperandCodecRejectsUnknownTag(t *testing.T) {
	cs, _, _ := newCodecTestSystem(t)
	_, err := decodeOperand(cs, []byte{99, 1, 2, 3})
	require.Error(t, err)
}

func TestOperandCodecRejectsEmptyBlob(t *testing.T) {
	cs, _, _ := newCodecTestSystem(t)
	_, err := decodeOperand(cs, nil)
	require.Error(t, err)
}
