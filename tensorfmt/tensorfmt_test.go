package tensorfmt

import (
	"math/big"
	"testing"

	"github.com/cofhe-project/cofhe/tensor"
	"github.com/stretchr/testify/require"
)

func scalarCodec() Codec[*big.Int] {
	return Codec[*big.Int]{
		FieldsPerLeaf: 1,
		ToFields:      func(v *big.Int) []*big.Int { return []*big.Int{v} },
		FromFields:    func(f []*big.Int) *big.Int { return f[0] },
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data := []*big.Int{big.NewInt(1), big.NewInt(-2), big.NewInt(300), big.NewInt(0), big.NewInt(-1), big.NewInt(70000)}
	src, err := tensor.FromSlice([]int{2, 3}, data)
	require.NoError(t, err)

	wire, err := Encode(src, scalarCodec())
	require.NoError(t, err)

	got, err := Decode[*big.Int](wire, scalarCodec())
	require.NoError(t, err)
	require.Equal(t, []int{2, 3}, got.Shape())

	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			want, _ := src.At(r, c)
			have, err := got.At(r, c)
			require.NoError(t, err)
			require.Zero(t, want.Cmp(have))
		}
	}
}

func TestEncodeProducesExpectedOffsetCount(t *testing.T) {
	data := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)}
	src, err := tensor.FromSlice([]int{4}, data)
	require.NoError(t, err)

	wire, err := Encode(src, scalarCodec())
	require.NoError(t, err)

	// header: 4 (rank) + 4*1 (dims) = 8 bytes before the offset table;
	// offset table has numElements*fieldsPerLeaf+1 = 5 entries.
	require.GreaterOrEqual(t, len(wire), 8+8*5)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	data := []*big.Int{big.NewInt(1)}
	src, err := tensor.FromSlice([]int{1}, data)
	require.NoError(t, err)
	wire, err := Encode(src, scalarCodec())
	require.NoError(t, err)

	_, err = Decode[*big.Int](wire[:len(wire)-1], scalarCodec())
	require.Error(t, err)
}

func TestDecodeRejectsWrongFieldsPerLeaf(t *testing.T) {
	data := []*big.Int{big.NewInt(1), big.NewInt(2)}
	src, err := tensor.FromSlice([]int{2}, data)
	require.NoError(t, err)
	wire, err := Encode(src, scalarCodec())
	require.NoError(t, err)

	mismatched := Codec[*big.Int]{
		FieldsPerLeaf: 2,
		ToFields:      func(v *big.Int) []*big.Int { return []*big.Int{v, v} },
		FromFields:    func(f []*big.Int) *big.Int { return f[0] },
	}
	_, err = Decode[*big.Int](wire, mismatched)
	require.Error(t, err)
}
