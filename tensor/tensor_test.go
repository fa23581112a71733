package tensor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/cofhe-project/cofhe/tensor"
)

func TestNewAndAt(t *testing.T) {
	tt := tensor.New([]int{2, 3}, 0)
	require.Equal(t, []int{2, 3}, tt.Shape())
	require.Equal(t, 6, tt.NumElements())

	require.NoError(t, tt.Set(7, 1, 2))
	v, err := tt.At2(1, 2)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestReshapeRejectsMismatch(t *testing.T) {
	tt := tensor.New([]int{2, 3}, 0)
	_, err := tt.Reshape([]int{4, 2})
	require.Error(t, err)
}

func TestReshapePreservesElements(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5}
	tt, err := tensor.FromSlice([]int{2, 3}, data)
	require.NoError(t, err)

	rt, err := tt.Reshape([]int{3, 2})
	require.NoError(t, err)
	require.Equal(t, 6, rt.NumElements())

	var out []int
	rt.Walk(func(_ int, x int) int { out = append(out, x); return x })
	require.Equal(t, data, out)
}

// TestBroadcastLeafMapping checks spec.md §8's broadcast property: a tensor
// of shape [a,b] broadcast to [n*a, m*b] yields leaf (i,j) = original(i mod
// a, j mod b).
func TestBroadcastLeafMapping(t *testing.T) {
	const a, b, n, m = 2, 3, 4, 5
	data := make([]int, a*b)
	for i := range data {
		data[i] = i + 1
	}
	src, err := tensor.FromSlice([]int{a, b}, data)
	require.NoError(t, err)

	bt, err := src.Broadcast([]int{n * a, m * b})
	require.NoError(t, err)
	require.Equal(t, []int{n * a, m * b}, bt.Shape())

	for i := 0; i < n*a; i++ {
		for j := 0; j < m*b; j++ {
			got, err := bt.At(i, j)
			require.NoError(t, err)
			want, err := src.At(i%a, j%b)
			require.NoError(t, err)
			require.Equalf(t, want, got, "i=%d j=%d", i, j)
		}
	}
}

func TestBroadcastRejectsNonMultiple(t *testing.T) {
	src := tensor.New([]int{2, 3}, 0)
	_, err := src.Broadcast([]int{5, 3})
	require.Error(t, err)
}

func TestBroadcastWithLeadingAxes(t *testing.T) {
	src, err := tensor.FromSlice([]int{3}, []int{10, 20, 30})
	require.NoError(t, err)

	bt, err := src.Broadcast([]int{2, 3})
	require.NoError(t, err)
	for lead := 0; lead < 2; lead++ {
		for j := 0; j < 3; j++ {
			v, err := bt.At(lead, j)
			require.NoError(t, err)
			require.Equal(t, (j+1)*10, v)
		}
	}
}

func TestWalkMaterializesBroadcastOnce(t *testing.T) {
	src, err := tensor.FromSlice([]int{2}, []int{1, 2})
	require.NoError(t, err)
	bt, err := src.Broadcast([]int{3, 2})
	require.NoError(t, err)

	visits := 0
	bt.Walk(func(_ int, x int) int {
		visits++
		return x
	})
	require.Equal(t, 6, visits)
	require.False(t, bt.IsBroadcast())
}

func TestFlatten(t *testing.T) {
	data := make([]int, 2*3*4)
	for i := range data {
		data[i] = i
	}
	tt, err := tensor.FromSlice([]int{2, 3, 4}, data)
	require.NoError(t, err)

	ft, err := tt.Flatten(1)
	require.NoError(t, err)
	require.Equal(t, []int{2, 12}, ft.Shape())

	var out []int
	ft.Walk(func(_ int, x int) int { out = append(out, x); return x })
	if diff := cmp.Diff(data, out); diff != "" {
		t.Fatalf("flatten changed element order: %s", diff)
	}
}

func TestAxis0Iterator(t *testing.T) {
	data := []int{1, 2, 3, 4, 5, 6}
	tt, err := tensor.FromSlice([]int{3, 2}, data)
	require.NoError(t, err)

	it := tt.Axis0()
	require.Equal(t, 3, it.Len())

	var rows [][]int
	for {
		sub, ok := it.Next()
		if !ok {
			break
		}
		var row []int
		sub.Walk(func(_ int, x int) int { row = append(row, x); return x })
		rows = append(rows, row)
	}
	require.Equal(t, [][]int{{1, 2}, {3, 4}, {5, 6}}, rows)
}

func TestCopyMaterializesIndependentStorage(t *testing.T) {
	src, err := tensor.FromSlice([]int{2}, []int{1, 2})
	require.NoError(t, err)
	bt, err := src.Broadcast([]int{2, 2})
	require.NoError(t, err)

	cp := bt.Copy()
	require.NoError(t, cp.Set(99, 0, 0))
	v, err := bt.At(0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, v, "mutating the copy must not affect the broadcasted source")
}
