// Package tensor implements the N-dimensional container used throughout
// cofhe to hold plaintexts, ciphertexts and partial-decryption results
// uniformly, following the way lattigo's core/rlwe.Element[T] wraps a
// structs.Vector[T] with shape metadata, generalized here to arbitrary rank,
// broadcast views and piecewise-strided storage (spec.md §3, §4.1).
package tensor

import (
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
)

// Tensor is a generic N-dimensional container over a leaf type X. A Tensor
// value is a lightweight view: shape, the per-axis broadcast degree and a
// shared pointer to the backing storage. Copying a Tensor by value copies the
// view, not the data (spec.md §3's "storage is shared among its views").
type Tensor[X any] struct {
	shape     []int
	baseShape []int // shape of the underlying storage before this view's broadcast
	broadcast []int // per-axis broadcast degree; broadcast[i] == 1 means no broadcast
	strides   []int // row-major strides over baseShape
	store     *storage[X]
}

// New allocates a tensor of the given shape with every leaf set to fill.
func New[X any](shape []int, fill X) *Tensor[X] {
	n := numElements(shape)
	data := make([]X, n)
	for i := range data {
		data[i] = fill
	}
	return fromContiguous(shape, data)
}

// FromSlice wraps an existing row-major slice of leaves as a tensor of the
// given shape without copying. len(data) must equal the product of shape.
func FromSlice[X any](shape []int, data []X) (*Tensor[X], error) {
	if n := numElements(shape); n != len(data) {
		return nil, fmt.Errorf("%w: shape %v needs %d elements, got %d", cofheerr.ErrShapeMismatch, shape, n, len(data))
	}
	return fromContiguous(shape, data), nil
}

func fromContiguous[X any](shape []int, data []X) *Tensor[X] {
	shp := append([]int(nil), shape...)
	bc := make([]int, len(shape))
	for i := range bc {
		bc[i] = 1
	}
	return &Tensor[X]{
		shape:     shp,
		baseShape: append([]int(nil), shape...),
		broadcast: bc,
		strides:   rowMajorStrides(shp),
		store:     newContiguousStorage(data),
	}
}

func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

// Shape returns a copy of the tensor's current logical shape.
func (t *Tensor[X]) Shape() []int { return append([]int(nil), t.shape...) }

// Rank returns the number of axes.
func (t *Tensor[X]) Rank() int { return len(t.shape) }

// NumElements returns the product of the shape's dimensions.
func (t *Tensor[X]) NumElements() int { return numElements(t.shape) }

// IsBroadcast reports whether any axis of this view repeats underlying data.
func (t *Tensor[X]) IsBroadcast() bool {
	for _, b := range t.broadcast {
		if b != 1 {
			return true
		}
	}
	return false
}

// baseIndex maps a logical multi-index into a flat index into the backing
// storage, folding broadcasted axes via modulo on the base dimension.
func (t *Tensor[X]) baseIndex(idx []int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, fmt.Errorf("%w: tensor has rank %d, got %d indices", cofheerr.ErrShapeMismatch, len(t.shape), len(idx))
	}
	flat := 0
	for axis, i := range idx {
		if i < 0 || i >= t.shape[axis] {
			return 0, fmt.Errorf("%w: index %d out of range for axis %d (dim %d)", cofheerr.ErrShapeMismatch, i, axis, t.shape[axis])
		}
		flat += (i % t.baseShape[axis]) * t.strides[axis]
	}
	return flat, nil
}

// At returns the leaf at the given multi-index, which must have one entry
// per axis.
func (t *Tensor[X]) At(idx ...int) (X, error) {
	var zero X
	flat, err := t.baseIndex(idx)
	if err != nil {
		return zero, err
	}
	return t.store.at(flat), nil
}

// Set writes the leaf at the given multi-index. Mutating a broadcasted view
// is rejected (spec.md §9: "interior mutation of a leaf is allowed only for
// owned (non-broadcast) views"); call Walk (which materializes first) or
// Reshape/Copy to obtain an owned view before mutating in place.
func (t *Tensor[X]) Set(v X, idx ...int) error {
	if t.IsBroadcast() {
		return fmt.Errorf("%w: cannot mutate a broadcasted view in place", cofheerr.ErrShapeMismatch)
	}
	flat, err := t.baseIndex(idx)
	if err != nil {
		return err
	}
	t.store.set(flat, v)
	return nil
}

// At1 is a convenience accessor for rank-1 tensors.
func (t *Tensor[X]) At1(i int) (X, error) { return t.At(i) }

// At2 is a convenience accessor for rank-2 tensors (row, col).
func (t *Tensor[X]) At2(row, col int) (X, error) { return t.At(row, col) }

// Copy returns a new tensor with its own, owned, contiguous backing storage
// holding the same logical elements as t (materializing any broadcast).
func (t *Tensor[X]) Copy() *Tensor[X] {
	return fromContiguous(t.shape, t.materialize())
}

// materialize returns the tensor's logical elements, in row-major order, as
// a freshly allocated contiguous slice - the same linearization Walk and
// Reshape rely on to turn a broadcasted view into an owned one.
func (t *Tensor[X]) materialize() []X {
	data := make([]X, t.NumElements())
	idx := make([]int, t.Rank())
	i := 0
	t.eachIndex(idx, 0, func() {
		v, _ := t.At(idx...)
		data[i] = v
		i++
	})
	return data
}

// eachIndex enumerates every multi-index of the tensor's shape in row-major
// order, invoking visit with idx set for each one.
func (t *Tensor[X]) eachIndex(idx []int, axis int, visit func()) {
	if axis == len(t.shape) {
		visit()
		return
	}
	for i := 0; i < t.shape[axis]; i++ {
		idx[axis] = i
		t.eachIndex(idx, axis+1, visit)
	}
}
