package tensor

import (
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
)

// Reshape returns a tensor of newShape over the same logical elements.
// Π(newShape) must equal t.NumElements(). If t is a broadcasted view the
// storage is materialized (copied) first, since a broadcasted axis has no
// single consistent stride once the axis boundaries move (spec.md §4.1).
func (t *Tensor[X]) Reshape(newShape []int) (*Tensor[X], error) {
	if numElements(newShape) != t.NumElements() {
		return nil, fmt.Errorf("%w: cannot reshape %v (%d elements) to %v (%d elements)",
			cofheerr.ErrShapeMismatch, t.shape, t.NumElements(), newShape, numElements(newShape))
	}
	if t.IsBroadcast() || len(t.store.segments) != 1 {
		return fromContiguous(newShape, t.materialize()), nil
	}
	return &Tensor[X]{
		shape:     append([]int(nil), newShape...),
		baseShape: append([]int(nil), newShape...),
		broadcast: onesOf(len(newShape)),
		strides:   rowMajorStrides(newShape),
		store:     t.store,
	}, nil
}

func onesOf(n int) []int {
	ones := make([]int, n)
	for i := range ones {
		ones[i] = 1
	}
	return ones
}

// Broadcast returns a view of newShape that logically repeats this tensor's
// axes without copying. Trailing axes of newShape align with t's current
// axes (each target dimension must be a positive integer multiple of the
// source dimension); any leading axes are new and repeat the whole tensor.
func (t *Tensor[X]) Broadcast(newShape []int) (*Tensor[X], error) {
	if len(newShape) < len(t.shape) {
		return nil, fmt.Errorf("%w: broadcast target %v has fewer axes than source %v", cofheerr.ErrShapeMismatch, newShape, t.shape)
	}
	extra := len(newShape) - len(t.shape)

	baseShape := make([]int, len(newShape))
	broadcast := make([]int, len(newShape))
	strides := make([]int, len(newShape))

	for i := 0; i < extra; i++ {
		if newShape[i] < 1 {
			return nil, fmt.Errorf("%w: broadcast dimension %d must be positive", cofheerr.ErrShapeMismatch, newShape[i])
		}
		baseShape[i] = 1
		broadcast[i] = newShape[i]
		strides[i] = 0
	}
	for i, srcAxis := 0+extra, 0; i < len(newShape); i, srcAxis = i+1, srcAxis+1 {
		src := t.shape[srcAxis]
		if src == 0 || newShape[i]%src != 0 {
			return nil, fmt.Errorf("%w: axis %d target dim %d is not a positive multiple of source dim %d",
				cofheerr.ErrShapeMismatch, srcAxis, newShape[i], src)
		}
		factor := newShape[i] / src
		baseShape[i] = t.baseShape[srcAxis]
		broadcast[i] = t.broadcast[srcAxis] * factor
		strides[i] = t.strides[srcAxis]
	}

	return &Tensor[X]{
		shape:     append([]int(nil), newShape...),
		baseShape: baseShape,
		broadcast: broadcast,
		strides:   strides,
		store:     t.store,
	}, nil
}

// Flatten collapses every axis from axis onward into a single trailing axis.
func (t *Tensor[X]) Flatten(axis int) (*Tensor[X], error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("%w: flatten axis %d out of range for rank %d", cofheerr.ErrShapeMismatch, axis, len(t.shape))
	}
	collapsed := 1
	for _, d := range t.shape[axis:] {
		collapsed *= d
	}
	newShape := append(append([]int(nil), t.shape[:axis]...), collapsed)
	return t.Reshape(newShape)
}

// Walk visits every leaf exactly once in row-major order, replacing it with
// the value returned by fn. If the view is broadcasted, Walk first
// materializes a private contiguous copy of the backing storage so aliased
// logical elements are each visited (and mutated) once rather than once per
// alias (spec.md §4.1). After Walk returns, t is always an owned,
// non-broadcast view over its own storage.
func (t *Tensor[X]) Walk(fn func(i int, x X) X) {
	if t.IsBroadcast() || len(t.store.segments) != 1 {
		data := t.materialize()
		t.baseShape = append([]int(nil), t.shape...)
		t.broadcast = onesOf(len(t.shape))
		t.strides = rowMajorStrides(t.shape)
		t.store = newContiguousStorage(data)
	}
	seg := t.store.segments[0].data
	for i := range seg {
		seg[i] = fn(i, seg[i])
	}
}

// Axis0Iter iterates the sub-tensors obtained by fixing index 0 of t's axis
// 0. Each advance computes the offset with a single multiply-add on the
// axis-0 stride and then slices the storage, a binary search over its
// segments (O(log segments)) with no element copy.
type Axis0Iter[X any] struct {
	t   *Tensor[X]
	pos int
}

// Axis0 returns an iterator over t's axis-0 sub-views (each of shape
// t.Shape()[1:]).
func (t *Tensor[X]) Axis0() *Axis0Iter[X] { return &Axis0Iter[X]{t: t} }

// Len returns the number of remaining sub-views.
func (it *Axis0Iter[X]) Len() int { return it.t.shape[0] - it.pos }

// Next returns the next axis-0 sub-view, or ok=false once exhausted.
func (it *Axis0Iter[X]) Next() (sub *Tensor[X], ok bool) {
	if it.pos >= it.t.shape[0] {
		return nil, false
	}
	sub = it.t.subAxis0(it.pos)
	it.pos++
	return sub, true
}

// subAxis0 returns the view fixing axis 0 at logical index i.
func (t *Tensor[X]) subAxis0(i int) *Tensor[X] {
	baseIdx := i % t.baseShape[0]
	offset := baseIdx * t.strides[0]

	// The span owned by this sub-view is exactly product(baseShape[1:])
	// elements (equivalently t.strides[0], by construction of row-major
	// strides): cheap O(log depth) slice over segments, no element copy.
	need := 1
	for _, d := range t.baseShape[1:] {
		need *= d
	}
	sub := t.store.slice(offset, offset+need)

	return &Tensor[X]{
		shape:     append([]int(nil), t.shape[1:]...),
		baseShape: append([]int(nil), t.baseShape[1:]...),
		broadcast: append([]int(nil), t.broadcast[1:]...),
		strides:   append([]int(nil), t.strides[1:]...),
		store:     sub,
	}
}
