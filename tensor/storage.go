package tensor

import "sort"

// storage is the shared backing for a tensor's views (spec.md §3's ownership
// model: "storage backing a tensor is shared among its views; each view is an
// independent value; shared lifetime = longest holder"). It is organized as
// an ordered list of contiguous segments rather than a single flat slice, so
// that a tensor built by slicing an axis-0 sub-range of a larger tensor (see
// [Tensor.Axis0]) can share the parent's backing array instead of copying it.
//
// Random access resolves a logical flat index to (segment, offset) by binary
// search over cumulative segment lengths: O(log depth) in the number of
// segments, never O(k) in the index itself, satisfying the striding contract
// in spec.md §4.1.
type storage[X any] struct {
	segments []segment[X]
	prefix   []int // prefix[i] = sum of lengths of segments[:i]; len(prefix) == len(segments)+1
}

type segment[X any] struct {
	data []X
}

func newContiguousStorage[X any](data []X) *storage[X] {
	return &storage[X]{
		segments: []segment[X]{{data: data}},
		prefix:   []int{0, len(data)},
	}
}

func newConcatStorage[X any](parts ...[]X) *storage[X] {
	s := &storage[X]{
		segments: make([]segment[X], 0, len(parts)),
		prefix:   make([]int, 1, len(parts)+1),
	}
	total := 0
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		s.segments = append(s.segments, segment[X]{data: p})
		total += len(p)
		s.prefix = append(s.prefix, total)
	}
	return s
}

func (s *storage[X]) length() int {
	return s.prefix[len(s.prefix)-1]
}

// locate resolves flat index i to its owning segment and the offset within
// that segment's slice.
func (s *storage[X]) locate(i int) (segIdx, offset int) {
	// sort.Search finds the first prefix boundary strictly greater than i;
	// the segment owning i is the one just before that boundary.
	segIdx = sort.Search(len(s.prefix)-1, func(k int) bool {
		return s.prefix[k+1] > i
	})
	offset = i - s.prefix[segIdx]
	return
}

func (s *storage[X]) at(i int) X {
	seg, off := s.locate(i)
	return s.segments[seg].data[off]
}

func (s *storage[X]) set(i int, v X) {
	seg, off := s.locate(i)
	s.segments[seg].data[off] = v
}

// slice returns a new storage sharing the backing arrays of the segments
// covering the half-open range [lo, hi), without copying element data. This
// is how Axis0 sub-views and leading-axis narrowing cost a segment lookup
// rather than O(size).
func (s *storage[X]) slice(lo, hi int) *storage[X] {
	if lo == 0 && hi == s.length() {
		return s
	}
	loSeg, loOff := s.locate(lo)
	hiSeg, hiOff := loSeg, loOff
	if hi > lo {
		hiSeg, hiOff = s.locate(hi - 1)
		hiOff++
	}
	out := &storage[X]{}
	for seg := loSeg; seg <= hiSeg; seg++ {
		data := s.segments[seg].data
		start, end := 0, len(data)
		if seg == loSeg {
			start = loOff
		}
		if seg == hiSeg {
			end = hiOff
		}
		out.segments = append(out.segments, segment[X]{data: data[start:end]})
	}
	out.prefix = make([]int, len(out.segments)+1)
	total := 0
	for i, sg := range out.segments {
		total += len(sg.data)
		out.prefix[i+1] = total
	}
	return out
}

// flattenCopy copies every leaf into one contiguous backing array in logical
// order, materializing a storage with a single segment.
func (s *storage[X]) flattenCopy() *storage[X] {
	if len(s.segments) == 1 {
		return newContiguousStorage(append([]X(nil), s.segments[0].data...))
	}
	out := make([]X, s.length())
	pos := 0
	for _, sg := range s.segments {
		pos += copy(out[pos:], sg.data)
	}
	return newContiguousStorage(out)
}
