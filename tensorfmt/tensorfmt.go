// Package tensorfmt implements the binary tensor encoding of spec.md §4.10:
// a little-endian rank, dimension vector, offset table locating every
// leaf's fields in a trailing data region, and the data region itself. It is
// leaf-type agnostic (a Codec supplies the leaf<->big.Int-fields mapping), so
// it serves crypto.Plaintext, crypto.Ciphertext and group.Elem tensors alike.
// Grounded on tuneinsight-lattigo's WriteTo/ReadFrom/MarshalBinary convention
// (core/rlwe/ciphertext.go and friends) for the overall encode/decode shape;
// the concrete byte layout follows spec.md §4.10 literally, including its
// little-endian integers and little-endian big-integer export (the teacher's
// own utils/buffer.go primitives were not present in the retrieved copy to
// compare against, and where the two would disagree spec.md's explicit wire
// format wins, since it is a committed format, not an open question).
package tensorfmt

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/tensor"
)

// signBit marks a negative field value in its offset table entry (spec.md
// §4.10, §9: "top-bit sign flags").
const signBit = uint64(1) << 63
const offsetMask = signBit - 1

// Codec describes how to decompose a leaf of type X into a fixed number of
// big.Int fields and reassemble it. FieldsPerLeaf is spec.md §4.10's
// fields_per_leaf: 1 for a plaintext tensor, 3 for a partial-decryption
// result tensor, 6 for a ciphertext tensor.
type Codec[X any] struct {
	FieldsPerLeaf int
	ToFields      func(X) []*big.Int
	FromFields    func([]*big.Int) X
}

// littleEndianBytes returns v's magnitude as a little-endian byte string
// (spec.md §4.10: "big integers are exported as little-endian byte
// strings"), the reverse of math/big.Int.Bytes()'s big-endian convention.
func littleEndianBytes(v *big.Int) []byte {
	b := v.Bytes()
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func bigIntFromLittleEndian(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, c := range b {
		rev[len(b)-1-i] = c
	}
	return new(big.Int).SetBytes(rev)
}

// Encode serializes t into spec.md §4.10's wire format, with the §9-resolved
// trailing sentinel: the offset table carries numElements*FieldsPerLeaf+1
// entries so every field has an explicit [start,end) span, the last entry
// being the total data region length with no sign bit of its own.
func Encode[X any](t *tensor.Tensor[X], codec Codec[X]) ([]byte, error) {
	shape := t.Shape()
	leaves := flatten(t)

	totalFields := len(leaves) * codec.FieldsPerLeaf
	fields := make([]*big.Int, 0, totalFields)
	for _, leaf := range leaves {
		fs := codec.ToFields(leaf)
		if len(fs) != codec.FieldsPerLeaf {
			return nil, fmt.Errorf("tensorfmt: codec produced %d fields, want %d: %w", len(fs), codec.FieldsPerLeaf, cofheerr.ErrProtocolError)
		}
		fields = append(fields, fs...)
	}

	offsets := make([]uint64, totalFields+1)
	var data []byte
	var cursor uint64
	for i, f := range fields {
		b := littleEndianBytes(f)
		off := cursor
		if f.Sign() < 0 {
			off |= signBit
		}
		offsets[i] = off
		data = append(data, b...)
		cursor += uint64(len(b))
	}
	offsets[totalFields] = cursor // sentinel, no sign bit: total data length

	out := make([]byte, 4+4*len(shape)+8*len(offsets))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(shape)))
	pos := 4
	for _, d := range shape {
		binary.LittleEndian.PutUint32(out[pos:pos+4], uint32(d))
		pos += 4
	}
	for _, o := range offsets {
		binary.LittleEndian.PutUint64(out[pos:pos+8], o)
		pos += 8
	}
	out = append(out, data...)
	return out, nil
}

// Decode parses the wire format produced by Encode.
func Decode[X any](data []byte, codec Codec[X]) (*tensor.Tensor[X], error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("tensorfmt: truncated header: %w", cofheerr.ErrProtocolError)
	}
	rank := int(binary.LittleEndian.Uint32(data[0:4]))
	pos := 4
	if len(data) < pos+4*rank {
		return nil, fmt.Errorf("tensorfmt: truncated dimension vector: %w", cofheerr.ErrProtocolError)
	}
	shape := make([]int, rank)
	numElements := 1
	for i := 0; i < rank; i++ {
		shape[i] = int(binary.LittleEndian.Uint32(data[pos : pos+4]))
		numElements *= shape[i]
		pos += 4
	}

	numOffsets := numElements*codec.FieldsPerLeaf + 1
	if len(data) < pos+8*numOffsets {
		return nil, fmt.Errorf("tensorfmt: truncated offset table: %w", cofheerr.ErrProtocolError)
	}
	offsets := make([]uint64, numOffsets)
	for i := 0; i < numOffsets; i++ {
		offsets[i] = binary.LittleEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	dataRegion := data[pos:]
	totalFields := numOffsets - 1
	fields := make([]*big.Int, totalFields)
	for i := 0; i < totalFields; i++ {
		start := offsets[i] & offsetMask
		end := offsets[i+1] & offsetMask
		if end < start || end > uint64(len(dataRegion)) {
			return nil, fmt.Errorf("tensorfmt: field %d has invalid span [%d,%d): %w", i, start, end, cofheerr.ErrProtocolError)
		}
		v := bigIntFromLittleEndian(dataRegion[start:end])
		if offsets[i]&signBit != 0 {
			v.Neg(v)
		}
		fields[i] = v
	}

	leaves := make([]X, numElements)
	for i := 0; i < numElements; i++ {
		leaves[i] = codec.FromFields(fields[i*codec.FieldsPerLeaf : (i+1)*codec.FieldsPerLeaf])
	}
	return tensor.FromSlice(shape, leaves)
}

// flatten returns t's leaves in row-major order without mutating t (it reads
// through a Copy, since Walk's materialization would otherwise fix t's own
// broadcast view).
func flatten[X any](t *tensor.Tensor[X]) []X {
	owned := t.Copy()
	n := owned.NumElements()
	out := make([]X, n)
	owned.Walk(func(i int, x X) X {
		out[i] = x
		return x
	})
	return out
}
