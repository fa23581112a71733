package crypto

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/tensorfmt"
)

// This file follows lattigo's WriteTo/ReadFrom/MarshalBinary quartet
// convention (core/rlwe/ciphertext.go and friends): every wire type exposes
// MarshalBinary/UnmarshalBinary for encoding.BinaryMarshaler compatibility
// and WriteTo/ReadFrom for streaming over an io.Writer/io.Reader, which wrap
// the MarshalBinary payload in a u32 length prefix.

func elemFields(e group.Elem) []*big.Int { return []*big.Int{e.A, e.B, e.C} }

func elemFromFields(f []*big.Int) group.Elem { return group.Elem{A: f[0], B: f[1], C: f[2]} }

func plaintextCodec() tensorfmt.Codec[Plaintext] {
	return tensorfmt.Codec[Plaintext]{
		FieldsPerLeaf: 1,
		ToFields:      func(p Plaintext) []*big.Int { return []*big.Int{p.Value} },
		FromFields:    func(f []*big.Int) Plaintext { return Plaintext{Value: f[0]} },
	}
}

func ciphertextCodec() tensorfmt.Codec[Ciphertext] {
	return tensorfmt.Codec[Ciphertext]{
		FieldsPerLeaf: 6,
		ToFields: func(ct Ciphertext) []*big.Int {
			return append(elemFields(ct.C1), elemFields(ct.C2)...)
		},
		FromFields: func(f []*big.Int) Ciphertext {
			return Ciphertext{C1: elemFromFields(f[0:3]), C2: elemFromFields(f[3:6])}
		},
	}
}

func groupElemCodec() tensorfmt.Codec[group.Elem] {
	return tensorfmt.Codec[group.Elem]{
		FieldsPerLeaf: 3,
		ToFields:      elemFields,
		FromFields:    elemFromFields,
	}
}

// EncodeGroupElem serializes a single group.Elem (spec.md §4.10's
// fields_per_leaf=3 "partial-decryption result" case), used by cofhe nodes
// to return PartDecrypt's output over the wire.
func EncodeGroupElem(e group.Elem) ([]byte, error) {
	t := tensor.New([]int{1}, e)
	return tensorfmt.Encode(t, groupElemCodec())
}

// DecodeGroupElem parses a payload produced by EncodeGroupElem.
func DecodeGroupElem(data []byte) (group.Elem, error) {
	t, err := tensorfmt.Decode[group.Elem](data, groupElemCodec())
	if err != nil {
		return group.Elem{}, err
	}
	return t.At(0)
}

// MarshalBinary encodes p as a rank-1, single-leaf tensorfmt payload.
func (p Plaintext) MarshalBinary() ([]byte, error) {
	t := tensor.New([]int{1}, p)
	return tensorfmt.Encode(t, plaintextCodec())
}

// UnmarshalBinary decodes a payload produced by MarshalBinary.
func (p *Plaintext) UnmarshalBinary(data []byte) error {
	t, err := tensorfmt.Decode[Plaintext](data, plaintextCodec())
	if err != nil {
		return err
	}
	v, err := t.At(0)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MarshalBinary encodes ct as a rank-1, single-leaf tensorfmt payload.
func (ct Ciphertext) MarshalBinary() ([]byte, error) {
	t := tensor.New([]int{1}, ct)
	return tensorfmt.Encode(t, ciphertextCodec())
}

// UnmarshalBinary decodes a payload produced by MarshalBinary.
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	t, err := tensorfmt.Decode[Ciphertext](data, ciphertextCodec())
	if err != nil {
		return err
	}
	v, err := t.At(0)
	if err != nil {
		return err
	}
	*ct = v
	return nil
}

// WriteTo writes a u32 length prefix followed by ct's MarshalBinary
// encoding to w, and reports the number of bytes written.
func (ct Ciphertext) WriteTo(w io.Writer) (int64, error) {
	return writeLengthPrefixed(w, ct)
}

// ReadFrom reads a payload written by WriteTo from r into ct.
func (ct *Ciphertext) ReadFrom(r io.Reader) (int64, error) {
	n, err := readLengthPrefixed(r, ct)
	return n, err
}

// WriteTo writes a u32 length prefix followed by p's MarshalBinary encoding
// to w.
func (p Plaintext) WriteTo(w io.Writer) (int64, error) {
	return writeLengthPrefixed(w, p)
}

// ReadFrom reads a payload written by WriteTo from r into p.
func (p *Plaintext) ReadFrom(r io.Reader) (int64, error) {
	return readLengthPrefixed(r, p)
}

type binaryMarshaler interface {
	MarshalBinary() ([]byte, error)
}

type binaryUnmarshaler interface {
	UnmarshalBinary([]byte) error
}

func writeLengthPrefixed(w io.Writer, v binaryMarshaler) (int64, error) {
	body, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	n1, err := w.Write(lenBuf[:])
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(body)
	return int64(n1 + n2), err
}

func readLengthPrefixed(r io.Reader, v binaryUnmarshaler) (int64, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, fmt.Errorf("crypto: reading length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, fmt.Errorf("crypto: reading body of length %d: %w", n, err)
	}
	if err := v.UnmarshalBinary(body); err != nil {
		return int64(4 + n), err
	}
	return int64(4 + n), nil
}

// EncodeCiphertextTensor serializes a full ciphertext tensor in one
// offset-table payload (spec.md §4.10), used for batched results rather than
// per-leaf WriteTo calls.
func (cs *CryptoSystem) EncodeCiphertextTensor(t *tensor.Tensor[Ciphertext]) ([]byte, error) {
	return tensorfmt.Encode(t, ciphertextCodec())
}

// DecodeCiphertextTensor parses a payload produced by EncodeCiphertextTensor.
func (cs *CryptoSystem) DecodeCiphertextTensor(data []byte) (*tensor.Tensor[Ciphertext], error) {
	return tensorfmt.Decode[Ciphertext](data, ciphertextCodec())
}

// EncodePlaintextTensor serializes a full plaintext tensor in one
// offset-table payload.
func (cs *CryptoSystem) EncodePlaintextTensor(t *tensor.Tensor[Plaintext]) ([]byte, error) {
	return tensorfmt.Encode(t, plaintextCodec())
}

// DecodePlaintextTensor parses a payload produced by EncodePlaintextTensor.
func (cs *CryptoSystem) DecodePlaintextTensor(data []byte) (*tensor.Tensor[Plaintext], error) {
	return tensorfmt.Decode[Plaintext](data, plaintextCodec())
}
