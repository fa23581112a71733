package node

import (
	"fmt"

	"github.com/cofhe-project/cofhe/compute"
	"github.com/cofhe-project/cofhe/crypto"
)

// Operand blobs are tagged with a one-byte kind prefix so the receiving side
// knows which tensorfmt/MarshalBinary codec to apply; spec.md §4.9 leaves
// the inner request/response field encoding unspecified beyond "raw bytes
// (the binary tensor format for tensor operands)", so this tag is this
// module's own framing convention layered on top of that format.
const (
	operandTagPlainSingle  = byte(0)
	operandTagCipherSingle = byte(1)
	operandTagPlainTensor  = byte(2)
	operandTagCipherTensor = byte(3)
)

func encodeOperand(cs *crypto.CryptoSystem, op compute.Operand) ([]byte, error) {
	switch op.Kind {
	case compute.KindPlainSingle:
		b, err := op.Plain.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return append([]byte{operandTagPlainSingle}, b...), nil
	case compute.KindCipherSingle:
		b, err := op.Cipher.MarshalBinary()
		if err != nil {
			return nil, err
		}
		return append([]byte{operandTagCipherSingle}, b...), nil
	case compute.KindPlainTensor:
		b, err := cs.EncodePlaintextTensor(op.PlainTensor)
		if err != nil {
			return nil, err
		}
		return append([]byte{operandTagPlainTensor}, b...), nil
	case compute.KindCipherTensor:
		b, err := cs.EncodeCiphertextTensor(op.CipherTensor)
		if err != nil {
			return nil, err
		}
		return append([]byte{operandTagCipherTensor}, b...), nil
	default:
		return nil, fmt.Errorf("node: operand kind %d cannot be serialized", op.Kind)
	}
}

func decodeOperand(cs *crypto.CryptoSystem, data []byte) (compute.Operand, error) {
	if len(data) == 0 {
		return compute.Operand{}, fmt.Errorf("node: empty operand blob")
	}
	tag, payload := data[0], data[1:]
	switch tag {
	case operandTagPlainSingle:
		var p crypto.Plaintext
		if err := p.UnmarshalBinary(payload); err != nil {
			return compute.Operand{}, err
		}
		return compute.Operand{Kind: compute.KindPlainSingle, Plain: p}, nil
	case operandTagCipherSingle:
		var ct crypto.Ciphertext
		if err := ct.UnmarshalBinary(payload); err != nil {
			return compute.Operand{}, err
		}
		return compute.Operand{Kind: compute.KindCipherSingle, Cipher: ct}, nil
	case operandTagPlainTensor:
		t, err := cs.DecodePlaintextTensor(payload)
		if err != nil {
			return compute.Operand{}, err
		}
		return compute.Operand{Kind: compute.KindPlainTensor, PlainTensor: t}, nil
	case operandTagCipherTensor:
		t, err := cs.DecodeCiphertextTensor(payload)
		if err != nil {
			return compute.Operand{}, err
		}
		return compute.Operand{Kind: compute.KindCipherTensor, CipherTensor: t}, nil
	default:
		return compute.Operand{}, fmt.Errorf("node: unknown operand tag %d", tag)
	}
}
