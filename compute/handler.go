// Package compute implements ComputeHandler (spec.md §4.7): the dispatch
// table translating a client's tensor-aware arithmetic request into calls on
// CryptoSystem, SMPCClient and CipherMultiplier. Grounded on the
// schemes/bgv and schemes/ckks Evaluator pattern (one handler method per
// operation) combined with core/rlwe/element.go's tagged dispatch on
// ciphertext-vs-plaintext operands.
package compute

import (
	"context"
	"fmt"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/mul"
	"github.com/cofhe-project/cofhe/tensor"
)

// Arity is the request's operand count class.
type Arity int

const (
	Unary Arity = iota
	Binary
	Ternary
)

// Op names the arithmetic operation requested.
type Op int

const (
	OpDecrypt Op = iota
	OpAdd
	OpMul
)

// Kind tags which of Operand's fields is populated.
type Kind int

const (
	KindPlainSingle Kind = iota
	KindCipherSingle
	KindPlainTensor
	KindCipherTensor
	KindTensorID // reserved: always rejected with a ComputeError wrapping ErrInvalidOp; there is no separate not-implemented error
)

// Operand is one request argument or result. Exactly the field matching Kind
// is meaningful.
type Operand struct {
	Kind         Kind
	Plain        crypto.Plaintext
	Cipher       crypto.Ciphertext
	PlainTensor  *tensor.Tensor[crypto.Plaintext]
	CipherTensor *tensor.Tensor[crypto.Ciphertext]
	TensorID     uint64
}

func (o Operand) isTensor() bool {
	return o.Kind == KindPlainTensor || o.Kind == KindCipherTensor
}

func (o Operand) isCipher() bool {
	return o.Kind == KindCipherSingle || o.Kind == KindCipherTensor
}

// Request is one ComputeHandler invocation.
type Request struct {
	Arity    Arity
	Op       Op
	Operands []Operand
}

// Decrypter is the subset of smpc.Client ComputeHandler needs for
// UNARY/DECRYPT dispatch.
type Decrypter interface {
	Decrypt(ctx context.Context, ct crypto.Ciphertext) (crypto.Plaintext, error)
	DecryptTensor(ctx context.Context, ct *tensor.Tensor[crypto.Ciphertext]) (*tensor.Tensor[crypto.Plaintext], error)
}

// Multiplier is the subset of mul.CipherMultiplier ComputeHandler needs for
// BINARY/MUL cipher x cipher dispatch.
type Multiplier interface {
	Mul(ctx context.Context, cx, cy crypto.Ciphertext) (crypto.Ciphertext, error)
	MatMul(ctx context.Context, cx, cy *tensor.Tensor[crypto.Ciphertext]) (*tensor.Tensor[crypto.Ciphertext], error)
}

var _ Multiplier = (*mul.CipherMultiplier)(nil)

// Handler dispatches Requests per spec.md §4.7's table.
type Handler struct {
	cs   *crypto.CryptoSystem
	pk   crypto.PublicKey
	smpc Decrypter
	cm   Multiplier
}

// NewHandler constructs a ComputeHandler.
func NewHandler(cs *crypto.CryptoSystem, pk crypto.PublicKey, smpc Decrypter, cm Multiplier) *Handler {
	return &Handler{cs: cs, pk: pk, smpc: smpc, cm: cm}
}

// Dispatch executes req and returns its result.
func (h *Handler) Dispatch(ctx context.Context, req Request) (Operand, error) {
	switch req.Arity {
	case Unary:
		return h.dispatchUnary(ctx, req)
	case Binary:
		return h.dispatchBinary(ctx, req)
	case Ternary:
		return Operand{}, cofheerr.NewComputeError("ternary operations are reserved", cofheerr.ErrInvalidOp)
	default:
		return Operand{}, fmt.Errorf("compute: unknown arity %d: %w", req.Arity, cofheerr.ErrInvalidOp)
	}
}

func (h *Handler) dispatchUnary(ctx context.Context, req Request) (Operand, error) {
	if len(req.Operands) != 1 {
		return Operand{}, fmt.Errorf("compute: unary op needs exactly 1 operand, got %d: %w", len(req.Operands), cofheerr.ErrInvalidOp)
	}
	if req.Op != OpDecrypt {
		return Operand{}, fmt.Errorf("compute: unsupported unary op %d: %w", req.Op, cofheerr.ErrInvalidOp)
	}
	in := req.Operands[0]
	switch in.Kind {
	case KindCipherSingle:
		p, err := h.smpc.Decrypt(ctx, in.Cipher)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("threshold decryption failed", err)
		}
		return Operand{Kind: KindPlainSingle, Plain: p}, nil
	case KindCipherTensor:
		pt, err := h.smpc.DecryptTensor(ctx, in.CipherTensor)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("threshold decryption failed", err)
		}
		return Operand{Kind: KindPlainTensor, PlainTensor: pt}, nil
	case KindTensorID:
		return Operand{}, cofheerr.NewComputeError("tensor-id operands are reserved", cofheerr.ErrInvalidOp)
	default:
		return Operand{}, fmt.Errorf("compute: decrypt requires a ciphertext operand: %w", cofheerr.ErrTypeMismatch)
	}
}

func (h *Handler) dispatchBinary(ctx context.Context, req Request) (Operand, error) {
	if len(req.Operands) != 2 {
		return Operand{}, fmt.Errorf("compute: binary op needs exactly 2 operands, got %d: %w", len(req.Operands), cofheerr.ErrInvalidOp)
	}
	x, y := req.Operands[0], req.Operands[1]
	if x.Kind == KindTensorID || y.Kind == KindTensorID {
		return Operand{}, cofheerr.NewComputeError("tensor-id operands are reserved", cofheerr.ErrInvalidOp)
	}
	if x.isTensor() != y.isTensor() {
		return Operand{}, fmt.Errorf("compute: cannot mix single and tensor operands: %w", cofheerr.ErrTypeMismatch)
	}

	switch req.Op {
	case OpAdd:
		return h.dispatchAdd(x, y)
	case OpMul:
		return h.dispatchMul(ctx, x, y)
	default:
		return Operand{}, fmt.Errorf("compute: unsupported binary op %d: %w", req.Op, cofheerr.ErrInvalidOp)
	}
}

func (h *Handler) dispatchAdd(x, y Operand) (Operand, error) {
	if !x.isTensor() {
		switch {
		case x.isCipher() || y.isCipher():
			cx, err := h.asCipherSingle(x)
			if err != nil {
				return Operand{}, err
			}
			cy, err := h.asCipherSingle(y)
			if err != nil {
				return Operand{}, err
			}
			return Operand{Kind: KindCipherSingle, Cipher: h.cs.Add(h.pk, cx, cy)}, nil
		default:
			sum := h.cs.AddPlain(x.Plain, y.Plain)
			return Operand{Kind: KindCipherSingle, Cipher: h.cs.Encrypt(h.pk, sum)}, nil
		}
	}

	switch {
	case x.isCipher() || y.isCipher():
		cx, err := h.asCipherTensor(x)
		if err != nil {
			return Operand{}, err
		}
		cy, err := h.asCipherTensor(y)
		if err != nil {
			return Operand{}, err
		}
		sum, err := h.cs.AddTensor(h.pk, cx, cy)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("tensor add failed", err)
		}
		return Operand{Kind: KindCipherTensor, CipherTensor: sum}, nil
	default:
		sum, err := addPlainTensors(h.cs, x.PlainTensor, y.PlainTensor)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("tensor add failed", err)
		}
		return Operand{Kind: KindCipherTensor, CipherTensor: h.cs.EncryptTensor(h.pk, sum)}, nil
	}
}

func (h *Handler) dispatchMul(ctx context.Context, x, y Operand) (Operand, error) {
	if !x.isTensor() {
		switch {
		case x.isCipher() && y.isCipher():
			result, err := h.cm.Mul(ctx, x.Cipher, y.Cipher)
			if err != nil {
				return Operand{}, cofheerr.NewComputeError("beaver multiplication failed", err)
			}
			return Operand{Kind: KindCipherSingle, Cipher: result}, nil
		case x.isCipher():
			return Operand{Kind: KindCipherSingle, Cipher: h.cs.Scal(h.pk, y.Plain, x.Cipher)}, nil
		case y.isCipher():
			return Operand{Kind: KindCipherSingle, Cipher: h.cs.Scal(h.pk, x.Plain, y.Cipher)}, nil
		default:
			prod := h.cs.MulPlain(x.Plain, y.Plain)
			return Operand{Kind: KindCipherSingle, Cipher: h.cs.Encrypt(h.pk, prod)}, nil
		}
	}

	switch {
	case x.isCipher() && y.isCipher():
		result, err := h.cm.MatMul(ctx, x.CipherTensor, y.CipherTensor)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("beaver matrix multiplication failed", err)
		}
		return Operand{Kind: KindCipherTensor, CipherTensor: result}, nil
	case x.isCipher():
		return Operand{Kind: KindCipherTensor, CipherTensor: scalTensorByPlain(h.cs, h.pk, y.PlainTensor, x.CipherTensor)}, nil
	case y.isCipher():
		return Operand{Kind: KindCipherTensor, CipherTensor: scalTensorByPlain(h.cs, h.pk, x.PlainTensor, y.CipherTensor)}, nil
	default:
		prod, err := mulPlainTensors(h.cs, x.PlainTensor, y.PlainTensor)
		if err != nil {
			return Operand{}, cofheerr.NewComputeError("tensor multiply failed", err)
		}
		return Operand{Kind: KindCipherTensor, CipherTensor: h.cs.EncryptTensor(h.pk, prod)}, nil
	}
}

func (h *Handler) asCipherSingle(o Operand) (crypto.Ciphertext, error) {
	if o.Kind == KindCipherSingle {
		return o.Cipher, nil
	}
	if o.Kind == KindPlainSingle {
		return h.cs.Encrypt(h.pk, o.Plain), nil
	}
	return crypto.Ciphertext{}, fmt.Errorf("compute: expected a single-valued operand: %w", cofheerr.ErrTypeMismatch)
}

func (h *Handler) asCipherTensor(o Operand) (*tensor.Tensor[crypto.Ciphertext], error) {
	if o.Kind == KindCipherTensor {
		return o.CipherTensor, nil
	}
	if o.Kind == KindPlainTensor {
		return h.cs.EncryptTensor(h.pk, o.PlainTensor), nil
	}
	return nil, fmt.Errorf("compute: expected a tensor-valued operand: %w", cofheerr.ErrTypeMismatch)
}

// scalTensorByPlain multiplies every leaf of ct by the matching leaf of p
// (elementwise, same shape), a scalar multiplication per leaf rather than
// CipherMultiplier's Beaver protocol since one side is already plaintext.
func scalTensorByPlain(cs *crypto.CryptoSystem, pk crypto.PublicKey, p *tensor.Tensor[crypto.Plaintext], ct *tensor.Tensor[crypto.Ciphertext]) *tensor.Tensor[crypto.Ciphertext] {
	shape := ct.Shape()
	out := tensor.New(shape, crypto.Ciphertext{})
	idx := make([]int, len(shape))
	out.Walk(func(i int, _ crypto.Ciphertext) crypto.Ciphertext {
		pos := i
		for a := len(idx) - 1; a >= 0; a-- {
			idx[a] = pos % shape[a]
			pos /= shape[a]
		}
		leafP, _ := p.At(idx...)
		leafC, _ := ct.At(idx...)
		return cs.Scal(pk, leafP, leafC)
	})
	return out
}

func addPlainTensors(cs *crypto.CryptoSystem, a, b *tensor.Tensor[crypto.Plaintext]) (*tensor.Tensor[crypto.Plaintext], error) {
	return combinePlainTensors(a, b, cs.AddPlain)
}

func mulPlainTensors(cs *crypto.CryptoSystem, a, b *tensor.Tensor[crypto.Plaintext]) (*tensor.Tensor[crypto.Plaintext], error) {
	return combinePlainTensors(a, b, cs.MulPlain)
}

func combinePlainTensors(a, b *tensor.Tensor[crypto.Plaintext], op func(crypto.Plaintext, crypto.Plaintext) crypto.Plaintext) (*tensor.Tensor[crypto.Plaintext], error) {
	shapeA, shapeB := a.Shape(), b.Shape()
	if len(shapeA) != len(shapeB) {
		return nil, fmt.Errorf("compute: shape mismatch %v vs %v: %w", shapeA, shapeB, cofheerr.ErrShapeMismatch)
	}
	for i := range shapeA {
		if shapeA[i] != shapeB[i] {
			return nil, fmt.Errorf("compute: shape mismatch %v vs %v: %w", shapeA, shapeB, cofheerr.ErrShapeMismatch)
		}
	}
	out := tensor.New(shapeA, crypto.Plaintext{})
	idx := make([]int, len(shapeA))
	out.Walk(func(i int, _ crypto.Plaintext) crypto.Plaintext {
		pos := i
		for ax := len(idx) - 1; ax >= 0; ax-- {
			idx[ax] = pos % shapeA[ax]
			pos /= shapeA[ax]
		}
		la, _ := a.At(idx...)
		lb, _ := b.At(idx...)
		return op(la, lb)
	})
	return out, nil
}
