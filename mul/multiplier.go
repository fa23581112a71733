// Package mul implements CipherMultiplier (spec.md §4.6): ciphertext by
// ciphertext multiplication via the Beaver protocol, and its tensor matmul
// extension. Grounded on spec.md §4.6 directly, since lattigo's relinearization
// is a non-interactive mechanism specific to depth-2 RLWE ciphertexts and has
// no analogue here; the matmul's parallel (i,k)-accumulation is grounded on
// the worker-pool/sync.WaitGroup fan-out pattern used throughout
// examples/multiparty for per-party parallel work.
package mul

import (
	"context"
	"fmt"
	"sync"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/smpc"
	"github.com/cofhe-project/cofhe/tensor"
)

// Decrypter is the subset of smpc.Client CipherMultiplier needs: threshold
// decryption of a single ciphertext.
type Decrypter interface {
	Decrypt(ctx context.Context, ct crypto.Ciphertext) (crypto.Plaintext, error)
}

// TripleSource is the subset of smpc.Client CipherMultiplier needs: popping
// fresh Beaver triples.
type TripleSource interface {
	GetBeaverTriples(ctx context.Context, k int) ([]smpc.Triple, error)
}

// CipherMultiplier implements ciphertext x ciphertext multiplication through
// the Beaver protocol, consuming one triple (or n*m*p triples, batched, for a
// matrix product) per call.
type CipherMultiplier struct {
	cs   *crypto.CryptoSystem
	pk   crypto.PublicKey
	smpc interface {
		Decrypter
		TripleSource
	}
}

// NewCipherMultiplier constructs a CipherMultiplier bound to pk's ciphertexts
// and to the given SMPC client for triples and partial decryptions.
func NewCipherMultiplier(cs *crypto.CryptoSystem, pk crypto.PublicKey, client *smpc.Client) *CipherMultiplier {
	return &CipherMultiplier{cs: cs, pk: pk, smpc: client}
}

// Mul computes Enc(x*y) from Enc(x) and Enc(y), consuming and releasing one
// Beaver triple (spec.md §4.6).
func (m *CipherMultiplier) Mul(ctx context.Context, cx, cy crypto.Ciphertext) (crypto.Ciphertext, error) {
	triples, err := m.smpc.GetBeaverTriples(ctx, 1)
	if err != nil {
		return crypto.Ciphertext{}, fmt.Errorf("mul: fetching beaver triple: %w", err)
	}
	return m.mulWithTriple(ctx, cx, cy, triples[0])
}

func (m *CipherMultiplier) mulWithTriple(ctx context.Context, cx, cy crypto.Ciphertext, t smpc.Triple) (crypto.Ciphertext, error) {
	negA := m.cs.Negate(m.pk, t.A)
	negB := m.cs.Negate(m.pk, t.B)
	e1Ct := m.cs.Add(m.pk, cx, negA)
	e2Ct := m.cs.Add(m.pk, cy, negB)

	e1, err := m.smpc.Decrypt(ctx, e1Ct)
	if err != nil {
		return crypto.Ciphertext{}, fmt.Errorf("mul: decrypting e1: %w", err)
	}
	e2, err := m.smpc.Decrypt(ctx, e2Ct)
	if err != nil {
		return crypto.Ciphertext{}, fmt.Errorf("mul: decrypting e2: %w", err)
	}

	e1B := m.cs.Scal(m.pk, e1, t.B)
	e2A := m.cs.Scal(m.pk, e2, t.A)
	e1e2 := m.cs.MulPlain(e1, e2)
	encE1E2 := m.cs.Encrypt(m.pk, e1e2)

	result := m.cs.Add(m.pk, t.AB, e1B)
	result = m.cs.Add(m.pk, result, e2A)
	result = m.cs.Add(m.pk, result, encE1E2)
	return result, nil
}

// MatMul computes the ciphertext matrix product cx[n][m] . cy[m][p],
// batching all n*m*p pointwise multiplications into one Beaver triple
// request and accumulating over the m axis in parallel across (i,k) pairs,
// sequentially over j (spec.md §4.6).
func (m *CipherMultiplier) MatMul(ctx context.Context, cx, cy *tensor.Tensor[crypto.Ciphertext]) (*tensor.Tensor[crypto.Ciphertext], error) {
	xShape, yShape := cx.Shape(), cy.Shape()
	if len(xShape) != 2 || len(yShape) != 2 || xShape[1] != yShape[0] {
		return nil, fmt.Errorf("mul: incompatible matrix shapes %v x %v", xShape, yShape)
	}
	n, mm, p := xShape[0], xShape[1], yShape[1]

	triples, err := m.smpc.GetBeaverTriples(ctx, n*mm*p)
	if err != nil {
		return nil, fmt.Errorf("mul: fetching %d beaver triples for matmul: %w", n*mm*p, err)
	}

	out := tensor.New([]int{n, p}, crypto.Ciphertext{})
	errs := make([]error, n*p)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		for k := 0; k < p; k++ {
			wg.Add(1)
			go func(i, k int) {
				defer wg.Done()
				acc, err := m.accumulateRow(ctx, cx, cy, triples, i, k, mm, p)
				if err != nil {
					errs[i*p+k] = err
					return
				}
				_ = out.Set(acc, i, k)
			}(i, k)
		}
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return out, nil
}

// accumulateRow computes sum_j cx[i][j]*cy[j][k], sequentially over j, using
// triples[(i*p+k)*m + j] as this (i,k,j) slot's pre-batched Beaver triple.
func (m *CipherMultiplier) accumulateRow(ctx context.Context, cx, cy *tensor.Tensor[crypto.Ciphertext], triples []smpc.Triple, i, k, mDim, p int) (crypto.Ciphertext, error) {
	var acc crypto.Ciphertext
	haveAcc := false
	for j := 0; j < mDim; j++ {
		xij, err := cx.At(i, j)
		if err != nil {
			return crypto.Ciphertext{}, err
		}
		yjk, err := cy.At(j, k)
		if err != nil {
			return crypto.Ciphertext{}, err
		}
		triple := triples[(i*p+k)*mDim+j]
		product, err := m.mulWithTriple(ctx, xij, yjk, triple)
		if err != nil {
			return crypto.Ciphertext{}, err
		}
		if !haveAcc {
			acc, haveAcc = product, true
			continue
		}
		acc = m.cs.Add(m.pk, acc, product)
	}
	return acc, nil
}
