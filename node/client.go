package node

import (
	"fmt"

	"github.com/cofhe-project/cofhe/compute"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/wire"
)

// Client is the node role that submits ComputeRequests and reads back
// results (spec.md §4.8); it holds no shares and runs no SMPCClient of its
// own.
type Client struct {
	cs        *crypto.CryptoSystem
	setupAddr string
}

// NewClient builds a Client against the given setup node address.
func NewClient(cs *crypto.CryptoSystem, setupAddr string) *Client {
	return &Client{cs: cs, setupAddr: setupAddr}
}

// firstComputeAddr queries the setup node's NETWORK_DETAILS for the first
// reachable compute-role peer.
func (cl *Client) firstComputeAddr() (string, error) {
	payload, err := dialOnce(cl.setupAddr, wire.ServiceSetup, int(wire.SubtypeNetworkDetails), nil)
	if err != nil {
		return "", fmt.Errorf("node: querying network details: %w", err)
	}
	resp, err := wire.DecodeNetworkDetailsResponse(payload.Body)
	if err != nil {
		return "", err
	}
	for _, p := range resp.Peers {
		if p.Role == wire.RoleCompute && p.Address != "" {
			return p.Address, nil
		}
	}
	return "", fmt.Errorf("node: no reachable compute node")
}

// Request builds a ComputeRequest from the given operands and op, sends it
// to a compute node, and decodes the result (or returns the ComputeError the
// node reported, per spec.md §4.7).
func (cl *Client) Request(arity compute.Arity, op compute.Op, operands []compute.Operand) (compute.Operand, error) {
	addr, err := cl.firstComputeAddr()
	if err != nil {
		return compute.Operand{}, err
	}

	encoded := make([][]byte, 0, len(operands))
	for _, o := range operands {
		b, err := encodeOperand(cl.cs, o)
		if err != nil {
			return compute.Operand{}, err
		}
		encoded = append(encoded, b)
	}

	req := wire.ComputeRequest{Arity: int(arity), Op: int(op), Operands: encoded}
	payload, err := dialOnce(addr, wire.ServiceCompute, int(wire.SubtypeCompute), req.Encode())
	if err != nil {
		return compute.Operand{}, fmt.Errorf("node: sending compute request: %w", err)
	}
	resp, err := wire.DecodeComputeResponse(payload.Body)
	if err != nil {
		return compute.Operand{}, err
	}
	if resp.Err != "" {
		return compute.Operand{}, fmt.Errorf("node: compute node reported: %s", resp.Err)
	}
	return decodeOperand(cl.cs, resp.Result)
}

// Decrypt asks a compute node to jointly decrypt ct.
func (cl *Client) Decrypt(ct crypto.Ciphertext) (crypto.Plaintext, error) {
	out, err := cl.Request(compute.Unary, compute.OpDecrypt, []compute.Operand{
		{Kind: compute.KindCipherSingle, Cipher: ct},
	})
	if err != nil {
		return crypto.Plaintext{}, err
	}
	return out.Plain, nil
}

// Add asks a compute node to homomorphically add two operands.
func (cl *Client) Add(a, b compute.Operand) (compute.Operand, error) {
	return cl.Request(compute.Binary, compute.OpAdd, []compute.Operand{a, b})
}

// Mul asks a compute node to homomorphically multiply two operands.
func (cl *Client) Mul(a, b compute.Operand) (compute.Operand, error) {
	return cl.Request(compute.Binary, compute.OpMul, []compute.Operand{a, b})
}
