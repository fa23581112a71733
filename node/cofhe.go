package node

import (
	"fmt"
	"math/big"
	"net"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/wire"
)

// CoFHE is a node holding one row of MSP shares, serving PARTIAL_DECRYPTION
// requests against them (spec.md §4.8).
type CoFHE struct {
	cs     *crypto.CryptoSystem
	party  int
	shares map[int]*big.Int // comboRank -> share
}

// JoinSetup registers this node with the setup node at setupAddr as a
// cofhe-role party, reporting selfAddr as the address it is reachable at so
// NETWORK_DETAILS can hand it out immediately, and stores the share list it
// is handed back.
func JoinSetup(setupAddr, selfAddr string, cs *crypto.CryptoSystem) (*CoFHE, error) {
	payload, err := dialOnce(setupAddr, wire.ServiceSetup, int(wire.SubtypeJoinAsNode), wire.JoinAsNodeRequest{Role: wire.RoleCoFHE, SelfAddr: selfAddr}.Encode())
	if err != nil {
		return nil, fmt.Errorf("node: joining setup as cofhe: %w", err)
	}
	resp, err := wire.DecodeJoinAsNodeResponse(payload.Body)
	if err != nil {
		return nil, fmt.Errorf("node: decoding join response: %w", err)
	}

	shares := make(map[int]*big.Int, len(resp.ComboRanks))
	for i, rank := range resp.ComboRanks {
		v, ok := new(big.Int).SetString(string(resp.Shares[i]), 10)
		if !ok {
			return nil, fmt.Errorf("node: malformed share for combination %d", rank)
		}
		shares[rank] = v
	}
	return &CoFHE{cs: cs, party: resp.Party, shares: shares}, nil
}

// Party returns this node's 1-based party index, as assigned by the setup
// node.
func (c *CoFHE) Party() int { return c.party }

// Serve accepts connections on ln, answering PARTIAL_DECRYPTION requests.
func (c *CoFHE) Serve(ln net.Listener) error {
	return Serve(ln, DefaultThreadPoolSize, c.handle)
}

func (c *CoFHE) handle(payload wire.ServicePayload) (int, []byte) {
	if wire.Subtype(payload.Subtype) != wire.SubtypePartialDecryption {
		return int(wire.SubtypePartialDecryption), nil
	}
	req, err := wire.DecodePartialDecryptionRequest(payload.Body)
	if err != nil {
		return int(wire.SubtypePartialDecryption), nil
	}

	var ct crypto.Ciphertext
	if err := ct.UnmarshalBinary(req.Ciphertext); err != nil {
		return int(wire.SubtypePartialDecryption), nil
	}

	share, ok := c.shares[req.ComboRank]
	if !ok {
		return int(wire.SubtypePartialDecryption), nil
	}
	partial := c.cs.PartDecrypt(share, ct)
	encoded, err := crypto.EncodeGroupElem(partial)
	if err != nil {
		return int(wire.SubtypePartialDecryption), nil
	}
	return int(wire.SubtypePartialDecryption), wire.PartialDecryptionResponse{Partial: encoded}.Encode()
}
