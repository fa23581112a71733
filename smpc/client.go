// Package smpc implements SMPCClient (spec.md §4.5): a bounded Beaver-triple
// cache and the t-node partial-decryption fan-out/fan-in used by every
// threshold decryption and by CipherMultiplier. Grounded on
// examples/multiparty/thresh_eval_key_gen/main.go's channel-fed worker
// aggregation pattern (a coordinating goroutine fanning requests out to
// per-party goroutines and collecting results over a WaitGroup), adapted
// from that example's one-shot protocol round to a persistent client object
// reused across many requests.
package smpc

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cofhe-project/cofhe/cofheerr"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/threshold"
)

// Triple is one Beaver triple as returned by the setup node.
type Triple struct {
	A, B, AB crypto.Ciphertext
}

// SetupClient is the subset of the setup-node RPC surface SMPCClient needs:
// requesting fresh Beaver triples.
type SetupClient interface {
	RequestTriples(ctx context.Context, n int) (*tensor.Tensor[crypto.Ciphertext], error)
}

// PartialDecryptClient is a persistent connection to one cofhe node.
type PartialDecryptClient interface {
	// Party returns this connection's 1-based party index.
	Party() int
	// PartDecrypt requests the partial decryption of ct under the
	// combination identified by comboRank.
	PartDecrypt(ctx context.Context, comboRank int, ct crypto.Ciphertext) (group.Elem, error)
	Close() error
}

// PeerDirectory discovers and dials cofhe nodes, backing SMPCClient's
// reinit-on-churn path (spec.md §4.5).
type PeerDirectory interface {
	// ReachableParties returns the 1-based party indices of currently
	// reachable cofhe nodes, in peer (join) order.
	ReachableParties(ctx context.Context) ([]int, error)
	Dial(ctx context.Context, party int) (PartialDecryptClient, error)
}

// Client is the persistent per-compute-node SMPC orchestrator: a Beaver
// triple cache plus a fixed set of t partial-decryption connections, both
// refreshed on demand.
type Client struct {
	cs     *crypto.CryptoSystem
	scheme *threshold.Scheme
	setup  SetupClient
	peers  PeerDirectory

	cacheSize int
	mu        sync.Mutex
	cache     []Triple

	nodesMu   sync.RWMutex
	nodes     []PartialDecryptClient
	comboRank int
}

// NewClient constructs an SMPC client for the given access structure. It
// holds no live connections until the first GetBeaverTriples/Decrypt call
// triggers Reinit.
func NewClient(cs *crypto.CryptoSystem, scheme *threshold.Scheme, setup SetupClient, peers PeerDirectory, cacheSize int) *Client {
	return &Client{cs: cs, scheme: scheme, setup: setup, peers: peers, cacheSize: cacheSize, comboRank: -1}
}

// GetBeaverTriples pops k triples from the cache, refilling it first if it
// holds fewer than k (spec.md §4.5: "issue a single setup-node request for
// k + CACHE_SIZE - remaining triples"). The critical section spans the
// check and the refill RPC so FIFO order is preserved under concurrent
// callers.
func (c *Client) GetBeaverTriples(ctx context.Context, k int) ([]Triple, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cache) < k {
		need := k + c.cacheSize - len(c.cache)
		fresh, err := c.setup.RequestTriples(ctx, need)
		if err != nil {
			return nil, fmt.Errorf("smpc: refilling beaver cache: %w", err)
		}
		shape := fresh.Shape()
		if len(shape) != 2 || shape[1] != 3 {
			return nil, fmt.Errorf("smpc: setup node returned triples of shape %v, want [n,3]: %w", shape, cofheerr.ErrProtocolError)
		}
		for i := 0; i < shape[0]; i++ {
			a, _ := fresh.At(i, 0)
			b, _ := fresh.At(i, 1)
			ab, _ := fresh.At(i, 2)
			c.cache = append(c.cache, Triple{A: a, B: b, AB: ab})
		}
	}

	if len(c.cache) < k {
		return nil, fmt.Errorf("smpc: setup node refill still short of %d triples: %w", k, cofheerr.ErrCacheExhausted)
	}

	out := c.cache[:k]
	c.cache = c.cache[k:]
	return out, nil
}

// Decrypt runs a full threshold decryption of ct: fan out a partial-decrypt
// request to each of the t connected cofhe nodes, fan in all t responses,
// and combine.
func (c *Client) Decrypt(ctx context.Context, ct crypto.Ciphertext) (crypto.Plaintext, error) {
	partials, err := c.partialDecrypt(ctx, ct)
	if err != nil {
		return crypto.Plaintext{}, err
	}
	return c.cs.Combine(ct, partials)
}

// DecryptTensor decrypts every leaf of ct via Decrypt.
func (c *Client) DecryptTensor(ctx context.Context, ct *tensor.Tensor[crypto.Ciphertext]) (*tensor.Tensor[crypto.Plaintext], error) {
	out := tensor.New(ct.Shape(), crypto.Plaintext{})
	shape := ct.Shape()
	idx := make([]int, len(shape))
	var outerErr error
	out.Walk(func(i int, _ crypto.Plaintext) crypto.Plaintext {
		if outerErr != nil {
			return crypto.Plaintext{}
		}
		pos := i
		for a := len(idx) - 1; a >= 0; a-- {
			idx[a] = pos % shape[a]
			pos /= shape[a]
		}
		leaf, _ := ct.At(idx...)
		p, err := c.Decrypt(ctx, leaf)
		if err != nil {
			outerErr = err
			return crypto.Plaintext{}
		}
		return p
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return out, nil
}

func (c *Client) partialDecrypt(ctx context.Context, ct crypto.Ciphertext) ([]group.Elem, error) {
	c.nodesMu.RLock()
	nodes, rank := c.nodes, c.comboRank
	c.nodesMu.RUnlock()

	if len(nodes) != c.scheme.T {
		if err := c.Reinit(ctx); err != nil {
			return nil, err
		}
		c.nodesMu.RLock()
		nodes, rank = c.nodes, c.comboRank
		c.nodesMu.RUnlock()
	}

	partials, err := c.fanOut(ctx, nodes, rank, ct)
	if err == nil {
		return partials, nil
	}

	// Peer churn mid-decryption: refresh the peer list once and retry.
	if err2 := c.Reinit(ctx); err2 != nil {
		return nil, err2
	}
	c.nodesMu.RLock()
	nodes, rank = c.nodes, c.comboRank
	c.nodesMu.RUnlock()
	return c.fanOut(ctx, nodes, rank, ct)
}

func (c *Client) fanOut(ctx context.Context, nodes []PartialDecryptClient, rank int, ct crypto.Ciphertext) ([]group.Elem, error) {
	results := make([]group.Elem, len(nodes))
	errs := make([]error, len(nodes))
	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node PartialDecryptClient) {
			defer wg.Done()
			d, err := node.PartDecrypt(ctx, rank, ct)
			results[i], errs[i] = d, err
		}(i, node)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("smpc: partial decryption from party %d: %w", nodes[i].Party(), cofheerr.ErrPeerUnavailable)
		}
	}
	return results, nil
}

// Reinit queries the peer directory for the current reachable party list,
// tears down and rebuilds the t connections, and recomputes the combination
// rank for that set of parties (spec.md §4.5).
func (c *Client) Reinit(ctx context.Context) error {
	reachable, err := c.peers.ReachableParties(ctx)
	if err != nil {
		return fmt.Errorf("smpc: querying setup node for peer list: %w", err)
	}
	if len(reachable) < c.scheme.T {
		return fmt.Errorf("smpc: only %d of %d required cofhe nodes reachable: %w", len(reachable), c.scheme.T, cofheerr.ErrThresholdNotMet)
	}

	combo := append([]int(nil), reachable[:c.scheme.T]...)
	sort.Ints(combo)
	rank, err := threshold.Rank(combo, c.scheme.N, c.scheme.T)
	if err != nil {
		return err
	}

	nodes := make([]PartialDecryptClient, 0, len(combo))
	for _, party := range combo {
		conn, err := c.peers.Dial(ctx, party)
		if err != nil {
			for _, n := range nodes {
				n.Close()
			}
			return fmt.Errorf("smpc: dialing party %d: %w", party, cofheerr.ErrPeerUnavailable)
		}
		nodes = append(nodes, conn)
	}

	c.nodesMu.Lock()
	old := c.nodes
	c.nodes, c.comboRank = nodes, rank
	c.nodesMu.Unlock()

	for _, n := range old {
		n.Close()
	}
	return nil
}
