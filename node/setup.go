package node

import (
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/cofhe-project/cofhe/beaver"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/threshold"
	"github.com/cofhe-project/cofhe/wire"
)

// SetupConfig configures a Setup node (spec.md §4.8).
type SetupConfig struct {
	Params crypto.ParametersLiteral
	T, N   int
}

// Setup is the trusted-dealer node: it generates SK/PK and every MSP share
// on startup, tracks the join order of cofhe and compute nodes, and serves
// BEAVER_TRIPLET, JOIN_AS_NODE and NETWORK_DETAILS (spec.md §4.8).
type Setup struct {
	cs      *crypto.CryptoSystem
	sk      crypto.SecretKey
	pk      crypto.PublicKey
	scheme  *threshold.Scheme
	sharing *threshold.Sharing
	gen     *beaver.Generator

	mu         sync.Mutex
	nextCoFHE  int
	peers      []wire.PeerInfo
	joinCommit [32]byte
}

// commitJoinOrder recomputes joinCommit over the current peer list. Callers
// must hold mu.
func (s *Setup) commitJoinOrder() {
	commit, err := CommitJoinOrder(s.peers)
	if err != nil {
		return
	}
	s.joinCommit = commit
}

// NewSetup generates a fresh keypair and MSP sharing for the given (t,n)
// access structure.
func NewSetup(cfg SetupConfig) (*Setup, error) {
	params, err := crypto.NewParameters(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("node: setup: %w", err)
	}
	cs, err := crypto.New(params, nil)
	if err != nil {
		return nil, fmt.Errorf("node: setup: %w", err)
	}
	sk := cs.Keygen()
	pk := cs.DerivePublic(sk)

	scheme, err := threshold.NewScheme(cfg.T, cfg.N)
	if err != nil {
		return nil, fmt.Errorf("node: setup: %w", err)
	}
	sharing := threshold.Split(sk.Value, scheme, params.Arith().RandomExponentBound(), cs.RandomBigInt)

	return &Setup{cs: cs, sk: sk, pk: pk, scheme: scheme, sharing: sharing, gen: beaver.NewGenerator(cs, pk)}, nil
}

// Serve accepts connections on ln, dispatching setup-service requests.
func (s *Setup) Serve(ln net.Listener) error {
	return Serve(ln, DefaultThreadPoolSize, s.handle)
}

func (s *Setup) handle(payload wire.ServicePayload) (int, []byte) {
	switch wire.Subtype(payload.Subtype) {
	case wire.SubtypeBeaverTriplet:
		return s.handleBeaverTriplet(payload.Body)
	case wire.SubtypeJoinAsNode:
		return s.handleJoinAsNode(payload.Body)
	case wire.SubtypeNetworkDetails:
		return s.handleNetworkDetails(payload.Body)
	case wire.SubtypeSetupInfo:
		return s.handleSetupInfo(payload.Body)
	default:
		return int(wire.SubtypeBeaverTriplet), nil
	}
}

func (s *Setup) handleSetupInfo(body []byte) (int, []byte) {
	pkBytes, err := crypto.EncodeGroupElem(s.pk.Value)
	if err != nil {
		return int(wire.SubtypeSetupInfo), nil
	}
	resp := wire.SetupInfoResponse{PublicKey: pkBytes, T: s.scheme.T, N: s.scheme.N}
	return int(wire.SubtypeSetupInfo), resp.Encode()
}

func (s *Setup) handleBeaverTriplet(body []byte) (int, []byte) {
	req, err := wire.DecodeBeaverTripletRequest(body)
	if err != nil {
		return int(wire.SubtypeBeaverTriplet), nil
	}
	triples, err := s.gen.Generate(req.N)
	if err != nil {
		return int(wire.SubtypeBeaverTriplet), nil
	}
	encoded, err := s.cs.EncodeCiphertextTensor(triples)
	if err != nil {
		return int(wire.SubtypeBeaverTriplet), nil
	}
	return int(wire.SubtypeBeaverTriplet), wire.BeaverTripletResponse{Triples: encoded}.Encode()
}

func (s *Setup) handleJoinAsNode(body []byte) (int, []byte) {
	req, err := wire.DecodeJoinAsNodeRequest(body)
	if err != nil {
		return int(wire.SubtypeJoinAsNode), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Role == wire.RoleCompute {
		party := len(s.peers) + 1
		s.peers = append(s.peers, wire.PeerInfo{Party: party, Role: wire.RoleCompute, Address: req.SelfAddr})
		s.commitJoinOrder()
		return int(wire.SubtypeJoinAsNode), wire.JoinAsNodeResponse{Party: party}.Encode()
	}

	s.nextCoFHE++
	party := s.nextCoFHE
	s.peers = append(s.peers, wire.PeerInfo{Party: party, Role: wire.RoleCoFHE, Address: req.SelfAddr})
	s.commitJoinOrder()

	shares := s.sharing.PartyShares(party)
	ranks := make([]int, 0, len(shares))
	for rank := range shares {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	resp := wire.JoinAsNodeResponse{Party: party}
	for _, rank := range ranks {
		resp.ComboRanks = append(resp.ComboRanks, rank)
		resp.Shares = append(resp.Shares, []byte(shares[rank].String()))
	}
	return int(wire.SubtypeJoinAsNode), resp.Encode()
}

func (s *Setup) handleNetworkDetails(body []byte) (int, []byte) {
	s.mu.Lock()
	peers := append([]wire.PeerInfo(nil), s.peers...)
	commit := s.joinCommit
	s.mu.Unlock()
	return int(wire.SubtypeNetworkDetails), wire.NetworkDetailsResponse{Peers: peers, JoinCommit: commit}.Encode()
}

// SetPeerAddress overrides the address a previously joined party is
// reachable at, e.g. when a node reconnects on a new port after the address
// it reported in its JOIN_AS_NODE request (wire.JoinAsNodeRequest.SelfAddr,
// the normal path by which NETWORK_DETAILS learns an address) stops working.
func (s *Setup) SetPeerAddress(party int, addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.peers {
		if s.peers[i].Party == party {
			s.peers[i].Address = addr
			s.commitJoinOrder()
			return
		}
	}
}

// SeedPeer records a peer that hasn't (yet) sent JOIN_AS_NODE, so
// NETWORK_DETAILS can hand its address out immediately. Used by
// Registry.Seed to bootstrap a cluster whose topology is fixed in advance.
func (s *Setup) SeedPeer(party int, role wire.NodeRole, addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.peers {
		if s.peers[i].Party == party {
			s.peers[i].Role = role
			s.peers[i].Address = addr
			s.commitJoinOrder()
			return
		}
	}
	s.peers = append(s.peers, wire.PeerInfo{Party: party, Role: role, Address: addr})
	if role == wire.RoleCoFHE && party > s.nextCoFHE {
		s.nextCoFHE = party
	}
	s.commitJoinOrder()
}

// Params returns the setup node's CryptoSystem parameters, for out-of-band
// distribution to joining nodes (spec.md doesn't specify how PK is
// distributed beyond "client ... builds ComputeRequests"; this module hands
// the public key out over the wire via SETUP_INFO (handleSetupInfo), and
// in-process via the PublicKey() accessor).
func (s *Setup) Params() crypto.Parameters { return s.cs.Params() }

// PublicKey returns the shared public key.
func (s *Setup) PublicKey() crypto.PublicKey { return s.pk }

// Scheme returns the (t,n) access structure.
func (s *Setup) Scheme() *threshold.Scheme { return s.scheme }
