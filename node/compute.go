package node

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cofhe-project/cofhe/compute"
	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/group"
	"github.com/cofhe-project/cofhe/mul"
	"github.com/cofhe-project/cofhe/smpc"
	"github.com/cofhe-project/cofhe/tensor"
	"github.com/cofhe-project/cofhe/threshold"
	"github.com/cofhe-project/cofhe/wire"
)

// wireSetupClient implements smpc.SetupClient against a remote Setup node.
type wireSetupClient struct {
	cs        *crypto.CryptoSystem
	setupAddr string
}

func (w *wireSetupClient) RequestTriples(ctx context.Context, n int) (*tensor.Tensor[crypto.Ciphertext], error) {
	payload, err := dialOnce(w.setupAddr, wire.ServiceSetup, int(wire.SubtypeBeaverTriplet), wire.BeaverTripletRequest{N: n}.Encode())
	if err != nil {
		return nil, fmt.Errorf("node: requesting %d beaver triples: %w", n, err)
	}
	resp, err := wire.DecodeBeaverTripletResponse(payload.Body)
	if err != nil {
		return nil, err
	}
	return w.cs.DecodeCiphertextTensor(resp.Triples)
}

// wirePeerDirectory implements smpc.PeerDirectory against a remote Setup
// node's NETWORK_DETAILS and the cofhe nodes it lists.
type wirePeerDirectory struct {
	setupAddr string
	addrs     map[int]string // party -> address, refreshed each ReachableParties call
}

func (w *wirePeerDirectory) ReachableParties(ctx context.Context) ([]int, error) {
	payload, err := dialOnce(w.setupAddr, wire.ServiceSetup, int(wire.SubtypeNetworkDetails), nil)
	if err != nil {
		return nil, fmt.Errorf("node: querying network details: %w", err)
	}
	resp, err := wire.DecodeNetworkDetailsResponse(payload.Body)
	if err != nil {
		return nil, err
	}

	w.addrs = make(map[int]string)
	var parties []int
	for _, p := range resp.Peers {
		if p.Role != wire.RoleCoFHE || p.Address == "" {
			continue
		}
		w.addrs[p.Party] = p.Address
		parties = append(parties, p.Party)
	}
	return parties, nil
}

func (w *wirePeerDirectory) Dial(ctx context.Context, party int) (smpc.PartialDecryptClient, error) {
	addr, ok := w.addrs[party]
	if !ok {
		return nil, fmt.Errorf("node: no known address for party %d", party)
	}
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("node: dialing cofhe node %d at %s: %w", party, addr, err)
	}
	return &wirePartialDecryptClient{party: party, conn: newConn(c)}, nil
}

// wirePartialDecryptClient implements smpc.PartialDecryptClient over one
// persistent connection to a single cofhe node.
type wirePartialDecryptClient struct {
	party int
	conn  *conn
}

func (c *wirePartialDecryptClient) Party() int { return c.party }

func (c *wirePartialDecryptClient) PartDecrypt(ctx context.Context, comboRank int, ct crypto.Ciphertext) (group.Elem, error) {
	body, err := ct.MarshalBinary()
	if err != nil {
		return group.Elem{}, err
	}
	payload, err := roundTrip(c.conn, wire.ServiceCoFHE, int(wire.SubtypePartialDecryption), wire.PartialDecryptionRequest{ComboRank: comboRank, Ciphertext: body}.Encode())
	if err != nil {
		return group.Elem{}, err
	}
	resp, err := wire.DecodePartialDecryptionResponse(payload.Body)
	if err != nil {
		return group.Elem{}, err
	}
	return crypto.DecodeGroupElem(resp.Partial)
}

func (c *wirePartialDecryptClient) Close() error { return c.conn.Close() }

// Compute runs ComputeHandler over requests arriving from clients, backed by
// its own SMPCClient talking to the setup node and t cofhe nodes (spec.md
// §4.8: "one SMPCClient per compute node").
type Compute struct {
	cs      *crypto.CryptoSystem
	pk      crypto.PublicKey
	handler *compute.Handler
	party   int
	Latency *LatencyRecorder
}

// ComputeConfig configures a Compute node.
type ComputeConfig struct {
	SetupAddr       string
	SelfAddr        string
	BeaverCacheSize int
}

// JoinSetupAsCompute fetches the shared public key and access structure from
// the setup node, registers as a compute-role peer (reporting cfg.SelfAddr so
// NETWORK_DETAILS and Client.firstComputeAddr can find it immediately),
// builds an SMPCClient and CipherMultiplier against it, and returns a
// ready-to-serve Compute node.
func JoinSetupAsCompute(cfg ComputeConfig, cs *crypto.CryptoSystem) (*Compute, error) {
	infoPayload, err := dialOnce(cfg.SetupAddr, wire.ServiceSetup, int(wire.SubtypeSetupInfo), wire.SetupInfoRequest{}.Encode())
	if err != nil {
		return nil, fmt.Errorf("node: fetching setup info: %w", err)
	}
	info, err := wire.DecodeSetupInfoResponse(infoPayload.Body)
	if err != nil {
		return nil, err
	}
	pkValue, err := crypto.DecodeGroupElem(info.PublicKey)
	if err != nil {
		return nil, err
	}
	pk := crypto.PublicKey{Value: pkValue}
	scheme, err := threshold.NewScheme(info.T, info.N)
	if err != nil {
		return nil, err
	}

	payload, err := dialOnce(cfg.SetupAddr, wire.ServiceSetup, int(wire.SubtypeJoinAsNode), wire.JoinAsNodeRequest{Role: wire.RoleCompute, SelfAddr: cfg.SelfAddr}.Encode())
	if err != nil {
		return nil, fmt.Errorf("node: joining setup as compute: %w", err)
	}
	resp, err := wire.DecodeJoinAsNodeResponse(payload.Body)
	if err != nil {
		return nil, err
	}

	cacheSize := cfg.BeaverCacheSize
	if cacheSize <= 0 {
		cacheSize = 10000 // spec.md §4.4 default
	}
	setupClient := &wireSetupClient{cs: cs, setupAddr: cfg.SetupAddr}
	dir := &wirePeerDirectory{setupAddr: cfg.SetupAddr}
	smpcClient := smpc.NewClient(cs, scheme, setupClient, dir, cacheSize)
	cm := mul.NewCipherMultiplier(cs, pk, smpcClient)
	handler := compute.NewHandler(cs, pk, smpcClient, cm)

	return &Compute{cs: cs, pk: pk, handler: handler, party: resp.Party, Latency: NewLatencyRecorder()}, nil
}

// Serve accepts client connections on ln, answering COMPUTE requests.
func (cn *Compute) Serve(ln net.Listener) error {
	return Serve(ln, DefaultThreadPoolSize, cn.handle)
}

func (cn *Compute) handle(payload wire.ServicePayload) (int, []byte) {
	start := time.Now()
	defer func() { cn.Latency.Observe(time.Since(start)) }()

	if wire.Subtype(payload.Subtype) != wire.SubtypeCompute {
		return int(wire.SubtypeCompute), wire.ComputeResponse{Err: "unknown service subtype"}.Encode()
	}
	req, err := wire.DecodeComputeRequest(payload.Body)
	if err != nil {
		return int(wire.SubtypeCompute), wire.ComputeResponse{Err: err.Error()}.Encode()
	}

	operands := make([]compute.Operand, 0, len(req.Operands))
	for _, raw := range req.Operands {
		op, err := decodeOperand(cn.cs, raw)
		if err != nil {
			return int(wire.SubtypeCompute), wire.ComputeResponse{Err: err.Error()}.Encode()
		}
		operands = append(operands, op)
	}

	result, err := cn.handler.Dispatch(context.Background(), compute.Request{
		Arity:    compute.Arity(req.Arity),
		Op:       compute.Op(req.Op),
		Operands: operands,
	})
	if err != nil {
		return int(wire.SubtypeCompute), wire.ComputeResponse{Err: err.Error()}.Encode()
	}

	resultBlob, err := encodeOperand(cn.cs, result)
	if err != nil {
		return int(wire.SubtypeCompute), wire.ComputeResponse{Err: err.Error()}.Encode()
	}
	return int(wire.SubtypeCompute), wire.ComputeResponse{Result: resultBlob}.Encode()
}
