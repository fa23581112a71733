package wire

import "bytes"

// Subtype tags a ServicePayload's request/response kind within one service
// (spec.md §4.8's per-role RPC set).
type Subtype int

const (
	SubtypeBeaverTriplet Subtype = iota
	SubtypeJoinAsNode
	SubtypeNetworkDetails
	SubtypePartialDecryption
	SubtypeCompute
	SubtypeSetupInfo
)

// NodeRole identifies which of the two joinable roles a JOIN_AS_NODE request
// is registering as (spec.md §4.8: "role in {cofhe, compute}"; the setup and
// client roles never send this request).
type NodeRole int

const (
	RoleCoFHE NodeRole = iota
	RoleCompute
)

// BeaverTripletRequest asks the setup node for N fresh Beaver triples.
type BeaverTripletRequest struct {
	N int
}

func (req BeaverTripletRequest) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteInt(int64(req.N))
	return buf.Bytes()
}

func DecodeBeaverTripletRequest(body []byte) (BeaverTripletRequest, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	n := fr.ReadInt()
	if err := fr.Err(); err != nil {
		return BeaverTripletRequest{}, err
	}
	return BeaverTripletRequest{N: int(n)}, nil
}

// BeaverTripletResponse carries the N requested triples as a tensorfmt-encoded
// [N,3] ciphertext tensor blob.
type BeaverTripletResponse struct {
	Triples []byte
}

func (resp BeaverTripletResponse) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteBlob(resp.Triples)
	return buf.Bytes()
}

func DecodeBeaverTripletResponse(body []byte) (BeaverTripletResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	triples := fr.ReadBlob()
	if err := fr.Err(); err != nil {
		return BeaverTripletResponse{}, err
	}
	return BeaverTripletResponse{Triples: triples}, nil
}

// JoinAsNodeRequest registers the caller as a cofhe or compute node.
// SelfAddr is the address the joining node is (or will be) listening on, so
// the setup node can hand it out via NETWORK_DETAILS without a separate
// address-registration round trip.
type JoinAsNodeRequest struct {
	Role     NodeRole
	SelfAddr string
}

func (req JoinAsNodeRequest) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteInt(int64(req.Role)).WriteBlob([]byte(req.SelfAddr))
	return buf.Bytes()
}

func DecodeJoinAsNodeRequest(body []byte) (JoinAsNodeRequest, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	role := fr.ReadInt()
	selfAddr := fr.ReadBlob()
	if err := fr.Err(); err != nil {
		return JoinAsNodeRequest{}, err
	}
	return JoinAsNodeRequest{Role: NodeRole(role), SelfAddr: string(selfAddr)}, nil
}

// JoinAsNodeResponse assigns the joining cofhe node its 1-based party index
// and hands it the share list for every combination it belongs to (one blob
// per combination, ordered by combination rank). Compute nodes joining
// receive an empty Shares list (they hold no MSP shares).
type JoinAsNodeResponse struct {
	Party      int
	ComboRanks []int
	Shares     [][]byte
}

func (resp JoinAsNodeResponse) Encode() []byte {
	var buf bytes.Buffer
	fw := NewFieldWriter(&buf).WriteInt(int64(resp.Party)).WriteInt(int64(len(resp.Shares)))
	for i, rank := range resp.ComboRanks {
		fw.WriteInt(int64(rank)).WriteBlob(resp.Shares[i])
	}
	return buf.Bytes()
}

func DecodeJoinAsNodeResponse(body []byte) (JoinAsNodeResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	party := fr.ReadInt()
	count := fr.ReadInt()
	resp := JoinAsNodeResponse{Party: int(party)}
	for i := int64(0); i < count; i++ {
		rank := fr.ReadInt()
		share := fr.ReadBlob()
		resp.ComboRanks = append(resp.ComboRanks, int(rank))
		resp.Shares = append(resp.Shares, share)
	}
	if err := fr.Err(); err != nil {
		return JoinAsNodeResponse{}, err
	}
	return resp, nil
}

// SetupInfoRequest asks the setup node for the shared public key and access
// structure, so a freshly started compute node can build its SMPCClient
// without those being passed to it out-of-band (spec.md doesn't specify a
// distribution mechanism for these beyond "the setup node generates them").
type SetupInfoRequest struct{}

func (SetupInfoRequest) Encode() []byte { return nil }

func DecodeSetupInfoRequest(body []byte) (SetupInfoRequest, error) {
	return SetupInfoRequest{}, nil
}

// SetupInfoResponse carries the shared public key (encoded as a group
// element, see crypto.EncodeGroupElem) plus the (t,n) access structure.
type SetupInfoResponse struct {
	PublicKey []byte
	T, N      int
}

func (resp SetupInfoResponse) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteBlob(resp.PublicKey).WriteInt(int64(resp.T)).WriteInt(int64(resp.N))
	return buf.Bytes()
}

func DecodeSetupInfoResponse(body []byte) (SetupInfoResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	pk := fr.ReadBlob()
	t := fr.ReadInt()
	n := fr.ReadInt()
	if err := fr.Err(); err != nil {
		return SetupInfoResponse{}, err
	}
	return SetupInfoResponse{PublicKey: pk, T: int(t), N: int(n)}, nil
}

// NetworkDetailsRequest asks the setup node for the current peer directory.
type NetworkDetailsRequest struct{}

func (NetworkDetailsRequest) Encode() []byte { return nil }

func DecodeNetworkDetailsRequest(body []byte) (NetworkDetailsRequest, error) {
	return NetworkDetailsRequest{}, nil
}

// PeerInfo is one reachable node's address and role, as handed out by
// NETWORK_DETAILS.
type PeerInfo struct {
	Party   int
	Role    NodeRole
	Address string
}

// NetworkDetailsResponse lists every peer known to the setup node, in join
// order (spec.md §4.8: "tracks joining order"), plus JoinCommit, a
// blake2b-256 commitment to that exact (party, role, address) sequence
// (node.CommitJoinOrder) so two callers can confirm they observed the same
// snapshot without diffing the whole peer list.
type NetworkDetailsResponse struct {
	Peers      []PeerInfo
	JoinCommit [32]byte
}

func (resp NetworkDetailsResponse) Encode() []byte {
	var buf bytes.Buffer
	fw := NewFieldWriter(&buf).WriteInt(int64(len(resp.Peers)))
	for _, p := range resp.Peers {
		fw.WriteInt(int64(p.Party)).WriteInt(int64(p.Role)).WriteBlob([]byte(p.Address))
	}
	fw.WriteBlob(resp.JoinCommit[:])
	return buf.Bytes()
}

func DecodeNetworkDetailsResponse(body []byte) (NetworkDetailsResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	count := fr.ReadInt()
	var resp NetworkDetailsResponse
	for i := int64(0); i < count; i++ {
		party := fr.ReadInt()
		role := fr.ReadInt()
		addr := fr.ReadBlob()
		resp.Peers = append(resp.Peers, PeerInfo{Party: int(party), Role: NodeRole(role), Address: string(addr)})
	}
	commit := fr.ReadBlob()
	copy(resp.JoinCommit[:], commit)
	if err := fr.Err(); err != nil {
		return NetworkDetailsResponse{}, err
	}
	return resp, nil
}

// PartialDecryptionRequest asks one cofhe node for its contribution to a
// threshold decryption under the combination identified by ComboRank.
type PartialDecryptionRequest struct {
	ComboRank  int
	Ciphertext []byte
}

func (req PartialDecryptionRequest) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteInt(int64(req.ComboRank)).WriteBlob(req.Ciphertext)
	return buf.Bytes()
}

func DecodePartialDecryptionRequest(body []byte) (PartialDecryptionRequest, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	rank := fr.ReadInt()
	ct := fr.ReadBlob()
	if err := fr.Err(); err != nil {
		return PartialDecryptionRequest{}, err
	}
	return PartialDecryptionRequest{ComboRank: int(rank), Ciphertext: ct}, nil
}

// PartialDecryptionResponse carries one party's partial decryption share (a
// serialized group.Elem).
type PartialDecryptionResponse struct {
	Partial []byte
}

func (resp PartialDecryptionResponse) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteBlob(resp.Partial)
	return buf.Bytes()
}

func DecodePartialDecryptionResponse(body []byte) (PartialDecryptionResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	partial := fr.ReadBlob()
	if err := fr.Err(); err != nil {
		return PartialDecryptionResponse{}, err
	}
	return PartialDecryptionResponse{Partial: partial}, nil
}

// ComputeRequest carries one compute.Handler-shaped request, with each
// operand pre-serialized (tensorfmt-encoded single-leaf or tensor blob).
type ComputeRequest struct {
	Arity    int
	Op       int
	Operands [][]byte
}

func (req ComputeRequest) Encode() []byte {
	var buf bytes.Buffer
	fw := NewFieldWriter(&buf).WriteInt(int64(req.Arity)).WriteInt(int64(req.Op)).WriteInt(int64(len(req.Operands)))
	for _, op := range req.Operands {
		fw.WriteBlob(op)
	}
	return buf.Bytes()
}

func DecodeComputeRequest(body []byte) (ComputeRequest, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	arity := fr.ReadInt()
	op := fr.ReadInt()
	count := fr.ReadInt()
	req := ComputeRequest{Arity: int(arity), Op: int(op)}
	for i := int64(0); i < count; i++ {
		req.Operands = append(req.Operands, fr.ReadBlob())
	}
	if err := fr.Err(); err != nil {
		return ComputeRequest{}, err
	}
	return req, nil
}

// ComputeResponse carries the dispatch result, or a non-empty Err message on
// failure (spec.md §4.7: "downstream failures propagated as ComputeError(msg)").
type ComputeResponse struct {
	Result []byte
	Err    string
}

func (resp ComputeResponse) Encode() []byte {
	var buf bytes.Buffer
	NewFieldWriter(&buf).WriteBlob(resp.Result).WriteBlob([]byte(resp.Err))
	return buf.Bytes()
}

func DecodeComputeResponse(body []byte) (ComputeResponse, error) {
	fr := NewFieldReader(bytes.NewReader(body))
	result := fr.ReadBlob()
	errMsg := fr.ReadBlob()
	if err := fr.Err(); err != nil {
		return ComputeResponse{}, err
	}
	return ComputeResponse{Result: result, Err: string(errMsg)}, nil
}
