package node

import (
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/cofhe-project/cofhe/wire"
)

// PeerSeed is one statically-known peer in a bootstrap registry file,
// letting an operator pre-declare the cofhe/compute topology instead of
// relying solely on live JOIN_AS_NODE traffic to populate it.
type PeerSeed struct {
	Party   int    `yaml:"party"`
	Role    string `yaml:"role"` // "cofhe" or "compute"
	Address string `yaml:"address"`
}

// Registry is a YAML-seedable peer bootstrap list (spec.md's join/network
// details exchange says nothing about how a fresh deployment's first nodes
// find each other; this supplies that out-of-band).
type Registry struct {
	Peers []PeerSeed `yaml:"peers"`
}

// LoadRegistry reads and parses a registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("node: reading registry %s: %w", path, err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("node: parsing registry %s: %w", path, err)
	}
	return &reg, nil
}

// Seed registers every peer in the registry with a setup node's address
// table directly, bypassing JOIN_AS_NODE (used to bootstrap a cluster whose
// topology is fixed in advance rather than discovered live).
func (reg *Registry) Seed(setup *Setup) {
	for _, p := range reg.Peers {
		setup.SeedPeer(p.Party, seedRole(p.Role), p.Address)
	}
}

func seedRole(s string) wire.NodeRole {
	if s == "compute" {
		return wire.RoleCompute
	}
	return wire.RoleCoFHE
}

// CommitJoinOrder hashes the current peer list's (party, role, address)
// triples in join order, so every node that has observed the same
// NETWORK_DETAILS snapshot can cheaply confirm they agree on it without
// exchanging the whole list again. Grounded on dbfv/collective_CRS.go's use
// of a keyed hash as a cheap collective commitment primitive, adapted here
// from blake3 (that file's PRNG) to blake2b-256 since this is a one-shot
// commitment rather than an extendable output stream.
func CommitJoinOrder(peers []wire.PeerInfo) ([32]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}
	for _, p := range peers {
		fmt.Fprintf(h, "%d|%d|%s\n", p.Party, p.Role, p.Address)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
