// Command cofhe-node launches one of the three networked node roles
// (spec.md §6):
//
//	cofhe-node setup_node   [-t T] [-n N] [-k K] [-security 80|128|256] [-registry FILE] <self_ip> <self_port>
//	cofhe-node cofhe_node   <self_ip> <self_port> <setup_ip> <setup_port>
//	cofhe-node compute_node [-cache N] <self_ip> <self_port> <setup_ip> <setup_port>
//
// Flags come before the positional arguments: flag parsing stops at the
// first positional one. Exit 0 on clean shutdown, nonzero on any unrecoverable error before the
// server loop starts. TLS certificates are read from ./server.pem and
// ./server_key.pem when present (spec.md §6's "Environment" clause).
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/cofhe-project/cofhe/crypto"
	"github.com/cofhe-project/cofhe/node"
	"github.com/cofhe-project/cofhe/wire"
)

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "setup_node":
		runSetup(os.Args[2:])
	case "cofhe_node":
		runCoFHE(os.Args[2:])
	case "compute_node":
		runCompute(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cofhe-node setup_node|cofhe_node|compute_node [flags] <self_ip> <self_port> [setup_ip setup_port]")
}

func runSetup(args []string) {
	fs := flag.NewFlagSet("setup_node", flag.ExitOnError)
	t := fs.Int("t", 2, "threshold")
	n := fs.Int("n", 3, "number of cofhe nodes")
	k := fs.Int("k", 32, "plaintext bit-width")
	security := fs.Int("security", 128, "security level: 80, 128 or 256")
	registry := fs.String("registry", "", "YAML peer bootstrap file (node.Registry)")
	check(fs.Parse(args))
	if fs.NArg() < 2 {
		usage()
		os.Exit(1)
	}
	selfAddr := net.JoinHostPort(fs.Arg(0), fs.Arg(1))

	s, err := node.NewSetup(node.SetupConfig{
		Params: crypto.ParametersLiteral{SecurityLevel: crypto.SecurityLevel(*security), K: *k},
		T:      *t,
		N:      *n,
	})
	check(err)

	if *registry != "" {
		reg, err := node.LoadRegistry(*registry)
		check(err)
		reg.Seed(s)
		log.Printf("setup_node: seeded %d peers from %s", len(reg.Peers), *registry)
	}

	ln, err := wire.Listen(selfAddr)
	check(err)
	log.Printf("setup_node listening on %s (t=%d, n=%d)", selfAddr, *t, *n)
	check(s.Serve(ln))
}

func runCoFHE(args []string) {
	fs := flag.NewFlagSet("cofhe_node", flag.ExitOnError)
	k := fs.Int("k", 32, "plaintext bit-width")
	security := fs.Int("security", 128, "security level: 80, 128 or 256")
	check(fs.Parse(args))
	if fs.NArg() < 4 {
		usage()
		os.Exit(1)
	}
	selfAddr := net.JoinHostPort(fs.Arg(0), fs.Arg(1))
	setupAddr := net.JoinHostPort(fs.Arg(2), fs.Arg(3))

	params, err := crypto.NewParameters(crypto.ParametersLiteral{SecurityLevel: crypto.SecurityLevel(*security), K: *k})
	check(err)
	cs, err := crypto.New(params, nil)
	check(err)

	joined, err := node.JoinSetup(setupAddr, selfAddr, cs)
	check(err)

	ln, err := wire.Listen(selfAddr)
	check(err)
	log.Printf("cofhe_node (party %d) listening on %s, setup at %s", joined.Party(), selfAddr, setupAddr)
	check(joined.Serve(ln))
}

func runCompute(args []string) {
	fs := flag.NewFlagSet("compute_node", flag.ExitOnError)
	cacheSize := fs.Int("cache", 10000, "beaver triple cache size")
	k := fs.Int("k", 32, "plaintext bit-width")
	security := fs.Int("security", 128, "security level: 80, 128 or 256")
	check(fs.Parse(args))
	if fs.NArg() < 4 {
		usage()
		os.Exit(1)
	}
	selfAddr := net.JoinHostPort(fs.Arg(0), fs.Arg(1))
	setupAddr := net.JoinHostPort(fs.Arg(2), fs.Arg(3))

	params, err := crypto.NewParameters(crypto.ParametersLiteral{SecurityLevel: crypto.SecurityLevel(*security), K: *k})
	check(err)
	cs, err := crypto.New(params, nil)
	check(err)

	c, err := node.JoinSetupAsCompute(node.ComputeConfig{SetupAddr: setupAddr, SelfAddr: selfAddr, BeaverCacheSize: *cacheSize}, cs)
	check(err)

	ln, err := wire.Listen(selfAddr)
	check(err)
	log.Printf("compute_node listening on %s, setup at %s", selfAddr, setupAddr)
	defer c.Latency.LogSummary("compute_node")
	check(c.Serve(ln))
}
