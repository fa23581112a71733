// Package node implements the four roles of spec.md §4.8 (Setup, CoFHE,
// Compute, Client) over wire's framed transport. Grounded on the teacher's
// examples/*/main.go lifecycle style (plain structs, no DI framework,
// stdlib log at the lifecycle boundary only) generalized from a one-shot
// example run to a long-lived accept loop.
package node

import (
	"bufio"
	"bytes"
	"log"
	"net"

	"github.com/cofhe-project/cofhe/wire"
)

// DefaultThreadPoolSize is the fixed-size worker pool spec.md §5 requires
// around the transport (default 8).
const DefaultThreadPoolSize = 8

// ServiceHandler answers one service payload and returns the response body
// to send back on the same connection.
type ServiceHandler func(payload wire.ServicePayload) (respSubtype int, respBody []byte)

// Serve accepts connections on ln and dispatches each to handle via a
// bounded worker pool of poolSize goroutines (spec.md §5: "fixed-size
// thread pool"; "each accepted connection is handled by one session at a
// time, but concurrent sessions run in parallel"). It blocks until ln is
// closed or Accept otherwise fails.
func Serve(ln net.Listener, poolSize int, handle ServiceHandler) error {
	if poolSize <= 0 {
		poolSize = DefaultThreadPoolSize
	}
	sem := make(chan struct{}, poolSize)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		sem <- struct{}{}
		go func(c net.Conn) {
			defer func() { <-sem }()
			defer c.Close()
			if err := serveSession(c, handle); err != nil {
				log.Printf("node: session with %s ended: %v", c.RemoteAddr(), err)
			}
		}(conn)
	}
}

// serveSession reads one envelope at a time from conn and replies with
// exactly one envelope before reading the next (spec.md §5: "one request at
// a time, response-before-next-send"), until the peer closes the
// connection.
func serveSession(conn net.Conn, handle ServiceHandler) error {
	r := bufio.NewReader(conn)
	for {
		env, err := wire.ReadEnvelope(r)
		if err != nil {
			return err
		}
		payload, err := wire.ReadServicePayload(bufio.NewReader(bytes.NewReader(env.Body)))
		if err != nil {
			return err
		}

		respSubtype, respBody := handle(payload)

		var respBuf bytes.Buffer
		if err := wire.WriteServicePayload(&respBuf, wire.ServicePayload{Subtype: respSubtype, Body: respBody}); err != nil {
			return err
		}
		if err := wire.WriteEnvelope(conn, wire.Envelope{ServiceType: env.ServiceType, Body: respBuf.Bytes()}); err != nil {
			return err
		}
	}
}
