package node

import (
	"bufio"
	"bytes"
	"fmt"
	"net"

	"github.com/cofhe-project/cofhe/wire"
)

// conn pairs a net.Conn with the single bufio.Reader that must persist
// across its whole lifetime (spec.md §5: "persistent client sockets are
// owned exclusively by one SMPCClient ... one request at a time").
type conn struct {
	c net.Conn
	r *bufio.Reader
}

func newConn(c net.Conn) *conn { return &conn{c: c, r: bufio.NewReader(c)} }

func (cn *conn) Close() error { return cn.c.Close() }

// roundTrip sends one (subtype, body) service payload over cn wrapped in a
// transport envelope of the given ServiceType, and returns the response
// payload.
func roundTrip(cn *conn, serviceType wire.ServiceType, subtype int, body []byte) (wire.ServicePayload, error) {
	var payloadBuf bytes.Buffer
	if err := wire.WriteServicePayload(&payloadBuf, wire.ServicePayload{Subtype: subtype, Body: body}); err != nil {
		return wire.ServicePayload{}, fmt.Errorf("node: encoding request: %w", err)
	}
	if err := wire.WriteEnvelope(cn.c, wire.Envelope{ServiceType: serviceType, Body: payloadBuf.Bytes()}); err != nil {
		return wire.ServicePayload{}, fmt.Errorf("node: sending request: %w", err)
	}

	env, err := wire.ReadEnvelope(cn.r)
	if err != nil {
		return wire.ServicePayload{}, fmt.Errorf("node: reading response envelope: %w", err)
	}
	payload, err := wire.ReadServicePayload(bufio.NewReader(bytes.NewReader(env.Body)))
	if err != nil {
		return wire.ServicePayload{}, fmt.Errorf("node: reading response payload: %w", err)
	}
	return payload, nil
}

// dialOnce opens a fresh connection to addr, performs one request/response
// round trip, and closes it. Used for the stateless setup-node queries
// (BEAVER_TRIPLET, NETWORK_DETAILS, JOIN_AS_NODE) that don't need a
// persistent socket.
func dialOnce(addr string, serviceType wire.ServiceType, subtype int, body []byte) (wire.ServicePayload, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return wire.ServicePayload{}, fmt.Errorf("node: dialing %s: %w", addr, err)
	}
	defer c.Close()
	return roundTrip(newConn(c), serviceType, subtype, body)
}
