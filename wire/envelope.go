package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/cofhe-project/cofhe/cofheerr"
)

// ProtocolVersion is the only transport envelope version this module speaks.
const ProtocolVersion = 1

// ServiceType identifies which node role a transport envelope's body targets
// (spec.md §4.8's four roles share one transport; only three accept
// connections). Numeric values are fixed by spec.md §6's "Service numeric
// codes: 1=COMPUTE, 2=COFHE, 3=SETUP".
type ServiceType int

const (
	ServiceCompute ServiceType = 1
	ServiceCoFHE   ServiceType = 2
	ServiceSetup   ServiceType = 3
)

func (s ServiceType) String() string {
	switch s {
	case ServiceSetup:
		return "setup"
	case ServiceCoFHE:
		return "cofhe"
	case ServiceCompute:
		return "compute"
	default:
		return fmt.Sprintf("ServiceType(%d)", int(s))
	}
}

// Envelope is the outermost transport layer of spec.md §4.9's nested
// framing: protocol_version, service_type, body_size, then the service
// payload as the body.
type Envelope struct {
	ServiceType ServiceType
	Body        []byte
}

// WriteEnvelope writes e to w as a transport frame.
func WriteEnvelope(w io.Writer, e Envelope) error {
	return WriteFrame(w, []int{ProtocolVersion, int(e.ServiceType)}, e.Body)
}

// ReadEnvelope reads one transport frame from r.
func ReadEnvelope(r *bufio.Reader) (Envelope, error) {
	fields, body, err := ReadFrame(r, 2)
	if err != nil {
		return Envelope{}, err
	}
	version, serviceType := fields[0], fields[1]
	if version != ProtocolVersion {
		return Envelope{}, fmt.Errorf("wire: unsupported protocol version %d: %w", version, cofheerr.ErrProtocolError)
	}
	return Envelope{ServiceType: ServiceType(serviceType), Body: body}, nil
}

// ServicePayload is the middle layer: a service-specific subtype tag plus an
// inner body (the request/response object's own field encoding).
type ServicePayload struct {
	Subtype int
	Body    []byte
}

// WriteServicePayload writes p as a frame (to be used as an Envelope's Body).
func WriteServicePayload(w io.Writer, p ServicePayload) error {
	return WriteFrame(w, []int{p.Subtype}, p.Body)
}

// ReadServicePayload reads a ServicePayload frame from r.
func ReadServicePayload(r *bufio.Reader) (ServicePayload, error) {
	fields, body, err := ReadFrame(r, 1)
	if err != nil {
		return ServicePayload{}, err
	}
	return ServicePayload{Subtype: fields[0], Body: body}, nil
}
