// Package wire implements the framed request/response protocol of spec.md
// §4.9: nested header-plus-body framing shared by the transport envelope,
// the service payload, and individual request/response objects. Grounded on
// core/rlwe/ciphertext.go's WriteTo/ReadFrom streaming convention (length
// known up front, written as a fixed-size prefix, body follows without
// intermediate buffering) generalized from lattigo's single binary length
// prefix to spec.md's textual "header '\n' body" framing.
package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cofhe-project/cofhe/cofheerr"
)

// maxBodySize bounds a single frame's body to guard against a malformed or
// hostile header driving an unbounded allocation.
const maxBodySize = 256 << 20

// WriteFrame writes fields as space-separated ASCII integers, followed by
// len(body) as the final header integer, a newline, and then body itself
// (spec.md §4.9: "header is ASCII integers separated by spaces").
func WriteFrame(w io.Writer, fields []int, body []byte) error {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		parts = append(parts, strconv.Itoa(f))
	}
	parts = append(parts, strconv.Itoa(len(body)))
	header := strings.Join(parts, " ") + "\n"

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("wire: writing frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads a header line of exactly numFields+1 space-separated
// integers (numFields caller-defined fields followed by the body size) and
// then the body itself.
func ReadFrame(r *bufio.Reader, numFields int) (fields []int, body []byte, err error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("wire: reading frame header: %w", err)
	}
	parts := strings.Fields(line)
	if len(parts) != numFields+1 {
		return nil, nil, fmt.Errorf("wire: header has %d fields, want %d: %w", len(parts), numFields+1, cofheerr.ErrProtocolError)
	}

	ints := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, nil, fmt.Errorf("wire: header field %q is not an integer: %w", p, cofheerr.ErrProtocolError)
		}
		ints[i] = v
	}

	size := ints[numFields]
	if size < 0 || size > maxBodySize {
		return nil, nil, fmt.Errorf("wire: frame body size %d out of bounds: %w", size, cofheerr.ErrProtocolError)
	}
	body = make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, fmt.Errorf("wire: reading frame body of size %d: %w", size, err)
	}
	return ints[:numFields], body, nil
}
