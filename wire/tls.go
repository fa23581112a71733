package wire

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
)

// DefaultCertFile and DefaultKeyFile are the conventional paths spec.md's
// environment section reads TLS material from, when present.
const (
	DefaultCertFile = "./server.pem"
	DefaultKeyFile  = "./server_key.pem"
)

// Listen opens a listener on addr, upgraded to TLS if both DefaultCertFile
// and DefaultKeyFile exist in the working directory, plain TCP otherwise
// (spec.md §5: "any equivalent channel suffices" when TLS material is
// absent).
func Listen(addr string) (net.Listener, error) {
	cert, certErr := os.Stat(DefaultCertFile)
	key, keyErr := os.Stat(DefaultKeyFile)
	if certErr != nil || keyErr != nil || cert.IsDir() || key.IsDir() {
		return net.Listen("tcp", addr)
	}

	pair, err := tls.LoadX509KeyPair(DefaultCertFile, DefaultKeyFile)
	if err != nil {
		return nil, fmt.Errorf("wire: loading TLS material: %w", err)
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	return tls.Listen("tcp", addr, cfg)
}
