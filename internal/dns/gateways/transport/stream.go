package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// maxStreamMessageSize is the largest DNS message a stream transport can
// carry, limited by the 16 bit length prefix (RFC 1035 section 4.2.2).
const maxStreamMessageSize = 1<<16 - 1

// streamTransport carries DNS messages over a byte stream, either plain
// TCP or TLS. Every message travels behind a two byte big endian length
// prefix, and the connection stays open across exchanges.
type streamTransport struct {
	conn    net.Conn
	proto   domain.Protocol
	timeout time.Duration
}

// dialTCP opens a plain TCP stream to the server.
func dialTCP(ctx context.Context, cfg domain.ConnConfig, opts Options) (*streamTransport, error) {
	dial, err := opts.dialContext()
	if err != nil {
		return nil, err
	}
	conn, err := dial(ctx, "tcp", cfg.AddrPort.String())
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", cfg.AddrPort, err)
	}
	return &streamTransport{conn: conn, proto: domain.ProtocolTCP, timeout: opts.timeout()}, nil
}

// dialTLS opens a TLS session to the server and completes the handshake
// before the transport is handed out, so certificate problems surface at
// dial time rather than mid-query.
func dialTLS(ctx context.Context, cfg domain.ConnConfig, opts Options) (*streamTransport, error) {
	dial, err := opts.dialContext()
	if err != nil {
		return nil, err
	}
	raw, err := dial(ctx, "tcp", cfg.AddrPort.String())
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", cfg.AddrPort, err)
	}
	conn := tls.Client(raw, tlsConfig(cfg, opts))
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", cfg.AddrPort, err)
	}
	return &streamTransport{conn: conn, proto: domain.ProtocolTLS, timeout: opts.timeout()}, nil
}

// tlsConfig builds the client TLS configuration for a server entry. The
// handshake verifies the certificate against the configured server name,
// falling back to the literal IP when no name is given.
func tlsConfig(cfg domain.ConnConfig, opts Options) *tls.Config {
	name := cfg.ServerName
	if name == "" {
		name = cfg.AddrPort.Addr().String()
	}
	return &tls.Config{
		ServerName: name,
		RootCAs:    opts.RootCAs,
		MinVersion: tls.VersionTLS12,
	}
}

func (t *streamTransport) Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error) {
	if len(msg) > maxStreamMessageSize {
		return nil, 0, fmt.Errorf("message of %d bytes does not fit the stream length prefix", len(msg))
	}
	ctx, cancel := ensureDeadline(ctx, t.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, 0, fmt.Errorf("set deadline: %w", err)
	}

	framed := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(framed[:2], uint16(len(msg)))
	copy(framed[2:], msg)

	start := time.Now()
	if _, err := t.conn.Write(framed); err != nil {
		return nil, 0, fmt.Errorf("%s write: %w", t.proto, err)
	}

	var length uint16
	if err := binary.Read(t.conn, binary.BigEndian, &length); err != nil {
		return nil, 0, fmt.Errorf("%s read length: %w", t.proto, err)
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(t.conn, out); err != nil {
		return nil, 0, fmt.Errorf("%s read body: %w", t.proto, err)
	}
	return out, time.Since(start), nil
}

func (t *streamTransport) Protocol() domain.Protocol { return t.proto }

func (t *streamTransport) Close() error { return t.conn.Close() }
