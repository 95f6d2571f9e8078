package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/gateways/wire"
)

// udpTransport sends queries over a single connected UDP socket.
type udpTransport struct {
	conn    net.Conn
	addr    netip.AddrPort
	timeout time.Duration
	logger  log.Logger
}

// dialUDP connects a UDP socket to the server. Nothing is sent until the
// first exchange.
func dialUDP(ctx context.Context, cfg domain.ConnConfig, opts Options) (*udpTransport, error) {
	if opts.ProxyAddr != "" {
		return nil, errors.New("UDP transport cannot use a SOCKS proxy")
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", cfg.AddrPort.String())
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", cfg.AddrPort, err)
	}
	return &udpTransport{
		conn:    conn,
		addr:    cfg.AddrPort,
		timeout: opts.timeout(),
		logger:  opts.logger(),
	}, nil
}

func (t *udpTransport) Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error) {
	ctx, cancel := ensureDeadline(ctx, t.timeout)
	defer cancel()
	deadline, _ := ctx.Deadline()
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, 0, fmt.Errorf("set deadline: %w", err)
	}

	start := time.Now()
	if _, err := t.conn.Write(msg); err != nil {
		return nil, 0, fmt.Errorf("udp write: %w", err)
	}

	// The socket may still deliver answers to earlier queries that timed
	// out. Datagrams whose header ID does not match the query just sent
	// are skipped rather than returned as the response.
	buf := make([]byte, wire.EDNSBufferSize)
	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("udp read: %w", err)
		}
		if stray, id := strayDatagram(msg, buf[:n]); stray {
			t.logger.Debug(map[string]any{
				"server": t.addr.String(),
				"got_id": id,
			}, "Discarding datagram with unexpected ID")
			continue
		}
		out := make([]byte, n)
		copy(out, buf[:n])
		return out, time.Since(start), nil
	}
}

// strayDatagram reports whether a received datagram answers a different
// query than the one sent, judged by the message ID alone. Deeper
// validation happens when the message is decoded.
func strayDatagram(sent, got []byte) (bool, uint16) {
	if len(sent) < 2 || len(got) < 2 {
		return false, 0
	}
	id := binary.BigEndian.Uint16(got[:2])
	return id != binary.BigEndian.Uint16(sent[:2]), id
}

func (t *udpTransport) Protocol() domain.Protocol { return domain.ProtocolUDP }

func (t *udpTransport) Close() error { return t.conn.Close() }
