package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// dohMediaType is the content type DNS over HTTPS messages travel under
// (RFC 8484).
const dohMediaType = "application/dns-message"

// httpsTransport speaks DNS over HTTPS against a single resolver URL.
// The embedded HTTP client keeps connections alive between exchanges and
// upgrades to HTTP/2 when the server supports it.
type httpsTransport struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// newHTTPSTransport builds a DoH transport for the config. The HTTP
// client always dials the configured IP address, so reaching the
// resolver never depends on resolving its hostname first.
func newHTTPSTransport(cfg domain.ConnConfig, opts Options) (*httpsTransport, error) {
	dial, err := opts.dialContext()
	if err != nil {
		return nil, err
	}
	inner := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			if !strings.HasPrefix(network, "tcp") {
				return nil, fmt.Errorf("unsupported network %q", network)
			}
			return dial(ctx, "tcp", cfg.AddrPort.String())
		},
		TLSClientConfig:       tlsConfig(cfg, opts),
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
	}
	return &httpsTransport{
		client:  &http.Client{Transport: inner},
		url:     dohURL(cfg),
		timeout: opts.timeout(),
	}, nil
}

// dohURL renders the query URL for a DoH config. The server name is
// preferred for the host so the URL matches the certificate the server
// presents.
func dohURL(cfg domain.ConnConfig) string {
	path := cfg.Path
	if path == "" {
		path = domain.DefaultDoHPath
	}
	host := cfg.ServerName
	if host == "" {
		host = cfg.AddrPort.Addr().String()
	}
	if port := cfg.AddrPort.Port(); port != domain.ProtocolHTTPS.DefaultPort() {
		host = net.JoinHostPort(host, strconv.Itoa(int(port)))
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return "https://" + host + path
}

func (t *httpsTransport) Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error) {
	ctx, cancel := ensureDeadline(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(msg))
	if err != nil {
		return nil, 0, fmt.Errorf("doh request: %w", err)
	}
	req.Header.Set("Accept", dohMediaType)
	req.Header.Set("Content-Type", dohMediaType)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("doh exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("doh server returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStreamMessageSize+1))
	if err != nil {
		return nil, 0, fmt.Errorf("doh read body: %w", err)
	}
	if len(body) > maxStreamMessageSize {
		return nil, 0, fmt.Errorf("doh response exceeds %d bytes", maxStreamMessageSize)
	}
	return body, time.Since(start), nil
}

func (t *httpsTransport) Protocol() domain.Protocol { return domain.ProtocolHTTPS }

// Close drops idle connections held by the HTTP client.
func (t *httpsTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
