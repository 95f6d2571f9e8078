// Package transport implements the client side of each DNS transport
// protocol. A Transport carries already encoded queries to one upstream
// endpoint and hands back the raw answer; message encoding, response
// verification and retry policy belong to the layers above.
package transport

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"

	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// DefaultTimeout bounds a single exchange when neither the context nor
// the options carry a deadline.
const DefaultTimeout = 5 * time.Second

// Transport moves encoded DNS messages between the client and a single
// upstream endpoint. Implementations are not safe for concurrent
// exchanges; callers serialize access per connection.
type Transport interface {
	// Exchange sends an encoded query and returns the raw response along
	// with the measured round trip time.
	Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error)

	// Protocol reports the transport protocol this connection speaks.
	Protocol() domain.Protocol

	// Close releases the underlying connection.
	Close() error
}

// Options carries settings shared by every transport kind.
type Options struct {
	// Timeout bounds one exchange when the caller's context has no
	// deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// ProxyAddr optionally routes stream transports through a SOCKS5
	// proxy. UDP cannot be carried over SOCKS5 here and is refused while
	// a proxy is set.
	ProxyAddr string

	// RootCAs overrides the system certificate pool for TLS and HTTPS
	// transports when set.
	RootCAs *x509.CertPool

	Logger log.Logger
}

func (o Options) logger() log.Logger {
	if o.Logger == nil {
		return log.NewNoopLogger()
	}
	return o.Logger
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

type dialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// dialContext returns the function used to open TCP connections, routed
// through the configured SOCKS5 proxy when one is set.
func (o Options) dialContext() (dialContextFunc, error) {
	base := &net.Dialer{}
	if o.ProxyAddr == "" {
		return base.DialContext, nil
	}
	socks, err := proxy.SOCKS5("tcp", o.ProxyAddr, nil, base)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %q: %w", o.ProxyAddr, err)
	}
	cd, ok := socks.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks proxy %q: dialer does not support contexts", o.ProxyAddr)
	}
	return cd.DialContext, nil
}

// ensureDeadline guarantees the context carries a deadline, deriving one
// from the transport timeout when the caller set none.
func ensureDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
