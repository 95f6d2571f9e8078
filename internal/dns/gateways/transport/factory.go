package transport

import (
	"context"
	"fmt"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// New opens a transport for a single connection config. The context
// bounds connection establishment, not the lifetime of the transport.
func New(ctx context.Context, cfg domain.ConnConfig, opts Options) (Transport, error) {
	switch cfg.Protocol {
	case domain.ProtocolUDP:
		return dialUDP(ctx, cfg, opts)
	case domain.ProtocolTCP:
		return dialTCP(ctx, cfg, opts)
	case domain.ProtocolTLS:
		return dialTLS(ctx, cfg, opts)
	case domain.ProtocolHTTPS:
		return newHTTPSTransport(cfg, opts)
	case domain.ProtocolQUIC:
		return nil, fmt.Errorf("DNS over QUIC transport not yet implemented")
	default:
		return nil, fmt.Errorf("unsupported transport protocol: %s", cfg.Protocol)
	}
}

// SupportedProtocols returns the transport protocols New can open.
func SupportedProtocols() []domain.Protocol {
	return []domain.Protocol{
		domain.ProtocolUDP,
		domain.ProtocolTCP,
		domain.ProtocolTLS,
		domain.ProtocolHTTPS,
	}
}

// IsProtocolSupported reports whether New can open a transport for the
// given protocol.
func IsProtocolSupported(p domain.Protocol) bool {
	for _, s := range SupportedProtocols() {
		if p == s {
			return true
		}
	}
	return false
}
