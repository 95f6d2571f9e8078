package domain

import (
	"fmt"
	"strings"
)

// Protocol identifies the transport kind used to reach an upstream name
// server.
type Protocol uint8

// Supported transport protocols.
const (
	ProtocolUDP   Protocol = iota + 1 // plain DNS over UDP (RFC 1035)
	ProtocolTCP                       // plain DNS over TCP (RFC 1035, RFC 7766)
	ProtocolTLS                       // DNS over TLS (RFC 7858)
	ProtocolHTTPS                     // DNS over HTTPS (RFC 8484)
	ProtocolQUIC                      // DNS over QUIC (RFC 9250)
)

// IsValid returns true if the Protocol is one of the supported transports.
func (p Protocol) IsValid() bool {
	switch p {
	case ProtocolUDP, ProtocolTCP, ProtocolTLS, ProtocolHTTPS, ProtocolQUIC:
		return true
	default:
		return false
	}
}

// IsEncrypted reports whether the protocol provides an encrypted channel.
func (p Protocol) IsEncrypted() bool {
	switch p {
	case ProtocolTLS, ProtocolHTTPS, ProtocolQUIC:
		return true
	default:
		return false
	}
}

// IsStream reports whether the protocol is connection oriented rather than
// plain datagram.
func (p Protocol) IsStream() bool {
	switch p {
	case ProtocolTCP, ProtocolTLS, ProtocolHTTPS, ProtocolQUIC:
		return true
	default:
		return false
	}
}

// DefaultPort returns the well-known destination port for the protocol.
func (p Protocol) DefaultPort() uint16 {
	switch p {
	case ProtocolTLS, ProtocolQUIC:
		return 853
	case ProtocolHTTPS:
		return 443
	default:
		return 53
	}
}

// String returns the scheme name for the protocol, matching the form
// accepted by ParseProtocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	case ProtocolTLS:
		return "tls"
	case ProtocolHTTPS:
		return "https"
	case ProtocolQUIC:
		return "quic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ParseProtocol converts a scheme name to its Protocol value.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "udp":
		return ProtocolUDP, nil
	case "tcp":
		return ProtocolTCP, nil
	case "tls", "dot":
		return ProtocolTLS, nil
	case "https", "doh":
		return ProtocolHTTPS, nil
	case "quic", "doq":
		return ProtocolQUIC, nil
	default:
		return 0, fmt.Errorf("unsupported protocol: %q", s)
	}
}
