package selection

import (
	"net/netip"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// TransportState reports recent encrypted-transport successes for a
// destination address. Selection only reads it; the dial path records
// outcomes.
type TransportState interface {
	// RecentSuccess reports whether the exact encrypted protocol
	// succeeded for addr within the policy's validity window.
	RecentSuccess(addr netip.Addr, proto domain.Protocol, policy domain.EncryptionPolicy) bool

	// AnyRecentSuccess reports whether any encrypted protocol succeeded
	// for addr within the policy's validity window.
	AnyRecentSuccess(addr netip.Addr, policy domain.EncryptionPolicy) bool
}

// Conn is the read-only view of a live connection that the connection
// selector ranks: its protocol and its current smoothed round-trip time.
// SRTT returns NaN until the transport has observed a sample.
type Conn interface {
	Protocol() domain.Protocol
	SRTT() float64
}
