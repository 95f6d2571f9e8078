// Package selection decides which live connection, or which connection
// configuration, should carry the next query to a single name server.
//
// The decision balances three concerns: latency (smoothed round-trip time
// ordering), anti-spoofing (per-attempt preferences that force an upgrade
// away from UDP after truncation or a suspected spoof), and opportunistic
// encryption (preferring encrypted transports that have recently proven
// reachable, without flapping back to cleartext while that knowledge is
// fresh).
//
// Both selectors are pure: they read borrowed snapshots, perform no I/O,
// and are safe to call concurrently as long as their inputs are.
package selection

import (
	"math"
	"net/netip"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// SelectConnection picks the best live connection for the next query.
//
// Candidates whose protocol the preferences refuse are dropped. The rest
// are ranked by connLess and the minimum wins. If the encryption policy
// is enabled, the winner is not encrypted, and any encrypted protocol has
// recently succeeded for this address, the winner is discarded and no
// connection is returned: the caller must establish a fresh connection,
// and config selection will favor the encrypted transport. A false return
// therefore means "dial something new", never an error.
func SelectConnection[C Conn](prefs domain.Preferences, addr netip.Addr, state TransportState, policy domain.EncryptionPolicy, conns []C) (C, bool) {
	var zero C
	best := -1
	for i, c := range conns {
		if !prefs.AllowsProtocol(c.Protocol()) {
			continue
		}
		if best < 0 || connLess(policy, c, conns[best]) {
			best = i
		}
	}
	if best < 0 {
		return zero, false
	}
	chosen := conns[best]
	if policy.Enabled && !chosen.Protocol().IsEncrypted() && state.AnyRecentSuccess(addr, policy) {
		return zero, false
	}
	return chosen, true
}

// SelectConnConfig picks which new connection to establish when no live
// connection is usable. There is no round-trip time before a connection
// exists, so recorded success history is the only reachability signal:
// under an enabled policy, a config whose exact encrypted protocol has
// recently succeeded outranks everything else. Returns false when the
// preferences refuse every config.
func SelectConnConfig(prefs domain.Preferences, addr netip.Addr, state TransportState, policy domain.EncryptionPolicy, configs []domain.ConnConfig) (domain.ConnConfig, bool) {
	best := -1
	for i, c := range configs {
		if !prefs.AllowsProtocol(c.Protocol) {
			continue
		}
		if best < 0 || configLess(addr, state, policy, c, configs[best]) {
			best = i
		}
	}
	if best < 0 {
		return domain.ConnConfig{}, false
	}
	return configs[best], true
}

// connLess orders live connections. Under an enabled encryption policy an
// encrypted protocol ranks strictly before a cleartext one regardless of
// latency. Same-protocol pairs rank by smoothed round-trip time. Mixed
// pairs with no policy override rank UDP first, then by round-trip time.
func connLess(policy domain.EncryptionPolicy, a, b Conn) bool {
	if policy.Enabled {
		ae, be := a.Protocol().IsEncrypted(), b.Protocol().IsEncrypted()
		if ae != be {
			return ae
		}
	}
	if a.Protocol() == b.Protocol() {
		return totalLess(a.SRTT(), b.SRTT())
	}
	if a.Protocol() == domain.ProtocolUDP {
		return true
	}
	if b.Protocol() == domain.ProtocolUDP {
		return false
	}
	return totalLess(a.SRTT(), b.SRTT())
}

// configLess orders connection configs. Under an enabled encryption
// policy a config whose exact protocol recently succeeded for this
// address ranks first. With that status equal on both sides, UDP ranks
// before other protocols and everything else ties, leaving earlier
// configs in place.
func configLess(addr netip.Addr, state TransportState, policy domain.EncryptionPolicy, a, b domain.ConnConfig) bool {
	if policy.Enabled {
		ar := a.Protocol.IsEncrypted() && state.RecentSuccess(addr, a.Protocol, policy)
		br := b.Protocol.IsEncrypted() && state.RecentSuccess(addr, b.Protocol, policy)
		if ar != br {
			return ar
		}
	}
	if a.Protocol == b.Protocol {
		return false
	}
	if a.Protocol == domain.ProtocolUDP {
		return true
	}
	return false
}

// totalLess is a total order over float64 latencies: NaN sorts after
// every finite value, so a connection with no timing sample never wins a
// comparison against one that has real measurements.
func totalLess(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}
