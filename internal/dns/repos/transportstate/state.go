// Package transportstate tracks which encrypted transports have recently
// worked for each upstream address. The resolver's dial path records
// outcomes; connection selection reads them to decide when an
// opportunistic upgrade to an encrypted transport is warranted.
package transportstate

import (
	"net/netip"
	"sync"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

// State is the in-memory transport history shared across every name
// server of a resolver. Reads and writes are internally synchronized.
// Entries age out through the policy window check rather than explicit
// eviction; the server set is small and bounded by configuration.
type State struct {
	mu        sync.RWMutex
	successes map[netip.Addr]map[domain.Protocol]time.Time
	failures  map[netip.Addr]map[domain.Protocol]time.Time
	clock     clock.Clock
}

// New returns an empty State reading time from clk. A nil clk falls back
// to the system clock.
func New(clk clock.Clock) *State {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &State{
		successes: make(map[netip.Addr]map[domain.Protocol]time.Time),
		failures:  make(map[netip.Addr]map[domain.Protocol]time.Time),
		clock:     clk,
	}
}

// RecordSuccess stores the current time as the most recent success for
// addr over proto. Cleartext protocols are ignored: only encrypted
// transports feed the opportunistic-encryption decision.
func (s *State) RecordSuccess(addr netip.Addr, proto domain.Protocol) error {
	if !proto.IsEncrypted() {
		return nil
	}
	s.recordSuccessAt(addr, proto, s.clock.Now())
	return nil
}

func (s *State) recordSuccessAt(addr netip.Addr, proto domain.Protocol, stamp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.successes[addr]
	if m == nil {
		m = make(map[domain.Protocol]time.Time)
		s.successes[addr] = m
	}
	// Stamps only move forward so a restored snapshot can never shadow a
	// live observation.
	if stamp.After(m[proto]) {
		m[proto] = stamp
	}
}

// RecordFailure notes a failed attempt for diagnostics. It never touches
// recorded successes: within the validity window a success stays fresh no
// matter how many failures follow, which is what keeps the client from
// flapping between encrypted and cleartext transports.
func (s *State) RecordFailure(addr netip.Addr, proto domain.Protocol) error {
	if !proto.IsEncrypted() {
		return nil
	}
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.failures[addr]
	if m == nil {
		m = make(map[domain.Protocol]time.Time)
		s.failures[addr] = m
	}
	m[proto] = now
	return nil
}

// RecentSuccess reports whether the exact protocol succeeded for addr
// within the policy's validity window.
func (s *State) RecentSuccess(addr netip.Addr, proto domain.Protocol, policy domain.EncryptionPolicy) bool {
	s.mu.RLock()
	stamp, ok := s.successes[addr][proto]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return s.clock.Now().Sub(stamp) <= policy.ValidWindow()
}

// AnyRecentSuccess reports whether any encrypted protocol succeeded for
// addr within the policy's validity window.
func (s *State) AnyRecentSuccess(addr netip.Addr, policy domain.EncryptionPolicy) bool {
	now := s.clock.Now()
	window := policy.ValidWindow()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stamp := range s.successes[addr] {
		if now.Sub(stamp) <= window {
			return true
		}
	}
	return false
}

// LastFailure returns the most recent failure recorded for addr over
// proto, for diagnostics.
func (s *State) LastFailure(addr netip.Addr, proto domain.Protocol) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stamp, ok := s.failures[addr][proto]
	return stamp, ok
}

// Snapshot returns a copy of all recorded successes keyed by address and
// protocol. Persistence uses it; callers own the returned maps.
func (s *State) Snapshot() map[netip.Addr]map[domain.Protocol]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[netip.Addr]map[domain.Protocol]time.Time, len(s.successes))
	for addr, m := range s.successes {
		cp := make(map[domain.Protocol]time.Time, len(m))
		for proto, stamp := range m {
			cp[proto] = stamp
		}
		out[addr] = cp
	}
	return out
}

// Restore merges recorded successes into the state, keeping the newer
// stamp when both sides have one.
func (s *State) Restore(entries map[netip.Addr]map[domain.Protocol]time.Time) {
	for addr, m := range entries {
		for proto, stamp := range m {
			if !proto.IsEncrypted() {
				continue
			}
			s.recordSuccessAt(addr, proto, stamp)
		}
	}
}

var _ resolver.TransportHistory = (*State)(nil)
