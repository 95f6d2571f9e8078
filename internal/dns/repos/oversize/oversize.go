// Package oversize remembers which questions have recently produced
// answers too large for a UDP payload, so repeat queries can start over
// a stream transport instead of burning a round trip on a truncated
// answer. A Bloom filter keeps the memory bounded; a false positive only
// costs a query its UDP attempt.
package oversize

import (
	"sync"
	"time"

	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

const (
	// DefaultCapacity is the expected number of distinct oversized
	// questions within one rotation window.
	DefaultCapacity = 4096

	// DefaultFPRate is the target false-positive rate at capacity.
	DefaultFPRate = 0.01

	// DefaultWindow is how long observations persist before the filter
	// is cleared.
	DefaultWindow = 1 * time.Hour
)

// Memory is a rotating Bloom filter over question cache keys. Filters
// cannot forget individual entries, so the whole filter resets once per
// window instead.
type Memory struct {
	mu        sync.RWMutex
	bf        *bitsbloom.BloomFilter
	clock     clock.Clock
	window    time.Duration
	rotatedAt time.Time
}

// New returns a Memory sized for capacity entries at the given
// false-positive rate, clearing itself every window. Out-of-range
// arguments fall back to the package defaults.
func New(capacity uint64, fpRate float64, window time.Duration, clk clock.Clock) *Memory {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	m, k := size(capacity, fpRate)
	return &Memory{
		bf:        bitsbloom.New(uint(m), uint(k)),
		clock:     clk,
		window:    window,
		rotatedAt: clk.Now(),
	}
}

// Observe records that the question behind key came back truncated.
func (m *Memory) Observe(key string) {
	m.maybeRotate()
	m.mu.Lock()
	m.bf.Add([]byte(key))
	m.mu.Unlock()
}

// Likely reports whether the question behind key has recently needed
// more than a UDP payload can carry.
func (m *Memory) Likely(key string) bool {
	m.maybeRotate()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bf.Test([]byte(key))
}

func (m *Memory) maybeRotate() {
	now := m.clock.Now()
	m.mu.RLock()
	stale := now.Sub(m.rotatedAt) > m.window
	m.mu.RUnlock()
	if !stale {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.rotatedAt) > m.window {
		m.bf.ClearAll()
		m.rotatedAt = now
	}
}

var _ resolver.TruncationMemory = (*Memory)(nil)
