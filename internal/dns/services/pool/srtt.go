package pool

import (
	"math"
	"sync/atomic"
	"time"
)

// srttAlpha is the smoothing factor for the round trip estimator, the
// same weight TCP uses for its SRTT (RFC 6298).
const srttAlpha = 0.125

// SRTT tracks the smoothed round trip time of one connection as an
// exponentially weighted moving average, in milliseconds. The zero value
// reports NaN until the first sample arrives. Safe for concurrent use;
// readers never see a torn value.
type SRTT struct {
	bits atomic.Uint64
}

// Observe folds one measured round trip into the estimate.
func (s *SRTT) Observe(rtt time.Duration) {
	sample := float64(rtt) / float64(time.Millisecond)
	if sample <= 0 {
		// A zero sample would read back as unset; clamp to a microsecond.
		sample = 0.001
	}
	for {
		old := s.bits.Load()
		next := sample
		if old != 0 {
			next = (1-srttAlpha)*math.Float64frombits(old) + srttAlpha*sample
		}
		if s.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// Value returns the current estimate in milliseconds, or NaN when no
// sample has been observed yet.
func (s *SRTT) Value() float64 {
	bits := s.bits.Load()
	if bits == 0 {
		return math.NaN()
	}
	return math.Float64frombits(bits)
}
