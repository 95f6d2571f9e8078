package oversize

import (
	"fmt"
	"testing"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
)

func TestMemory_ObserveThenLikely(t *testing.T) {
	m := New(128, 0.01, time.Hour, &clock.MockClock{CurrentTime: time.Now()})

	if m.Likely("example.com.|A|IN") {
		t.Fatalf("fresh memory should not flag anything")
	}
	m.Observe("example.com.|A|IN")
	if !m.Likely("example.com.|A|IN") {
		t.Fatalf("observed key should be flagged")
	}
	if m.Likely("other.com.|AAAA|IN") {
		t.Errorf("unobserved key should not be flagged")
	}
}

func TestMemory_RotationClearsObservations(t *testing.T) {
	clk := &clock.MockClock{CurrentTime: time.Now()}
	m := New(128, 0.01, 30*time.Minute, clk)

	m.Observe("example.com.|TXT|IN")
	clk.Advance(29 * time.Minute)
	if !m.Likely("example.com.|TXT|IN") {
		t.Fatalf("observation inside the window should survive")
	}

	clk.Advance(2 * time.Minute)
	if m.Likely("example.com.|TXT|IN") {
		t.Errorf("observation should be gone after the window rotates")
	}

	// New observations land in the fresh filter.
	m.Observe("fresh.com.|TXT|IN")
	if !m.Likely("fresh.com.|TXT|IN") {
		t.Errorf("post-rotation observation should be flagged")
	}
}

func TestMemory_DefaultsApplied(t *testing.T) {
	m := New(0, 0, 0, nil)
	m.Observe("k")
	if !m.Likely("k") {
		t.Fatalf("memory built from defaults should still work")
	}
}

func TestMemory_FalsePositiveRateStaysReasonable(t *testing.T) {
	m := New(1000, 0.01, time.Hour, &clock.MockClock{CurrentTime: time.Now()})
	for i := 0; i < 1000; i++ {
		m.Observe(fmt.Sprintf("site%d.com.|A|IN", i))
	}

	fp := 0
	probes := 10_000
	for i := 0; i < probes; i++ {
		if m.Likely(fmt.Sprintf("absent%d.org.|A|IN", i)) {
			fp++
		}
	}
	// At the design point the FP rate is 1%; leave generous slack so the
	// test is not sensitive to hash quirks.
	if fp > probes/20 {
		t.Errorf("false positive rate too high: %d/%d", fp, probes)
	}
}

func TestSize_CommonCases(t *testing.T) {
	// n=1e6, p=1% → m≈9.585e6 bits, k≈7
	m, k := size(1_000_000, 0.01)
	if m < 9_500_000 || m > 9_700_000 {
		t.Fatalf("n=1e6,p=0.01: unexpected m=%d (expected around 9.6e6)", m)
	}
	if k != 7 {
		t.Fatalf("n=1e6,p=0.01: k=%d; want 7", k)
	}

	// p=0.5 → k rounds to 1
	_, k = size(10_000, 0.5)
	if k != 1 {
		t.Fatalf("p=0.5: k=%d; want 1", k)
	}
}

func TestSize_ClampingAndDefaults(t *testing.T) {
	m, k := size(0, 0)
	if m == 0 || k == 0 {
		t.Fatalf("n=0,p=0: expected m>=1 and k>=1; got m=%d k=%d", m, k)
	}
	m, k = size(100, 1.0)
	if m == 0 || k == 0 {
		t.Fatalf("p>=1 default: expected m>=1 and k>=1; got m=%d k=%d", m, k)
	}
}
