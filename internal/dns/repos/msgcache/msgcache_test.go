package msgcache

import (
	"testing"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T, size int) (*msgCache, *clock.MockClock) {
	t.Helper()
	clk := &clock.MockClock{CurrentTime: testNow}
	c, err := New(size, clk)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c, clk
}

func answer(name string, ttl uint32) domain.ResourceRecord {
	return domain.ResourceRecord{Name: name, Type: domain.RRTypeA, Class: domain.RRClassIN, TTL: ttl, Data: "192.0.2.1"}
}

func TestInvalidCacheSize(t *testing.T) {
	_, err := New(-1, nil)
	if err == nil {
		t.Errorf("expected error for negative cache size, got nil")
	}
}

func TestMsgCache_Get_ReturnsResponseIfNotExpired(t *testing.T) {
	c, clk := newTestCache(t, 2)
	resp := domain.Response{Answers: []domain.ResourceRecord{answer("example.com.", 300)}}
	c.Set("example.com.|A|IN", resp)

	clk.Advance(100 * time.Second)
	got, ok := c.Get("example.com.|A|IN")
	if !ok {
		t.Fatalf("expected response to be found")
	}
	if len(got.Answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(got.Answers))
	}
	if got.Answers[0].TTL != 200 {
		t.Errorf("expected TTL decremented to 200, got %d", got.Answers[0].TTL)
	}
}

func TestMsgCache_Get_DoesNotMutateStoredEntry(t *testing.T) {
	c, clk := newTestCache(t, 2)
	resp := domain.Response{Answers: []domain.ResourceRecord{answer("example.com.", 300)}}
	c.Set("k", resp)

	clk.Advance(100 * time.Second)
	if got, _ := c.Get("k"); got.Answers[0].TTL != 200 {
		t.Fatalf("first hit: expected TTL 200, got %d", got.Answers[0].TTL)
	}
	clk.Advance(50 * time.Second)
	if got, _ := c.Get("k"); got.Answers[0].TTL != 150 {
		t.Errorf("second hit: expected TTL 150 from original stamp, got %d", got.Answers[0].TTL)
	}
}

func TestMsgCache_Get_ReturnsFalseIfExpired(t *testing.T) {
	c, clk := newTestCache(t, 2)
	resp := domain.Response{Answers: []domain.ResourceRecord{answer("expired.com.", 60)}}
	c.Set("expired.com.|A|IN", resp)

	clk.Advance(61 * time.Second)
	if got, ok := c.Get("expired.com.|A|IN"); ok {
		t.Errorf("expected not found for expired entry, got %v", got)
	}
	// Should be evicted after Get
	if c.Len() != 0 {
		t.Errorf("expected cache to be empty after expired Get, got %d", c.Len())
	}
}

func TestMsgCache_Get_ReturnsFalseIfNotPresent(t *testing.T) {
	c, _ := newTestCache(t, 2)
	if got, ok := c.Get("missing.com.|A|IN"); ok {
		t.Errorf("expected not found for missing key, got %v", got)
	}
}

func TestMsgCache_Set_DropsUncacheableResponses(t *testing.T) {
	c, _ := newTestCache(t, 2)

	c.Set("empty", domain.Response{})
	c.Set("zero-ttl", domain.Response{Answers: []domain.ResourceRecord{answer("example.com.", 0)}})

	if c.Len() != 0 {
		t.Errorf("expected uncacheable responses to be dropped, got %d entries", c.Len())
	}
}

func TestMsgCache_LifetimeIsShortestTTLAcrossSections(t *testing.T) {
	c, clk := newTestCache(t, 2)
	resp := domain.Response{
		Answers: []domain.ResourceRecord{answer("example.com.", 300)},
		Authority: []domain.ResourceRecord{
			{Name: "com.", Type: domain.RRTypeNS, Class: domain.RRClassIN, TTL: 60, Data: "a.gtld-servers.net."},
		},
	}
	c.Set("k", resp)

	clk.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected hit before shortest TTL runs out")
	}
	clk.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Errorf("expected miss once shortest TTL ran out")
	}
}

func TestMsgCache_NegativeResponseCachesOnAuthorityTTL(t *testing.T) {
	c, clk := newTestCache(t, 2)
	resp := domain.Response{
		RCode: domain.RCodeNXDomain,
		Authority: []domain.ResourceRecord{
			{Name: "example.com.", Type: domain.RRTypeSOA, Class: domain.RRClassIN, TTL: 120, Data: "ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 120"},
		},
	}
	c.Set("nx", resp)

	clk.Advance(100 * time.Second)
	got, ok := c.Get("nx")
	if !ok {
		t.Fatalf("expected negative response to be cached")
	}
	if got.RCode != domain.RCodeNXDomain {
		t.Errorf("expected NXDOMAIN rcode preserved, got %v", got.RCode)
	}
	if got.Authority[0].TTL != 20 {
		t.Errorf("expected authority TTL decremented to 20, got %d", got.Authority[0].TTL)
	}
}

func TestMsgCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2)
	c.Set("a", domain.Response{Answers: []domain.ResourceRecord{answer("a.com.", 300)}})
	c.Set("b", domain.Response{Answers: []domain.ResourceRecord{answer("b.com.", 300)}})
	c.Set("c", domain.Response{Answers: []domain.ResourceRecord{answer("c.com.", 300)}})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries after eviction, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Errorf("expected oldest entry to be evicted")
	}
}

func TestMsgCache_DeleteAndKeys(t *testing.T) {
	c, _ := newTestCache(t, 3)
	c.Set("a", domain.Response{Answers: []domain.ResourceRecord{answer("a.com.", 300)}})
	c.Set("b", domain.Response{Answers: []domain.ResourceRecord{answer("b.com.", 300)}})

	if len(c.Keys()) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(c.Keys()))
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Errorf("expected deleted entry to be gone")
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry after delete, got %d", c.Len())
	}
}
