// Package msgcache caches upstream DNS responses keyed by question until
// their shortest TTL runs out.
package msgcache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

type entry struct {
	resp     domain.Response
	storedAt time.Time
	lifetime time.Duration
}

// msgCache is a TTL-aware LRU cache of upstream responses. An entry
// lives for the shortest TTL across the response's records; on a hit
// the record TTLs come back decremented by the time spent in cache.
type msgCache struct {
	lru   *lru.Cache[string, entry]
	clock clock.Clock
}

// New returns a message cache holding at most size responses, reading
// time from clk. A nil clk falls back to the system clock.
func New(size int, clk clock.Clock) (*msgCache, error) {
	c, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &msgCache{lru: c, clock: clk}, nil
}

// Set stores resp under key. Responses whose shortest TTL is zero are
// not cacheable and are dropped. Negative answers carrying an SOA in
// the authority section cache for that record's TTL.
func (c *msgCache) Set(key string, resp domain.Response) {
	ttl := resp.MinTTL()
	if ttl == 0 {
		return
	}
	c.lru.Add(key, entry{
		resp:     resp,
		storedAt: c.clock.Now(),
		lifetime: time.Duration(ttl) * time.Second,
	})
}

// Get returns the cached response for key with record TTLs decremented
// by the entry's age. Expired entries are evicted on access.
func (c *msgCache) Get(key string) (domain.Response, bool) {
	e, found := c.lru.Get(key)
	if !found {
		return domain.Response{}, false
	}
	age := c.clock.Now().Sub(e.storedAt)
	if age > e.lifetime {
		c.lru.Remove(key)
		return domain.Response{}, false
	}
	return ageResponse(e.resp, age), true
}

// Delete removes the entry for the given key from the cache.
func (c *msgCache) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of responses currently cached.
func (c *msgCache) Len() int {
	return c.lru.Len()
}

// Keys returns a slice of all current cache keys.
func (c *msgCache) Keys() []string {
	return c.lru.Keys()
}

func ageResponse(resp domain.Response, age time.Duration) domain.Response {
	elapsed := uint32(age / time.Second)
	out := resp
	out.Answers = ageRecords(resp.Answers, elapsed)
	out.Authority = ageRecords(resp.Authority, elapsed)
	out.Additional = ageRecords(resp.Additional, elapsed)
	return out
}

// ageRecords copies records with TTLs reduced by elapsed seconds. The
// stored entry is shared between hits and must never be mutated.
func ageRecords(records []domain.ResourceRecord, elapsed uint32) []domain.ResourceRecord {
	if len(records) == 0 {
		return records
	}
	out := make([]domain.ResourceRecord, len(records))
	for i, rr := range records {
		var ttl uint32
		if rr.TTL > elapsed {
			ttl = rr.TTL - elapsed
		}
		out[i] = rr.WithTTL(ttl)
	}
	return out
}

var _ resolver.MessageCache = (*msgCache)(nil)
