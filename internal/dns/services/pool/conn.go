package pool

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

// Conn wraps a live transport with the metadata connection selection
// ranks on: the protocol and a smoothed round trip time fed by every
// successful exchange. Exchanges are serialized per connection; the
// transports themselves do not lock.
type Conn struct {
	mu   sync.Mutex
	tr   Transport
	addr netip.AddrPort
	srtt SRTT
	clk  clock.Clock

	// lastUsed holds unix nanoseconds so the pool can read it while an
	// exchange is in flight.
	lastUsed atomic.Int64
}

func newConn(tr Transport, addr netip.AddrPort, clk clock.Clock) *Conn {
	c := &Conn{tr: tr, addr: addr, clk: clk}
	c.touch()
	return c
}

func (c *Conn) touch() {
	c.lastUsed.Store(c.clk.Now().UnixNano())
}

func (c *Conn) lastUsedTime() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

// Protocol reports the transport protocol of the connection.
func (c *Conn) Protocol() domain.Protocol {
	return c.tr.Protocol()
}

// RemoteAddr reports the server address the connection talks to.
func (c *Conn) RemoteAddr() netip.AddrPort {
	return c.addr
}

// SRTT returns the smoothed round trip time in milliseconds, NaN before
// the first exchange completes.
func (c *Conn) SRTT() float64 {
	return c.srtt.Value()
}

// Exchange sends one encoded query over the connection. The measured
// round trip feeds the SRTT estimate; failed exchanges do not, so a
// timeout cannot poison the average.
func (c *Conn) Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touch()
	resp, rtt, err := c.tr.Exchange(ctx, msg)
	if err != nil {
		return nil, rtt, err
	}
	c.srtt.Observe(rtt)
	return resp, rtt, nil
}

// Close shuts the underlying transport down.
func (c *Conn) Close() error {
	return c.tr.Close()
}

var _ resolver.Conn = (*Conn)(nil)
