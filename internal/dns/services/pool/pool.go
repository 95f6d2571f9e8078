// Package pool tracks the live upstream connections a resolver holds,
// keyed by server address. Connection selection ranks what Established
// returns; the dial path adds new transports after a config has been
// chosen.
package pool

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

// DefaultMaxIdle is how long an unused connection stays in the pool when
// Options does not say otherwise. Resolvers drop idle TCP and TLS
// sessions on their side well before most OS keepalives notice, so
// holding connections much longer only hands out dead ones.
const DefaultMaxIdle = 30 * time.Second

// Transport is the slice of a dialed network transport the pool needs.
// The concrete implementations live in the transport gateway and are
// injected through the Dialer.
type Transport interface {
	Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error)
	Protocol() domain.Protocol
	Close() error
}

// Dialer opens a transport for a connection config.
type Dialer func(ctx context.Context, cfg domain.ConnConfig) (Transport, error)

// Options configure a Pool.
type Options struct {
	// Dial opens new transports. Required.
	Dial Dialer

	// MaxIdle is how long a connection may sit unused before Established
	// stops handing it out and closes it. Zero means DefaultMaxIdle.
	MaxIdle time.Duration

	Clock  clock.Clock
	Logger log.Logger
}

// Pool is a registry of live upstream connections. It keeps at most one
// connection per server address and protocol; dialing a protocol that is
// already connected replaces the old connection. Idle connections are
// closed lazily when their server is next looked up, so the pool runs no
// background goroutine.
type Pool struct {
	mu      sync.RWMutex
	conns   map[netip.Addr][]*Conn
	dial    Dialer
	maxIdle time.Duration
	clk     clock.Clock
	logger  log.Logger
}

// New creates an empty pool.
func New(opts Options) (*Pool, error) {
	if opts.Dial == nil {
		return nil, errors.New("pool requires a dialer")
	}
	maxIdle := opts.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Pool{
		conns:   make(map[netip.Addr][]*Conn),
		dial:    opts.Dial,
		maxIdle: maxIdle,
		clk:     clk,
		logger:  logger,
	}, nil
}

// Established returns the live connections for addr in the order they
// were opened. Connections idle past MaxIdle are dropped and closed
// instead of returned.
func (p *Pool) Established(addr netip.Addr) []resolver.Conn {
	deadline := p.clk.Now().Add(-p.maxIdle)

	p.mu.Lock()
	list := p.conns[addr]
	var out []resolver.Conn
	var stale []*Conn
	kept := list[:0]
	for _, c := range list {
		if c.lastUsedTime().Before(deadline) {
			stale = append(stale, c)
			continue
		}
		kept = append(kept, c)
		out = append(out, c)
	}
	if len(kept) == 0 {
		delete(p.conns, addr)
	} else {
		p.conns[addr] = kept
	}
	p.mu.Unlock()

	for _, c := range stale {
		_ = c.Close()
		p.logger.Debug(map[string]any{
			"server": addr.String(),
			"proto":  c.Protocol().String(),
		}, "Idle upstream connection closed")
	}
	return out
}

// Dial opens a connection for cfg and registers it under the server
// address. An existing connection with the same protocol is replaced and
// closed.
func (p *Pool) Dial(ctx context.Context, cfg domain.ConnConfig) (resolver.Conn, error) {
	tr, err := p.dial(ctx, cfg)
	if err != nil {
		p.logger.Debug(map[string]any{
			"server": cfg.AddrPort.String(),
			"proto":  cfg.Protocol.String(),
			"error":  err.Error(),
		}, "Failed to establish upstream connection")
		return nil, err
	}

	conn := newConn(tr, cfg.AddrPort, p.clk)
	addr := cfg.Addr()

	p.mu.Lock()
	var stale *Conn
	list := p.conns[addr]
	for i, existing := range list {
		if existing.Protocol() == cfg.Protocol {
			stale = existing
			list[i] = conn
			break
		}
	}
	if stale == nil {
		p.conns[addr] = append(list, conn)
	}
	p.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}
	p.logger.Debug(map[string]any{
		"server": cfg.AddrPort.String(),
		"proto":  cfg.Protocol.String(),
	}, "Upstream connection established")
	return conn, nil
}

// Evict removes conn from the pool and closes it. Unknown connections
// are closed anyway so callers can evict unconditionally.
func (p *Pool) Evict(addr netip.Addr, conn resolver.Conn) {
	target, ok := conn.(*Conn)
	if !ok {
		return
	}

	p.mu.Lock()
	list := p.conns[addr]
	for i, existing := range list {
		if existing == target {
			p.conns[addr] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(p.conns[addr]) == 0 {
		delete(p.conns, addr)
	}
	p.mu.Unlock()

	_ = target.Close()
	p.logger.Debug(map[string]any{
		"server": addr.String(),
		"proto":  target.Protocol().String(),
	}, "Upstream connection evicted")
}

// Close shuts down every connection in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	conns := p.conns
	p.conns = make(map[netip.Addr][]*Conn)
	p.mu.Unlock()

	var firstErr error
	for _, list := range conns {
		for _, c := range list {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ resolver.ConnectionPool = (*Pool)(nil)
