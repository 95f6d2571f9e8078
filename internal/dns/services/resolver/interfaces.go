package resolver

import (
	"context"
	"net/netip"
	"time"

	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/selection"
)

// QueryMessage is an encoded DNS question together with everything the
// matching answer must echo back for the exchange to be trusted.
type QueryMessage struct {
	ID    uint16
	Name  string // qname as encoded, mixed case when 0x20 encoding is on
	Type  domain.RRType
	Class domain.RRClass
	Data  []byte
}

// Codec translates questions into wire messages and upstream answers
// back into domain responses.
type Codec interface {
	// EncodeQuery builds the wire form of q under the given message ID.
	// DNS-over-HTTPS exchanges use ID zero. When mixCase is set the qname
	// casing is randomized for off-path spoofing resistance.
	EncodeQuery(q domain.Question, id uint16, mixCase bool) (QueryMessage, error)

	// DecodeResponse parses an upstream answer and verifies it against
	// the message that was sent. Mismatches wrap ErrResponseMismatch.
	DecodeResponse(data []byte, sent QueryMessage) (domain.Response, error)
}

// Conn is a live upstream connection usable for exchanges.
type Conn interface {
	Protocol() domain.Protocol
	SRTT() float64
	RemoteAddr() netip.AddrPort
	Exchange(ctx context.Context, msg []byte) ([]byte, time.Duration, error)
}

// ConnectionPool hands out established upstream connections and dials
// new ones on demand.
type ConnectionPool interface {
	// Established returns the live connections for addr, if any.
	Established(addr netip.Addr) []Conn

	// Dial opens a connection described by cfg and registers it for
	// reuse by later queries.
	Dial(ctx context.Context, cfg domain.ConnConfig) (Conn, error)

	// Evict drops a connection previously returned by Established or
	// Dial, closing it. Used when an exchange shows the connection is
	// dead.
	Evict(addr netip.Addr, conn Conn)
}

// TransportHistory records per-server transport outcomes and answers
// the recency questions connection selection asks.
type TransportHistory interface {
	selection.TransportState

	RecordSuccess(addr netip.Addr, proto domain.Protocol) error
	RecordFailure(addr netip.Addr, proto domain.Protocol) error
}

// MessageCache holds upstream responses until their shortest TTL runs
// out.
type MessageCache interface {
	Get(key string) (domain.Response, bool)
	Set(key string, resp domain.Response)
}

// Hosts answers questions from a local static host database before any
// network traffic happens.
type Hosts interface {
	Lookup(q domain.Question) ([]domain.ResourceRecord, bool)
}

// TruncationMemory remembers which queries have recently needed more
// than a UDP payload can carry, so they can start over a stream
// transport next time.
type TruncationMemory interface {
	Observe(key string)
	Likely(key string) bool
}
