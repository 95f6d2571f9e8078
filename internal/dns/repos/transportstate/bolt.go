package transportstate

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

var successBucket = []byte("transport_success")

// PersistentState wraps State with a bbolt-backed record of encrypted
// transport successes so opportunistic-encryption knowledge survives
// restarts. Reads are served from memory; successes write through.
// Failures stay memory-only.
type PersistentState struct {
	*State
	db *bbolt.DB
}

// NewPersistent opens (or creates) the database at path and loads any
// previously recorded successes into a fresh State reading time from clk.
func NewPersistent(path string, clk clock.Clock) (*PersistentState, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open transport state db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(successBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	p := &PersistentState{State: New(clk), db: db}
	if err := p.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the underlying database file.
func (p *PersistentState) Close() error {
	return p.db.Close()
}

// RecordSuccess updates the in-memory state and writes the stamp through
// to disk so it survives a restart.
func (p *PersistentState) RecordSuccess(addr netip.Addr, proto domain.Protocol) error {
	if !proto.IsEncrypted() {
		return nil
	}
	now := p.clock.Now()
	p.recordSuccessAt(addr, proto, now)
	return p.db.Update(func(tx *bbolt.Tx) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(now.UnixNano()))
		return tx.Bucket(successBucket).Put(successKey(addr, proto), buf[:])
	})
}

// load replays persisted stamps into memory. Entries that no longer
// parse are skipped so a damaged database degrades to an empty history
// instead of blocking startup.
func (p *PersistentState) load() error {
	return p.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(successBucket).ForEach(func(k, v []byte) error {
			addr, proto, ok := parseSuccessKey(k)
			if !ok || len(v) != 8 {
				return nil
			}
			if !proto.IsEncrypted() {
				return nil
			}
			stamp := time.Unix(0, int64(binary.BigEndian.Uint64(v)))
			p.recordSuccessAt(addr, proto, stamp)
			return nil
		})
	})
}

func successKey(addr netip.Addr, proto domain.Protocol) []byte {
	return []byte(addr.String() + "|" + proto.String())
}

func parseSuccessKey(k []byte) (netip.Addr, domain.Protocol, bool) {
	parts := strings.SplitN(string(k), "|", 2)
	if len(parts) != 2 {
		return netip.Addr{}, 0, false
	}
	addr, err := netip.ParseAddr(parts[0])
	if err != nil {
		return netip.Addr{}, 0, false
	}
	proto, err := domain.ParseProtocol(parts[1])
	if err != nil {
		return netip.Addr{}, 0, false
	}
	return addr, proto, true
}

var _ resolver.TransportHistory = (*PersistentState)(nil)
