package resolver

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"

	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/selection"
)

// queryServer runs the attempt loop against one server: pick or dial a
// connection, exchange the query, and decide whether a failure is worth
// another attempt with tightened preferences. Preference changes persist
// for the rest of the lookup, including later servers.
func (r *Resolver) queryServer(ctx context.Context, server domain.Server, q domain.Question, key string, prefs *domain.Preferences) (domain.Response, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		conn, err := r.pickConnection(ctx, server, *prefs)
		if err != nil {
			return domain.Response{}, err
		}

		msg, err := r.encodeFor(conn, q)
		if err != nil {
			return domain.Response{}, err
		}

		raw, rtt, err := conn.Exchange(ctx, msg.Data)
		if err != nil {
			r.noteFailure(server.Addr, conn)
			return domain.Response{}, fmt.Errorf("exchange with %s over %s: %v", server.Addr, conn.Protocol(), err)
		}

		resp, err := r.codec.DecodeResponse(raw, msg)
		if err != nil {
			if errors.Is(err, ErrResponseMismatch) && conn.Protocol() == domain.ProtocolUDP {
				// An off-path answer cannot match both a random ID and the
				// randomized qname casing; finish this lookup on stream
				// transports instead of trusting UDP again.
				prefs.ExcludeUDP()
				r.logger.Warn(map[string]any{
					"server": server.Addr.String(),
					"query":  q.String(),
				}, "Suspicious answer over UDP, retrying on a stream transport")
				lastErr = err
				continue
			}
			r.noteFailure(server.Addr, conn)
			return domain.Response{}, err
		}

		if resp.Truncated && conn.Protocol() == domain.ProtocolUDP {
			if r.truncation != nil {
				r.truncation.Observe(key)
			}
			prefs.ExcludeUDP()
			r.logger.Debug(map[string]any{
				"server": server.Addr.String(),
				"query":  q.String(),
			}, "Truncated answer, retrying on a stream transport")
			lastErr = errors.New("answer truncated over UDP")
			continue
		}

		if err := r.history.RecordSuccess(server.Addr, conn.Protocol()); err != nil {
			r.logger.Warn(map[string]any{
				"server": server.Addr.String(),
				"error":  err.Error(),
			}, "Failed to record transport success")
		}

		resp.Server = conn.RemoteAddr()
		resp.Proto = conn.Protocol()
		resp.RTT = rtt
		r.logger.Debug(map[string]any{
			"server":  resp.Server.String(),
			"proto":   resp.Proto.String(),
			"query":   q.String(),
			"rcode":   resp.RCode.String(),
			"answers": resp.AnswerCount(),
			"rtt_ms":  rtt.Milliseconds(),
		}, "Query resolved")
		return resp, nil
	}
	return domain.Response{}, fmt.Errorf("server %s: retries exhausted: %v", server.Addr, lastErr)
}

// pickConnection returns the connection the next attempt should use,
// either an established one or a fresh dial chosen by config selection.
func (r *Resolver) pickConnection(ctx context.Context, server domain.Server, prefs domain.Preferences) (Conn, error) {
	conns := r.pool.Established(server.Addr)
	if conn, ok := selection.SelectConnection(prefs, server.Addr, r.history, r.policy, conns); ok {
		return conn, nil
	}

	cfg, ok := selection.SelectConnConfig(prefs, server.Addr, r.history, r.policy, server.Configs)
	if !ok {
		return nil, fmt.Errorf("%w: server %s", ErrNoUsableConnection, server.Addr)
	}
	conn, err := r.pool.Dial(ctx, cfg)
	if err != nil {
		if rerr := r.history.RecordFailure(server.Addr, cfg.Protocol); rerr != nil {
			r.logger.Warn(map[string]any{
				"server": server.Addr.String(),
				"error":  rerr.Error(),
			}, "Failed to record transport failure")
		}
		return nil, fmt.Errorf("dial %s: %v", cfg, err)
	}
	return conn, nil
}

// encodeFor builds the wire message for this connection. HTTPS exchanges
// use message ID zero per RFC 8484; everything else draws a fresh random
// ID. Case randomization applies only where spoofing is a threat, on
// UDP.
func (r *Resolver) encodeFor(conn Conn, q domain.Question) (QueryMessage, error) {
	var id uint16
	if conn.Protocol() != domain.ProtocolHTTPS {
		var err error
		if id, err = randomID(); err != nil {
			return QueryMessage{}, fmt.Errorf("generate message id: %v", err)
		}
	}
	mixCase := r.mixCase && conn.Protocol() == domain.ProtocolUDP
	return r.codec.EncodeQuery(q, id, mixCase)
}

// noteFailure records a transport failure and drops the connection from
// the pool.
func (r *Resolver) noteFailure(addr netip.Addr, conn Conn) {
	if err := r.history.RecordFailure(addr, conn.Protocol()); err != nil {
		r.logger.Warn(map[string]any{
			"server": addr.String(),
			"error":  err.Error(),
		}, "Failed to record transport failure")
	}
	r.pool.Evict(addr, conn)
}

// randomID draws a message ID from the system entropy source.
func randomID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}
