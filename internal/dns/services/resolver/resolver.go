// Package resolver orchestrates a single DNS lookup: local hosts
// overrides first, then the response cache, then the configured upstream
// servers over whichever transport connection selection ranks best.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// Resolver answers DNS questions against a set of upstream servers.
type Resolver struct {
	servers    []domain.Server
	pool       ConnectionPool
	codec      Codec
	history    TransportHistory
	cache      MessageCache
	hosts      Hosts
	truncation TruncationMemory
	policy     domain.EncryptionPolicy
	mixCase    bool
	attempts   int
	logger     log.Logger
}

// Options carries the collaborators and policy for a Resolver. Cache,
// Hosts, and Truncation are optional; the rest are required.
type Options struct {
	Servers    []domain.Server
	Pool       ConnectionPool
	Codec      Codec
	History    TransportHistory
	Cache      MessageCache
	Hosts      Hosts
	Truncation TruncationMemory
	Policy     domain.EncryptionPolicy

	// MixCase randomizes qname letter casing on UDP exchanges so an
	// off-path spoofer has to guess the casing as well as the ID.
	MixCase bool

	// Attempts bounds how many exchanges one server gets within a single
	// lookup. Zero means the default.
	Attempts int

	Logger log.Logger
}

// defaultAttempts is the per-server attempt bound when Options does not
// set one. Preferences only tighten between attempts, so the loop cannot
// cycle: once UDP is excluded the next attempt runs on a stream
// transport, and stream failures end the loop.
const defaultAttempts = 3

// New builds a Resolver from its options.
func New(opts Options) (*Resolver, error) {
	if len(opts.Servers) == 0 {
		return nil, errors.New("resolver requires at least one upstream server")
	}
	if opts.Pool == nil || opts.Codec == nil || opts.History == nil {
		return nil, errors.New("resolver requires a pool, a codec, and transport history")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &Resolver{
		servers:    opts.Servers,
		pool:       opts.Pool,
		codec:      opts.Codec,
		history:    opts.History,
		cache:      opts.Cache,
		hosts:      opts.Hosts,
		truncation: opts.Truncation,
		policy:     opts.Policy,
		mixCase:    opts.MixCase,
		attempts:   attempts,
		logger:     logger,
	}, nil
}

// Resolve answers one question. Local hosts mappings and cached answers
// short-circuit before any network traffic; otherwise servers are tried
// in configured order until one produces an answer.
func (r *Resolver) Resolve(ctx context.Context, q domain.Question) (domain.Response, error) {
	if err := q.Validate(); err != nil {
		return domain.Response{}, err
	}

	if resp, ok := r.hostsAnswer(q); ok {
		return resp, nil
	}

	key := q.CacheKey()
	if r.cache != nil {
		if resp, ok := r.cache.Get(key); ok {
			r.logger.Debug(map[string]any{"query": q.String()}, "Answered from cache")
			return resp, nil
		}
	}

	var prefs domain.Preferences
	if r.truncation != nil && r.truncation.Likely(key) {
		// This question has recently outgrown a UDP payload; start on a
		// stream transport immediately.
		prefs.ExcludeUDP()
	}

	var lastErr error
	var servFail domain.Response
	haveServFail := false
	attempted := 0
	for _, server := range r.servers {
		if !prefs.AllowsServer(server) {
			continue
		}
		attempted++

		resp, err := r.queryServer(ctx, server, q, key, &prefs)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Response{}, ctx.Err()
			}
			lastErr = err
			r.logger.Warn(map[string]any{
				"server": server.Addr.String(),
				"query":  q.String(),
				"error":  err.Error(),
			}, "Upstream server failed")
			continue
		}

		if resp.RCode == domain.RCodeServFail {
			// Keep the answer in case every other server is worse.
			servFail, haveServFail = resp, true
			r.logger.Debug(map[string]any{
				"server": server.Addr.String(),
				"query":  q.String(),
			}, "Server answered SERVFAIL, trying next")
			continue
		}

		if r.cache != nil {
			r.cache.Set(key, resp)
		}
		return resp, nil
	}

	if haveServFail {
		return servFail, nil
	}
	if attempted == 0 {
		return domain.Response{}, ErrNoUsableConnection
	}
	if lastErr != nil {
		return domain.Response{}, fmt.Errorf("%w: %v", ErrAllServersFailed, lastErr)
	}
	return domain.Response{}, ErrAllServersFailed
}

// hostsAnswer satisfies the query from the local hosts database when a
// mapping exists. Hosts answers are authoritative and never cached; the
// file is its own source of truth.
func (r *Resolver) hostsAnswer(q domain.Question) (domain.Response, bool) {
	if r.hosts == nil {
		return domain.Response{}, false
	}
	records, ok := r.hosts.Lookup(q)
	if !ok {
		return domain.Response{}, false
	}
	r.logger.Debug(map[string]any{"query": q.String()}, "Answered from hosts file")
	return domain.Response{
		RCode:         domain.RCodeNoError,
		Authoritative: true,
		Answers:       records,
	}, true
}
