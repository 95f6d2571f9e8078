package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/cpu/hickory-dns/internal/dns/common/clock"
	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/config"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/gateways/transport"
	"github.com/cpu/hickory-dns/internal/dns/gateways/wire"
	"github.com/cpu/hickory-dns/internal/dns/repos/hosts"
	"github.com/cpu/hickory-dns/internal/dns/repos/msgcache"
	"github.com/cpu/hickory-dns/internal/dns/repos/oversize"
	"github.com/cpu/hickory-dns/internal/dns/repos/transportstate"
	"github.com/cpu/hickory-dns/internal/dns/services/pool"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

const (
	// Version information
	version = "0.1.0-dev"
	appName = "hickory-dig"
)

// Application holds the wired query pipeline.
type Application struct {
	config   *config.AppConfig
	resolver *resolver.Resolver
	pool     *pool.Pool
	state    io.Closer // non-nil when transport history is bolt-backed
}

func main() {
	questions, serverOverrides, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		fmt.Fprintf(os.Stderr, "Usage: %s [@server ...] name [type] [name [type] ...]\n", appName)
		os.Exit(2)
	}

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if len(serverOverrides) > 0 {
		cfg.Servers = serverOverrides
	}

	// Configure global logging
	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Debug(map[string]any{
		"version":  version,
		"servers":  cfg.Servers,
		"timeout":  cfg.Timeout.String(),
		"attempts": cfg.Attempts,
	}, "Starting resolver client")

	// Build application with all dependencies
	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}

	// Handle shutdown signals; an interrupt abandons remaining questions
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	failed := app.Run(ctx, questions, os.Stdout)
	app.Close()
	if failed > 0 {
		os.Exit(1)
	}
}

// parseArgs interprets dig-style arguments. Tokens starting with "@"
// override the configured servers. A bare token naming a record type
// applies to the name before it, or to the next name when none has been
// seen yet; dotted tokens are always names, so a host that collides with
// a mnemonic (say "ns") stays resolvable as "ns.". Every other token is
// a name to resolve, type A unless changed.
func parseArgs(args []string) ([]domain.Question, []string, error) {
	var questions []domain.Question
	var servers []string
	pending := domain.RRTypeA
	for _, arg := range args {
		if strings.HasPrefix(arg, "@") {
			servers = append(servers, strings.TrimPrefix(arg, "@"))
			continue
		}
		if t, ok := parseTypeToken(arg); ok {
			if len(questions) > 0 {
				questions[len(questions)-1].Type = t
			} else {
				pending = t
			}
			continue
		}
		q, err := domain.NewQuestion(arg, pending, domain.RRClassIN)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid name %q: %w", arg, err)
		}
		questions = append(questions, q)
		pending = domain.RRTypeA
	}
	if len(questions) == 0 {
		return nil, nil, errors.New("no names to resolve")
	}
	return questions, servers, nil
}

func parseTypeToken(arg string) (domain.RRType, bool) {
	if strings.Contains(arg, ".") {
		return 0, false
	}
	t, err := domain.ParseRRType(arg)
	if err != nil {
		return 0, false
	}
	return t, true
}

// buildApplication constructs all components and wires them together
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	// Create shared clock for consistent time across all components
	clk := clock.RealClock{}

	// Initialize logger (already configured globally)
	logger := log.GetLogger()

	servers, err := domain.ParseServerEntries(cfg.Servers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse servers: %w", err)
	}
	if cfg.ProxyAddr != "" {
		servers = removeUDPConfigs(servers)
		if len(servers) == 0 {
			return nil, fmt.Errorf("a SOCKS proxy is configured but every server is UDP-only")
		}
	}

	// Build repository layer
	repos, err := buildRepositories(cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	// Build gateway layer
	gw, err := buildGateways(cfg, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateways: %w", err)
	}

	// Build service layer
	resolverService, err := resolver.New(resolver.Options{
		Servers:    servers,
		Pool:       gw.pool,
		Codec:      gw.codec,
		History:    repos.history,
		Cache:      repos.cache,
		Hosts:      repos.hosts,
		Truncation: repos.truncation,
		Policy: domain.EncryptionPolicy{
			Enabled: cfg.OpportunisticEncryption,
			Window:  cfg.EncryptionWindow,
		},
		MixCase:  cfg.MixCase,
		Attempts: cfg.Attempts,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build resolver: %w", err)
	}

	return &Application{
		config:   cfg,
		resolver: resolverService,
		pool:     gw.pool,
		state:    repos.stateCloser,
	}, nil
}

// removeUDPConfigs drops UDP configs from every server; datagrams cannot
// traverse a SOCKS5 proxy. Servers with nothing left are dropped too.
func removeUDPConfigs(servers []domain.Server) []domain.Server {
	kept := make([]domain.Server, 0, len(servers))
	for _, s := range servers {
		configs := make([]domain.ConnConfig, 0, len(s.Configs))
		for _, c := range s.Configs {
			if c.Protocol != domain.ProtocolUDP {
				configs = append(configs, c)
			}
		}
		if len(configs) == 0 {
			continue
		}
		s.Configs = configs
		kept = append(kept, s)
	}
	return kept
}

// repositories holds all repository implementations
type repositories struct {
	history     resolver.TransportHistory
	cache       resolver.MessageCache
	hosts       resolver.Hosts
	truncation  resolver.TruncationMemory
	stateCloser io.Closer
}

// gateways holds all gateway implementations
type gateways struct {
	codec resolver.Codec
	pool  *pool.Pool
}

// buildRepositories creates and configures all repository implementations
func buildRepositories(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*repositories, error) {
	repos := &repositories{
		truncation: oversize.New(oversize.DefaultCapacity, oversize.DefaultFPRate, oversize.DefaultWindow, clk),
	}

	// Transport history, persisted when a state path is configured
	if cfg.StatePath != "" {
		state, err := transportstate.NewPersistent(cfg.StatePath, clk)
		if err != nil {
			return nil, fmt.Errorf("failed to open state database: %w", err)
		}
		repos.history = state
		repos.stateCloser = state
		log.Debug(map[string]any{"path": cfg.StatePath}, "Transport history persisted")
	} else {
		repos.history = transportstate.New(clk)
	}

	// Create upstream response cache
	if cfg.DisableCache {
		log.Debug(map[string]any{"disabled": true}, "DNS response caching disabled")
	} else {
		// Safely convert uint to int with bounds check
		cacheSize := cfg.CacheSize
		if cacheSize > uint(^uint(0)>>1) { // Check if it exceeds max int
			return nil, fmt.Errorf("cache size too large: %d (max %d)", cacheSize, ^uint(0)>>1)
		}
		cache, err := msgcache.New(int(cacheSize), clk)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		repos.cache = cache
		log.Debug(map[string]any{
			"type": "LRU",
			"size": cfg.CacheSize,
		}, "DNS response cache configured")
	}

	// Hosts overrides; a missing file is not fatal for a client
	if cfg.HostsPath != "" {
		h, err := hosts.Load(cfg.HostsPath, logger)
		if err != nil {
			log.Warn(map[string]any{
				"path":  cfg.HostsPath,
				"error": err.Error(),
			}, "Hosts file unavailable")
		} else {
			repos.hosts = h
		}
	}

	return repos, nil
}

// buildGateways creates and configures all gateway implementations
func buildGateways(cfg *config.AppConfig, clk clock.Clock, logger log.Logger) (*gateways, error) {
	// Create DNS wire codec
	codec := wire.NewCodec(logger)

	opts := transport.Options{
		Timeout:   cfg.Timeout,
		ProxyAddr: cfg.ProxyAddr,
		Logger:    logger,
	}
	dial := func(ctx context.Context, cc domain.ConnConfig) (pool.Transport, error) {
		return transport.New(ctx, cc, opts)
	}

	p, err := pool.New(pool.Options{Dial: dial, Clock: clk, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	log.Debug(map[string]any{
		"timeout": cfg.Timeout.String(),
		"proxied": cfg.ProxyAddr != "",
	}, "Upstream transports configured")

	return &gateways{codec: codec, pool: p}, nil
}

// Run resolves every question in order, printing answers dig-style to w.
// It returns the number of lookups that failed.
func (app *Application) Run(ctx context.Context, questions []domain.Question, w io.Writer) int {
	failed := 0
	for i, q := range questions {
		if ctx.Err() != nil {
			log.Warn(map[string]any{
				"remaining": len(questions) - i,
			}, "Interrupted before all questions were resolved")
			failed += len(questions) - i
			break
		}
		resp, err := app.resolver.Resolve(ctx, q)
		if err != nil {
			log.Error(map[string]any{
				"query": q.String(),
				"error": err.Error(),
			}, "Lookup failed")
			fmt.Fprintf(w, ";; lookup %s failed: %v\n\n", q.Name, err)
			failed++
			continue
		}
		printResponse(w, q, resp)
	}
	return failed
}

// Close releases pooled connections and the state database.
func (app *Application) Close() {
	if err := app.pool.Close(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Error closing connections")
	}
	if app.state != nil {
		if err := app.state.Close(); err != nil {
			log.Warn(map[string]any{"error": err.Error()}, "Error closing state database")
		}
	}
}

// printResponse renders one answer in zone-file columns, the way dig does.
func printResponse(w io.Writer, q domain.Question, resp domain.Response) {
	fmt.Fprintf(w, ";; QUESTION: %s\n", q.String())
	fmt.Fprintf(w, ";; status: %s%s\n", resp.RCode, responseFlags(resp))
	if len(resp.Answers) > 0 {
		fmt.Fprintln(w, ";; ANSWER SECTION:")
		printRecords(w, resp.Answers)
	}
	if len(resp.Authority) > 0 {
		fmt.Fprintln(w, ";; AUTHORITY SECTION:")
		printRecords(w, resp.Authority)
	}
	if len(resp.Additional) > 0 {
		fmt.Fprintln(w, ";; ADDITIONAL SECTION:")
		printRecords(w, resp.Additional)
	}
	if resp.Server.IsValid() {
		fmt.Fprintf(w, ";; SERVER: %s (%s) TIME: %d ms\n", resp.Server, resp.Proto, resp.RTT.Milliseconds())
	}
	fmt.Fprintln(w)
}

func responseFlags(resp domain.Response) string {
	var flags []string
	if resp.Authoritative {
		flags = append(flags, "aa")
	}
	if resp.Truncated {
		flags = append(flags, "tc")
	}
	if resp.RecursionAvailable {
		flags = append(flags, "ra")
	}
	if len(flags) == 0 {
		return ""
	}
	return ", flags: " + strings.Join(flags, " ")
}

func printRecords(w io.Writer, records []domain.ResourceRecord) {
	tw := tabwriter.NewWriter(w, 8, 8, 2, ' ', 0)
	for _, rr := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", rr.Name, rr.TTL, rr.Class, rr.Type, rr.Data)
	}
	tw.Flush()
}
