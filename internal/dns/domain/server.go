package domain

import (
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// DefaultDoHPath is the query path used when an HTTPS server entry does
// not provide one (RFC 8484 convention).
const DefaultDoHPath = "/dns-query"

// ConnConfig describes one way to reach a name server: a protocol plus
// the dial address, and for encrypted transports the name the server must
// present during the handshake. Configs are immutable and sourced from
// static configuration.
type ConnConfig struct {
	Protocol   Protocol
	AddrPort   netip.AddrPort
	ServerName string // certificate name for TLS/HTTPS/QUIC, empty otherwise
	Path       string // HTTP path for DNS over HTTPS, empty otherwise
}

// Addr returns the destination IP of the config.
func (c ConnConfig) Addr() netip.Addr {
	return c.AddrPort.Addr()
}

// String renders the config in the URL form accepted by ParseServerEntry.
func (c ConnConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Protocol.String())
	b.WriteString("://")
	b.WriteString(c.AddrPort.String())
	if c.Path != "" {
		b.WriteString(c.Path)
	}
	if c.ServerName != "" {
		b.WriteString("#")
		b.WriteString(c.ServerName)
	}
	return b.String()
}

// Server is a single upstream name server together with every transport
// configuration the client may use to reach it.
type Server struct {
	Addr    netip.Addr
	Name    string // hostname for certificate verification, may be empty
	Configs []ConnConfig
}

// Protocols returns the transport kinds available for this server, in
// config order.
func (s Server) Protocols() []Protocol {
	protos := make([]Protocol, 0, len(s.Configs))
	for _, c := range s.Configs {
		protos = append(protos, c.Protocol)
	}
	return protos
}

// ParseServerEntry converts one configured upstream entry into a Server.
//
// Accepted forms:
//
//	9.9.9.9                                   plain DNS, UDP and TCP on port 53
//	9.9.9.9:5353                              plain DNS on a custom port
//	udp://9.9.9.9:53                          UDP only
//	tcp://9.9.9.9                             TCP only
//	tls://9.9.9.9#dns.quad9.net               DNS over TLS, port 853
//	https://9.9.9.9/dns-query#dns.quad9.net   DNS over HTTPS, port 443
//	quic://9.9.9.9#dns.quad9.net              DNS over QUIC, port 853
//
// The URL fragment names the certificate the server must present. The
// host portion must be a literal IP address so that reaching a resolver
// never requires resolving a name first.
func ParseServerEntry(entry string) (Server, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Server{}, fmt.Errorf("empty server entry")
	}
	if !strings.Contains(entry, "://") {
		return parsePlainEntry(entry)
	}

	u, err := url.Parse(entry)
	if err != nil {
		return Server{}, fmt.Errorf("invalid server entry %q: %w", entry, err)
	}
	proto, err := ParseProtocol(u.Scheme)
	if err != nil {
		return Server{}, fmt.Errorf("invalid server entry %q: %w", entry, err)
	}
	addr, err := netip.ParseAddr(u.Hostname())
	if err != nil {
		return Server{}, fmt.Errorf("invalid server entry %q: host must be an IP address", entry)
	}
	port := proto.DefaultPort()
	if ps := u.Port(); ps != "" {
		p64, err := strconv.ParseUint(ps, 10, 16)
		if err != nil {
			return Server{}, fmt.Errorf("invalid server entry %q: bad port %q", entry, ps)
		}
		port = uint16(p64)
	}

	cfg := ConnConfig{
		Protocol:   proto,
		AddrPort:   netip.AddrPortFrom(addr, port),
		ServerName: u.Fragment,
	}
	if proto == ProtocolHTTPS {
		cfg.Path = u.Path
		if cfg.Path == "" {
			cfg.Path = DefaultDoHPath
		}
	}
	return Server{
		Addr:    addr,
		Name:    u.Fragment,
		Configs: []ConnConfig{cfg},
	}, nil
}

// parsePlainEntry handles bare IP or IP:port entries, which yield a UDP
// config and its TCP fallback on the same address.
func parsePlainEntry(entry string) (Server, error) {
	var ap netip.AddrPort
	if addr, err := netip.ParseAddr(entry); err == nil {
		ap = netip.AddrPortFrom(addr, ProtocolUDP.DefaultPort())
	} else {
		var perr error
		ap, perr = netip.ParseAddrPort(entry)
		if perr != nil {
			return Server{}, fmt.Errorf("invalid server entry %q: not an IP address or IP:port", entry)
		}
	}
	return Server{
		Addr: ap.Addr(),
		Configs: []ConnConfig{
			{Protocol: ProtocolUDP, AddrPort: ap},
			{Protocol: ProtocolTCP, AddrPort: ap},
		},
	}, nil
}

// ParseServerEntries converts a list of configured entries, failing on the
// first invalid one. Entries that share an address merge into a single
// Server, so selection sees every configured way to reach that resolver.
// Server order follows first appearance; duplicate configs are dropped.
func ParseServerEntries(entries []string) ([]Server, error) {
	servers := make([]Server, 0, len(entries))
	index := make(map[netip.Addr]int, len(entries))
	for _, e := range entries {
		s, err := ParseServerEntry(e)
		if err != nil {
			return nil, err
		}
		i, seen := index[s.Addr]
		if !seen {
			index[s.Addr] = len(servers)
			servers = append(servers, s)
			continue
		}
		if servers[i].Name == "" {
			servers[i].Name = s.Name
		}
		for _, cfg := range s.Configs {
			if !hasConfig(servers[i].Configs, cfg) {
				servers[i].Configs = append(servers[i].Configs, cfg)
			}
		}
	}
	return servers, nil
}

func hasConfig(configs []ConnConfig, cfg ConnConfig) bool {
	for _, c := range configs {
		if c == cfg {
			return true
		}
	}
	return false
}
