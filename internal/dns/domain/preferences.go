package domain

// Preferences narrows which transports a single query attempt sequence may
// use. The zero value allows every protocol. Once UDP has been excluded it
// stays excluded for the life of the value; callers construct a fresh
// Preferences for each new attempt sequence.
type Preferences struct {
	excludeUDP bool
}

// AllowsProtocol reports whether the given protocol may carry the next
// query. Only UDP is ever refused, and only after ExcludeUDP was called.
func (p Preferences) AllowsProtocol(proto Protocol) bool {
	return !(p.excludeUDP && proto == ProtocolUDP)
}

// AllowsServer reports whether at least one of the server's transports
// passes AllowsProtocol. Servers that fail are skipped before any
// selection work is done.
func (p Preferences) AllowsServer(s Server) bool {
	for _, proto := range s.Protocols() {
		if p.AllowsProtocol(proto) {
			return true
		}
	}
	return false
}

// ExcludeUDP removes UDP from consideration for the rest of this attempt
// sequence. Called after a truncated response or a suspected spoofed
// answer. Idempotent.
func (p *Preferences) ExcludeUDP() {
	p.excludeUDP = true
}

// UDPExcluded reports whether ExcludeUDP has been called on this value.
func (p Preferences) UDPExcluded() bool {
	return p.excludeUDP
}
