// Package domain defines the core value types shared across the resolver
// client: transport protocols, per-attempt preferences, upstream server
// descriptions, and the question/response shapes carried through the query
// pipeline. Types here are pure data with no I/O and no knowledge of wire
// encoding.
package domain

import "strings"

// CanonicalName lowercases a DNS name, trims surrounding whitespace, and
// ensures it ends with a dot. The empty string canonicalizes to the root.
func CanonicalName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "."
	}
	if !strings.HasSuffix(name, ".") {
		name += "."
	}
	return name
}

// generateCacheKey returns a consistent cache key derived from a DNS name,
// type, and class. Uses pipe (|) separator to avoid conflicts with colons
// in IPv6 addresses.
func generateCacheKey(name string, t RRType, c RRClass) string {
	return CanonicalName(name) + "|" + t.String() + "|" + c.String()
}
