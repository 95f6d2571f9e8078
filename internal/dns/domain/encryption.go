package domain

import "time"

// DefaultEncryptionWindow bounds how long a recorded encrypted-transport
// success stays fresh enough to influence selection.
const DefaultEncryptionWindow = 15 * time.Minute

// EncryptionPolicy controls opportunistic transport encryption. When
// enabled, the client prefers encrypted transports that have recently
// proven reachable, without requiring encryption unconditionally.
type EncryptionPolicy struct {
	Enabled bool
	Window  time.Duration
}

// ValidWindow returns the success recency window, substituting the
// default when the policy does not set one.
func (p EncryptionPolicy) ValidWindow() time.Duration {
	if p.Window <= 0 {
		return DefaultEncryptionWindow
	}
	return p.Window
}
