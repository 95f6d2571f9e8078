package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RRClass represents a DNS class (usually IN for Internet).
type RRClass uint16

// DNS class constants
const (
	RRClassIN   RRClass = 1   // IN - Internet
	RRClassCH   RRClass = 3   // CH - Chaos
	RRClassHS   RRClass = 4   // HS - Hesiod
	RRClassNONE RRClass = 254 // NONE - RFC 2136
	RRClassANY  RRClass = 255 // ANY - query only
)

// IsValid returns true for any assigned class code.
func (c RRClass) IsValid() bool {
	return c != 0
}

// String returns the textual representation of the RRClass.
// Unknown classes render in the RFC 3597 form "CLASS<value>".
func (c RRClass) String() string {
	switch c {
	case RRClassIN:
		return "IN"
	case RRClassCH:
		return "CH"
	case RRClassHS:
		return "HS"
	case RRClassNONE:
		return "NONE"
	case RRClassANY:
		return "ANY"
	default:
		return fmt.Sprintf("CLASS%d", uint16(c))
	}
}

// ParseRRClass converts a class name to its RRClass value. It accepts the
// mnemonic names above and the RFC 3597 form "CLASS<value>".
func ParseRRClass(s string) (RRClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return RRClassIN, nil
	case "CH":
		return RRClassCH, nil
	case "HS":
		return RRClassHS, nil
	case "NONE":
		return RRClassNONE, nil
	case "ANY":
		return RRClassANY, nil
	}
	if v, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(s)), "CLASS"); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err == nil && n != 0 {
			return RRClass(n), nil
		}
	}
	return 0, fmt.Errorf("unknown record class: %q", s)
}
