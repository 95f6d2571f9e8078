package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// DNS Resource Record Type constants
const (
	RRTypeA      RRType = 1   // A - IPv4 address
	RRTypeNS     RRType = 2   // NS - Name server
	RRTypeCNAME  RRType = 5   // CNAME - Canonical name
	RRTypeSOA    RRType = 6   // SOA - Start of authority
	RRTypePTR    RRType = 12  // PTR - Pointer
	RRTypeMX     RRType = 15  // MX - Mail exchange
	RRTypeTXT    RRType = 16  // TXT - Text
	RRTypeAAAA   RRType = 28  // AAAA - IPv6 address
	RRTypeSRV    RRType = 33  // SRV - Service
	RRTypeNAPTR  RRType = 35  // NAPTR - Naming authority pointer
	RRTypeOPT    RRType = 41  // OPT - EDNS option (pseudo record)
	RRTypeDS     RRType = 43  // DS - Delegation signer
	RRTypeRRSIG  RRType = 46  // RRSIG - Resource record signature
	RRTypeNSEC   RRType = 47  // NSEC - Next secure
	RRTypeDNSKEY RRType = 48  // DNSKEY - DNS key
	RRTypeTLSA   RRType = 52  // TLSA - TLS association
	RRTypeSVCB   RRType = 64  // SVCB - Service binding
	RRTypeHTTPS  RRType = 65  // HTTPS - HTTPS binding
	RRTypeANY    RRType = 255 // ANY - Any type (query only)
	RRTypeCAA    RRType = 257 // CAA - Certificate authority authorization
)

// IsValid returns true for any assigned type code. Answers may carry
// types this package has no name for; they are preserved numerically.
func (t RRType) IsValid() bool {
	return t != 0
}

// IsQueryable returns true if the type is one this client will put in a
// question. Unknown types can still appear in answers.
func (t RRType) IsQueryable() bool {
	switch t {
	case RRTypeA, RRTypeNS, RRTypeCNAME, RRTypeSOA, RRTypePTR, RRTypeMX, RRTypeTXT,
		RRTypeAAAA, RRTypeSRV, RRTypeNAPTR, RRTypeDS, RRTypeRRSIG,
		RRTypeNSEC, RRTypeDNSKEY, RRTypeTLSA, RRTypeSVCB, RRTypeHTTPS, RRTypeANY, RRTypeCAA:
		return true
	default:
		return false
	}
}

// String returns the textual representation of the RRType.
// Unknown types render in the RFC 3597 form "TYPE<value>".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeNS:
		return "NS"
	case RRTypeCNAME:
		return "CNAME"
	case RRTypeSOA:
		return "SOA"
	case RRTypePTR:
		return "PTR"
	case RRTypeMX:
		return "MX"
	case RRTypeTXT:
		return "TXT"
	case RRTypeAAAA:
		return "AAAA"
	case RRTypeSRV:
		return "SRV"
	case RRTypeNAPTR:
		return "NAPTR"
	case RRTypeOPT:
		return "OPT"
	case RRTypeDS:
		return "DS"
	case RRTypeRRSIG:
		return "RRSIG"
	case RRTypeNSEC:
		return "NSEC"
	case RRTypeDNSKEY:
		return "DNSKEY"
	case RRTypeTLSA:
		return "TLSA"
	case RRTypeSVCB:
		return "SVCB"
	case RRTypeHTTPS:
		return "HTTPS"
	case RRTypeANY:
		return "ANY"
	case RRTypeCAA:
		return "CAA"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}

// ParseRRType converts a record type name to its RRType value. It accepts
// the mnemonic names above and the RFC 3597 form "TYPE<value>".
func ParseRRType(s string) (RRType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return RRTypeA, nil
	case "NS":
		return RRTypeNS, nil
	case "CNAME":
		return RRTypeCNAME, nil
	case "SOA":
		return RRTypeSOA, nil
	case "PTR":
		return RRTypePTR, nil
	case "MX":
		return RRTypeMX, nil
	case "TXT":
		return RRTypeTXT, nil
	case "AAAA":
		return RRTypeAAAA, nil
	case "SRV":
		return RRTypeSRV, nil
	case "NAPTR":
		return RRTypeNAPTR, nil
	case "DS":
		return RRTypeDS, nil
	case "RRSIG":
		return RRTypeRRSIG, nil
	case "NSEC":
		return RRTypeNSEC, nil
	case "DNSKEY":
		return RRTypeDNSKEY, nil
	case "TLSA":
		return RRTypeTLSA, nil
	case "SVCB":
		return RRTypeSVCB, nil
	case "HTTPS":
		return RRTypeHTTPS, nil
	case "ANY":
		return RRTypeANY, nil
	case "CAA":
		return RRTypeCAA, nil
	}
	if v, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(s)), "TYPE"); ok {
		n, err := strconv.ParseUint(v, 10, 16)
		if err == nil && n != 0 {
			return RRType(n), nil
		}
	}
	return 0, fmt.Errorf("unknown record type: %q", s)
}
