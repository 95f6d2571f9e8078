package domain

import "fmt"

// RCode represents a DNS response code indicating the result of a query.
// Values above 15 arrive via EDNS extended RCODEs.
type RCode uint16

// DNS response code constants
const (
	RCodeNoError  RCode = 0  // NOERROR - no error
	RCodeFormErr  RCode = 1  // FORMERR - format error
	RCodeServFail RCode = 2  // SERVFAIL - server failure
	RCodeNXDomain RCode = 3  // NXDOMAIN - nonexistent domain
	RCodeNotImp   RCode = 4  // NOTIMP - not implemented
	RCodeRefused  RCode = 5  // REFUSED - query refused
	RCodeYXDomain RCode = 6  // YXDOMAIN - name exists when it should not
	RCodeYXRRSet  RCode = 7  // YXRRSET - RR set exists when it should not
	RCodeNXRRSet  RCode = 8  // NXRRSET - RR set that should exist does not
	RCodeNotAuth  RCode = 9  // NOTAUTH - server not authoritative
	RCodeNotZone  RCode = 10 // NOTZONE - name not contained in zone
	RCodeBadVers  RCode = 16 // BADVERS - bad EDNS version
)

// String returns the textual representation of the RCode.
func (r RCode) String() string {
	switch r {
	case RCodeNoError:
		return "NOERROR"
	case RCodeFormErr:
		return "FORMERR"
	case RCodeServFail:
		return "SERVFAIL"
	case RCodeNXDomain:
		return "NXDOMAIN"
	case RCodeNotImp:
		return "NOTIMP"
	case RCodeRefused:
		return "REFUSED"
	case RCodeYXDomain:
		return "YXDOMAIN"
	case RCodeYXRRSet:
		return "YXRRSET"
	case RCodeNXRRSet:
		return "NXRRSET"
	case RCodeNotAuth:
		return "NOTAUTH"
	case RCodeNotZone:
		return "NOTZONE"
	case RCodeBadVers:
		return "BADVERS"
	default:
		return fmt.Sprintf("RCODE%d", uint16(r))
	}
}
