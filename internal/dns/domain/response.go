package domain

import (
	"net/netip"
	"time"
)

// Response is the decoded outcome of one exchange with an upstream
// server, following the RFC 1035 section structure.
type Response struct {
	RCode              RCode
	Authoritative      bool
	Truncated          bool
	RecursionAvailable bool
	Answers            []ResourceRecord
	Authority          []ResourceRecord
	Additional         []ResourceRecord

	// Exchange provenance, filled in by the query pipeline.
	Server netip.AddrPort
	Proto  Protocol
	RTT    time.Duration
}

// IsError returns true if the response indicates an error condition.
func (r Response) IsError() bool {
	return r.RCode != RCodeNoError
}

// HasAnswers returns true if the response contains answer records.
func (r Response) HasAnswers() bool {
	return len(r.Answers) > 0
}

// AnswerCount returns the number of answer records in the response.
func (r Response) AnswerCount() int {
	return len(r.Answers)
}

// MinTTL returns the smallest TTL across all sections, which bounds how
// long the response may be cached. Returns 0 when the response carries no
// records.
func (r Response) MinTTL() uint32 {
	min := uint32(0)
	seen := false
	for _, section := range [][]ResourceRecord{r.Answers, r.Authority, r.Additional} {
		for _, rr := range section {
			if !seen || rr.TTL < min {
				min = rr.TTL
				seen = true
			}
		}
	}
	return min
}
