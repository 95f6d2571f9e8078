// Package wire translates between domain questions and the RFC 1035
// message format, using miekg/dns for packing and parsing. It also owns
// the anti-spoofing checks an answer must pass before the rest of the
// resolver ever sees it.
package wire

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/miekg/dns"

	"github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

// EDNSBufferSize is the advertised EDNS0 UDP payload size. 1232 bytes is
// the DNS Flag Day 2020 recommendation: large enough for most answers,
// small enough to avoid fragmentation.
const EDNSBufferSize = 1232

// codec implements the resolver.Codec contract.
type codec struct {
	logger  log.Logger
	entropy io.Reader
}

// NewCodec returns a codec logging through logger and drawing qname
// casing entropy from crypto/rand.
func NewCodec(logger log.Logger) *codec {
	return &codec{
		logger:  logger,
		entropy: rand.Reader,
	}
}

// EncodeQuery builds the wire form of q under the given message ID. When
// mixCase is set, the qname casing is randomized so off-path spoofers
// must guess it along with the ID.
func (c *codec) EncodeQuery(q domain.Question, id uint16, mixCase bool) (resolver.QueryMessage, error) {
	if err := q.Validate(); err != nil {
		return resolver.QueryMessage{}, err
	}

	name := dns.Fqdn(q.Name)
	if mixCase {
		mixed, err := randomizeCase(name, c.entropy)
		if err != nil {
			return resolver.QueryMessage{}, fmt.Errorf("randomize qname case: %w", err)
		}
		name = mixed
	}

	msg := new(dns.Msg)
	msg.SetQuestion(name, uint16(q.Type))
	msg.Id = id
	msg.Question[0].Qclass = uint16(q.Class)
	msg.SetEdns0(EDNSBufferSize, false)

	data, err := msg.Pack()
	if err != nil {
		return resolver.QueryMessage{}, fmt.Errorf("pack query: %w", err)
	}

	return resolver.QueryMessage{
		ID:    id,
		Name:  name,
		Type:  q.Type,
		Class: q.Class,
		Data:  data,
	}, nil
}

// DecodeResponse parses an upstream answer and verifies it against the
// message that was sent. The ID must match, and the echoed question must
// match byte for byte, including the randomized casing. Anything else
// wraps ErrResponseMismatch.
func (c *codec) DecodeResponse(data []byte, sent resolver.QueryMessage) (domain.Response, error) {
	var msg dns.Msg
	if err := msg.Unpack(data); err != nil {
		return domain.Response{}, fmt.Errorf("unpack response: %w", err)
	}

	if msg.Id != sent.ID {
		c.logger.Debug(map[string]any{"got": msg.Id, "want": sent.ID}, "response_id_mismatch")
		return domain.Response{}, fmt.Errorf("%w: id %d, want %d", resolver.ErrResponseMismatch, msg.Id, sent.ID)
	}
	if !msg.Response {
		return domain.Response{}, fmt.Errorf("%w: QR bit not set", resolver.ErrResponseMismatch)
	}
	if len(msg.Question) != 1 {
		return domain.Response{}, fmt.Errorf("%w: %d questions echoed", resolver.ErrResponseMismatch, len(msg.Question))
	}
	echoed := msg.Question[0]
	if echoed.Name != sent.Name {
		c.logger.Debug(map[string]any{"got": echoed.Name, "want": sent.Name}, "response_qname_mismatch")
		return domain.Response{}, fmt.Errorf("%w: qname %q, want %q", resolver.ErrResponseMismatch, echoed.Name, sent.Name)
	}
	if echoed.Qtype != uint16(sent.Type) || echoed.Qclass != uint16(sent.Class) {
		return domain.Response{}, fmt.Errorf("%w: question %s/%s, want %s/%s",
			resolver.ErrResponseMismatch,
			domain.RRType(echoed.Qtype), domain.RRClass(echoed.Qclass), sent.Type, sent.Class)
	}

	rcode := msg.Rcode
	if opt := msg.IsEdns0(); opt != nil {
		rcode |= opt.ExtendedRcode()
	}

	return domain.Response{
		RCode:              domain.RCode(rcode),
		Authoritative:      msg.Authoritative,
		Truncated:          msg.Truncated,
		RecursionAvailable: msg.RecursionAvailable,
		Answers:            toRecords(msg.Answer),
		Authority:          toRecords(msg.Ns),
		Additional:         toRecords(msg.Extra),
	}, nil
}

// toRecords converts miekg records to domain records with presentation
// form rdata. OPT pseudo-records carry transport metadata, not answers,
// and are dropped.
func toRecords(rrs []dns.RR) []domain.ResourceRecord {
	if len(rrs) == 0 {
		return nil
	}
	out := make([]domain.ResourceRecord, 0, len(rrs))
	for _, rr := range rrs {
		header := rr.Header()
		if header.Rrtype == dns.TypeOPT {
			continue
		}
		out = append(out, domain.ResourceRecord{
			Name:  header.Name,
			Type:  domain.RRType(header.Rrtype),
			Class: domain.RRClass(header.Class),
			TTL:   header.Ttl,
			Data:  strings.TrimPrefix(rr.String(), header.String()),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// randomizeCase flips each ASCII letter of name to upper or lower case
// on a fair coin toss.
func randomizeCase(name string, entropy io.Reader) (string, error) {
	coins := make([]byte, len(name))
	if _, err := io.ReadFull(entropy, coins); err != nil {
		return "", err
	}
	b := []byte(name)
	for i := range b {
		if !isASCIILetter(b[i]) {
			continue
		}
		if coins[i]&1 == 1 {
			b[i] &^= 0x20
		} else {
			b[i] |= 0x20
		}
	}
	return string(b), nil
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

var _ resolver.Codec = (*codec)(nil)
