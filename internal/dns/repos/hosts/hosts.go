// Package hosts loads /etc/hosts-style files and answers address
// questions from them before any upstream traffic happens.
package hosts

import (
	"bufio"
	"io"
	"net/netip"
	"os"
	"strings"
	"unicode"

	logpkg "github.com/cpu/hickory-dns/internal/dns/common/log"
	"github.com/cpu/hickory-dns/internal/dns/domain"
	"github.com/cpu/hickory-dns/internal/dns/services/resolver"
)

// DefaultTTL is the TTL reported on synthesized hosts-file answers.
const DefaultTTL = 3600

// File is an immutable address database built from one hosts file.
// Names are stored in canonical form; IPv4-mapped IPv6 addresses are
// unmapped so they answer A questions.
type File struct {
	v4  map[string][]netip.Addr
	v6  map[string][]netip.Addr
	ttl uint32
}

// Empty returns a File with no entries. Every lookup misses.
func Empty() *File {
	return &File{
		v4:  make(map[string][]netip.Addr),
		v6:  make(map[string][]netip.Addr),
		ttl: DefaultTTL,
	}
}

// Load reads and parses the hosts file at path.
func Load(path string, logger logpkg.Logger) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path, logger)
}

// Parse parses /etc/hosts-style content from r.
//
// Rules:
// - First field is an IP address; remaining fields are hostnames for it
// - Skip comments (whole-line or inline after '#') and blank lines
// - Skip invalid tokens (any '*', names starting with '.', bad labels)
// - Normalize names via CanonicalName; de-duplicate per name and family
func Parse(r io.Reader, source string, logger logpkg.Logger) (*File, error) {
	scanner := bufio.NewScanner(r)
	hf := Empty()

	logger.Debug(map[string]any{"source": source}, "parse_hosts_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		line = stripInlineComment(line)

		fields := strings.Fields(line)
		if len(fields) < 2 {
			logger.Debug(map[string]any{"line": lineNum}, "hosts_no_hostnames")
			continue
		}

		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "raw": fields[0]}, "hosts_skip_bad_address")
			continue
		}

		for _, raw := range fields[1:] {
			if !isValidHostname(raw) {
				logger.Debug(map[string]any{"line": lineNum, "raw": raw}, "hosts_skip_invalid_token")
				continue
			}
			hf.add(domain.CanonicalName(raw), addr)
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_hosts_scan_error")
		return nil, err
	}

	logger.Debug(map[string]any{"source": source, "names": hf.Len()}, "parse_hosts_done")
	return hf, nil
}

// Lookup answers q from the file. It reports a hit only when an address
// of the requested family is present; other questions fall through to
// upstream resolution. Names must be in canonical form, which Question
// constructors guarantee.
func (f *File) Lookup(q domain.Question) ([]domain.ResourceRecord, bool) {
	if q.Class != domain.RRClassIN {
		return nil, false
	}
	var addrs []netip.Addr
	switch q.Type {
	case domain.RRTypeA:
		addrs = f.v4[q.Name]
	case domain.RRTypeAAAA:
		addrs = f.v6[q.Name]
	default:
		return nil, false
	}
	if len(addrs) == 0 {
		return nil, false
	}
	records := make([]domain.ResourceRecord, len(addrs))
	for i, addr := range addrs {
		records[i] = domain.ResourceRecord{
			Name:  q.Name,
			Type:  q.Type,
			Class: q.Class,
			TTL:   f.ttl,
			Data:  addr.String(),
		}
	}
	return records, true
}

// Len returns the number of distinct names with at least one address.
func (f *File) Len() int {
	n := len(f.v4)
	for name := range f.v6 {
		if _, ok := f.v4[name]; !ok {
			n++
		}
	}
	return n
}

func (f *File) add(name string, addr netip.Addr) {
	addr = addr.Unmap()
	m := f.v4
	if addr.Is6() {
		m = f.v6
	}
	for _, existing := range m[name] {
		if existing == addr {
			return
		}
	}
	m[name] = append(m[name], addr)
}

func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#")
}

func stripInlineComment(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		return line[:i]
	}
	return line
}

// isValidHostname checks a raw hosts-file token before normalization:
//   - total length at most 255 characters
//   - every label between 1 and 63 characters
//   - no wildcards, no leading dot
//   - must start with a letter or digit
func isValidHostname(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "*") {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
	}
	runes := []rune(name)
	return unicode.IsLetter(runes[0]) || unicode.IsDigit(runes[0])
}

var _ resolver.Hosts = (*File)(nil)
