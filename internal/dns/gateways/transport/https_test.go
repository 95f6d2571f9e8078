package transport

import (
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpu/hickory-dns/internal/dns/domain"
)

// startDoHServer runs a TLS test server answering RFC 8484 POST queries.
// Each request body is passed to respond and the result written back as
// a DNS message.
func startDoHServer(t *testing.T, respond func(query []byte) []byte) (netip.AddrPort, *x509.CertPool) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/dns-query" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("Content-Type") != dohMediaType {
			http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", dohMediaType)
		_, _ = w.Write(respond(body))
	}))
	t.Cleanup(srv.Close)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	return netip.MustParseAddrPort(srv.Listener.Addr().String()), pool
}

func TestHTTPSTransport_Exchange(t *testing.T) {
	addr, pool := startDoHServer(t, func(query []byte) []byte {
		return append(append([]byte(nil), query...), 0xCC)
	})

	cfg := domain.ConnConfig{
		Protocol: domain.ProtocolHTTPS,
		AddrPort: addr,
		Path:     "/dns-query",
	}
	tr, err := New(context.Background(), cfg, Options{Timeout: 2 * time.Second, RootCAs: pool})
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	query := []byte{0x00, 0x00, 0x01, 0x00}
	resp, rtt, err := tr.Exchange(context.Background(), query)

	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0xCC}, resp)
	assert.Greater(t, rtt, time.Duration(0))
	assert.Equal(t, domain.ProtocolHTTPS, tr.Protocol())
}

func TestHTTPSTransport_ReusesClientAcrossQueries(t *testing.T) {
	addr, pool := startDoHServer(t, func(query []byte) []byte {
		return append([]byte(nil), query...)
	})

	cfg := domain.ConnConfig{Protocol: domain.ProtocolHTTPS, AddrPort: addr, Path: "/dns-query"}
	tr, err := New(context.Background(), cfg, Options{Timeout: 2 * time.Second, RootCAs: pool})
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	for i := 0; i < 3; i++ {
		query := []byte{0x00, byte(i), 0xFE}
		resp, _, err := tr.Exchange(context.Background(), query)
		require.NoError(t, err)
		assert.Equal(t, query, resp)
	}
}

func TestHTTPSTransport_ServerError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	addr := netip.MustParseAddrPort(srv.Listener.Addr().String())

	cfg := domain.ConnConfig{Protocol: domain.ProtocolHTTPS, AddrPort: addr, Path: "/dns-query"}
	tr, err := New(context.Background(), cfg, Options{Timeout: 2 * time.Second, RootCAs: pool})
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	_, _, err = tr.Exchange(context.Background(), []byte{0x00, 0x01})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestHTTPSTransport_Timeout(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", dohMediaType)
		_, _ = w.Write([]byte{0x00})
	}))
	t.Cleanup(srv.Close)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	addr := netip.MustParseAddrPort(srv.Listener.Addr().String())

	cfg := domain.ConnConfig{Protocol: domain.ProtocolHTTPS, AddrPort: addr, Path: "/dns-query"}
	tr, err := New(context.Background(), cfg, Options{Timeout: 100 * time.Millisecond, RootCAs: pool})
	require.NoError(t, err)
	defer func() { require.NoError(t, tr.Close()) }()

	_, _, err = tr.Exchange(context.Background(), []byte{0x00, 0x02})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoHURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.ConnConfig
		want string
	}{
		{
			name: "IPv4 default port",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("9.9.9.9:443"),
				Path:     "/dns-query",
			},
			want: "https://9.9.9.9/dns-query",
		},
		{
			name: "IPv4 custom port",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("9.9.9.9:8443"),
				Path:     "/dns-query",
			},
			want: "https://9.9.9.9:8443/dns-query",
		},
		{
			name: "server name preferred over IP",
			cfg: domain.ConnConfig{
				Protocol:   domain.ProtocolHTTPS,
				AddrPort:   netip.MustParseAddrPort("9.9.9.9:443"),
				ServerName: "dns.quad9.net",
				Path:       "/dns-query",
			},
			want: "https://dns.quad9.net/dns-query",
		},
		{
			name: "server name with custom port",
			cfg: domain.ConnConfig{
				Protocol:   domain.ProtocolHTTPS,
				AddrPort:   netip.MustParseAddrPort("9.9.9.9:8443"),
				ServerName: "dns.quad9.net",
				Path:       "/dns-query",
			},
			want: "https://dns.quad9.net:8443/dns-query",
		},
		{
			name: "IPv6 default port gets brackets",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("[2620:fe::fe]:443"),
				Path:     "/dns-query",
			},
			want: "https://[2620:fe::fe]/dns-query",
		},
		{
			name: "IPv6 custom port gets brackets",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("[2620:fe::fe]:8443"),
				Path:     "/dns-query",
			},
			want: "https://[2620:fe::fe]:8443/dns-query",
		},
		{
			name: "empty path defaults",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("9.9.9.9:443"),
			},
			want: "https://9.9.9.9/dns-query",
		},
		{
			name: "custom path",
			cfg: domain.ConnConfig{
				Protocol: domain.ProtocolHTTPS,
				AddrPort: netip.MustParseAddrPort("9.9.9.9:443"),
				Path:     "/resolve",
			},
			want: "https://9.9.9.9/resolve",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dohURL(tt.cfg))
		})
	}
}
