package domain

import (
	"testing"
)

func TestNewQuestion(t *testing.T) {
	tests := []struct {
		name        string
		queryName   string
		rrtype      RRType
		class       RRClass
		expectError bool
	}{
		{
			name:        "valid A record query",
			queryName:   "example.com.",
			rrtype:      RRTypeA,
			class:       RRClassIN,
			expectError: false,
		},
		{
			name:        "valid AAAA record query",
			queryName:   "test.example.com.",
			rrtype:      RRTypeAAAA,
			class:       RRClassIN,
			expectError: false,
		},
		{
			name:        "root NS query",
			queryName:   ".",
			rrtype:      RRTypeNS,
			class:       RRClassIN,
			expectError: false,
		},
		{
			name:        "empty name should fail",
			queryName:   "",
			rrtype:      RRTypeA,
			class:       RRClassIN,
			expectError: true,
		},
		{
			name:        "whitespace name should fail",
			queryName:   "   ",
			rrtype:      RRTypeA,
			class:       RRClassIN,
			expectError: true,
		},
		{
			name:        "OPT is not queryable",
			queryName:   "example.com.",
			rrtype:      RRTypeOPT,
			class:       RRClassIN,
			expectError: true,
		},
		{
			name:        "zero class should fail",
			queryName:   "example.com.",
			rrtype:      RRTypeA,
			class:       0,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewQuestion(tt.queryName, tt.rrtype, tt.class)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got question %+v", q)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewQuestion_CanonicalizesName(t *testing.T) {
	q, err := NewQuestion("WWW.Example.COM", RRTypeA, RRClassIN)
	if err != nil {
		t.Fatalf("NewQuestion returned error: %v", err)
	}
	if q.Name != "www.example.com." {
		t.Errorf("expected canonical name www.example.com., got %q", q.Name)
	}
}

func TestQuestion_CacheKey_CaseInsensitive(t *testing.T) {
	a, err := NewQuestion("example.com", RRTypeA, RRClassIN)
	if err != nil {
		t.Fatalf("NewQuestion returned error: %v", err)
	}
	b, err := NewQuestion("EXAMPLE.COM.", RRTypeA, RRClassIN)
	if err != nil {
		t.Fatalf("NewQuestion returned error: %v", err)
	}
	if a.CacheKey() != b.CacheKey() {
		t.Errorf("cache keys differ: %q vs %q", a.CacheKey(), b.CacheKey())
	}
	if a.CacheKey() == "" {
		t.Error("cache key must not be empty")
	}
}

func TestQuestion_CacheKey_DistinguishesTypeAndClass(t *testing.T) {
	a, _ := NewQuestion("example.com.", RRTypeA, RRClassIN)
	aaaa, _ := NewQuestion("example.com.", RRTypeAAAA, RRClassIN)
	ch, _ := NewQuestion("example.com.", RRTypeA, RRClassCH)

	if a.CacheKey() == aaaa.CacheKey() {
		t.Error("different types must produce different cache keys")
	}
	if a.CacheKey() == ch.CacheKey() {
		t.Error("different classes must produce different cache keys")
	}
}

func TestQuestion_String(t *testing.T) {
	q, _ := NewQuestion("example.com.", RRTypeMX, RRClassIN)
	want := "example.com. IN MX"
	if got := q.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
