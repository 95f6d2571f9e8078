package domain

import (
	"testing"
	"time"
)

func TestNewResourceRecord(t *testing.T) {
	rr, err := NewResourceRecord("Example.COM", RRTypeA, RRClassIN, 300, "93.184.216.34")
	if err != nil {
		t.Fatalf("NewResourceRecord returned error: %v", err)
	}
	if rr.Name != "example.com." {
		t.Errorf("expected canonical name, got %q", rr.Name)
	}
	if rr.TTL != 300 {
		t.Errorf("expected TTL 300, got %d", rr.TTL)
	}
	if rr.Data != "93.184.216.34" {
		t.Errorf("unexpected data: %q", rr.Data)
	}
}

func TestNewResourceRecord_Invalid(t *testing.T) {
	if _, err := NewResourceRecord("", RRTypeA, RRClassIN, 60, "x"); err == nil {
		t.Error("empty name should fail")
	}
	if _, err := NewResourceRecord("example.com.", 0, RRClassIN, 60, "x"); err == nil {
		t.Error("zero type should fail")
	}
	if _, err := NewResourceRecord("example.com.", RRTypeA, 0, 60, "x"); err == nil {
		t.Error("zero class should fail")
	}
}

func TestResourceRecord_UnknownTypePassesThrough(t *testing.T) {
	// Upstream servers may return types this client has no name for.
	rr, err := NewResourceRecord("example.com.", RRType(4096), RRClassIN, 60, `\# 4 C0000201`)
	if err != nil {
		t.Fatalf("unknown type should be accepted: %v", err)
	}
	if rr.Type.String() != "TYPE4096" {
		t.Errorf("expected RFC 3597 rendering, got %q", rr.Type.String())
	}
}

func TestResourceRecord_WithTTL(t *testing.T) {
	rr, _ := NewResourceRecord("example.com.", RRTypeA, RRClassIN, 300, "93.184.216.34")
	aged := rr.WithTTL(120)

	if aged.TTL != 120 {
		t.Errorf("expected aged TTL 120, got %d", aged.TTL)
	}
	if rr.TTL != 300 {
		t.Errorf("WithTTL must not mutate the original, got %d", rr.TTL)
	}
}

func TestResourceRecord_Expiry(t *testing.T) {
	received := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	rr, _ := NewResourceRecord("example.com.", RRTypeA, RRClassIN, 300, "93.184.216.34")

	want := received.Add(300 * time.Second)
	if got := rr.Expiry(received); !got.Equal(want) {
		t.Errorf("Expiry() = %v, want %v", got, want)
	}
}

func TestResourceRecord_String(t *testing.T) {
	rr, _ := NewResourceRecord("example.com.", RRTypeMX, RRClassIN, 3600, "10 mail.example.com.")
	want := "example.com.\t3600\tIN\tMX\t10 mail.example.com."
	if got := rr.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
