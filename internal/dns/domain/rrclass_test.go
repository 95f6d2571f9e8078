package domain

import "testing"

func TestRRClass_String(t *testing.T) {
	tests := []struct {
		class RRClass
		want  string
	}{
		{RRClassIN, "IN"},
		{RRClassCH, "CH"},
		{RRClassHS, "HS"},
		{RRClassNONE, "NONE"},
		{RRClassANY, "ANY"},
		{RRClass(42), "CLASS42"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("RRClass(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestParseRRClass(t *testing.T) {
	tests := []struct {
		in      string
		want    RRClass
		wantErr bool
	}{
		{"IN", RRClassIN, false},
		{"in", RRClassIN, false},
		{"CH", RRClassCH, false},
		{"ANY", RRClassANY, false},
		{"CLASS42", RRClass(42), false},
		{"CLASS0", 0, true},
		{"NOPE", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRRClass(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRRClass(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRRClass(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRRClass(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
