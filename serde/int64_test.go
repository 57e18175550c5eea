package serde

import (
	"testing"

	"github.com/fvrstore/fvrstore/errs"
)

func TestInt64SerdeRoundTrip(t *testing.T) {
	s := NewInt64Serde()

	cases := []int64{0, 1, -1, 42, 1 << 40, -(1 << 40)}
	for _, c := range cases {
		got, err := s.Decode(s.Encode(c))
		if err != nil {
			t.Fatalf("unexpected error for %d: %v", c, err)
		}
		if got != c {
			t.Errorf("round trip mismatch: expected %d, got %d", c, got)
		}
	}
}

func TestInt64SerdeZeroExtension(t *testing.T) {
	s := NewInt64Serde()

	// A 1-byte input decodes to the low byte with all high bytes zero.
	got, err := s.Decode([]byte{0x2a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x2a {
		t.Errorf("expected 42, got %d", got)
	}

	// A 7-byte subsequence of an 8-byte encoding zero-extends the missing
	// high byte.
	full := s.Encode(0x0102030405060708)
	got, err = s.Decode(full[:7])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0x02030405060708 {
		t.Errorf("expected zero-extended low 7 bytes, got %#x", got)
	}
}

func TestInt64SerdeTooLong(t *testing.T) {
	s := NewInt64Serde()

	_, err := s.Decode(make([]byte, 9))
	if err == nil {
		t.Fatal("expected an error decoding a 9-byte sequence")
	}
	if !errs.Is(err, errs.SerdeError) {
		t.Errorf("expected SerdeError, got %v", err)
	}
}
