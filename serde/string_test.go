package serde

import (
	"testing"

	"github.com/fvrstore/fvrstore/errs"
)

func TestStringSerdeRoundTrip(t *testing.T) {
	s := NewStringSerde()

	cases := []string{"", "a", "hello world", "日本語", "\x00\x01\x02"}
	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			got, err := s.Decode(s.Encode(c))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c {
				t.Errorf("round trip mismatch: expected %q, got %q", c, got)
			}
		})
	}
}

func TestStringSerdeInvalidUTF8(t *testing.T) {
	s := NewStringSerde()

	_, err := s.Decode([]byte{0xff, 0xfe, 0xfd})
	if err == nil {
		t.Fatal("expected an error decoding invalid UTF-8")
	}
	if !errs.Is(err, errs.SerdeError) {
		t.Errorf("expected SerdeError, got %v", err)
	}
}
