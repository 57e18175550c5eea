package serde

import "testing"

type gobTestRecord struct {
	Name string
	Age  int
}

func TestGobSerdeRoundTrip(t *testing.T) {
	s := NewGobSerde[gobTestRecord]()

	in := gobTestRecord{Name: "ada", Age: 36}
	got, err := s.Decode(s.Encode(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != in {
		t.Errorf("round trip mismatch: expected %+v, got %+v", in, got)
	}
}

func TestJSONSerdeRoundTrip(t *testing.T) {
	s := NewJSONSerde[gobTestRecord]()

	in := gobTestRecord{Name: "grace", Age: 85}
	got, err := s.Decode(s.Encode(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != in {
		t.Errorf("round trip mismatch: expected %+v, got %+v", in, got)
	}
}

func TestGobSerdeDecodeInvalid(t *testing.T) {
	s := NewGobSerde[gobTestRecord]()
	if _, err := s.Decode([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Fatal("expected an error decoding garbage bytes")
	}
}
