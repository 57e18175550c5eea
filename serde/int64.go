package serde

import (
	"encoding/binary"

	"github.com/fvrstore/fvrstore/errs"
)

// NewInt64Serde creates a Serde for int64 using a fixed 8-byte,
// platform-independent representation. The byte order is native on all
// targeted hosts (little-endian), per the fixed-layout record format.
func NewInt64Serde() Serde[int64] {
	return int64Serde{}
}

type int64Serde struct{}

func (int64Serde) Encode(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// Decode accepts inputs of length 0..8, zero-extending any missing high
// bytes, and fails when the input is longer than 8 bytes.
func (int64Serde) Decode(b []byte) (int64, error) {
	if len(b) > 8 {
		return 0, errs.Newf(errs.SerdeError, "int64 serde: input length %d exceeds 8 bytes", len(b))
	}
	var buf [8]byte
	copy(buf[:], b)
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
