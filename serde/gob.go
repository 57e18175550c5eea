package serde

import (
	"bytes"
	"encoding/gob"

	"github.com/fvrstore/fvrstore/errs"
)

// NewGobSerde creates a Serde for an arbitrary gob-encodable type, for
// callers that need richer values than the fixed String/Int64 serdes cover.
func NewGobSerde[T any]() Serde[T] {
	return gobSerde[T]{}
}

type gobSerde[T any] struct{}

func (gobSerde[T]) Encode(v T) []byte {
	var buf bytes.Buffer
	// gob.Encoder only fails on unsupported types, which is a programming
	// error the caller would see on the very first call - not a runtime
	// condition worth threading through every Encode call.
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func (gobSerde[T]) Decode(b []byte) (T, error) {
	var v T
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return v, errs.Wrap(errs.SerdeError, "gob decode failed", err)
	}
	return v, nil
}
