package serde

import (
	"encoding/json"

	"github.com/fvrstore/fvrstore/errs"
)

// NewJSONSerde creates a Serde for an arbitrary JSON-marshalable type.
func NewJSONSerde[T any]() Serde[T] {
	return jsonSerde[T]{}
}

type jsonSerde[T any] struct{}

func (jsonSerde[T]) Encode(v T) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (jsonSerde[T]) Decode(b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, errs.Wrap(errs.SerdeError, "json decode failed", err)
	}
	return v, nil
}
