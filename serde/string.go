package serde

import (
	"unicode/utf8"

	"github.com/fvrstore/fvrstore/errs"
)

// NewStringSerde creates a Serde for strings using strict UTF-8 encode/decode.
func NewStringSerde() Serde[string] {
	return stringSerde{}
}

type stringSerde struct{}

func (stringSerde) Encode(v string) []byte {
	return []byte(v)
}

func (stringSerde) Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", errs.New(errs.SerdeError, "invalid UTF-8 sequence")
	}
	return string(b), nil
}
