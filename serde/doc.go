// Package serde provides the Serde[T] contract and implementations used to
// turn application-level keys and values into the byte sequences that the
// engine package puts and gets.
//
// Provided implementations:
//   - StringSerde: UTF-8 encode/decode.
//   - Int64Serde: fixed 8-byte, native (little-endian) representation.
//   - GobSerde[T]: encoding/gob for arbitrary Go values.
//   - JSONSerde[T]: encoding/json for arbitrary Go values.
//
// The Gob and JSON variants exist because the fixed-layout core only ever
// needs String and Int64, but a caller plugging an arbitrary struct into
// vsm.VSM[K, V] needs something richer.
package serde
