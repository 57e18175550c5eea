// Package hashutil provides the seeded string-hashing primitives used to
// shard keys across an in-process snapshot engine.
package hashutil

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// UintKey is a hashed key used for shard placement.
type UintKey uint64

// GenerateSeed returns a random 64-bit seed for HashString, falling back to
// the current time only if the system RNG is unavailable.
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// HashString computes an FNV-1a hash of s, mixed with seed so that two
// engines never place keys into the same shards by coincidence.
func HashString(s string, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return UintKey(hash)
}

// Shard returns the index of the shard key belongs to among n shards,
// shifting right by 7 bits to use the higher-quality bits of the hash for
// distribution.
func Shard(key UintKey, n int) int {
	shifted := uint64(key) >> 7
	return int(shifted % uint64(n))
}
