package snapshot

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/fvrstore/fvrstore/engine/hashutil"
)

// shard is one partition of the key space, independently lockable via the
// concurrent map it wraps.
type shard struct {
	data *xsync.MapOf[string, []byte]
}

func newShard() *shard {
	return &shard{data: xsync.NewMapOf[string, []byte]()}
}

// shardFor returns the shard responsible for key, given the engine's seed
// and shard count.
func shardFor(key []byte, seed uint64, shards []*shard) *shard {
	h := hashutil.HashString(string(key), seed)
	return shards[hashutil.Shard(h, len(shards))]
}
