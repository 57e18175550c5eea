package snapshot

import (
	"testing"

	"github.com/fvrstore/fvrstore/engine"
	"github.com/fvrstore/fvrstore/engine/conformance"
)

func BenchmarkSnapshot(b *testing.B) {
	conformance.RunEngineBenchmarks(b, "snapshot", func() engine.Engine {
		return New(&Options{NumShards: 4})
	})
}
