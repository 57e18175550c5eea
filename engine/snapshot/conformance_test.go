package snapshot

import (
	"testing"

	"github.com/fvrstore/fvrstore/engine"
	"github.com/fvrstore/fvrstore/engine/conformance"
)

func TestConformance(t *testing.T) {
	conformance.RunEngineTests(t, "snapshot", func() engine.Engine {
		return New(&Options{NumShards: 4})
	})
}
