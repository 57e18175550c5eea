package vsm

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

type dbMetrics struct {
	handleHits   *metrics.Counter
	handleMisses *metrics.Counter
	writeLatency *metrics.Histogram
	reclaimed    *metrics.Counter
}

func newDBMetrics(name string) *dbMetrics {
	return &dbMetrics{
		handleHits:   metrics.GetOrCreateCounter(fmt.Sprintf(`dkvfvr_vsm_handle_hits_total{db=%q}`, name)),
		handleMisses: metrics.GetOrCreateCounter(fmt.Sprintf(`dkvfvr_vsm_handle_misses_total{db=%q}`, name)),
		writeLatency: metrics.GetOrCreateHistogram(fmt.Sprintf(`dkvfvr_vsm_write_seconds{db=%q}`, name)),
		reclaimed:    metrics.GetOrCreateCounter(fmt.Sprintf(`dkvfvr_vsm_reclaimed_versions_total{db=%q}`, name)),
	}
}
