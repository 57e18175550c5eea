package mdm

import "github.com/VictoriaMetrics/metrics"

type mdmMetrics struct {
	dbOpens     *metrics.Counter
	dbOpenFails *metrics.Counter
	quotaRuns   *metrics.Counter
}

func newMDMMetrics() *mdmMetrics {
	return &mdmMetrics{
		dbOpens:     metrics.GetOrCreateCounter(`dkvfvr_mdm_db_opens_total`),
		dbOpenFails: metrics.GetOrCreateCounter(`dkvfvr_mdm_db_open_failures_total`),
		quotaRuns:   metrics.GetOrCreateCounter(`dkvfvr_mdm_quota_enforcements_total`),
	}
}
