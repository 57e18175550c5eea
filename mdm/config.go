package mdm

import "time"

// Config configures an MDM and the VSMs it creates.
type Config struct {
	// DataDir is the filesystem root holding one subdirectory per logical
	// database. Created if missing.
	DataDir string

	// MaxOpenDB bounds the number of simultaneously resident VSMs.
	MaxOpenDB int
	// MaxIdleTime evicts a VSM this long after it was added to the cache;
	// lookups through GetDB do not extend it. Eviction closes the VSM
	// (closing its handle cache and FVR).
	MaxIdleTime time.Duration
	// MaxDiskUsageGB is the total ceiling for DataDir, in gigabytes. Zero
	// disables quota enforcement.
	MaxDiskUsageGB float64

	// CleanTaskDelay is the initial delay before the first maintenance run.
	CleanTaskDelay time.Duration
	// CleanTaskPeriod is the interval between subsequent maintenance runs.
	CleanTaskPeriod time.Duration

	// Per-database forwarded configuration. Every VSM created by this MDM
	// uses the same values; EnforceDiskQuota creates no VSM and opens each
	// database's FVR directly with DBVersionCount.
	DBVersionCount     int32
	DBVersionExpire    time.Duration
	DBVersionCleanTime time.Duration
}

// DefaultConfig returns the documented production defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:            dataDir,
		MaxOpenDB:          300,
		MaxIdleTime:        60 * time.Minute,
		MaxDiskUsageGB:     0,
		CleanTaskDelay:     time.Minute,
		CleanTaskPeriod:    10 * time.Minute,
		DBVersionCount:     64,
		DBVersionExpire:    30 * time.Minute,
		DBVersionCleanTime: 24 * time.Hour,
	}
}

func (c Config) normalized() Config {
	if c.MaxOpenDB <= 0 {
		c.MaxOpenDB = 300
	}
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = 60 * time.Minute
	}
	if c.CleanTaskDelay <= 0 {
		c.CleanTaskDelay = time.Minute
	}
	if c.CleanTaskPeriod <= 0 {
		c.CleanTaskPeriod = 10 * time.Minute
	}
	if c.DBVersionCount <= 0 {
		c.DBVersionCount = 64
	}
	if c.DBVersionExpire <= 0 {
		c.DBVersionExpire = 30 * time.Minute
	}
	if c.DBVersionCleanTime < c.DBVersionExpire {
		c.DBVersionCleanTime = c.DBVersionExpire * 5
	}
	return c
}
