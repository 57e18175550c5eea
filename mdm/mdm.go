package mdm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fvrstore/fvrstore/engine"
	"github.com/fvrstore/fvrstore/errs"
	"github.com/fvrstore/fvrstore/fvr"
	"github.com/fvrstore/fvrstore/internal/logging"
	"github.com/fvrstore/fvrstore/serde"
	"github.com/fvrstore/fvrstore/vsm"
)

// MDM owns a data root and a bounded cache of the VSMs opened against it.
type MDM[K, V any] struct {
	cfg    Config
	eng    engine.Engine
	kSerde serde.Serde[K]
	vSerde serde.Serde[V]

	cache  *lru.LRU[string, *vsm.VSM[K, V]]
	loadMu sync.Mutex

	log     logging.Logger
	metrics *mdmMetrics

	stop   chan struct{}
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// New constructs an MDM rooted at cfg.DataDir, creating it if missing, and
// starts the background maintenance task.
func New[K, V any](cfg Config, eng engine.Engine, kSerde serde.Serde[K], vSerde serde.Serde[V]) (*MDM[K, V], error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, errs.New(errs.ConfigError, "data_dir must not be blank")
	}
	cfg = cfg.normalized()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, errs.Wrap(errs.IoError, "mkdir "+cfg.DataDir, err)
	}
	if info, err := os.Stat(cfg.DataDir); err != nil || !info.IsDir() {
		return nil, errs.Newf(errs.ConfigError, "data_dir %s is not a directory", cfg.DataDir)
	}

	m := &MDM[K, V]{
		cfg:     cfg,
		eng:     eng,
		kSerde:  kSerde,
		vSerde:  vSerde,
		log:     logging.Get("mdm"),
		metrics: newMDMMetrics(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	m.cache = lru.NewLRU[string, *vsm.VSM[K, V]](cfg.MaxOpenDB, m.onEvictVSM, cfg.MaxIdleTime)

	go m.maintenanceLoop()

	return m, nil
}

func (m *MDM[K, V]) onEvictVSM(name string, v *vsm.VSM[K, V]) {
	if err := v.Close(); err != nil {
		m.log.Warningf("closing evicted VSM %s: %v", name, err)
	}
}

func (m *MDM[K, V]) vsmConfig() vsm.Config {
	return vsm.Config{
		MaxOpenHandles:      10,
		HandleIdleTimeout:   m.cfg.DBVersionExpire,
		VersionClearTimeout: m.cfg.DBVersionCleanTime,
		RecordCapacity:      m.cfg.DBVersionCount,
	}
}

// GetDB returns the VSM for name, constructing and caching one on first
// reference. A blank name, or a construction failure, returns !ok without
// populating the cache.
func (m *MDM[K, V]) GetDB(name string) (*vsm.VSM[K, V], bool) {
	if strings.TrimSpace(name) == "" {
		return nil, false
	}

	if v, ok := m.cache.Get(name); ok {
		return v, true
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	if v, ok := m.cache.Get(name); ok {
		return v, true
	}

	v, err := vsm.New[K, V](m.cfg.DataDir, name, m.eng, m.kSerde, m.vSerde, m.vsmConfig())
	if err != nil {
		m.metrics.dbOpenFails.Inc()
		m.log.Warningf("opening database %s: %v", name, err)
		return nil, false
	}

	m.metrics.dbOpens.Inc()
	m.cache.Add(name, v)
	return v, true
}

// CreateAndFill resolves or creates the named database, publishes a new
// version from producer, then enforces the disk quota.
func (m *MDM[K, V]) CreateAndFill(ctx context.Context, name string, producer vsm.Producer[K, V]) error {
	v, ok := m.GetDB(name)
	if !ok {
		return errs.Newf(errs.ConfigError, "could not open database %s", name)
	}
	if err := v.WriteOnce(ctx, producer); err != nil {
		return err
	}
	return m.EnforceDiskQuota()
}

// EnforceDiskQuota walks DataDir; if total usage is within the ceiling it
// returns immediately. Otherwise it reclaims stale versions from every
// subdirectory of the root - resident in the cache or not - running the same
// reclamation loop as VSM.Clear but with a fixed 24-hour window, independent
// of each database's own configured window.
func (m *MDM[K, V]) EnforceDiskQuota() error {
	if m.cfg.MaxDiskUsageGB <= 0 {
		return nil
	}

	usage, err := diskUsage(m.cfg.DataDir)
	if err != nil {
		return err
	}
	ceiling := int64(m.cfg.MaxDiskUsageGB * (1 << 30))
	if usage <= ceiling {
		return nil
	}
	m.metrics.quotaRuns.Inc()

	entries, err := os.ReadDir(m.cfg.DataDir)
	if err != nil {
		return errs.Wrap(errs.IoError, "read dir "+m.cfg.DataDir, err)
	}

	const quotaWindow = 24 * time.Hour
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dbDir := filepath.Join(m.cfg.DataDir, e.Name())
		if err := reclaimDirectly(dbDir, m.cfg.DBVersionCount, quotaWindow, m.log); err != nil {
			m.log.Warningf("enforcing disk quota on %s: %v", dbDir, err)
		}
	}
	return nil
}

// reclaimDirectly runs the reclamation loop directly against dbDir's FVR,
// bypassing any resident VSM's handle cache - used by disk-quota
// enforcement to reach databases that are not currently open.
func reclaimDirectly(dbDir string, r int32, window time.Duration, log logging.Logger) error {
	f, err := fvr.Open(dbDir, r)
	if err != nil {
		return err
	}
	defer f.Close()

	latest := f.Latest()
	windowMs := window.Milliseconds()
	now := time.Now().UnixMilli()

	// latest can exceed r if dbDir's _VERSION was created with a larger
	// record capacity than the MDM-wide default passed in here; cap the
	// loop at capacity+1 so RecordValue/CompareAndSetRecordValue never see
	// an out-of-range version (validateVersion panics on that) while still
	// reclaiming version r itself when it isn't the current one.
	upper := latest
	if capacity := f.Capacity(); upper > capacity+1 {
		log.Warningf("quota reclaim of %s: latest version %d exceeds record capacity %d, reclaiming only versions in range", dbDir, latest, capacity)
		upper = capacity + 1
	}

	for ver := int32(1); ver < upper; ver++ {
		t := f.RecordValue(ver)
		if t < 0 {
			continue
		}
		if now-t <= windowMs {
			continue
		}
		if !f.CompareAndSetRecordValue(ver, t, fvr.Clearing) {
			continue
		}

		versionDir := filepath.Join(dbDir, fmt.Sprintf("%d", ver))
		if err := os.RemoveAll(versionDir); err != nil {
			log.Warningf("quota reclaim of %s: %v", versionDir, err)
			f.CompareAndSetRecordValue(ver, fvr.Clearing, t)
			continue
		}
		log.Infof("quota reclaim removed %s", versionDir)
	}
	return nil
}

func diskUsage(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.IoError, "walk "+root, err)
	}
	return total, nil
}

// --------------------------------------------------------------------------
// Maintenance loop
// --------------------------------------------------------------------------

func (m *MDM[K, V]) maintenanceLoop() {
	defer close(m.done)

	timer := time.NewTimer(m.cfg.CleanTaskDelay)
	defer timer.Stop()

	select {
	case <-m.stop:
		return
	case <-timer.C:
	}
	m.runMaintenance()

	ticker := time.NewTicker(m.cfg.CleanTaskPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.runMaintenance()
		}
	}
}

func (m *MDM[K, V]) runMaintenance() {
	for _, name := range m.cache.Keys() {
		v, ok := m.cache.Get(name)
		if !ok {
			continue
		}
		if err := v.Clear(); err != nil {
			m.log.Warningf("maintenance clear of %s: %v", name, err)
		}
	}
}

// Info reports the number of resident VSMs.
func (m *MDM[K, V]) Info() Info {
	return Info{OpenDatabases: m.cache.Len()}
}

// Info summarizes MDM-level operational state.
type Info struct {
	OpenDatabases int
}

// Close stops the maintenance task and closes every resident VSM. Idempotent.
func (m *MDM[K, V]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	close(m.stop)
	<-m.done
	m.cache.Purge()
	return nil
}
