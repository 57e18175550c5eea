package vsm

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
)

// Config configures a VSM.
type Config struct {
	// MaxOpenHandles bounds the number of simultaneously open read-only
	// snapshot handles.
	MaxOpenHandles int
	// HandleIdleTimeout evicts a handle this long after it was added to the
	// cache; later lookups of the same version do not extend it.
	HandleIdleTimeout time.Duration
	// VersionClearTimeout is the minimum time a version must go unaccessed
	// before Clear is willing to reclaim it. If smaller than
	// HandleIdleTimeout, it is raised to 5x HandleIdleTimeout.
	VersionClearTimeout time.Duration
	// RecordCapacity is the FVR's R. Zero or out-of-range falls back to
	// fvr.DefaultRecordCount.
	RecordCapacity int32
}

// DefaultConfig returns the documented production defaults.
func DefaultConfig() Config {
	return Config{
		MaxOpenHandles:      10,
		HandleIdleTimeout:   30 * time.Minute,
		VersionClearTimeout: 24 * time.Hour,
		RecordCapacity:      fvr.DefaultRecordCount,
	}
}

func (c Config) normalized() Config {
	if c.MaxOpenHandles <= 0 {
		c.MaxOpenHandles = 10
	}
	if c.HandleIdleTimeout <= 0 {
		c.HandleIdleTimeout = 30 * time.Minute
	}
	if c.VersionClearTimeout < c.HandleIdleTimeout {
		c.VersionClearTimeout = c.HandleIdleTimeout * 5
	}
	return c
}

// Optional is the result of a lookup that may legitimately be absent.
type Optional[V any] struct {
	Value V
	Found bool
}

// Info reports operational statistics about a VSM.
type Info struct {
	Name           string
	CurrentVersion int32
	OpenHandles    int
	SizeBytes      int64
}

// VSM owns one logical database directory.
type VSM[K, V any] struct {
	name string
	dir  string
	cfg  Config

	eng    engine.Engine
	kSerde serde.Serde[K]
	vSerde serde.Serde[V]

	fvrFile *fvr.FVR
	handles *lru.LRU[int32, engine.Handle]
	loadMu  sync.Mutex

	log     logging.Logger
	metrics *dbMetrics

	closed bool
	mu     sync.RWMutex
}

// New constructs a VSM rooted at dataDir/name, creating the directory and
// its FVR if needed, and sweeping any orphaned writer scratch directories
// left by a crashed process.
func New[K, V any](dataDir, name string, eng engine.Engine, kSerde serde.Serde[K], vSerde serde.Serde[V], cfg Config) (*VSM[K, V], error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "/\\") {
		return nil, errs.Newf(errs.ArgumentError, "invalid database name %q", name)
	}

	cfg = cfg.normalized()
	dir := filepath.Join(dataDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.IoError, "mkdir "+dir, err)
	}

	f, err := fvr.Open(dir, cfg.RecordCapacity)
	if err != nil {
		return nil, err
	}

	v := &VSM[K, V]{
		name:    name,
		dir:     dir,
		cfg:     cfg,
		eng:     eng,
		kSerde:  kSerde,
		vSerde:  vSerde,
		fvrFile: f,
		log:     logging.Get("vsm"),
		metrics: newDBMetrics(name),
	}

	v.handles = lru.NewLRU[int32, engine.Handle](cfg.MaxOpenHandles, v.onEvictHandle, cfg.HandleIdleTimeout)

	if err := v.sweepOrphans(); err != nil {
		f.Close()
		return nil, err
	}

	return v, nil
}

func (v *VSM[K, V]) onEvictHandle(version int32, h engine.Handle) {
	if err := h.Close(); err != nil {
		v.log.Warningf("closing evicted handle for %s version %d: %v", v.name, version, err)
	}
}

// sweepOrphans deletes _temp_v*_* directories left by a crashed writer.
func (v *VSM[K, V]) sweepOrphans() error {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return errs.Wrap(errs.IoError, "read dir "+v.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "_temp_v") {
			continue
		}
		path := filepath.Join(v.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			v.log.Warningf("sweeping orphan %s: %v", path, err)
			continue
		}
		v.log.Infof("swept orphan writer directory %s", path)
	}
	return nil
}

// Version returns the FVR's current version, 0 if the database has never
// been written.
func (v *VSM[K, V]) Version() int32 {
	return v.fvrFile.Latest()
}

// --------------------------------------------------------------------------
// Write path
// --------------------------------------------------------------------------

type writerAdapter[K, V any] struct {
	ctx    context.Context
	handle engine.Handle
	kSerde serde.Serde[K]
	vSerde serde.Serde[V]
}

func (w *writerAdapter[K, V]) Put(k K, val V) error {
	kb := w.kSerde.Encode(k)
	vb := w.vSerde.Encode(val)
	if err := w.handle.Put(w.ctx, kb, vb); err != nil {
		return errs.Wrap(errs.EngineError, "put", err)
	}
	return nil
}

// WriteOnce publishes a new version by running producer against a fresh
// writable snapshot. A lost CAS race (another writer published first) is
// not an error: the new version simply never gets installed, and the
// caller may retry against the now-current version if it still wants its
// data published.
func (v *VSM[K, V]) WriteOnce(ctx context.Context, producer Producer[K, V]) error {
	start := time.Now()
	defer func() { v.metrics.writeLatency.Update(time.Since(start).Seconds()) }()

	expected := v.fvrFile.Latest()
	next := expected + 1
	if next > v.fvrFile.Capacity() {
		return errs.Newf(errs.CapacityExhausted, "database %s: version capacity %d exhausted", v.name, v.fvrFile.Capacity())
	}

	tmp := filepath.Join(v.dir, fmt.Sprintf("_temp_v%d_%d", next, time.Now().UnixMilli()))
	if err := os.MkdirAll(tmp, 0755); err != nil {
		return errs.Wrap(errs.IoError, "mkdir "+tmp, err)
	}

	wh, err := v.eng.OpenWritable(tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return errs.Wrap(errs.EngineError, "open writable "+tmp, err)
	}

	w := &writerAdapter[K, V]{ctx: ctx, handle: wh, kSerde: v.kSerde, vSerde: v.vSerde}
	prodErr := producer.Produce(ctx, w)

	if err := wh.Close(); err != nil {
		os.RemoveAll(tmp)
		return errs.Wrap(errs.EngineError, "close writable "+tmp, err)
	}

	if prodErr != nil {
		os.RemoveAll(tmp)
		return errs.Wrap(errs.EngineError, "producer failed", prodErr)
	}

	ok, err := v.fvrFile.CompareAndSetMeta(expected, next)
	if err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if !ok {
		os.RemoveAll(tmp)
		v.log.Infof("%s: lost publication race for version %d", v.name, next)
		return nil
	}

	dest := filepath.Join(v.dir, fmt.Sprintf("%d", next))
	if err := os.Rename(tmp, dest); err != nil {
		return errs.Wrap(errs.IoError, "rename "+tmp+" -> "+dest, err)
	}
	v.log.Infof("%s: published version %d", v.name, next)
	return nil
}

// --------------------------------------------------------------------------
// Read path
// --------------------------------------------------------------------------

// Get returns the value for k in the current version, or !found if the
// database is empty, the key is absent, or any engine/serde error occurs.
func (v *VSM[K, V]) Get(ctx context.Context, k K) (V, bool) {
	var zero V
	version := v.fvrFile.Latest()
	if version == 0 {
		return zero, false
	}

	h, ok := v.handleFor(version)
	if !ok {
		return zero, false
	}

	kb := v.kSerde.Encode(k)
	vb, found, err := h.Get(ctx, kb)
	if err != nil {
		v.log.Warningf("%s: get v%d: %v", v.name, version, err)
		return zero, false
	}
	if !found {
		return zero, false
	}

	val, err := v.vSerde.Decode(vb)
	if err != nil {
		v.log.Warningf("%s: decode v%d: %v", v.name, version, err)
		return zero, false
	}
	return val, true
}

// MultiGet returns one Optional per key, positionally aligned with ks. An
// engine-level failure returns an empty slice, per the read-path error
// policy (reads absorb errors and never surface partial results).
func (v *VSM[K, V]) MultiGet(ctx context.Context, ks []K) []Optional[V] {
	version := v.fvrFile.Latest()
	if version == 0 {
		out := make([]Optional[V], len(ks))
		return out
	}

	h, ok := v.handleFor(version)
	if !ok {
		return make([]Optional[V], len(ks))
	}

	kbs := make([][]byte, len(ks))
	for i, k := range ks {
		kbs[i] = v.kSerde.Encode(k)
	}

	results, err := h.MultiGet(ctx, kbs)
	if err != nil {
		v.log.Warningf("%s: multiGet v%d: %v", v.name, version, err)
		return nil
	}

	out := make([]Optional[V], len(ks))
	for i, r := range results {
		if !r.Found {
			continue
		}
		val, err := v.vSerde.Decode(r.Value)
		if err != nil {
			v.log.Warningf("%s: decode v%d key %d: %v", v.name, version, i, err)
			continue
		}
		out[i] = Optional[V]{Value: val, Found: true}
	}
	return out
}

// handleFor returns the open read-only handle for version, opening and
// caching it on miss. ok is false if the version is absent, reclaimed, or
// fails to open.
func (v *VSM[K, V]) handleFor(version int32) (engine.Handle, bool) {
	if h, ok := v.handles.Get(version); ok {
		v.metrics.handleHits.Inc()
		return h, true
	}

	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	if h, ok := v.handles.Get(version); ok {
		v.metrics.handleHits.Inc()
		return h, true
	}
	v.metrics.handleMisses.Inc()

	if version <= 0 {
		return nil, false
	}
	versionDir := filepath.Join(v.dir, fmt.Sprintf("%d", version))
	if _, err := os.Stat(versionDir); err != nil {
		return nil, false
	}

	rv := v.fvrFile.RecordValue(version)
	if rv <= -1 {
		return nil, false
	}

	h, err := v.eng.OpenReadOnly(versionDir)
	if err != nil {
		v.log.Warningf("%s: open read-only v%d: %v", v.name, version, err)
		return nil, false
	}

	// Best-effort access-time update: a CAS loss means another reader beat
	// us to it, which is equally recent and therefore harmless.
	v.fvrFile.CompareAndSetRecordValue(version, rv, time.Now().UnixMilli())

	v.handles.Add(version, h)
	return h, true
}

// --------------------------------------------------------------------------
// Reclamation
// --------------------------------------------------------------------------

// Clear deletes versions whose access timestamp is older than
// VersionClearTimeout, always preserving the current version.
func (v *VSM[K, V]) Clear() error {
	latest := v.fvrFile.Latest()
	window := v.cfg.VersionClearTimeout.Milliseconds()
	now := time.Now().UnixMilli()

	for ver := int32(1); ver < latest; ver++ {
		t := v.fvrFile.RecordValue(ver)
		if t < 0 {
			continue
		}
		if now-t <= window {
			continue
		}
		if !v.fvrFile.CompareAndSetRecordValue(ver, t, fvr.Clearing) {
			continue
		}

		versionDir := filepath.Join(v.dir, fmt.Sprintf("%d", ver))
		if err := os.RemoveAll(versionDir); err != nil {
			v.log.Warningf("%s: reclaiming v%d: %v", v.name, ver, err)
			v.fvrFile.CompareAndSetRecordValue(ver, fvr.Clearing, t)
			continue
		}
		v.handles.Remove(ver)
		v.metrics.reclaimed.Inc()
		v.log.Infof("%s: reclaimed version %d", v.name, ver)
	}
	return nil
}

// --------------------------------------------------------------------------
// Introspection & lifecycle
// --------------------------------------------------------------------------

// Info reports a snapshot of operational statistics.
func (v *VSM[K, V]) Info() Info {
	var size int64
	filepath.WalkDir(v.dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})

	return Info{
		Name:           v.name,
		CurrentVersion: v.fvrFile.Latest(),
		OpenHandles:    v.handles.Len(),
		SizeBytes:      size,
	}
}

// Close evicts and closes every cached handle and closes the FVR. Idempotent.
func (v *VSM[K, V]) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.closed = true

	v.handles.Purge()
	return v.fvrFile.Close()
}
