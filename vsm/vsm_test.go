package vsm

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fvrstore/fvrstore/engine/snapshot"
	"github.com/fvrstore/fvrstore/fvr"
	"github.com/fvrstore/fvrstore/serde"
)

func newTestVSM(t *testing.T) (*VSM[int64, string], string) {
	t.Helper()
	dataDir := t.TempDir()
	eng := snapshot.New(&snapshot.Options{NumShards: 2})
	cfg := DefaultConfig()
	v, err := New[int64, string](dataDir, "db1", eng, serde.NewInt64Serde(), serde.NewStringSerde(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { v.Close() })
	return v, dataDir
}

// S1 — cold write then read.
func TestColdWriteThenRead(t *testing.T) {
	v, dataDir := newTestVSM(t)
	ctx := context.Background()

	producer := NewMapProducer(map[int64]string{1: "a", 2: "b"})
	if err := v.WriteOnce(ctx, producer); err != nil {
		t.Fatalf("WriteOnce: %v", err)
	}

	if v.Version() != 1 {
		t.Fatalf("expected version 1, got %d", v.Version())
	}
	if _, err := os.Stat(filepath.Join(dataDir, "db1", "1")); err != nil {
		t.Fatalf("expected version directory to exist: %v", err)
	}
	info, err := os.Stat(filepath.Join(dataDir, "db1", fvr.FileName))
	if err != nil {
		t.Fatalf("stat FVR file: %v", err)
	}
	wantSize := int64(4 + fvr.DefaultRecordCount*12)
	if info.Size() != wantSize {
		t.Fatalf("expected FVR size %d, got %d", wantSize, info.Size())
	}

	if val, ok := v.Get(ctx, 1); !ok || val != "a" {
		t.Errorf("expected (a,true), got (%s,%v)", val, ok)
	}
	if val, ok := v.Get(ctx, 2); !ok || val != "b" {
		t.Errorf("expected (b,true), got (%s,%v)", val, ok)
	}
	if _, ok := v.Get(ctx, 3); ok {
		t.Errorf("expected key 3 to be absent")
	}
}

// S2 — two sequential writes.
func TestSequentialWritesReplaceNotMerge(t *testing.T) {
	v, dataDir := newTestVSM(t)
	ctx := context.Background()

	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "a", 2: "b"})); err != nil {
		t.Fatalf("WriteOnce 1: %v", err)
	}
	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "x"})); err != nil {
		t.Fatalf("WriteOnce 2: %v", err)
	}

	if v.Version() != 2 {
		t.Fatalf("expected version 2, got %d", v.Version())
	}
	for _, dir := range []string{"1", "2"} {
		if _, err := os.Stat(filepath.Join(dataDir, "db1", dir)); err != nil {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
	}

	if val, ok := v.Get(ctx, 1); !ok || val != "x" {
		t.Errorf("expected (x,true), got (%s,%v)", val, ok)
	}

	results := v.MultiGet(ctx, []int64{1, 2, 3})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Found || results[0].Value != "x" {
		t.Errorf("expected x at index 0, got %+v", results[0])
	}
	if results[1].Found || results[2].Found {
		t.Errorf("expected keys 2 and 3 to be absent after replace, got %+v", results)
	}
}

// S4 — reclamation.
func TestClearReclaimsOldVersions(t *testing.T) {
	v, dataDir := newTestVSM(t)
	v.cfg.VersionClearTimeout = 0
	ctx := context.Background()

	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("WriteOnce 1: %v", err)
	}
	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "x"})); err != nil {
		t.Fatalf("WriteOnce 2: %v", err)
	}

	// Force version 1 to look stale: a positive but ancient timestamp.
	rv := v.fvrFile.RecordValue(1)
	if rv <= 0 {
		v.fvrFile.CompareAndSetRecordValue(1, rv, 1)
		rv = 1
	}

	if err := v.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "db1", "1")); !os.IsNotExist(err) {
		t.Fatalf("expected version 1 directory to be removed, stat err=%v", err)
	}
	if v.Version() != 2 {
		t.Fatalf("expected current version to remain 2, got %d", v.Version())
	}
	if got := v.fvrFile.RecordValue(1); got != fvr.Clearing {
		t.Fatalf("expected record value %d, got %d", fvr.Clearing, got)
	}

	// Reads against the still-current version keep working.
	if val, ok := v.Get(ctx, 1); !ok || val != "x" {
		t.Errorf("expected (x,true) from current version, got (%s,%v)", val, ok)
	}
}

// S5 — reader faces CLEARING.
func TestReaderRefusesClearingVersion(t *testing.T) {
	v, _ := newTestVSM(t)
	ctx := context.Background()

	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("WriteOnce: %v", err)
	}

	rv := v.fvrFile.RecordValue(1)
	if rv <= 0 {
		v.fvrFile.CompareAndSetRecordValue(1, rv, time.Now().UnixMilli())
		rv = v.fvrFile.RecordValue(1)
	}
	if !v.fvrFile.CompareAndSetRecordValue(1, rv, fvr.Clearing) {
		t.Fatal("failed to force CLEARING sentinel")
	}

	if _, ok := v.Get(ctx, 1); ok {
		t.Error("expected Get to refuse a CLEARING version")
	}
	if v.handles.Len() != 0 {
		t.Errorf("expected no cached handle for a CLEARING version, got %d", v.handles.Len())
	}
}

// S6 — crash recovery: an orphaned temp directory is swept on construction.
func TestStartupSweepsOrphanTempDirs(t *testing.T) {
	dataDir := t.TempDir()
	dbDir := filepath.Join(dataDir, "db1")
	if err := os.MkdirAll(filepath.Join(dbDir, "_temp_v3_12345"), 0755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	eng := snapshot.New(nil)
	v, err := New[int64, string](dataDir, "db1", eng, serde.NewInt64Serde(), serde.NewStringSerde(), DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	if _, err := os.Stat(filepath.Join(dbDir, "_temp_v3_12345")); !os.IsNotExist(err) {
		t.Fatalf("expected orphan to be swept, stat err=%v", err)
	}

	ctx := context.Background()
	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("WriteOnce after sweep: %v", err)
	}
	if v.Version() != 1 {
		t.Fatalf("expected version 1 to install cleanly, got %d", v.Version())
	}
}

func TestWriteOnceFailsAtCapacity(t *testing.T) {
	dataDir := t.TempDir()
	eng := snapshot.New(nil)
	cfg := DefaultConfig()
	cfg.RecordCapacity = 1
	v, err := New[int64, string](dataDir, "db1", eng, serde.NewInt64Serde(), serde.NewStringSerde(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Close()

	ctx := context.Background()
	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("first WriteOnce: %v", err)
	}
	if err := v.WriteOnce(ctx, NewMapProducer(map[int64]string{1: "b"})); err == nil {
		t.Fatal("expected CapacityExhausted once R=1 is used up")
	}
}
