package mdm

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fvrstore/fvrstore/engine/snapshot"
	"github.com/fvrstore/fvrstore/fvr"
	"github.com/fvrstore/fvrstore/serde"
	"github.com/fvrstore/fvrstore/vsm"
)

func newTestMDM(t *testing.T) *MDM[int64, string] {
	t.Helper()
	dataDir := t.TempDir()
	cfg := DefaultConfig(dataDir)
	cfg.CleanTaskDelay = time.Hour
	cfg.CleanTaskPeriod = time.Hour
	eng := snapshot.New(&snapshot.Options{NumShards: 2})
	m, err := New[int64, string](cfg, eng, serde.NewInt64Serde(), serde.NewStringSerde())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGetDBBlankNameIsAbsent(t *testing.T) {
	m := newTestMDM(t)
	if _, ok := m.GetDB(""); ok {
		t.Error("expected blank name to be absent")
	}
}

func TestGetDBCachesAndReturnsSameVSM(t *testing.T) {
	m := newTestMDM(t)
	v1, ok := m.GetDB("db1")
	if !ok {
		t.Fatal("expected db1 to open")
	}
	v2, ok := m.GetDB("db1")
	if !ok || v1 != v2 {
		t.Fatal("expected a cached, identical VSM on the second lookup")
	}
}

func TestCreateAndFillEndToEnd(t *testing.T) {
	m := newTestMDM(t)
	ctx := context.Background()

	err := m.CreateAndFill(ctx, "db1", vsm.NewMapProducer(map[int64]string{1: "a", 2: "b"}))
	if err != nil {
		t.Fatalf("CreateAndFill: %v", err)
	}

	v, ok := m.GetDB("db1")
	if !ok {
		t.Fatal("expected db1 to be resident after CreateAndFill")
	}
	if val, found := v.Get(ctx, 1); !found || val != "a" {
		t.Errorf("expected (a,true), got (%s,%v)", val, found)
	}
}

// S3 — CAS race: two concurrent WriteOnce calls against the same VSM only
// one of which installs its version.
func TestConcurrentWriteOnceOnlyOneWins(t *testing.T) {
	m := newTestMDM(t)
	ctx := context.Background()

	if err := m.CreateAndFill(ctx, "db1", vsm.NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	v, ok := m.GetDB("db1")
	if !ok {
		t.Fatal("expected db1 to exist")
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		val := i
		go func() {
			defer wg.Done()
			_ = v.WriteOnce(ctx, vsm.NewMapProducer(map[int64]string{1: int64FormatHack(val)}))
		}()
	}
	wg.Wait()

	if v.Version() != 2 {
		t.Fatalf("expected exactly one of the two racing writers to install version 2, got %d", v.Version())
	}
}

func int64FormatHack(i int) string {
	if i == 0 {
		return "x"
	}
	return "y"
}

func TestEnforceDiskQuotaReclaimsNonResidentDB(t *testing.T) {
	m := newTestMDM(t)
	m.cfg.MaxDiskUsageGB = 0.0000001 // force enforcement regardless of actual usage
	ctx := context.Background()

	if err := m.CreateAndFill(ctx, "db1", vsm.NewMapProducer(map[int64]string{1: "a"})); err != nil {
		t.Fatalf("seed write 1: %v", err)
	}
	v, _ := m.GetDB("db1")
	if err := v.WriteOnce(ctx, vsm.NewMapProducer(map[int64]string{1: "x"})); err != nil {
		t.Fatalf("seed write 2: %v", err)
	}

	// Make version 1 reclaimable: it must have a positive, old timestamp.
	f, err := fvr.Open(filepath.Join(m.cfg.DataDir, "db1"), m.cfg.DBVersionCount)
	if err != nil {
		t.Fatalf("open fvr directly: %v", err)
	}
	t1 := f.RecordValue(1)
	if t1 <= 0 {
		f.CompareAndSetRecordValue(1, t1, 1)
	}
	f.Close()

	// Evict db1 from the cache to exercise the non-resident path.
	m.cache.Remove("db1")

	if err := m.EnforceDiskQuota(); err != nil {
		t.Fatalf("EnforceDiskQuota: %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.cfg.DataDir, "db1", "1")); !os.IsNotExist(err) {
		t.Fatalf("expected version 1 to be reclaimed even though db1 was not resident, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(m.cfg.DataDir, "db1", "2")); err != nil {
		t.Fatalf("expected current version 2 to survive: %v", err)
	}
}

func TestCloseIsIdempotentAndStopsMaintenance(t *testing.T) {
	m := newTestMDM(t)
	if err := m.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}
