package conformance

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/fvrstore/fvrstore/engine"
)

// EngineFactory builds a fresh, empty Engine instance for each subtest.
type EngineFactory func() engine.Engine

// RunEngineTests runs the standard conformance suite against an Engine
// implementation. Each subtest opens its own temp directory so instances
// never interfere with each other.
func RunEngineTests(t *testing.T, name string, factory EngineFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutGet", func(t *testing.T) { testPutGet(t, factory()) })
		t.Run("MultiGetPreservesOrder", func(t *testing.T) { testMultiGet(t, factory()) })
		t.Run("ReadOnlyAfterClose", func(t *testing.T) { testReadOnlyAfterClose(t, factory()) })
		t.Run("EdgeCases", func(t *testing.T) { testEdgeCases(t, factory()) })
		t.Run("ManyKeys", func(t *testing.T) { testManyKeys(t, factory()) })
		t.Run("ConcurrentReaders", func(t *testing.T) { testConcurrentReaders(t, factory()) })
	})
}

func writeFixture(t *testing.T, eng engine.Engine, dir string, entries map[string][]byte) engine.Handle {
	t.Helper()
	ctx := context.Background()
	w, err := eng.OpenWritable(dir)
	if err != nil {
		t.Fatalf("OpenWritable: %v", err)
	}
	for k, v := range entries {
		if err := w.Put(ctx, []byte(k), v); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close writable: %v", err)
	}
	r, err := eng.OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	return r
}

func testPutGet(t *testing.T, eng engine.Engine) {
	ctx := context.Background()
	dir := t.TempDir()
	h := writeFixture(t, eng, dir, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	})
	defer h.Close()

	val, found, err := h.Get(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || !bytes.Equal(val, []byte("1")) {
		t.Errorf("expected a=1, got found=%v val=%s", found, val)
	}

	_, found, err = h.Get(ctx, []byte("missing"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Errorf("expected missing key to be absent")
	}
}

func testMultiGet(t *testing.T, eng engine.Engine) {
	ctx := context.Background()
	dir := t.TempDir()
	h := writeFixture(t, eng, dir, map[string][]byte{
		"a": []byte("1"),
		"c": []byte("3"),
	})
	defer h.Close()

	results, err := h.MultiGet(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if err != nil {
		t.Fatalf("MultiGet: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Found || !bytes.Equal(results[0].Value, []byte("1")) {
		t.Errorf("index 0: expected a=1, got %+v", results[0])
	}
	if results[1].Found {
		t.Errorf("index 1: expected b to be absent")
	}
	if !results[2].Found || !bytes.Equal(results[2].Value, []byte("3")) {
		t.Errorf("index 2: expected c=3, got %+v", results[2])
	}
}

func testReadOnlyAfterClose(t *testing.T, eng engine.Engine) {
	dir := t.TempDir()
	h := writeFixture(t, eng, dir, map[string][]byte{"k": []byte("v")})
	defer h.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected Put on a read-only handle to panic")
		}
	}()
	_ = h.Put(context.Background(), []byte("k"), []byte("v2"))
}

func testEdgeCases(t *testing.T, eng engine.Engine) {
	ctx := context.Background()
	dir := t.TempDir()
	h := writeFixture(t, eng, dir, map[string][]byte{
		"":       []byte("empty-key-value"),
		"empty":  {},
		"nilval": nil,
	})
	defer h.Close()

	val, found, err := h.Get(ctx, []byte(""))
	if err != nil || !found || !bytes.Equal(val, []byte("empty-key-value")) {
		t.Errorf("empty key: got found=%v val=%s, err=%v", found, val, err)
	}
	val, found, err = h.Get(ctx, []byte("empty"))
	if err != nil || !found || len(val) != 0 {
		t.Errorf("empty value: got found=%v val=%s, err=%v", found, val, err)
	}
	val, found, err = h.Get(ctx, []byte("nilval"))
	if err != nil || !found || len(val) != 0 {
		t.Errorf("nil value: got found=%v val=%s, err=%v", found, val, err)
	}
}

func testManyKeys(t *testing.T, eng engine.Engine) {
	ctx := context.Background()
	dir := t.TempDir()
	const n = 1000
	entries := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		entries[fmt.Sprintf("key-%d", i)] = []byte(fmt.Sprintf("value-%d", i))
	}
	h := writeFixture(t, eng, dir, entries)
	defer h.Close()

	for i := 0; i < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		val, found, err := h.Get(ctx, []byte(key))
		if err != nil {
			t.Fatalf("Get(%s): %v", key, err)
		}
		if !found || !bytes.Equal(val, []byte(fmt.Sprintf("value-%d", i))) {
			t.Errorf("key %s: got found=%v val=%s", key, found, val)
		}
	}
}

func testConcurrentReaders(t *testing.T, eng engine.Engine) {
	ctx := context.Background()
	dir := t.TempDir()
	const n = 200
	entries := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		entries[fmt.Sprintf("key-%d", i)] = []byte(fmt.Sprintf("value-%d", i))
	}
	h := writeFixture(t, eng, dir, entries)
	defer h.Close()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				key := fmt.Sprintf("key-%d", i)
				_, found, err := h.Get(ctx, []byte(key))
				if err != nil || !found {
					t.Errorf("concurrent get of %s failed: found=%v err=%v", key, found, err)
				}
			}
		}()
	}
	wg.Wait()
}
