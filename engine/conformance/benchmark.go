package conformance

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

// RunEngineBenchmarks runs throughput benchmarks for an Engine implementation.
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {
	b.Run(name+"/Get", func(b *testing.B) { benchmarkGet(b, factory) })
	b.Run(name+"/MultiGet", func(b *testing.B) { benchmarkMultiGet(b, factory) })
	b.Run(name+"/GetLargeValue", func(b *testing.B) { benchmarkGetLargeValue(b, factory) })
}

func benchmarkGet(b *testing.B, factory EngineFactory) {
	ctx := context.Background()
	eng := factory()
	dir := b.TempDir()
	w, err := eng.OpenWritable(dir)
	if err != nil {
		b.Fatalf("OpenWritable: %v", err)
	}
	const n = 10_000
	for i := 0; i < n; i++ {
		_ = w.Put(ctx, []byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}
	if err := w.Close(); err != nil {
		b.Fatalf("Close: %v", err)
	}
	r, err := eng.OpenReadOnly(dir)
	if err != nil {
		b.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", rand.Intn(n))
		if _, _, err := r.Get(ctx, []byte(key)); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}

func benchmarkMultiGet(b *testing.B, factory EngineFactory) {
	ctx := context.Background()
	eng := factory()
	dir := b.TempDir()
	w, err := eng.OpenWritable(dir)
	if err != nil {
		b.Fatalf("OpenWritable: %v", err)
	}
	const n = 10_000
	for i := 0; i < n; i++ {
		_ = w.Put(ctx, []byte(fmt.Sprintf("key-%d", i)), []byte(fmt.Sprintf("value-%d", i)))
	}
	if err := w.Close(); err != nil {
		b.Fatalf("Close: %v", err)
	}
	r, err := eng.OpenReadOnly(dir)
	if err != nil {
		b.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	keys := make([][]byte, 100)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", rand.Intn(n)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.MultiGet(ctx, keys); err != nil {
			b.Fatalf("MultiGet: %v", err)
		}
	}
}

func benchmarkGetLargeValue(b *testing.B, factory EngineFactory) {
	ctx := context.Background()
	eng := factory()
	dir := b.TempDir()
	w, err := eng.OpenWritable(dir)
	if err != nil {
		b.Fatalf("OpenWritable: %v", err)
	}
	large := make([]byte, 1<<20)
	_ = w.Put(ctx, []byte("large"), large)
	if err := w.Close(); err != nil {
		b.Fatalf("Close: %v", err)
	}
	r, err := eng.OpenReadOnly(dir)
	if err != nil {
		b.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := r.Get(ctx, []byte("large")); err != nil {
			b.Fatalf("Get: %v", err)
		}
	}
}
