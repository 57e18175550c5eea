package snapshot

import (
	"context"
	"testing"
)

func TestWriteCloseReopenReadOnly(t *testing.T) {
	dir := t.TempDir()
	e := New(&Options{NumShards: 4})
	ctx := context.Background()

	w, err := e.OpenWritable(dir)
	if err != nil {
		t.Fatalf("OpenWritable: %v", err)
	}
	if err := w.Put(ctx, []byte("a"), []byte("1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := w.Put(ctx, []byte("b"), []byte("2")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := e.OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	v, ok, err := r.Get(ctx, []byte("a"))
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("expected (1,true,nil), got (%s,%v,%v)", v, ok, err)
	}

	_, ok, err = r.Get(ctx, []byte("missing"))
	if err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}
}

func TestMultiGetPreservesOrderAndMisses(t *testing.T) {
	dir := t.TempDir()
	e := New(&Options{NumShards: 2})
	ctx := context.Background()

	w, err := e.OpenWritable(dir)
	if err != nil {
		t.Fatalf("OpenWritable: %v", err)
	}
	_ = w.Put(ctx, []byte("1"), []byte("a"))
	_ = w.Put(ctx, []byte("2"), []byte("b"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := e.OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	results, err := r.MultiGet(ctx, [][]byte{[]byte("1"), []byte("2"), []byte("3")})
	if err != nil {
		t.Fatalf("MultiGet: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Found || string(results[0].Value) != "a" {
		t.Errorf("expected a at index 0, got %+v", results[0])
	}
	if !results[1].Found || string(results[1].Value) != "b" {
		t.Errorf("expected b at index 1, got %+v", results[1])
	}
	if results[2].Found {
		t.Errorf("expected a miss at index 2, got %+v", results[2])
	}
}

func TestPutOnReadOnlyHandlePanics(t *testing.T) {
	dir := t.TempDir()
	e := New(nil)
	ctx := context.Background()

	w, _ := e.OpenWritable(dir)
	_ = w.Close()

	r, err := e.OpenReadOnly(dir)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer r.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic calling Put on a read-only handle")
		}
	}()
	_ = r.Put(ctx, []byte("x"), []byte("y"))
}
