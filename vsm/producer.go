package vsm

import "context"

// Writer is the narrow surface a Producer uses to populate a freshly
// opened writable snapshot.
type Writer[K, V any] interface {
	Put(k K, v V) error
}

// Producer is a one-shot bulk-write component. Produce is invoked exactly
// once per WriteOnce call, against a writable handle on a brand-new,
// not-yet-published version directory. A non-nil return aborts the write
// and discards the scratch directory.
type Producer[K, V any] interface {
	Produce(ctx context.Context, w Writer[K, V]) error
}

// MapProducer is a Producer that writes a fixed map of values, useful for
// tests and small one-off imports.
type MapProducer[K comparable, V any] struct {
	Data map[K]V
}

// NewMapProducer returns a Producer that writes exactly the entries of data.
func NewMapProducer[K comparable, V any](data map[K]V) *MapProducer[K, V] {
	return &MapProducer[K, V]{Data: data}
}

func (p *MapProducer[K, V]) Produce(_ context.Context, w Writer[K, V]) error {
	for k, v := range p.Data {
		if err := w.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}
