// Package engine defines the narrow contract a snapshot storage backend must
// satisfy, cut down to the operations VSM actually needs: open a directory
// writable or read-only, put, get, multi-get, close.
package engine

import "context"

// Handle is an open instance of an engine pointing at one snapshot
// directory. A writable Handle accepts Put; a read-only Handle does not
// (Put on a read-only Handle is a programming error and may panic).
type Handle interface {
	// Put inserts or overwrites the value for key. Only valid on a writable
	// handle.
	Put(ctx context.Context, key, value []byte) error

	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key []byte) ([]byte, bool, error)

	// MultiGet returns one result per input key, in input order.
	MultiGet(ctx context.Context, keys [][]byte) ([]Result, error)

	// Close closes the handle. For a writable handle this must durably
	// flush such that a subsequent OpenReadOnly in this or another process
	// observes exactly the data that was Put.
	Close() error
}

// Result is one entry of a MultiGet response.
type Result struct {
	Value []byte
	Found bool
}

// Engine opens Handles rooted at a directory.
type Engine interface {
	// OpenWritable creates or opens a writable handle at dir.
	OpenWritable(dir string) (Handle, error)

	// OpenReadOnly opens a read-only handle at dir. dir must already
	// contain a complete snapshot (i.e. a writable handle on it was
	// previously closed).
	OpenReadOnly(dir string) (Handle, error)
}
