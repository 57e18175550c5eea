package snapshot

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fvrstore/fvrstore/engine"
	"github.com/fvrstore/fvrstore/engine/hashutil"
	"github.com/fvrstore/fvrstore/errs"
)

const (
	magic        = "FVRSNAP1"
	formatVer    = uint8(1)
	dataFileName = "data.bin"
)

// Options configures a new Engine.
type Options struct {
	// NumShards is the number of independent map partitions. Zero selects
	// runtime.NumCPU().
	NumShards int
}

// Engine is a sharded, in-memory Engine implementation whose snapshots
// persist to a single flat file per directory.
type Engine struct {
	numShards int
}

// New returns an Engine with the given options (nil selects defaults).
func New(opts *Options) *Engine {
	n := 0
	if opts != nil {
		n = opts.NumShards
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return &Engine{numShards: n}
}

var _ engine.Engine = (*Engine)(nil)

// OpenWritable creates dir if needed and returns a fresh writable handle.
// If dir already contains a data file (written by an earlier Close of a
// writable handle on dir), it is loaded first, so the new handle continues
// from the saved contents instead of starting empty.
func (e *Engine) OpenWritable(dir string) (engine.Handle, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.IoError, "mkdir "+dir, err)
	}

	seed := hashutil.GenerateSeed()
	shards := make([]*shard, e.numShards)
	for i := range shards {
		shards[i] = newShard()
	}

	h := &handle{dir: dir, seed: seed, shards: shards, writable: true}

	dataPath := filepath.Join(dir, dataFileName)
	if _, err := os.Stat(dataPath); err == nil {
		if err := h.load(dataPath); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// OpenReadOnly loads the data file at dir into an immutable handle.
func (e *Engine) OpenReadOnly(dir string) (engine.Handle, error) {
	shards := make([]*shard, e.numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	h := &handle{dir: dir, shards: shards, writable: false}
	dataPath := filepath.Join(dir, dataFileName)
	if err := h.load(dataPath); err != nil {
		return nil, err
	}
	return h, nil
}

type handle struct {
	dir      string
	seed     uint64
	shards   []*shard
	writable bool
	closed   bool
}

var _ engine.Handle = (*handle)(nil)

func (h *handle) Put(_ context.Context, key, value []byte) error {
	if !h.writable {
		panic("snapshot: Put on a read-only handle")
	}
	s := shardFor(key, h.seed, h.shards)
	v := make([]byte, len(value))
	copy(v, value)
	s.data.Store(string(key), v)
	return nil
}

func (h *handle) Get(_ context.Context, key []byte) ([]byte, bool, error) {
	s := shardFor(key, h.seed, h.shards)
	v, ok := s.data.Load(string(key))
	return v, ok, nil
}

func (h *handle) MultiGet(ctx context.Context, keys [][]byte) ([]engine.Result, error) {
	results := make([]engine.Result, len(keys))
	for i, k := range keys {
		v, ok, err := h.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		results[i] = engine.Result{Value: v, Found: ok}
	}
	return results, nil
}

// Close flushes a writable handle's shards to dir/data.bin durably. Closing
// a read-only handle is a no-op beyond marking it closed.
func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if !h.writable {
		return nil
	}
	return h.save(filepath.Join(h.dir, dataFileName))
}

func (h *handle) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "create "+path, err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1<<20)

	type kv struct {
		key, value []byte
	}
	var all []kv
	for _, s := range h.shards {
		s.data.Range(func(k string, v []byte) bool {
			all = append(all, kv{key: []byte(k), value: v})
			return true
		})
	}

	if _, err := bw.WriteString(magic); err != nil {
		return errs.Wrap(errs.IoError, "write magic", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, formatVer); err != nil {
		return errs.Wrap(errs.IoError, "write version", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, h.seed); err != nil {
		return errs.Wrap(errs.IoError, "write seed", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(all))); err != nil {
		return errs.Wrap(errs.IoError, "write entry count", err)
	}

	for _, item := range all {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return errs.Wrap(errs.IoError, "write key length", err)
		}
		if _, err := bw.Write(item.key); err != nil {
			return errs.Wrap(errs.IoError, "write key", err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.value))); err != nil {
			return errs.Wrap(errs.IoError, "write value length", err)
		}
		if _, err := bw.Write(item.value); err != nil {
			return errs.Wrap(errs.IoError, "write value", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return errs.Wrap(errs.IoError, "flush "+path, err)
	}
	return f.Sync()
}

func (h *handle) load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errs.Wrap(errs.IoError, "open "+path, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 1<<20)

	magicBytes := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return errs.Wrap(errs.IoError, "read magic", err)
	}
	if string(magicBytes) != magic {
		return errs.New(errs.EngineError, fmt.Sprintf("%s: bad magic", path))
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return errs.Wrap(errs.IoError, "read version", err)
	}
	if version != formatVer {
		return errs.New(errs.EngineError, fmt.Sprintf("%s: unsupported format version %d", path, version))
	}

	var seed uint64
	if err := binary.Read(br, binary.LittleEndian, &seed); err != nil {
		return errs.Wrap(errs.IoError, "read seed", err)
	}
	h.seed = seed

	numShards := len(h.shards)
	if numShards == 0 {
		numShards = runtime.NumCPU()
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = newShard()
	}
	h.shards = shards

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return errs.Wrap(errs.IoError, "read entry count", err)
	}

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return errs.Wrap(errs.IoError, "read key length", err)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return errs.Wrap(errs.IoError, "read key", err)
		}

		var valLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valLen); err != nil {
			return errs.Wrap(errs.IoError, "read value length", err)
		}
		value := make([]byte, valLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return errs.Wrap(errs.IoError, "read value", err)
		}

		s := shardFor(key, h.seed, h.shards)
		s.data.Store(string(key), value)
	}
	return nil
}
