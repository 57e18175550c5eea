package fvr

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/fvrstore/fvrstore/errs"
)

const (
	// FileName is the canonical name of the record file inside a database
	// directory.
	FileName = "_VERSION"

	metaSize   = 4
	recordSize = 12

	// DefaultRecordCount is used when a caller passes a non-positive or
	// out-of-range record capacity.
	DefaultRecordCount = 64
	// MaxRecordCount is the hard ceiling on record capacity.
	MaxRecordCount = 1024

	// Clearing is the sentinel access-timestamp value that marks a version
	// as being reclaimed. Readers must refuse to open a version carrying it.
	Clearing int64 = -1
)

// FVR is a memory-mapped, cross-process-safe Fixed Version Record file.
type FVR struct {
	path string
	r    int32

	file *os.File
	data []byte // mmap of the whole file, length metaSize + r*recordSize

	lk     *dbLock
	closed bool
}

// Open resolves dbDir/_VERSION (or uses dbDir as-is if it already names a
// _VERSION file), creating and zero-extending it to the expected size if
// needed, and memory-maps it read-write.
//
// r is clamped into [1, MaxRecordCount]; a non-positive or out-of-range
// value is replaced by DefaultRecordCount.
func Open(dbDir string, r int32) (*FVR, error) {
	if r <= 0 || r > MaxRecordCount {
		r = DefaultRecordCount
	}

	path := dbDir
	if filepath.Base(dbDir) != FileName {
		path = filepath.Join(dbDir, FileName)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "resolve absolute path for "+path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errs.Wrap(errs.IoError, "open "+path, err)
	}

	expected := int64(metaSize) + int64(r)*int64(recordSize)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IoError, "stat "+path, err)
	}

	size := info.Size()
	if size < expected {
		gap := make([]byte, expected-size)
		if _, err := f.WriteAt(gap, size); err != nil {
			f.Close()
			return nil, errs.Wrap(errs.IoError, "extend "+path, err)
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, errs.Wrap(errs.IoError, "fsync "+path, err)
		}
		size = expected
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.IoError, "mmap "+path, err)
	}

	return &FVR{
		path: path,
		r:    r,
		file: f,
		data: data,
		lk:   lockFor(absPath),
	}, nil
}

// Capacity returns the record capacity R this FVR was opened with.
func (v *FVR) Capacity() int32 {
	return v.r
}

func validateVersion(version, r int32) {
	if version < 1 || version > r {
		panic(errs.Newf(errs.ArgumentError, "version out of range: %d (capacity %d)", version, r))
	}
}

func recordOffset(version int32) int {
	return metaSize + int(version-1)*recordSize
}

// Latest reads the current version field. It is lock-free and may briefly
// return a stale value under a racing writer; callers that need
// consistency re-validate via CAS.
func (v *FVR) Latest() int32 {
	return int32(binary.LittleEndian.Uint32(v.data[0:4]))
}

// RecordValue reads the access-timestamp value for version. Lock-free.
func (v *FVR) RecordValue(version int32) int64 {
	validateVersion(version, v.r)
	off := recordOffset(version) + 4
	return int64(binary.LittleEndian.Uint64(v.data[off : off+8]))
}

func (v *FVR) flush() error {
	if err := unix.Msync(v.data, unix.MS_SYNC); err != nil {
		return errs.Wrap(errs.IoError, "msync "+v.path, err)
	}
	return nil
}

// CompareAndSetMeta validates new ∈ [1, R] and new > expected, then
// atomically installs new as the current version iff the stored value is
// still expected. It returns false (with no error) when another writer won
// the race or the meta lock is busy; it returns an ArgumentError when new is
// out of range or not greater than expected, and an error on unexpected I/O
// failure.
func (v *FVR) CompareAndSetMeta(expected, newVersion int32) (bool, error) {
	if newVersion < 1 || newVersion > v.r || newVersion <= expected {
		return false, errs.Newf(errs.ArgumentError, "invalid CAS: expected=%d new=%d capacity=%d", expected, newVersion, v.r)
	}

	v.lk.metaMu.Lock()
	defer v.lk.metaMu.Unlock()

	lock, ok, err := v.tryLockRange(0, metaSize, true)
	if err != nil {
		return false, errs.Wrap(errs.LockError, "acquire meta lock", err)
	}
	if !ok {
		return false, nil
	}
	defer lock.unlock()

	current := int32(binary.LittleEndian.Uint32(v.data[0:4]))
	if current != expected {
		return false, nil
	}

	binary.LittleEndian.PutUint32(v.data[0:4], uint32(newVersion))
	if err := v.flush(); err != nil {
		return false, err
	}
	return true, nil
}

// CompareAndSetRecordValue validates version, then atomically installs
// newValue in that version's access-timestamp slot iff the stored value is
// still expected. If the record has never been tagged with this version, it
// is tagged first (first-use initialization). A recoverable I/O failure
// (lock busy, flush failure) is reported by returning false, not an error:
// the caller retries or moves on, matching the maintenance loop's absorb-
// and-continue error policy.
func (v *FVR) CompareAndSetRecordValue(version int32, expected, newValue int64) bool {
	validateVersion(version, v.r)

	v.lk.recordMu.Lock()
	defer v.lk.recordMu.Unlock()

	off := recordOffset(version)
	lock, ok, err := v.tryLockRange(int64(off), recordSize, true)
	if err != nil || !ok {
		return false
	}
	defer lock.unlock()

	tag := int32(binary.LittleEndian.Uint32(v.data[off : off+4]))
	if tag != version {
		binary.LittleEndian.PutUint32(v.data[off:off+4], uint32(version))
	}

	valOff := off + 4
	current := int64(binary.LittleEndian.Uint64(v.data[valOff : valOff+8]))
	if current != expected {
		return false
	}

	binary.LittleEndian.PutUint64(v.data[valOff:valOff+8], uint64(newValue))
	if err := v.flush(); err != nil {
		return false
	}
	return true
}

// Lock is an externally held advisory byte-range lock, used by callers that
// implement custom multi-step critical sections (e.g. MDM's disk-quota
// reclaimer operating on a database outside the open-handle cache).
type Lock struct {
	release func()
}

// Unlock releases the lock. Idempotent.
func (l *Lock) Unlock() {
	if l.release != nil {
		l.release()
		l.release = nil
	}
}

type osLock struct {
	release func()
}

func (v *FVR) tryLockRange(start int64, length int, exclusive bool) (*osLock, bool, error) {
	lockType := int16(unix.F_RDLCK)
	if exclusive {
		lockType = unix.F_WRLCK
	}
	fl := unix.Flock_t{
		Type:   lockType,
		Whence: 0, // io.SeekStart
		Start:  start,
		Len:    int64(length),
	}
	if err := unix.FcntlFlock(v.file.Fd(), unix.F_SETLK, &fl); err != nil {
		if err == unix.EAGAIN || err == unix.EACCES {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &osLock{release: func() {
		ul := unix.Flock_t{Type: unix.F_UNLCK, Whence: 0, Start: start, Len: int64(length)}
		_ = unix.FcntlFlock(v.file.Fd(), unix.F_SETLK, &ul)
	}}, true, nil
}

func (l *osLock) unlock() {
	l.release()
}

// TryLockMeta attempts to acquire the exclusive byte-range lock guarding the
// current-version field, without blocking. ok is false if another process
// (or, via the registry, another in-process holder) holds the lock.
func (v *FVR) TryLockMeta() (lock *Lock, ok bool, err error) {
	if !v.lk.metaMu.TryLock() {
		return nil, false, nil
	}
	osl, acquired, err := v.tryLockRange(0, metaSize, true)
	if err != nil || !acquired {
		v.lk.metaMu.Unlock()
		return nil, false, err
	}
	return &Lock{release: func() {
		osl.unlock()
		v.lk.metaMu.Unlock()
	}}, true, nil
}

// TryLockRecord attempts to acquire the exclusive byte-range lock guarding
// version's 12-byte record, without blocking.
func (v *FVR) TryLockRecord(version int32) (lock *Lock, ok bool, err error) {
	validateVersion(version, v.r)

	if !v.lk.recordMu.TryLock() {
		return nil, false, nil
	}
	off := recordOffset(version)
	osl, acquired, err := v.tryLockRange(int64(off), recordSize, true)
	if err != nil || !acquired {
		v.lk.recordMu.Unlock()
		return nil, false, err
	}
	return &Lock{release: func() {
		osl.unlock()
		v.lk.recordMu.Unlock()
	}}, true, nil
}

// Close unmaps and closes the underlying file. Idempotent.
func (v *FVR) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true

	var err error
	if v.data != nil {
		if uerr := unix.Munmap(v.data); uerr != nil {
			err = errs.Wrap(errs.IoError, "munmap "+v.path, uerr)
		}
		v.data = nil
	}
	if cerr := v.file.Close(); cerr != nil && err == nil {
		err = errs.Wrap(errs.IoError, "close "+v.path, cerr)
	}
	return err
}
