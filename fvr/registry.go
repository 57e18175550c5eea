package fvr

import "sync"

// dbLock is the process-wide, path-keyed lock pair guarding intra-process
// access to one _VERSION file. See doc.go for why this exists alongside the
// OS byte-range lock.
type dbLock struct {
	metaMu   sync.Mutex
	recordMu sync.Mutex
}

var registry sync.Map // absolute path (string) -> *dbLock

func lockFor(path string) *dbLock {
	v, _ := registry.LoadOrStore(path, &dbLock{})
	return v.(*dbLock)
}
