// Package fvr implements the Fixed Version Record: a small, fixed-size,
// memory-mapped file that holds a logical database's publicly visible
// current version and one access-time slot per allowable version.
//
// The file layout is bit-exact and intentionally simple (see FixedVersionRecordLock
// in original_source for the Java draft this is ported from): 4 bytes of
// metadata followed by R 12-byte records. Every mutation goes through a
// byte-range advisory lock acquired with a non-blocking fcntl(F_SETLK), so
// cooperating processes on the same host can publish and reclaim versions
// without a central coordinator.
//
// Within one process, POSIX advisory locks do not provide mutual exclusion
// between two *FVR handles pointing at the same file - the kernel considers
// them the same owner. fvr therefore pairs every byte-range lock with a
// process-wide, path-keyed mutex (see registry.go) so that a resident VSM's
// FVR and a transient FVR opened by MDM's disk-quota sweep never race each
// other in-process, while still relying on the OS lock to coordinate with
// other processes.
package fvr
